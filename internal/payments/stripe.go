// Package payments wraps the Stripe SDK behind narrow interfaces so
// handlers and the operator tooling never touch SDK types directly.
package payments

import (
	"context"
	"fmt"

	"order-service/internal/orders"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
)

// Session is the subset of a gateway checkout session the service
// cares about.
type Session struct {
	ID              string
	URL             string
	PaymentStatus   string // "paid", "unpaid" or "no_payment_required"
	PaymentIntentID string
	AmountTotal     int64 // In cents
}

// SessionParams describes the checkout session to create. The order
// number and id travel in the session metadata so the webhook can find
// the order even if the session lookup fails.
type SessionParams struct {
	OrderID       int64
	OrderNumber   string
	CustomerEmail string
	Items         []orders.LineItem
	DeliveryFee   int64
	Currency      string
	SuccessURL    string
	CancelURL     string
}

// Gateway is the payment provider as seen by this service.
type Gateway interface {
	CreateSession(ctx context.Context, p SessionParams) (Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (Session, error)
}

// StripeGateway implements Gateway on the Stripe checkout API.
type StripeGateway struct{}

func NewStripeGateway(secretKey string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key not provided")
	}
	stripe.Key = secretKey
	return &StripeGateway{}, nil
}

func (g *StripeGateway) CreateSession(ctx context.Context, p SessionParams) (Session, error) {
	lineItems := []*stripe.CheckoutSessionLineItemParams{}
	for _, item := range p.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(p.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.Price),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}
	if p.DeliveryFee > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(p.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Delivery"),
				},
				UnitAmount: stripe.Int64(p.DeliveryFee),
			},
			Quantity: stripe.Int64(1),
		})
	}

	params := &stripe.CheckoutSessionParams{
		SubmitType:    stripe.String("pay"),
		LineItems:     lineItems,
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(p.SuccessURL),
		CancelURL:     stripe.String(p.CancelURL),
		CustomerEmail: stripe.String(p.CustomerEmail),
	}
	params.Context = ctx
	params.AddMetadata("order_number", p.OrderNumber)
	params.AddMetadata("order_id", fmt.Sprintf("%d", p.OrderID))

	s, err := session.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return fromStripeSession(s), nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := session.Get(sessionID, params)
	if err != nil {
		return Session{}, fmt.Errorf("failed to retrieve checkout session %s: %w", sessionID, err)
	}
	return fromStripeSession(s), nil
}

func fromStripeSession(s *stripe.CheckoutSession) Session {
	out := Session{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}
