package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"order-service/internal/mailer"
	"order-service/internal/stores/kafka"
	"order-service/pkg/logkey"
)

// Outcome describes what a payment event did to an order. Every
// outcome except a store failure is acknowledged to the gateway so it
// stops redelivering.
type Outcome string

const (
	OutcomeConfirmed     Outcome = "confirmed" // First delivery, state transitioned
	OutcomeDuplicate     Outcome = "duplicate" // Already confirmed, no-op
	OutcomeSkipped       Outcome = "skipped"   // Event does not report a completed payment
	OutcomeCancelled     Outcome = "cancelled" // Payment failed or session expired
	OutcomeOrderNotFound Outcome = "order_not_found"
)

// ErrNotConfirmed is returned when a notification re-send is requested
// for an order that has not been confirmed.
var ErrNotConfirmed = errors.New("order is not confirmed")

// Store is the slice of the order store the confirmation workflow
// needs. *Conf satisfies it.
type Store interface {
	GetOrderBySessionID(ctx context.Context, sessionID string) (Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error)
	ConfirmOrder(ctx context.Context, orderID int64, paymentIntentID string) (bool, error)
	MarkPaymentFailed(ctx context.Context, orderID int64) (bool, error)
}

// EventProducer publishes domain events; kafka.Conf satisfies it.
type EventProducer interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte) error
}

// Confirmer is the single authority for turning a verified payment
// event into a confirmed order plus its notifications. All
// dependencies are injected; it holds no state of its own.
type Confirmer struct {
	store         Store
	sender        mailer.Sender
	events        EventProducer
	operatorEmail string
}

func NewConfirmer(store Store, sender mailer.Sender, events EventProducer, operatorEmail string) (*Confirmer, error) {
	if store == nil {
		return nil, fmt.Errorf("order store is nil")
	}
	if sender == nil {
		return nil, fmt.Errorf("mail sender is nil")
	}
	if operatorEmail == "" {
		return nil, fmt.Errorf("operator email not configured")
	}
	return &Confirmer{
		store:         store,
		sender:        sender,
		events:        events,
		operatorEmail: operatorEmail,
	}, nil
}

// Process consumes one verified payment event. The returned error is
// non-nil only for store failures, where a gateway redelivery can
// genuinely help; every business outcome is absorbed into the Outcome.
//
// The idempotency gate lives in the store's conditional update: when
// ConfirmOrder matches zero rows the event is a duplicate (or lost a
// race against a concurrent delivery) and no side effect runs.
func (cf *Confirmer) Process(ctx context.Context, ev PaymentEvent) (Outcome, error) {
	order, err := cf.lookup(ctx, ev)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			slog.Error("payment event references unknown order",
				slog.String(logkey.SessionID, ev.SessionID),
				slog.String(logkey.OrderNumber, ev.OrderNumber))
			return OutcomeOrderNotFound, nil
		}
		return "", err
	}

	if !ev.Paid() {
		slog.Info("ignoring payment event without completed payment",
			slog.String(logkey.OrderNumber, order.OrderNumber),
			slog.String("payment_status", ev.PaymentStatus))
		return OutcomeSkipped, nil
	}

	confirmed, err := cf.store.ConfirmOrder(ctx, order.ID, ev.PaymentIntentID)
	if err != nil {
		return "", err
	}
	if !confirmed {
		slog.Info("duplicate payment event, order already confirmed",
			slog.String(logkey.OrderNumber, order.OrderNumber))
		return OutcomeDuplicate, nil
	}

	now := time.Now().UTC()
	order.Status = StatusConfirmed
	order.PaymentStatus = PaymentSucceeded
	order.StripePaymentIntentID = ev.PaymentIntentID
	order.ConfirmedAt = &now

	cf.publishConfirmed(ctx, order)

	// Email is best-effort; the order is authoritative the moment the
	// transition committed. Failures are logged for operator re-send.
	if err := cf.sendNotifications(ctx, order); err != nil {
		slog.Error("notification dispatch failed",
			slog.String(logkey.OrderNumber, order.OrderNumber),
			slog.String(logkey.ERROR, err.Error()))
	}

	slog.Info("order confirmed",
		slog.String(logkey.OrderNumber, order.OrderNumber),
		slog.String("payment_intent", ev.PaymentIntentID))
	return OutcomeConfirmed, nil
}

// ProcessFailure cancels the order referenced by a failed or expired
// checkout session. Confirmed orders are untouched; the conditional
// update only matches PENDING rows.
func (cf *Confirmer) ProcessFailure(ctx context.Context, ev PaymentEvent) (Outcome, error) {
	order, err := cf.lookup(ctx, ev)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			slog.Error("failure event references unknown order",
				slog.String(logkey.SessionID, ev.SessionID))
			return OutcomeOrderNotFound, nil
		}
		return "", err
	}

	cancelled, err := cf.store.MarkPaymentFailed(ctx, order.ID)
	if err != nil {
		return "", err
	}
	if !cancelled {
		slog.Info("failure event ignored, order no longer pending",
			slog.String(logkey.OrderNumber, order.OrderNumber),
			slog.String("status", order.Status))
		return OutcomeSkipped, nil
	}

	cf.publishCancelled(ctx, order)
	slog.Info("order cancelled", slog.String(logkey.OrderNumber, order.OrderNumber))
	return OutcomeCancelled, nil
}

// ResendNotifications re-sends both confirmation emails for an order
// that is already CONFIRMED, without touching payment logic.
func (cf *Confirmer) ResendNotifications(ctx context.Context, orderNumber string) error {
	order, err := cf.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return err
	}
	if order.Status != StatusConfirmed {
		return fmt.Errorf("order %s: %w", orderNumber, ErrNotConfirmed)
	}
	return cf.sendNotifications(ctx, order)
}

func (cf *Confirmer) lookup(ctx context.Context, ev PaymentEvent) (Order, error) {
	if ev.SessionID != "" {
		order, err := cf.store.GetOrderBySessionID(ctx, ev.SessionID)
		if err == nil || !errors.Is(err, ErrOrderNotFound) {
			return order, err
		}
	}
	if ev.OrderNumber != "" {
		return cf.store.GetOrderByNumber(ctx, ev.OrderNumber)
	}
	return Order{}, ErrOrderNotFound
}

// sendNotifications attempts both emails even when one fails.
func (cf *Confirmer) sendNotifications(ctx context.Context, order Order) error {
	customerErr := cf.sender.Send(ctx, order.CustomerEmail,
		fmt.Sprintf("Order Confirmation - %s", order.OrderNumber), customerEmailHTML(order))
	operatorErr := cf.sender.Send(ctx, cf.operatorEmail,
		fmt.Sprintf("New Order - %s", order.OrderNumber), operatorEmailHTML(order))
	return errors.Join(customerErr, operatorErr)
}

func (cf *Confirmer) publishConfirmed(ctx context.Context, order Order) {
	if cf.events == nil {
		return
	}
	jsonData, err := json.Marshal(kafka.OrderConfirmedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Total:       order.Total,
		ConfirmedAt: *order.ConfirmedAt,
	})
	if err != nil {
		slog.Error("failed to marshal OrderConfirmedEvent", slog.String(logkey.ERROR, err.Error()))
		return
	}
	key := []byte(order.OrderNumber)
	if err := cf.events.ProduceMessage(ctx, kafka.TopicOrderConfirmed, key, jsonData); err != nil {
		slog.Error("failed to produce message", slog.String(logkey.ERROR, err.Error()))
		return
	}
	slog.Info("message produced", slog.String("topic", kafka.TopicOrderConfirmed),
		slog.String(logkey.OrderNumber, order.OrderNumber))
}

func (cf *Confirmer) publishCancelled(ctx context.Context, order Order) {
	if cf.events == nil {
		return
	}
	jsonData, err := json.Marshal(kafka.OrderCancelledEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CancelledAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Error("failed to marshal OrderCancelledEvent", slog.String(logkey.ERROR, err.Error()))
		return
	}
	key := []byte(order.OrderNumber)
	if err := cf.events.ProduceMessage(ctx, kafka.TopicOrderCancelled, key, jsonData); err != nil {
		slog.Error("failed to produce message", slog.String(logkey.ERROR, err.Error()))
	}
}
