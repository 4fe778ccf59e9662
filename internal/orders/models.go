package orders

import (
	"fmt"
	"math/rand"
	"time"
)

// Order statuses. CONFIRMED and CANCELLED are terminal.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

// Payment statuses, tracked independently of the order status.
const (
	PaymentPending   = "PENDING"
	PaymentSucceeded = "SUCCEEDED"
	PaymentFailed    = "FAILED"
)

// Order represents an order entity in the database
type Order struct {
	ID                    int64           `json:"id"`               // Auto-incrementing ID
	OrderNumber           string          `json:"order_number"`     // Human-facing order number, e.g. ORD-20251120-001
	CustomerName          string          `json:"customer_name"`    // Customer contact details
	CustomerEmail         string          `json:"customer_email"`
	CustomerPhone         string          `json:"customer_phone"`
	Items                 []LineItem      `json:"items"`            // Ordered line items, stored as JSONB
	DeliveryAddress       DeliveryAddress `json:"delivery_address"` // Structured delivery address, stored as JSONB
	DeliveryInstructions  string          `json:"delivery_instructions"`
	Subtotal              int64           `json:"subtotal"`     // Sum of item prices in cents
	DeliveryFee           int64           `json:"delivery_fee"` // Delivery fee in cents
	Total                 int64           `json:"total"`        // subtotal + delivery_fee, in cents
	Status                string          `json:"status"`         // PENDING, CONFIRMED or CANCELLED
	PaymentStatus         string          `json:"payment_status"` // PENDING, SUCCEEDED or FAILED
	StripeSessionID       string          `json:"stripe_session_id"`        // Checkout session, set once after creation
	StripePaymentIntentID string          `json:"stripe_payment_intent_id"` // Set only when payment completes
	ConfirmedAt           *time.Time      `json:"confirmed_at"`             // Set exactly once, on confirmation
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// LineItem is embedded in an order; it has no identity of its own.
type LineItem struct {
	Name          string         `json:"name" validate:"required"`
	Price         int64          `json:"price" validate:"required,min=1"` // Unit price in cents
	Quantity      int            `json:"quantity" validate:"required,min=1"`
	Customization map[string]any `json:"customization,omitempty"`
}

type DeliveryAddress struct {
	Street     string `json:"street" validate:"required"`
	Apartment  string `json:"apartment,omitempty"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// NewOrder carries everything the checkout handler collects before an
// order row exists. Totals are computed server-side, never trusted
// from the client.
type NewOrder struct {
	CustomerName         string          `json:"customer_name" validate:"required"`
	CustomerEmail        string          `json:"customer_email" validate:"required,email"`
	CustomerPhone        string          `json:"customer_phone" validate:"required"`
	Items                []LineItem      `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress      DeliveryAddress `json:"delivery_address" validate:"required"`
	DeliveryInstructions string          `json:"delivery_instructions"`
	DeliveryFee          int64           `json:"-"`
}

// Subtotal sums price * quantity over the line items.
func (n NewOrder) Subtotal() int64 {
	var subtotal int64
	for _, item := range n.Items {
		subtotal += item.Price * int64(item.Quantity)
	}
	return subtotal
}

// PaymentEvent is the distilled form of a verified gateway event that
// the confirmation workflow consumes. It is used once and discarded.
type PaymentEvent struct {
	SessionID       string // Checkout session the payment belongs to
	PaymentIntentID string // Present once the payment completed
	PaymentStatus   string // Gateway payment status, "paid" on success
	OrderNumber     string // From the session metadata
	OrderID         string // From the session metadata
}

// Paid reports whether the event carries a completed payment.
func (e PaymentEvent) Paid() bool {
	return e.PaymentStatus == "paid"
}

// GenerateOrderNumber builds a human-facing order number from the
// current UTC date plus a 3-digit disambiguator. Uniqueness is
// ultimately enforced by the database constraint.
func GenerateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%03d", now.UTC().Format("20060102"), rand.Intn(1000))
}
