package kafka

import "time"

const (
	TopicOrderConfirmed = `order-service.order-confirmed`
	TopicOrderCancelled = `order-service.order-cancelled`
)

// Representation of events this service publishes to kafka

type OrderConfirmedEvent struct {
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Total       int64     `json:"total"` // In cents
	ConfirmedAt time.Time `json:"confirmed_at"`
}

type OrderCancelledEvent struct {
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CancelledAt time.Time `json:"cancelled_at"`
}
