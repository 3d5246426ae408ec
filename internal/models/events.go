package models

import "time"

// Event types
const (
	EventTypeOrderUpdated      = "ORDER_UPDATED"
	EventTypeOrderRefunded     = "ORDER_REFUNDED"
	EventTypeCheckoutCompleted = "CHECKOUT_COMPLETED"
)

// BaseEvent contains common fields for all storefront events.
// SessionID identifies the session that produced the event so
// consumers can skip their own writes.
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderUpdatedEvent published after a successful order PATCH.
type OrderUpdatedEvent struct {
	BaseEvent
	Order Order `json:"order"`
}

// OrderRefundedEvent published after a successful refund.
type OrderRefundedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
}

// CheckoutCompletedEvent published once payment succeeds and the
// cart has been cleared.
type CheckoutCompletedEvent struct {
	BaseEvent
	IdempotencyKey string     `json:"idempotency_key"`
	Items          []CartItem `json:"items"`
	Total          float64    `json:"total"`
}
