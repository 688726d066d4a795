package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventOrderCreated   EventType = "order.created"
	EventOrderPaid      EventType = "order.paid"
	EventOrderCancelled EventType = "order.cancelled"
	EventOrderUpdated   EventType = "order.updated"
)

// OrderEvent is published after an order change has been committed.
type OrderEvent struct {
	Type          EventType     `json:"type"`
	OrderCode     string        `json:"order_code"`
	VehicleID     uuid.UUID     `json:"vehicle_id"`
	UserID        uuid.UUID     `json:"user_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	OrderStatus   OrderStatus   `json:"order_status"`
	Source        string        `json:"source"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// EventTypeFor picks the event type describing an order's current payment status.
func EventTypeFor(p PaymentStatus) EventType {
	switch p {
	case PaymentPaid:
		return EventOrderPaid
	case PaymentFailed:
		return EventOrderCancelled
	default:
		return EventOrderUpdated
	}
}

func NewOrderEvent(t EventType, o *Order, source string) OrderEvent {
	return OrderEvent{
		Type:          t,
		OrderCode:     o.Code,
		VehicleID:     o.VehicleID,
		UserID:        o.UserID,
		PaymentStatus: o.PaymentStatus,
		OrderStatus:   o.Status,
		Source:        source,
		OccurredAt:    time.Now(),
	}
}
