package models

import "time"

type BookingEventType string

const (
	BookingCreated     BookingEventType = "created"
	BookingRescheduled BookingEventType = "rescheduled"
	BookingCanceled    BookingEventType = "canceled"
)

// BookingEvent is published on every order state change.
type BookingEvent struct {
	EventID    string           `json:"event_id"`
	Type       BookingEventType `json:"type"`
	OrderID    int64            `json:"order_id"`
	UserID     int64            `json:"user_id"`
	Status     OrderStatus      `json:"status"`
	BookedAt   *time.Time       `json:"booked_at,omitempty"`
	Plate      string           `json:"plate,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
