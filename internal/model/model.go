// Package model defines the core domain types for the seat reservation system.
package model

import (
	"encoding/json"
	"time"
)

// Event is a bookable activity with a fixed seat capacity.
// RemainingSeats is derived per read and never persisted.
type Event struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	TotalSeats     int    `json:"total_seats"`
	RemainingSeats int    `json:"remaining_seats"`
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.RemainingSeats <= 0
}

// Booking is one seat held by one user for one event.
type Booking struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TimestampLayout is the ISO-8601 form used for timestamps on the wire.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// MarshalJSON renders created_at in UTC with millisecond precision.
func (b Booking) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID        int64  `json:"id"`
		EventID   int64  `json:"event_id"`
		UserID    string `json:"user_id"`
		CreatedAt string `json:"created_at"`
	}
	return json.Marshal(wire{
		ID:        b.ID,
		EventID:   b.EventID,
		UserID:    b.UserID,
		CreatedAt: b.CreatedAt.UTC().Format(TimestampLayout),
	})
}

// Reservation is the result of a successful reserve call: the new booking and
// the event's availability right after it committed.
type Reservation struct {
	Booking Booking `json:"booking"`
	Event   Event   `json:"event"`
}

// ReserveRequest is the payload for reserving a seat.
type ReserveRequest struct {
	EventID int64  `json:"event_id" validate:"required,min=1"`
	UserID  string `json:"user_id" validate:"required,min=1"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name       string `json:"name" validate:"required"`
	TotalSeats int    `json:"total_seats" validate:"min=0,max=100000"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Message string `json:"message"`
}

// BookingResult summarises the outcome of a single reservation attempt.
// Used by the concurrent load harness.
type BookingResult struct {
	UserID  string
	Outcome Outcome
	Err     error
}
