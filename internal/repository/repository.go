// Package repository implements all database queries for the seat reservation
// system. It uses pgx directly (no ORM).
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/seat-reservation/internal/model"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const selectEventWithRemaining = `
	SELECT e.id, e.name, e.total_seats,
	       GREATEST(e.total_seats - COUNT(b.id), 0)::int AS remaining_seats
	FROM events e
	LEFT JOIN bookings b ON b.event_id = e.id`

// Create inserts a new event and returns it with its generated id.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
		Name:           req.Name,
		TotalSeats:     req.TotalSeats,
		RemainingSeats: req.TotalSeats,
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO events (name, total_seats) VALUES ($1, $2) RETURNING id`,
		event.Name, event.TotalSeats,
	).Scan(&event.ID)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns all events with their current remaining seats, ordered by id.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx, selectEventWithRemaining+`
		GROUP BY e.id
		ORDER BY e.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.TotalSeats, &e.RemainingSeats); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or model.ErrEventNotFound. The read takes no
// lock, so remaining seats may be stale by the time the caller acts on it.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx, selectEventWithRemaining+`
		WHERE e.id = $1
		GROUP BY e.id`,
		id,
	).Scan(&e.ID, &e.Name, &e.TotalSeats, &e.RemainingSeats)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	db *pgxpool.Pool
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

// ListByEvent returns all bookings for a given event in insertion order.
func (r *BookingRepository) ListByEvent(ctx context.Context, eventID int64) ([]model.Booking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, user_id, created_at
		 FROM bookings
		 WHERE event_id = $1
		 ORDER BY id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.EventID, &b.UserID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
