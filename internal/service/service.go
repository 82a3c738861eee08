// Package service implements validation and orchestration between HTTP
// handlers and the repository layer.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/seat-reservation/internal/logger"
	"github.com/Shivanand-hulikatti/seat-reservation/internal/metrics"
	"github.com/Shivanand-hulikatti/seat-reservation/internal/model"
)

// MaxTotalSeats caps the capacity of a single event.
const MaxTotalSeats = 100_000

// EventStore is the event persistence the service needs.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id int64) (*model.Event, error)
}

// BookingStore is the booking persistence the service needs. Reserve must run
// the whole lock-check-insert sequence as one transaction.
type BookingStore interface {
	Reserve(ctx context.Context, eventID int64, userID string) (*model.Reservation, error)
	ListByEvent(ctx context.Context, eventID int64) ([]model.Booking, error)
}

// BookingService orchestrates reservation and catalog operations. It keeps no
// state between calls; all coordination happens in the store.
type BookingService struct {
	events         EventStore
	bookings       BookingStore
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	reserveTimeout time.Duration
}

// NewBookingService constructs a BookingService with its dependencies.
// reserveTimeout bounds each reservation transaction; zero disables it.
func NewBookingService(
	events EventStore,
	bookings BookingStore,
	m *metrics.Metrics,
	tracer trace.Tracer,
	reserveTimeout time.Duration,
) *BookingService {
	return &BookingService{
		events:         events,
		bookings:       bookings,
		metrics:        m,
		tracer:         tracer,
		reserveTimeout: reserveTimeout,
	}
}

// Reserve books one seat for req.UserID on req.EventID.
//
// Business rejections come back as model.ErrInvalidInput,
// model.ErrEventNotFound, model.ErrAlreadyBooked or model.ErrSoldOut. Any
// other error is an internal failure and carries the failing step.
func (s *BookingService) Reserve(ctx context.Context, req model.ReserveRequest) (*model.Reservation, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "BookingService.Reserve", trace.WithAttributes(
		attribute.Int64("event.id", req.EventID),
	))
	defer span.End()

	res, err := s.reserve(ctx, req)

	outcome := model.OutcomeOf(err)
	s.metrics.ObserveReservation(outcome, time.Since(start).Seconds())
	span.SetAttributes(attribute.String("reservation.outcome", string(outcome)))

	fields := []zap.Field{
		zap.Int64("event_id", req.EventID),
		zap.String("user_id", req.UserID),
		zap.String("outcome", string(outcome)),
	}
	switch {
	case outcome == model.OutcomeInternal:
		span.RecordError(err)
		span.SetStatus(codes.Error, "reservation failed")
	case outcome.IsRejection():
		logger.Debug("reservation rejected", append(fields, zap.Error(err))...)
	default:
		logger.Debug("seat reserved", append(fields,
			zap.Int64("booking_id", res.Booking.ID),
			zap.Int("remaining_seats", res.Event.RemainingSeats),
			zap.Bool("sold_out", res.Event.IsFull()),
		)...)
	}
	return res, err
}

func (s *BookingService) reserve(ctx context.Context, req model.ReserveRequest) (*model.Reservation, error) {
	if req.EventID < 1 {
		return nil, fmt.Errorf("%w: event_id must be a positive integer", model.ErrInvalidInput)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id must be a non-empty string", model.ErrInvalidInput)
	}

	if s.reserveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.reserveTimeout)
		defer cancel()
	}

	res, err := s.bookings.Reserve(ctx, req.EventID, req.UserID)
	if err != nil {
		if model.OutcomeOf(err).IsRejection() {
			return nil, err
		}
		return nil, fmt.Errorf("reserve seat: %w", err)
	}
	return res, nil
}

// CreateEvent validates the request and delegates to the repository.
func (s *BookingService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: event name is required", model.ErrInvalidInput)
	}
	if req.TotalSeats < 0 {
		return nil, fmt.Errorf("%w: total_seats cannot be negative", model.ErrInvalidInput)
	}
	if req.TotalSeats > MaxTotalSeats {
		return nil, fmt.Errorf("%w: total_seats cannot exceed 100,000", model.ErrInvalidInput)
	}
	return s.events.Create(ctx, req)
}

// ListEvents returns all events.
func (s *BookingService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// GetEvent returns a single event by id.
func (s *BookingService) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	if id < 1 {
		return nil, fmt.Errorf("%w: event id must be a positive integer", model.ErrInvalidInput)
	}
	return s.events.GetByID(ctx, id)
}

// ListBookings returns all bookings for an event.
func (s *BookingService) ListBookings(ctx context.Context, eventID int64) ([]model.Booking, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.bookings.ListByEvent(ctx, eventID)
}
