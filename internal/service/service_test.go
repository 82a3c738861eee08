package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Shivanand-hulikatti/seat-reservation/internal/metrics"
	"github.com/Shivanand-hulikatti/seat-reservation/internal/model"
)

type mockEventStore struct {
	mock.Mock
}

func (m *mockEventStore) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *mockEventStore) List(ctx context.Context) ([]model.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Event), args.Error(1)
}

func (m *mockEventStore) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

type mockBookingStore struct {
	mock.Mock
}

func (m *mockBookingStore) Reserve(ctx context.Context, eventID int64, userID string) (*model.Reservation, error) {
	args := m.Called(ctx, eventID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *mockBookingStore) ListByEvent(ctx context.Context, eventID int64) ([]model.Booking, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Booking), args.Error(1)
}

type fixture struct {
	svc      *BookingService
	events   *mockEventStore
	bookings *mockBookingStore
	metrics  *metrics.Metrics
}

func newFixture(timeout time.Duration) *fixture {
	f := &fixture{
		events:   new(mockEventStore),
		bookings: new(mockBookingStore),
		metrics:  metrics.NewWithRegistry(prometheus.NewRegistry()),
	}
	f.svc = NewBookingService(f.events, f.bookings, f.metrics, noop.NewTracerProvider().Tracer("test"), timeout)
	return f
}

func (f *fixture) reservations(outcome model.Outcome) float64 {
	return testutil.ToFloat64(f.metrics.ReservationsTotal.WithLabelValues(string(outcome)))
}

func TestReserve_Created(t *testing.T) {
	f := newFixture(time.Second)
	want := &model.Reservation{
		Booking: model.Booking{ID: 1, EventID: 1, UserID: "alice", CreatedAt: time.Now()},
		Event:   model.Event{ID: 1, Name: "Concert", TotalSeats: 1, RemainingSeats: 0},
	}
	f.bookings.On("Reserve", mock.Anything, int64(1), "alice").Return(want, nil)

	got, err := f.svc.Reserve(context.Background(), model.ReserveRequest{EventID: 1, UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1.0, f.reservations(model.OutcomeCreated))
	f.bookings.AssertExpectations(t)
}

func TestReserve_AppliesTimeout(t *testing.T) {
	f := newFixture(250 * time.Millisecond)
	f.bookings.On("Reserve", mock.Anything, int64(1), "alice").
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(250*time.Millisecond), deadline, 200*time.Millisecond)
		}).
		Return(nil, model.ErrSoldOut)

	_, err := f.svc.Reserve(context.Background(), model.ReserveRequest{EventID: 1, UserID: "alice"})
	assert.ErrorIs(t, err, model.ErrSoldOut)
}

func TestReserve_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome model.Outcome
	}{
		{"not found", model.ErrEventNotFound, model.OutcomeNotFound},
		{"duplicate", model.ErrAlreadyBooked, model.OutcomeDuplicateUser},
		{"sold out", model.ErrSoldOut, model.OutcomeSoldOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(time.Second)
			f.bookings.On("Reserve", mock.Anything, int64(9), "bob").Return(nil, tt.err)

			got, err := f.svc.Reserve(context.Background(), model.ReserveRequest{EventID: 9, UserID: "bob"})
			assert.Nil(t, got)
			assert.Equal(t, tt.err, err, "rejections are returned unwrapped")
			assert.Equal(t, 1.0, f.reservations(tt.outcome))
		})
	}
}

func TestReserve_InternalFailureIsWrapped(t *testing.T) {
	f := newFixture(time.Second)
	cause := errors.New("commit transaction: connection reset")
	f.bookings.On("Reserve", mock.Anything, int64(1), "alice").Return(nil, cause)

	_, err := f.svc.Reserve(context.Background(), model.ReserveRequest{EventID: 1, UserID: "alice"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "reserve seat")
	assert.Equal(t, model.OutcomeInternal, model.OutcomeOf(err))
	assert.Equal(t, 1.0, f.reservations(model.OutcomeInternal))
}

func TestReserve_InvalidInputNeverReachesStore(t *testing.T) {
	tests := []struct {
		name string
		req  model.ReserveRequest
	}{
		{"zero event id", model.ReserveRequest{EventID: 0, UserID: "alice"}},
		{"negative event id", model.ReserveRequest{EventID: -3, UserID: "alice"}},
		{"empty user id", model.ReserveRequest{EventID: 1, UserID: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(time.Second)

			_, err := f.svc.Reserve(context.Background(), tt.req)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
			assert.Equal(t, 1.0, f.reservations(model.OutcomeInvalid))
			f.bookings.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateEvent(t *testing.T) {
	f := newFixture(time.Second)
	created := &model.Event{ID: 3, Name: "Meetup", TotalSeats: 50, RemainingSeats: 50}
	f.events.On("Create", mock.Anything, model.CreateEventRequest{Name: "Meetup", TotalSeats: 50}).Return(created, nil)

	got, err := f.svc.CreateEvent(context.Background(), model.CreateEventRequest{Name: "  Meetup ", TotalSeats: 50})
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreateEvent_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  model.CreateEventRequest
	}{
		{"blank name", model.CreateEventRequest{Name: "   ", TotalSeats: 1}},
		{"negative seats", model.CreateEventRequest{Name: "x", TotalSeats: -1}},
		{"too many seats", model.CreateEventRequest{Name: "x", TotalSeats: MaxTotalSeats + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(time.Second)
			_, err := f.svc.CreateEvent(context.Background(), tt.req)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
			f.events.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestGetEvent(t *testing.T) {
	f := newFixture(time.Second)
	f.events.On("GetByID", mock.Anything, int64(5)).Return(nil, model.ErrEventNotFound)

	_, err := f.svc.GetEvent(context.Background(), 5)
	assert.ErrorIs(t, err, model.ErrEventNotFound)

	_, err = f.svc.GetEvent(context.Background(), 0)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestListBookings(t *testing.T) {
	f := newFixture(time.Second)
	f.events.On("GetByID", mock.Anything, int64(1)).Return(&model.Event{ID: 1}, nil)
	f.bookings.On("ListByEvent", mock.Anything, int64(1)).Return([]model.Booking{{ID: 10, EventID: 1, UserID: "alice"}}, nil)

	got, err := f.svc.ListBookings(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListBookings_MissingEvent(t *testing.T) {
	f := newFixture(time.Second)
	f.events.On("GetByID", mock.Anything, int64(2)).Return(nil, model.ErrEventNotFound)

	_, err := f.svc.ListBookings(context.Background(), 2)
	assert.ErrorIs(t, err, model.ErrEventNotFound)
	f.bookings.AssertNotCalled(t, "ListByEvent", mock.Anything, mock.Anything)
}

func TestListEvents(t *testing.T) {
	f := newFixture(time.Second)
	f.events.On("List", mock.Anything).Return([]model.Event{{ID: 1}, {ID: 2}}, nil)

	got, err := f.svc.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
