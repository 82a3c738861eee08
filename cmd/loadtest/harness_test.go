package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/seat-reservation/internal/model"
)

// fakeAPI serialises reservations behind a mutex, enough to stand in for the
// real server when exercising the harness.
type fakeAPI struct {
	mu       sync.Mutex
	seats    int
	bookings []model.Booking
	overbook bool
	// stall delays the response to the first committed booking.
	stall   time.Duration
	stalled bool
}

func (f *fakeAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/events", func(w http.ResponseWriter, r *http.Request) {
		var req model.CreateEventRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.seats = req.TotalSeats
		f.mu.Unlock()
		writeTestJSON(w, http.StatusCreated, model.Event{ID: 1, Name: req.Name, TotalSeats: req.TotalSeats, RemainingSeats: req.TotalSeats})
	})
	r.Post("/api/bookings/reserve", func(w http.ResponseWriter, r *http.Request) {
		var req model.ReserveRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		b, status, msg := f.reserve(req)
		if status != http.StatusCreated {
			writeTestJSON(w, status, model.ErrorResponse{Message: msg})
			return
		}
		writeTestJSON(w, http.StatusCreated, model.Reservation{Booking: b})
	})
	r.Get("/api/events/{id}/bookings", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeTestJSON(w, http.StatusOK, f.bookings)
	})
	return r
}

func (f *fakeAPI) reserve(req model.ReserveRequest) (model.Booking, int, string) {
	f.mu.Lock()
	for _, b := range f.bookings {
		if b.UserID == req.UserID {
			f.mu.Unlock()
			return model.Booking{}, http.StatusConflict, "User already booked this event"
		}
	}
	if len(f.bookings) >= f.seats && !f.overbook {
		f.mu.Unlock()
		return model.Booking{}, http.StatusConflict, "No seats available for this event"
	}
	b := model.Booking{ID: int64(len(f.bookings) + 1), EventID: req.EventID, UserID: req.UserID, CreatedAt: time.Now()}
	f.bookings = append(f.bookings, b)
	stall := f.stall > 0 && !f.stalled
	f.stalled = f.stalled || stall
	f.mu.Unlock()

	if stall {
		time.Sleep(f.stall)
	}
	return b, http.StatusCreated, ""
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRun_CapacityRespected(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.router())
	defer srv.Close()

	report, err := Run(context.Background(), NewClient(srv.URL, srv.Client()), Plan{
		Seats:       10,
		Requests:    40,
		Concurrency: 8,
		Users:       30,
	})
	require.NoError(t, err)

	assert.Empty(t, report.Violations)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 10, report.Counts[model.OutcomeCreated])
	assert.Equal(t, 10, report.Persisted)
	assert.Equal(t, 40, report.Counts[model.OutcomeCreated]+report.Counts[model.OutcomeSoldOut]+report.Counts[model.OutcomeDuplicateUser])
}

func TestRun_DetectsOverbooking(t *testing.T) {
	api := &fakeAPI{overbook: true}
	srv := httptest.NewServer(api.router())
	defer srv.Close()

	report, err := Run(context.Background(), NewClient(srv.URL+"/", srv.Client()), Plan{
		Seats:       2,
		Requests:    5,
		Concurrency: 2,
	})
	require.NoError(t, err)

	require.NotEmpty(t, report.Violations)
	assert.Contains(t, report.Violations[0], "overbooked: 5 bookings for 2 seats")
}

func TestRun_CommittedButUnansweredIsNotAViolation(t *testing.T) {
	api := &fakeAPI{stall: 300 * time.Millisecond}
	srv := httptest.NewServer(api.router())
	defer srv.Close()

	hc := srv.Client()
	hc.Timeout = 50 * time.Millisecond
	report, err := Run(context.Background(), NewClient(srv.URL, hc), Plan{
		Seats:       3,
		Requests:    3,
		Concurrency: 3,
	})
	require.NoError(t, err)

	assert.Empty(t, report.Violations)
	assert.Equal(t, 3, report.Persisted)
	assert.Equal(t, 2, report.Counts[model.OutcomeCreated])
	assert.Equal(t, 1, report.Counts[model.OutcomeInternal])
	assert.Equal(t, 1, report.NoResponse)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status  int
		message string
		want    model.Outcome
	}{
		{http.StatusCreated, "", model.OutcomeCreated},
		{http.StatusBadRequest, "user_id is required", model.OutcomeInvalid},
		{http.StatusNotFound, "Event not found", model.OutcomeNotFound},
		{http.StatusConflict, "User already booked this event", model.OutcomeDuplicateUser},
		{http.StatusConflict, "No seats available for this event", model.OutcomeSoldOut},
		{http.StatusInternalServerError, "Internal server error", model.OutcomeInternal},
		{http.StatusBadGateway, "", model.OutcomeInternal},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status)+"/"+tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.status, tt.message))
		})
	}
}

func TestCheckInvariants(t *testing.T) {
	bookings := []model.Booking{
		{ID: 1, UserID: "alice"},
		{ID: 2, UserID: "bob"},
		{ID: 3, UserID: "alice"},
	}

	got := checkInvariants(2, bookings, 2, 0)
	assert.Equal(t, []string{
		"overbooked: 3 bookings for 2 seats",
		"duplicate booking: alice x2",
		"3 bookings persisted but only 2 reported created (0 without response)",
	}, got)

	assert.Empty(t, checkInvariants(3, bookings[:2], 2, 0))
}

func TestCheckInvariants_UnansweredAttempts(t *testing.T) {
	bookings := []model.Booking{
		{ID: 1, UserID: "alice"},
		{ID: 2, UserID: "bob"},
		{ID: 3, UserID: "carol"},
	}

	assert.Empty(t, checkInvariants(3, bookings, 2, 1), "an unanswered attempt may have committed")
	assert.Empty(t, checkInvariants(3, bookings[:2], 2, 1), "or may not have")
	assert.Equal(t,
		[]string{"3 bookings persisted but only 1 reported created (1 without response)"},
		checkInvariants(3, bookings, 1, 1),
	)
	assert.Equal(t,
		[]string{"3 reservations reported created but only 2 persisted"},
		checkInvariants(3, bookings[:2], 3, 0),
	)
}

func TestUserPool(t *testing.T) {
	assert.Len(t, userPool(Plan{Requests: 10}), 10)
	assert.Len(t, userPool(Plan{Requests: 10, Users: 4}), 4)
	assert.Len(t, userPool(Plan{Requests: 10, Users: 40}), 10)
	assert.Len(t, userPool(Plan{Requests: 0}), 1)
}
