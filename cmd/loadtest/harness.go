package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/seat-reservation/internal/model"
)

// errNoResponse marks an attempt whose response never arrived. The server may
// or may not have committed it.
var errNoResponse = errors.New("no response")

// Client talks to a running reservation API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

// CreateEvent seeds an event through the API.
func (c *Client) CreateEvent(ctx context.Context, name string, seats int) (*model.Event, error) {
	resp, err := c.postJSON(ctx, "/api/events", model.CreateEventRequest{Name: name, TotalSeats: seats})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create event: unexpected status %d", resp.StatusCode)
	}
	var ev model.Event
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}

// Reserve attempts one reservation and classifies the response.
func (c *Client) Reserve(ctx context.Context, eventID int64, userID string) model.BookingResult {
	result := model.BookingResult{UserID: userID}

	resp, err := c.postJSON(ctx, "/api/bookings/reserve", model.ReserveRequest{EventID: eventID, UserID: userID})
	if err != nil {
		result.Outcome = model.OutcomeInternal
		result.Err = fmt.Errorf("%w: %w", errNoResponse, err)
		return result
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var e model.ErrorResponse
	_ = json.Unmarshal(body, &e)

	result.Outcome = classify(resp.StatusCode, e.Message)
	if result.Outcome == model.OutcomeInternal {
		result.Err = fmt.Errorf("status %d: %s", resp.StatusCode, e.Message)
	}
	return result
}

// Bookings lists the bookings persisted for an event.
func (c *Client) Bookings(ctx context.Context, eventID int64) ([]model.Booking, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/events/%d/bookings", c.baseURL, eventID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list bookings: unexpected status %d", resp.StatusCode)
	}
	var bookings []model.Booking
	if err := json.NewDecoder(resp.Body).Decode(&bookings); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	return bookings, nil
}

func classify(status int, message string) model.Outcome {
	switch status {
	case http.StatusCreated:
		return model.OutcomeCreated
	case http.StatusBadRequest:
		return model.OutcomeInvalid
	case http.StatusNotFound:
		return model.OutcomeNotFound
	case http.StatusConflict:
		if strings.Contains(strings.ToLower(message), "already booked") {
			return model.OutcomeDuplicateUser
		}
		return model.OutcomeSoldOut
	default:
		return model.OutcomeInternal
	}
}

// Plan describes one load run.
type Plan struct {
	Seats       int
	Requests    int
	Concurrency int
	// Users is the size of the user pool; fewer users than requests makes
	// some requests duplicates. Zero means one distinct user per request.
	Users int
}

// Report is the outcome of a load run.
type Report struct {
	Event      *model.Event
	Counts     map[model.Outcome]int
	Persisted  int
	// NoResponse counts attempts with an unknown result, e.g. client timeouts.
	NoResponse int
	Violations []string
	Errors     []error
}

// Run seeds an event, fires the planned reservations concurrently and checks
// the persisted bookings against the capacity and uniqueness invariants.
func Run(ctx context.Context, c *Client, p Plan) (*Report, error) {
	ev, err := c.CreateEvent(ctx, "loadtest-"+uuid.NewString(), p.Seats)
	if err != nil {
		return nil, err
	}

	users := userPool(p)
	results := make([]model.BookingResult, p.Requests)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Concurrency, 1))
	for i := 0; i < p.Requests; i++ {
		g.Go(func() error {
			results[i] = c.Reserve(gctx, ev.ID, users[i%len(users)])
			return nil
		})
	}
	_ = g.Wait()

	bookings, err := c.Bookings(ctx, ev.ID)
	if err != nil {
		return nil, err
	}

	report := &Report{Event: ev, Counts: map[model.Outcome]int{}, Persisted: len(bookings)}
	for _, r := range results {
		report.Counts[r.Outcome]++
		if r.Err != nil {
			report.Errors = append(report.Errors, r.Err)
		}
		if errors.Is(r.Err, errNoResponse) {
			report.NoResponse++
		}
	}
	report.Violations = checkInvariants(p.Seats, bookings, report.Counts[model.OutcomeCreated], report.NoResponse)
	return report, nil
}

func userPool(p Plan) []string {
	n := p.Users
	if n <= 0 || n > p.Requests {
		n = p.Requests
	}
	users := make([]string, max(n, 1))
	for i := range users {
		users[i] = uuid.NewString()
	}
	return users
}

// checkInvariants compares the persisted bookings with what clients saw.
// Attempts without a response may have committed, so persisted may exceed
// created by at most noResponse.
func checkInvariants(seats int, bookings []model.Booking, created, noResponse int) []string {
	var violations []string
	if len(bookings) > seats {
		violations = append(violations, fmt.Sprintf("overbooked: %d bookings for %d seats", len(bookings), seats))
	}

	seen := make(map[string]int, len(bookings))
	for _, b := range bookings {
		seen[b.UserID]++
	}
	var dups []string
	for user, n := range seen {
		if n > 1 {
			dups = append(dups, fmt.Sprintf("%s x%d", user, n))
		}
	}
	sort.Strings(dups)
	for _, d := range dups {
		violations = append(violations, "duplicate booking: "+d)
	}

	switch persisted := len(bookings); {
	case persisted < created:
		violations = append(violations, fmt.Sprintf("%d reservations reported created but only %d persisted", created, persisted))
	case persisted > created+noResponse:
		violations = append(violations, fmt.Sprintf("%d bookings persisted but only %d reported created (%d without response)", persisted, created, noResponse))
	}
	return violations
}
