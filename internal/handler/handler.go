// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/seat-reservation/internal/logger"
	"github.com/Shivanand-hulikatti/seat-reservation/internal/model"
)

const (
	msgEventNotFound  = "Event not found"
	msgAlreadyBooked  = "User already booked this event"
	msgSoldOut        = "No seats available for this event"
	msgInternalError  = "Internal server error"
	msgInvalidEventID = "event id must be a positive integer"
)

// BookingService is what the handlers need from the service layer.
type BookingService interface {
	Reserve(ctx context.Context, req model.ReserveRequest) (*model.Reservation, error)
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id int64) (*model.Event, error)
	ListBookings(ctx context.Context, eventID int64) ([]model.Booking, error)
}

// BookingHandler holds the HTTP handlers for the reservation API.
type BookingHandler struct {
	svc      BookingService
	validate *validator.Validate
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc BookingService) *BookingHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &BookingHandler{svc: svc, validate: v}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Message: msg})
}

// decodeJSON decodes exactly one JSON object with no unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// validationMessage renders the first failed rule of a validator error.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be <= %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func eventIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// internalError logs the fault with full detail and answers with a generic
// message.
func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.With(
		zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	).Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, msgInternalError)
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// Reserve handles POST /api/bookings/reserve
// Atomically books one seat for the user if the event has capacity left.
func (h *BookingHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req model.ReserveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	res, err := h.svc.Reserve(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, model.ErrEventNotFound):
			writeError(w, http.StatusNotFound, msgEventNotFound)
		case errors.Is(err, model.ErrAlreadyBooked):
			writeError(w, http.StatusConflict, msgAlreadyBooked)
		case errors.Is(err, model.ErrSoldOut):
			writeError(w, http.StatusConflict, msgSoldOut)
		default:
			internalError(w, r, "reservation failed", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// CreateEvent handles POST /api/events
func (h *BookingHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, r, "create event failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /api/events
func (h *BookingHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		internalError(w, r, "list events failed", err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{id}
func (h *BookingHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidEventID)
		return
	}

	event, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, msgEventNotFound)
			return
		}
		internalError(w, r, "get event failed", err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// ListBookings handles GET /api/events/{id}/bookings
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidEventID)
		return
	}

	bookings, err := h.svc.ListBookings(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, msgEventNotFound)
			return
		}
		internalError(w, r, "list bookings failed", err)
		return
	}

	if bookings == nil {
		bookings = []model.Booking{}
	}

	writeJSON(w, http.StatusOK, bookings)
}
