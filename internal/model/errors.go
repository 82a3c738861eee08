package model

import "errors"

var (
	// ErrInvalidInput is returned when a request fails shape validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEventNotFound is returned when the referenced event does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrAlreadyBooked is returned when the user already holds a booking for the event.
	ErrAlreadyBooked = errors.New("user already booked this event")

	// ErrSoldOut is returned when the event has no remaining capacity.
	ErrSoldOut = errors.New("no seats available for this event")
)

// Outcome labels the result of a reservation attempt for logs and metrics.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeInvalid       Outcome = "invalid"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeDuplicateUser Outcome = "duplicate_user"
	OutcomeSoldOut       Outcome = "sold_out"
	OutcomeInternal      Outcome = "internal"
)

// OutcomeOf classifies the error returned by a reservation attempt.
// A nil error means the booking was created.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCreated
	case errors.Is(err, ErrInvalidInput):
		return OutcomeInvalid
	case errors.Is(err, ErrEventNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrAlreadyBooked):
		return OutcomeDuplicateUser
	case errors.Is(err, ErrSoldOut):
		return OutcomeSoldOut
	default:
		return OutcomeInternal
	}
}

// IsRejection reports whether the outcome is an expected business-rule result
// rather than a fault.
func (o Outcome) IsRejection() bool {
	switch o {
	case OutcomeInvalid, OutcomeNotFound, OutcomeDuplicateUser, OutcomeSoldOut:
		return true
	}
	return false
}
