package model

// EventStats is what the reservation transaction reads under the event row
// lock: the event itself plus its booking counts.
type EventStats struct {
	EventID       int64
	Name          string
	TotalSeats    int
	TotalBookings int
	UserBookings  int
}

// Check applies the reservation policy. The duplicate check runs before the
// capacity check, so a returning user on a sold-out event gets
// ErrAlreadyBooked.
func (s EventStats) Check() error {
	if s.UserBookings > 0 {
		return ErrAlreadyBooked
	}
	if s.TotalBookings >= s.TotalSeats {
		return ErrSoldOut
	}
	return nil
}

// AfterBooking returns the event snapshot once one more booking is counted.
func (s EventStats) AfterBooking() Event {
	return Event{
		ID:             s.EventID,
		Name:           s.Name,
		TotalSeats:     s.TotalSeats,
		RemainingSeats: max(s.TotalSeats-(s.TotalBookings+1), 0),
	}
}
