// Package model defines the core domain types for the event reservation service.
package model

import "time"

// Event represents a bookable event with a live seat counter.
//
// Capacity records the seat count the event was created with and never
// changes afterwards; AvailableSeats is decremented by committed
// reservations and may be reset by an administrative update.
type Event struct {
	ID             int64
	Title          string
	Date           time.Time
	Location       string
	Capacity       int
	AvailableSeats int
	CreatedAt      time.Time
}

// Reserved returns the number of seats currently claimed by reservations.
func (e *Event) Reserved() int {
	return e.Capacity - e.AvailableSeats
}

// SoldOut returns true when no seats remain.
func (e *Event) SoldOut() bool {
	return e.AvailableSeats <= 0
}

// Reservation is a committed claim on N seats of one event. Reservations are
// immutable once created; there is no cancellation path.
type Reservation struct {
	ID               int64
	EventID          int64
	Name             string
	Email            string
	Seats            int
	ConfirmationCode string
	CreatedAt        time.Time
}

// CreateEventInput carries the fields needed to create an event. Seats is
// both the initial availability and the recorded capacity.
type CreateEventInput struct {
	Title    string
	Date     time.Time
	Location string
	Seats    int
}

// ReservationInput carries the requester fields of a reservation attempt.
type ReservationInput struct {
	Name  string
	Email string
	Seats int
}

// EventPatch is a partial event update. A nil field means "leave unchanged";
// a non-nil pointer applies the value even when it is zero or empty, so an
// explicit availableSeats of 0 closes the event rather than being ignored.
type EventPatch struct {
	Title          *string
	Date           *time.Time
	Location       *string
	AvailableSeats *int
}

// Empty reports whether the patch sets no fields at all.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Date == nil && p.Location == nil && p.AvailableSeats == nil
}
