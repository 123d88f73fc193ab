// Package service implements business logic, validation, and orchestration
// between the SOAP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/evalverde/event-reservation-service/internal/cache"
	"github.com/evalverde/event-reservation-service/internal/model"
	"github.com/evalverde/event-reservation-service/internal/repository"
)

// ErrInvalidInput wraps all request-validation failures.
var ErrInvalidInput = errors.New("invalid input")

// ErrContention is returned when a reservation keeps losing transaction
// conflicts and the retry budget runs out. The caller may resubmit; no
// partial state was left behind.
var ErrContention = errors.New("reservation contention, retry budget exhausted")

const defaultReserveAttempts = 3

// EventStore is the persistence contract for events.
type EventStore interface {
	Create(ctx context.Context, in model.CreateEventInput) (*model.Event, error)
	ListAvailable(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id int64) (*model.Event, error)
	Update(ctx context.Context, id int64, patch model.EventPatch) error
	Delete(ctx context.Context, id int64) error
}

// ReservationLedger is the persistence contract for reservations. Reserve
// must commit the reservation row and the seat decrement as one atomic unit.
type ReservationLedger interface {
	Reserve(ctx context.Context, eventID int64, in model.ReservationInput) (*model.Reservation, error)
	ListByEvent(ctx context.Context, eventID int64) ([]model.Reservation, error)
}

// EventService orchestrates all service operations.
type EventService struct {
	events          EventStore
	reservations    ReservationLedger
	cache           cache.EventCache
	reserveAttempts int
}

// Option configures an EventService.
type Option func(*EventService)

// WithReserveAttempts overrides the retry budget applied when a reservation
// transaction is aborted by the store.
func WithReserveAttempts(n int) Option {
	return func(s *EventService) {
		if n > 0 {
			s.reserveAttempts = n
		}
	}
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, reservations ReservationLedger, c cache.EventCache, opts ...Option) *EventService {
	s := &EventService{
		events:          events,
		reservations:    reservations,
		cache:           c,
		reserveAttempts: defaultReserveAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEventParams carries the raw createEvent request fields.
type CreateEventParams struct {
	Title    string
	Date     string
	Location string
	Seats    int
}

// CreateEvent validates the request and creates the event.
func (s *EventService) CreateEvent(ctx context.Context, p CreateEventParams) (*model.Event, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Location = strings.TrimSpace(p.Location)
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if p.Location == "" {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	if p.Seats <= 0 {
		return nil, fmt.Errorf("%w: availableSeats must be a positive integer", ErrInvalidInput)
	}
	date, err := parseDate(p.Date)
	if err != nil {
		return nil, err
	}

	event, err := s.events.Create(ctx, model.CreateEventInput{
		Title:    p.Title,
		Date:     date,
		Location: p.Location,
		Seats:    p.Seats,
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.invalidateListing(ctx)
	return event, nil
}

// ListEvents returns all events with seats still available, serving from the
// cache when possible.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	if events, err := s.cache.GetEvents(ctx); err == nil {
		return events, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Printf("event cache read failed: %v", err)
	}

	events, err := s.events.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if err := s.cache.SetEvents(ctx, events); err != nil {
		log.Printf("event cache write failed: %v", err)
	}
	return events, nil
}

// UpdateEventParams carries the raw updateEvent request fields. A nil field
// was absent from the request and is left unchanged; this keeps an explicit
// zero (for example availableSeats=0) distinguishable from "not provided".
type UpdateEventParams struct {
	Title          *string
	Date           *string
	Location       *string
	AvailableSeats *int
}

// UpdateEvent validates and applies a partial update.
func (s *EventService) UpdateEvent(ctx context.Context, id int64, p UpdateEventParams) error {
	if id <= 0 {
		return fmt.Errorf("%w: eventId is required", ErrInvalidInput)
	}

	var patch model.EventPatch
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		patch.Title = &title
	}
	if p.Location != nil {
		location := strings.TrimSpace(*p.Location)
		if location == "" {
			return fmt.Errorf("%w: location cannot be empty", ErrInvalidInput)
		}
		patch.Location = &location
	}
	if p.Date != nil {
		date, err := parseDate(*p.Date)
		if err != nil {
			return err
		}
		patch.Date = &date
	}
	if p.AvailableSeats != nil {
		if *p.AvailableSeats < 0 {
			return fmt.Errorf("%w: availableSeats cannot be negative", ErrInvalidInput)
		}
		patch.AvailableSeats = p.AvailableSeats
	}
	if patch.Empty() {
		return fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}

	if err := s.events.Update(ctx, id, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("update event: %w", err)
	}
	s.invalidateListing(ctx)
	return nil
}

// DeleteEvent removes an event and, through the store's cascade, its
// reservations.
func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: eventId is required", ErrInvalidInput)
	}
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete event: %w", err)
	}
	s.invalidateListing(ctx)
	return nil
}

// ReserveParams carries the raw makeReservation request fields.
type ReserveParams struct {
	EventID int64
	Name    string
	Email   string
	Seats   int
}

// Reserve validates the request and commits the reservation through the
// ledger's atomic seat decrement.
//
// Every attempt consults the store fresh; no seat count is cached in
// process. When the store aborts the transaction with a retryable conflict
// the attempt is repeated up to the configured budget, after which the
// caller gets ErrContention and may decide to resubmit.
func (s *EventService) Reserve(ctx context.Context, p ReserveParams) (*model.Reservation, error) {
	if p.EventID <= 0 {
		return nil, fmt.Errorf("%w: eventId is required", ErrInvalidInput)
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	if !isValidEmail(p.Email) {
		return nil, fmt.Errorf("%w: email is not a valid address", ErrInvalidInput)
	}
	if p.Seats <= 0 {
		return nil, fmt.Errorf("%w: seats must be a positive integer", ErrInvalidInput)
	}

	in := model.ReservationInput{Name: p.Name, Email: p.Email, Seats: p.Seats}

	var (
		res *model.Reservation
		err error
	)
	for attempt := 1; attempt <= s.reserveAttempts; attempt++ {
		res, err = s.reservations.Reserve(ctx, p.EventID, in)
		if err == nil || !errors.Is(err, repository.ErrTxConflict) {
			break
		}
		log.Printf("reservation for event %d hit a conflict (attempt %d/%d)", p.EventID, attempt, s.reserveAttempts)
	}
	if err != nil {
		if errors.Is(err, repository.ErrTxConflict) {
			return nil, ErrContention
		}
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInsufficientSeats) {
			return nil, err
		}
		return nil, fmt.Errorf("reserve seats: %w", err)
	}

	s.invalidateListing(ctx)
	return res, nil
}

// ListRegistrations returns all reservations for an event.
func (s *EventService) ListRegistrations(ctx context.Context, eventID int64) ([]model.Reservation, error) {
	if eventID <= 0 {
		return nil, fmt.Errorf("%w: eventId is required", ErrInvalidInput)
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return s.reservations.ListByEvent(ctx, eventID)
}

// invalidateListing drops the cached event listing after any write that can
// change availability. Failures only delay freshness until the TTL expires.
func (s *EventService) invalidateListing(ctx context.Context) {
	if err := s.cache.InvalidateEvents(ctx); err != nil {
		log.Printf("event cache invalidate failed: %v", err)
	}
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: date must be RFC 3339 or YYYY-MM-DD", ErrInvalidInput)
}

// isValidEmail does a basic structural check (no external deps).
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
