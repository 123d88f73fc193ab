// Package repository implements all database queries for the reservation service.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evalverde/event-reservation-service/internal/model"
)

// ErrNotFound is returned when a referenced event does not exist.
var ErrNotFound = errors.New("event not found")

// ErrInsufficientSeats is returned when a reservation requests more seats
// than the event currently has available.
var ErrInsufficientSeats = errors.New("insufficient seats available")

// ErrTxConflict is returned when the store aborts a transaction due to a
// serialization failure or deadlock. The attempt left no partial state and
// may be retried.
var ErrTxConflict = errors.New("transaction conflict")

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event. The initial seat count is recorded both as the
// immutable capacity and as the live available_seats counter.
func (r *EventRepository) Create(ctx context.Context, in model.CreateEventInput) (*model.Event, error) {
	event := &model.Event{
		Title:          in.Title,
		Date:           in.Date,
		Location:       in.Location,
		Capacity:       in.Seats,
		AvailableSeats: in.Seats,
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO events (title, date, location, capacity, available_seats)
		 VALUES ($1, $2, $3, $4, $4)
		 RETURNING id, created_at`,
		event.Title, event.Date, event.Location, event.Capacity,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// ListAvailable returns all events that still have seats, soonest first.
func (r *EventRepository) ListAvailable(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, date, location, capacity, available_seats, created_at
		 FROM events
		 WHERE available_seats > 0
		 ORDER BY date ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Date, &e.Location, &e.Capacity, &e.AvailableSeats, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, title, date, location, capacity, available_seats, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Date, &e.Location, &e.Capacity, &e.AvailableSeats, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// Update applies the non-nil fields of the patch. The patch must set at
// least one field; callers validate that before reaching here.
func (r *EventRepository) Update(ctx context.Context, id int64, patch model.EventPatch) error {
	set := make([]string, 0, 4)
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Date != nil {
		add("date", *patch.Date)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.AvailableSeats != nil {
		add("available_seats", *patch.AvailableSeats)
	}
	if len(set) == 0 {
		return errors.New("empty patch")
	}

	tag, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE events SET %s WHERE id = $1`, strings.Join(set, ", ")),
		args...,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an event. Its reservations are removed with it via the
// ON DELETE CASCADE foreign key.
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReservationRepository handles persistence for reservations.
type ReservationRepository struct {
	db *pgxpool.Pool
}

// NewReservationRepository constructs a ReservationRepository.
func NewReservationRepository(db *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Reserve commits a reservation and the matching seat decrement as one
// transaction.
//
// The naive read-check-write sequence is a check-then-act race: two
// concurrent requests can both observe enough seats in a stale read and both
// commit, driving available_seats below zero. The decrement here re-checks
// availability in its WHERE clause, so the row lock taken by the UPDATE
// guarantees at most one of two racing requests can pass once seats run out;
// the loser sees zero rows affected. The reservation insert rides in the
// same transaction, so a reservation row can never exist without its seat
// decrement, and vice versa.
func (r *ReservationRepository) Reserve(ctx context.Context, eventID int64, in model.ReservationInput) (*model.Reservation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, execErr := tx.Exec(ctx,
		`UPDATE events
		 SET available_seats = available_seats - $2
		 WHERE id = $1 AND available_seats >= $2`,
		eventID, in.Seats,
	)
	if execErr != nil {
		err = translateTxErr(execErr, "decrement seats")
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Zero rows means either the event is missing or it lacks seats;
		// probe inside the same transaction to tell the two apart.
		var exists bool
		if err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID,
		).Scan(&exists); err != nil {
			err = fmt.Errorf("check event: %w", err)
			return nil, err
		}
		if !exists {
			err = ErrNotFound
		} else {
			err = ErrInsufficientSeats
		}
		return nil, err
	}

	res := &model.Reservation{
		EventID:          eventID,
		Name:             in.Name,
		Email:            in.Email,
		Seats:            in.Seats,
		ConfirmationCode: uuid.New().String(),
	}
	scanErr := tx.QueryRow(ctx,
		`INSERT INTO reservations (event_id, name, email, seats, confirmation_code)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		res.EventID, res.Name, res.Email, res.Seats, res.ConfirmationCode,
	).Scan(&res.ID, &res.CreatedAt)
	if scanErr != nil {
		// The event can be deleted between the decrement and the insert only
		// by a transaction that already committed; surface it as not found.
		if isForeignKeyViolation(scanErr) {
			err = ErrNotFound
		} else {
			err = translateTxErr(scanErr, "insert reservation")
		}
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		err = translateTxErr(err, "commit reservation")
		return nil, err
	}
	return res, nil
}

// ListByEvent returns all reservations for a given event, oldest first.
func (r *ReservationRepository) ListByEvent(ctx context.Context, eventID int64) ([]model.Reservation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, name, email, seats, confirmation_code, created_at
		 FROM reservations
		 WHERE event_id = $1
		 ORDER BY id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.EventID, &res.Name, &res.Email, &res.Seats, &res.ConfirmationCode, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

// translateTxErr maps retryable Postgres failures to ErrTxConflict so the
// coordinator can apply its bounded retry policy.
func translateTxErr(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%s: %w", op, ErrTxConflict)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
