package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalverde/event-reservation-service/internal/model"
	"github.com/evalverde/event-reservation-service/internal/repository"
	"github.com/evalverde/event-reservation-service/internal/testutil"
)

func requester(n string) model.ReservationInput {
	return model.ReservationInput{Name: n, Email: n + "@example.com", Seats: 1}
}

// isCapacityOutcome reports whether err is one of the expected rejection
// outcomes of a capacity race.
func isCapacityOutcome(err error) bool {
	return errors.Is(err, repository.ErrInsufficientSeats) || errors.Is(err, repository.ErrTxConflict)
}

func TestReserve_RaceForLastSeat(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.Truncate(t, ctx, pool)

	eventID := testutil.InsertEvent(t, ctx, pool, "Final Night", 1)
	reservations := repository.NewReservationRepository(pool)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reservations.Reserve(ctx, eventID, requester("racer"))
		}(i)
	}
	wg.Wait()

	var successes, rejections int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case isCapacityOutcome(err):
			rejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one racer must win the last seat")
	assert.Equal(t, 1, rejections)

	var seats, rows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT available_seats FROM events WHERE id = $1`, eventID).Scan(&seats))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE event_id = $1`, eventID).Scan(&rows))
	assert.Equal(t, 0, seats)
	assert.Equal(t, 1, rows)
}

func TestReserve_CapacityInvariantUnderConcurrency(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.Truncate(t, ctx, pool)

	const capacity = 10
	const callers = 25
	eventID := testutil.InsertEvent(t, ctx, pool, "Oversubscribed", capacity)
	reservations := repository.NewReservationRepository(pool)

	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reservations.Reserve(ctx, eventID, requester("caller"))
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
		} else if !isCapacityOutcome(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	var seats, rows, claimed int
	require.NoError(t, pool.QueryRow(ctx, `SELECT available_seats FROM events WHERE id = $1`, eventID).Scan(&seats))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(seats), 0) FROM reservations WHERE event_id = $1`, eventID).Scan(&rows, &claimed))

	assert.Equal(t, capacity, successes)
	assert.Equal(t, 0, seats)
	assert.Equal(t, capacity, claimed, "seats claimed must equal capacity minus remainder")
	assert.Equal(t, successes, rows, "one reservation row per successful call")
	assert.GreaterOrEqual(t, seats, 0, "available seats must never go negative")
}

func TestReserve_SequentialExhaustion(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.Truncate(t, ctx, pool)

	eventID := testutil.InsertEvent(t, ctx, pool, "Trio Night", 5)
	reservations := repository.NewReservationRepository(pool)

	in := model.ReservationInput{Name: "pair", Email: "pair@example.com", Seats: 2}

	_, err := reservations.Reserve(ctx, eventID, in)
	require.NoError(t, err)
	_, err = reservations.Reserve(ctx, eventID, in)
	require.NoError(t, err)

	_, err = reservations.Reserve(ctx, eventID, in)
	assert.ErrorIs(t, err, repository.ErrInsufficientSeats)

	var seats int
	require.NoError(t, pool.QueryRow(ctx, `SELECT available_seats FROM events WHERE id = $1`, eventID).Scan(&seats))
	assert.Equal(t, 1, seats, "failed attempt must leave the counter untouched")
}

func TestReserve_UnknownEvent(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.Truncate(t, ctx, pool)

	reservations := repository.NewReservationRepository(pool)

	_, err := reservations.Reserve(ctx, 999, requester("ghost"))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	var rows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM reservations`).Scan(&rows))
	assert.Zero(t, rows, "no reservation may exist for an unknown event")
}

func TestEventRepository_CRUD(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.Truncate(t, ctx, pool)

	events := repository.NewEventRepository(pool)

	created, err := events.Create(ctx, model.CreateEventInput{
		Title: "Opening Gala", Location: "Teatro Colón", Seats: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, created.Capacity)
	assert.Equal(t, 40, created.AvailableSeats)

	// Patch only the title; everything else must survive.
	title := "Opening Gala (rescheduled)"
	require.NoError(t, events.Update(ctx, created.ID, model.EventPatch{Title: &title}))

	got, err := events.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, "Teatro Colón", got.Location)
	assert.Equal(t, 40, got.AvailableSeats)

	// An explicit zero must be applied, not ignored.
	zero := 0
	require.NoError(t, events.Update(ctx, created.ID, model.EventPatch{AvailableSeats: &zero}))

	listed, err := events.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed, "sold-out events are excluded from the listing")

	require.NoError(t, events.Delete(ctx, created.ID))
	_, err = events.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, events.Delete(ctx, created.ID), repository.ErrNotFound)
	assert.ErrorIs(t, events.Update(ctx, created.ID, model.EventPatch{Title: &title}), repository.ErrNotFound)
}

func TestDeleteEvent_CascadesToReservations(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.Truncate(t, ctx, pool)

	eventID := testutil.InsertEvent(t, ctx, pool, "Doomed", 10)
	events := repository.NewEventRepository(pool)
	reservations := repository.NewReservationRepository(pool)

	_, err := reservations.Reserve(ctx, eventID, requester("attendee"))
	require.NoError(t, err)

	require.NoError(t, events.Delete(ctx, eventID))

	var rows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE event_id = $1`, eventID).Scan(&rows))
	assert.Zero(t, rows, "reservations must be removed with their event")
}

func TestListByEvent_OrderAndFields(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.Truncate(t, ctx, pool)

	eventID := testutil.InsertEvent(t, ctx, pool, "Workshop", 10)
	reservations := repository.NewReservationRepository(pool)

	first, err := reservations.Reserve(ctx, eventID, model.ReservationInput{Name: "Ana", Email: "ana@example.com", Seats: 2})
	require.NoError(t, err)
	second, err := reservations.Reserve(ctx, eventID, model.ReservationInput{Name: "Bruno", Email: "bruno@example.com", Seats: 3})
	require.NoError(t, err)

	listed, err := reservations.ListByEvent(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, second.ID, listed[1].ID)
	assert.Equal(t, "Ana", listed[0].Name)
	assert.Equal(t, 3, listed[1].Seats)
	assert.NotEmpty(t, listed[0].ConfirmationCode)
}
