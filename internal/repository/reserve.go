package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/seat-reservation/internal/logger"
	"github.com/Shivanand-hulikatti/seat-reservation/internal/model"
)

// rollbackTimeout bounds a rollback issued after the caller's context is done.
const rollbackTimeout = 5 * time.Second

const uniqueViolation = "23505"

const lockEventSQL = `
	SELECT id, name, total_seats
	FROM events
	WHERE id = $1
	FOR UPDATE`

const bookingStatsSQL = `
	SELECT COUNT(*)::int                                  AS total_bookings,
	       COUNT(*) FILTER (WHERE user_id = $2)::int      AS user_bookings
	FROM bookings
	WHERE event_id = $1`

const insertBookingSQL = `
	INSERT INTO bookings (event_id, user_id)
	VALUES ($1, $2)
	RETURNING id, event_id, user_id, created_at`

// Reserve books one seat for userID on eventID inside a single transaction.
//
// ─────────────────────────────────────────────────────────────────────────────
// LOCK, READ, DECIDE, WRITE, COMMIT
// ─────────────────────────────────────────────────────────────────────────────
//
// Without a lock two requests can both count 9 bookings on a 10-seat event,
// both insert, and leave 11 rows behind. The event row is therefore taken
// with SELECT … FOR UPDATE before anything is counted. Every other
// reservation for the same event queues on that row lock until we commit or
// roll back; reservations for other events do not touch it.
//
// The lock and the counts travel in one pgx batch (one round trip) but as
// two statements. Under READ COMMITTED a statement reads from the snapshot
// taken when it starts, so counts computed in the same statement as the lock
// could predate a booking committed by the transaction we waited on. The
// counting statement starts only after the lock is held and sees it.
//
// Outcomes are decided by model.EventStats.Check in the fixed order
// not found → duplicate user → sold out. Rejections roll back and return a
// model sentinel error; everything else is a fault and is returned wrapped.
// ─────────────────────────────────────────────────────────────────────────────
func (r *BookingRepository) Reserve(ctx context.Context, eventID int64, userID string) (*model.Reservation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			rollback(ctx, tx)
		}
	}()

	stats, err := lockEventStats(ctx, tx, eventID, userID)
	if err != nil {
		return nil, err
	}

	if err := stats.Check(); err != nil {
		return nil, err
	}

	booking, err := insertBooking(ctx, tx, eventID, userID)
	if err != nil {
		return nil, err
	}

	// An abandoned caller must not get a commit on its behalf.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("caller gone before commit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	committed = true

	return &model.Reservation{
		Booking: *booking,
		Event:   stats.AfterBooking(),
	}, nil
}

func lockEventStats(ctx context.Context, tx pgx.Tx, eventID int64, userID string) (stats model.EventStats, err error) {
	batch := &pgx.Batch{}
	batch.Queue(lockEventSQL, eventID)
	batch.Queue(bookingStatsSQL, eventID, userID)

	br := tx.SendBatch(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close batch: %w", closeErr)
		}
	}()

	err = br.QueryRow().Scan(&stats.EventID, &stats.Name, &stats.TotalSeats)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stats, model.ErrEventNotFound
		}
		return stats, fmt.Errorf("lock event row: %w", err)
	}

	if err = br.QueryRow().Scan(&stats.TotalBookings, &stats.UserBookings); err != nil {
		return stats, fmt.Errorf("read booking stats: %w", err)
	}
	return stats, nil
}

func insertBooking(ctx context.Context, tx pgx.Tx, eventID int64, userID string) (*model.Booking, error) {
	var b model.Booking
	err := tx.QueryRow(ctx, insertBookingSQL, eventID, userID).
		Scan(&b.ID, &b.EventID, &b.UserID, &b.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// Only reachable if something wrote bookings without taking the
			// event lock.
			return nil, fmt.Errorf("insert booking: uniqueness check bypassed (%s): %w", pgErr.ConstraintName, err)
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return &b, nil
}

// rollback ends tx even if ctx is already cancelled, so the row lock is
// released and the connection returns to the pool in a clean state.
func rollback(ctx context.Context, tx pgx.Tx) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	if err := tx.Rollback(rbCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.Warn("rollback failed", zap.Error(err))
	}
}
