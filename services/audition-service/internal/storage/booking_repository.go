package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clefside/auditiond/libs/db"
	"github.com/clefside/auditiond/services/audition-service/internal/model"
)

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Insert claims a slot with a single statement. The partial unique
// index on (window_id, slot_start) WHERE status = 'reserved' is what
// makes the claim atomic; a violation means another applicant committed
// first. There is deliberately no availability pre-check here.
func (r *BookingRepository) Insert(ctx context.Context, windowID string, slotStart time.Time, applicantID string) (model.Booking, error) {
	id := uuid.NewString()
	var b model.Booking
	err := r.pool.QueryRow(ctx, `
		INSERT INTO bookings (id, window_id, slot_start, applicant_id, status)
		VALUES ($1, $2, $3, $4, 'reserved')
		RETURNING id::text, window_id::text, slot_start, applicant_id, status, cancelled_at, COALESCE(cancelled_by, ''), created_at
	`, id, windowID, slotStart, applicantID).Scan(
		&b.ID,
		&b.WindowID,
		&b.SlotStart,
		&b.ApplicantID,
		&b.Status,
		&b.CancelledAt,
		&b.CancelledBy,
		&b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, tx pgx.Tx, bookingID string) (model.Booking, error) {
	var b model.Booking
	err := tx.QueryRow(ctx, `
		SELECT id::text, window_id::text, slot_start, applicant_id, status, cancelled_at, COALESCE(cancelled_by, ''), created_at
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, bookingID).Scan(
		&b.ID,
		&b.WindowID,
		&b.SlotStart,
		&b.ApplicantID,
		&b.Status,
		&b.CancelledAt,
		&b.CancelledBy,
		&b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// CancelBooking transitions a reserved booking to cancelled. The row is
// kept; bookings are never hard-deleted.
func (r *BookingRepository) CancelBooking(ctx context.Context, tx pgx.Tx, bookingID, requestedBy string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
			cancelled_at = now(),
			cancelled_by = $2
		WHERE id = $1
		RETURNING cancelled_at
	`, bookingID, requestedBy).Scan(&cancelledAt)
	return cancelledAt, err
}

// ListReservedInRange returns reserved bookings whose slot start falls
// in [start, end). Cancelled rows are excluded; they no longer block.
func (r *BookingRepository) ListReservedInRange(ctx context.Context, start, end time.Time) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, window_id::text, slot_start, applicant_id, status, cancelled_at, COALESCE(cancelled_by, ''), created_at
		FROM bookings
		WHERE status = 'reserved'
			AND slot_start >= $1
			AND slot_start < $2
		ORDER BY slot_start ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func (r *BookingRepository) ListByWindow(ctx context.Context, windowID string, limit int) ([]model.Booking, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, window_id::text, slot_start, applicant_id, status, cancelled_at, COALESCE(cancelled_by, ''), created_at
		FROM bookings
		WHERE window_id = $1
		ORDER BY slot_start ASC, created_at ASC
		LIMIT $2
	`, windowID, limit)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// IsConflict reports a unique violation on the reserved-slot index.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func scanBookings(rows pgx.Rows) ([]model.Booking, error) {
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(
			&b.ID,
			&b.WindowID,
			&b.SlotStart,
			&b.ApplicantID,
			&b.Status,
			&b.CancelledAt,
			&b.CancelledBy,
			&b.CreatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}
