package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clefside/auditiond/libs/db"
	"github.com/clefside/auditiond/services/audition-service/internal/model"
)

// Repository stores recruiting windows. The booking core only reads
// from it; the write methods back the admin endpoints.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListActiveWindows(ctx context.Context) ([]model.RecruitingWindow, error) {
	return r.list(ctx, `
		SELECT id::text, starts_at, ends_at, slot_minutes, active, created_at, updated_at
		FROM recruiting_windows
		WHERE active
		ORDER BY starts_at ASC, id ASC
	`)
}

func (r *Repository) ListWindows(ctx context.Context) ([]model.RecruitingWindow, error) {
	return r.list(ctx, `
		SELECT id::text, starts_at, ends_at, slot_minutes, active, created_at, updated_at
		FROM recruiting_windows
		ORDER BY starts_at ASC, id ASC
	`)
}

func (r *Repository) GetWindow(ctx context.Context, id string) (model.RecruitingWindow, error) {
	var w model.RecruitingWindow
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, starts_at, ends_at, slot_minutes, active, created_at, updated_at
		FROM recruiting_windows
		WHERE id = $1
	`, id).Scan(&w.ID, &w.StartAt, &w.EndAt, &w.SlotMinutes, &w.Active, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return model.RecruitingWindow{}, err
	}
	return w, nil
}

func (r *Repository) CreateWindow(ctx context.Context, startAt, endAt time.Time, slotMinutes int) (model.RecruitingWindow, error) {
	id := uuid.NewString()
	var w model.RecruitingWindow
	err := r.pool.QueryRow(ctx, `
		INSERT INTO recruiting_windows (id, starts_at, ends_at, slot_minutes, active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING id::text, starts_at, ends_at, slot_minutes, active, created_at, updated_at
	`, id, startAt, endAt, slotMinutes).Scan(&w.ID, &w.StartAt, &w.EndAt, &w.SlotMinutes, &w.Active, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return model.RecruitingWindow{}, err
	}
	return w, nil
}

// DeactivateWindow removes a window from future slot generation.
// Existing bookings against it are untouched.
func (r *Repository) DeactivateWindow(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE recruiting_windows
		SET active = false,
			updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ErrNotFound lets non-Postgres window sources report a missing window.
var ErrNotFound = errors.New("window not found")

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound)
}

func (r *Repository) list(ctx context.Context, query string) ([]model.RecruitingWindow, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []model.RecruitingWindow
	for rows.Next() {
		var w model.RecruitingWindow
		if err := rows.Scan(&w.ID, &w.StartAt, &w.EndAt, &w.SlotMinutes, &w.Active, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return windows, nil
}
