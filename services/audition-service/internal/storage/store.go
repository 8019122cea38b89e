package storage

import (
	"context"
	"time"

	"github.com/clefside/auditiond/services/audition-service/internal/booking"
	"github.com/clefside/auditiond/services/audition-service/internal/model"
)

// Store adapts BookingRepository to the booking.Store contract,
// translating Postgres outcomes into the service's error taxonomy.
type Store struct {
	repo *BookingRepository
}

func NewStore(repo *BookingRepository) *Store {
	return &Store{repo: repo}
}

func (s *Store) InsertReservation(ctx context.Context, windowID string, slotStart time.Time, applicantID string) (model.Booking, error) {
	b, err := s.repo.Insert(ctx, windowID, slotStart, applicantID)
	if err != nil {
		if IsConflict(err) {
			return model.Booking{}, booking.ErrSlotTaken
		}
		return model.Booking{}, err
	}
	return b, nil
}

func (s *Store) CancelReservation(ctx context.Context, bookingID, requestedBy string) (model.Booking, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := s.repo.GetBookingForUpdate(ctx, tx, bookingID)
	if err != nil {
		if IsNotFound(err) {
			return model.Booking{}, booking.ErrBookingNotFound
		}
		return model.Booking{}, err
	}
	if b.Status == model.BookingCancelled {
		return model.Booking{}, booking.ErrAlreadyCancelled
	}

	cancelledAt, err := s.repo.CancelBooking(ctx, tx, bookingID, requestedBy)
	if err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, err
	}

	b.Status = model.BookingCancelled
	b.CancelledAt = &cancelledAt
	b.CancelledBy = requestedBy
	return b, nil
}

func (s *Store) ListReservedInRange(ctx context.Context, start, end time.Time) ([]model.Booking, error) {
	return s.repo.ListReservedInRange(ctx, start, end)
}
