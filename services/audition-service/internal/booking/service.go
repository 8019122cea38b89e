// Package booking is the transactional core of audition scheduling: it
// owns every mutation of booking records and exposes the read surface a
// calendar UI or admin console needs. Everything upstream of Reserve is
// read-only, so two applicants can observe the same open slot; the
// storage layer's uniqueness guarantee, not any in-process check, is
// what decides who gets it.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clefside/auditiond/services/audition-service/internal/civiltime"
	"github.com/clefside/auditiond/services/audition-service/internal/model"
	"github.com/clefside/auditiond/services/audition-service/internal/registry"
	"github.com/clefside/auditiond/services/audition-service/internal/schedule"
)

// Store is the durable booking store. InsertReservation must be a
// single atomic claim that fails with ErrSlotTaken when a reserved
// booking already exists for the same (window, slot start).
type Store interface {
	InsertReservation(ctx context.Context, windowID string, slotStart time.Time, applicantID string) (model.Booking, error)
	CancelReservation(ctx context.Context, bookingID, requestedBy string) (model.Booking, error)
	ListReservedInRange(ctx context.Context, start, end time.Time) ([]model.Booking, error)
}

// Notifier is invoked after a successful state change. Implementations
// must be fire-and-forget: a notification failure never affects the
// booking outcome.
type Notifier interface {
	BookingReserved(ctx context.Context, b model.Booking)
	BookingCancelled(ctx context.Context, b model.Booking)
}

type Service struct {
	store    Store
	windows  registry.Source
	zone     civiltime.Zone
	notifier Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewService(store Store, windows registry.Source, zone civiltime.Zone, notifier Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		store:    store,
		windows:  windows,
		zone:     zone,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer("booking"),
	}
}

// ListAvailableDates returns the civil dates with at least one active
// window, ascending. It drives a date picker; an empty result just
// means recruiting is closed.
func (s *Service) ListAvailableDates(ctx context.Context) ([]civiltime.Date, error) {
	windows, err := s.windows.ListActiveWindows(ctx)
	if err != nil {
		return nil, s.classify(err)
	}

	seen := make(map[civiltime.Date]struct{})
	var dates []civiltime.Date
	for _, w := range windows {
		d := s.zone.DateOf(w.StartAt)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// AvailableSlots returns the open slots for one civil date, ordered by
// start instant. Already-reserved slots are excluded; cancelled
// bookings do not block.
func (s *Service) AvailableSlots(ctx context.Context, date civiltime.Date) ([]model.Slot, error) {
	windows, err := s.windows.ListActiveWindows(ctx)
	if err != nil {
		return nil, s.classify(err)
	}

	var matching []model.RecruitingWindow
	for _, w := range windows {
		if s.zone.DateOf(w.StartAt) == date {
			matching = append(matching, w)
		}
	}
	if len(matching) == 0 {
		return nil, nil
	}

	rangeStart, rangeEnd := windowExtent(matching)
	bookings, err := s.store.ListReservedInRange(ctx, rangeStart, rangeEnd)
	if err != nil {
		return nil, s.classify(err)
	}

	return schedule.AvailableSlots(date, s.zone, matching, bookings)
}

// Reserve atomically claims one slot for one applicant. Exactly one of
// two concurrent claims on the same slot succeeds; the loser receives
// ErrSlotTaken and is expected to re-query availability.
func (s *Service) Reserve(ctx context.Context, windowID string, slotStart time.Time, applicantID string) (model.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.reserve", trace.WithAttributes(
		attribute.String("window_id", windowID),
		attribute.String("slot_start", slotStart.UTC().Format(time.RFC3339)),
	))
	defer span.End()

	window, err := s.windows.GetWindow(ctx, windowID)
	if err != nil {
		if registry.IsNotFound(err) {
			return model.Booking{}, ErrWindowNotFound
		}
		return model.Booking{}, s.classify(err)
	}
	if !window.Active {
		// Deactivated windows stop offering slots; existing bookings
		// are untouched but no new claims are accepted.
		return model.Booking{}, ErrWindowNotFound
	}
	if !schedule.ContainsSlotStart(window, slotStart) {
		return model.Booking{}, ErrSlotInvalid
	}

	b, err := s.store.InsertReservation(ctx, windowID, slotStart.UTC(), applicantID)
	if err != nil {
		err = s.classify(err)
		if errors.Is(err, ErrSlotTaken) {
			span.AddEvent("slot already taken")
		} else {
			span.RecordError(err)
		}
		return model.Booking{}, err
	}

	s.logger.Info("slot reserved",
		"booking_id", b.ID,
		"window_id", b.WindowID,
		"slot_start", b.SlotStart.UTC().Format(time.RFC3339),
	)
	s.notifier.BookingReserved(ctx, b)
	return b, nil
}

// Cancel transitions a booking to cancelled, which makes its slot
// reappear in availability on the next query. History is kept.
func (s *Service) Cancel(ctx context.Context, bookingID, requestedBy string) error {
	ctx, span := s.tracer.Start(ctx, "booking.cancel", trace.WithAttributes(
		attribute.String("booking_id", bookingID),
	))
	defer span.End()

	b, err := s.store.CancelReservation(ctx, bookingID, requestedBy)
	if err != nil {
		err = s.classify(err)
		if !errors.Is(err, ErrBookingNotFound) && !errors.Is(err, ErrAlreadyCancelled) {
			span.RecordError(err)
		}
		return err
	}

	s.logger.Info("booking cancelled",
		"booking_id", b.ID,
		"window_id", b.WindowID,
		"requested_by", requestedBy,
	)
	s.notifier.BookingCancelled(ctx, b)
	return nil
}

// classify maps storage failures onto the caller-facing taxonomy.
// Typed outcomes pass through; an interrupted round trip becomes
// ErrTimeout (outcome unknown, re-query truth); anything else is
// ErrStorageUnavailable.
func (s *Service) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSlotTaken),
		errors.Is(err, ErrBookingNotFound),
		errors.Is(err, ErrAlreadyCancelled):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errors.Join(ErrTimeout, err)
	default:
		return errors.Join(ErrStorageUnavailable, err)
	}
}

// NopNotifier drops notifications; used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) BookingReserved(context.Context, model.Booking)  {}
func (NopNotifier) BookingCancelled(context.Context, model.Booking) {}

// windowExtent is the smallest instant range covering every window,
// used to scope the booking read for an availability query.
func windowExtent(windows []model.RecruitingWindow) (time.Time, time.Time) {
	var min, max time.Time
	for _, w := range windows {
		if min.IsZero() || w.StartAt.Before(min) {
			min = w.StartAt
		}
		if max.IsZero() || w.EndAt.After(max) {
			max = w.EndAt
		}
	}
	return min, max
}
