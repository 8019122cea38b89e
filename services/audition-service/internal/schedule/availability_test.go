package schedule

import (
	"testing"
	"time"

	"github.com/clefside/auditiond/services/audition-service/internal/civiltime"
	"github.com/clefside/auditiond/services/audition-service/internal/model"
)

func TestAvailableSlots_HourWindowThirtyMinutes(t *testing.T) {
	zone := testZone(t)
	date := civiltime.Date{Year: 2026, Month: time.September, Day: 12}

	// [09:00, 10:00) local, 30-minute slots: exactly 09:00 and 09:30.
	w := window("w1", zone.Instant(date, 9, 0), time.Hour, 30)

	open, err := AvailableSlots(date, zone, []model.RecruitingWindow{w}, nil)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(open))
	}
	if open[0].Label != "9:00 AM" || open[1].Label != "9:30 AM" {
		t.Fatalf("unexpected labels %q, %q", open[0].Label, open[1].Label)
	}
}

func TestAvailableSlots_ExcludesReserved(t *testing.T) {
	zone := testZone(t)
	date := civiltime.Date{Year: 2026, Month: time.September, Day: 12}
	w := window("w1", zone.Instant(date, 9, 0), time.Hour, 30)

	bookings := []model.Booking{
		{WindowID: "w1", SlotStart: zone.Instant(date, 9, 0), Status: model.BookingReserved},
	}
	open, err := AvailableSlots(date, zone, []model.RecruitingWindow{w}, bookings)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(open))
	}
	if !open[0].StartAt.Equal(zone.Instant(date, 9, 30)) {
		t.Fatalf("expected 09:30 to remain open, got %s", open[0].StartAt)
	}
}

func TestAvailableSlots_CancelledBookingDoesNotBlock(t *testing.T) {
	zone := testZone(t)
	date := civiltime.Date{Year: 2026, Month: time.September, Day: 12}
	w := window("w1", zone.Instant(date, 9, 0), time.Hour, 30)

	bookings := []model.Booking{
		{WindowID: "w1", SlotStart: zone.Instant(date, 9, 0), Status: model.BookingCancelled},
	}
	open, err := AvailableSlots(date, zone, []model.RecruitingWindow{w}, bookings)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("cancelled booking must not block; expected 2 slots, got %d", len(open))
	}
}

func TestAvailableSlots_ReservationInOtherWindowDoesNotBlock(t *testing.T) {
	zone := testZone(t)
	date := civiltime.Date{Year: 2026, Month: time.September, Day: 12}
	w := window("w1", zone.Instant(date, 9, 0), time.Hour, 30)

	// Same instant, different window.
	bookings := []model.Booking{
		{WindowID: "w2", SlotStart: zone.Instant(date, 9, 0), Status: model.BookingReserved},
	}
	open, err := AvailableSlots(date, zone, []model.RecruitingWindow{w}, bookings)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(open))
	}
}

func TestAvailableSlots_MergesMultipleWindows(t *testing.T) {
	zone := testZone(t)
	date := civiltime.Date{Year: 2026, Month: time.September, Day: 12}

	morning := window("w-morning", zone.Instant(date, 9, 0), time.Hour, 30)
	afternoon := window("w-afternoon", zone.Instant(date, 14, 0), time.Hour, 30)
	otherDay := window("w-other", zone.Instant(civiltime.Date{Year: 2026, Month: time.September, Day: 13}, 9, 0), time.Hour, 30)

	open, err := AvailableSlots(date, zone, []model.RecruitingWindow{afternoon, otherDay, morning}, nil)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(open) != 4 {
		t.Fatalf("expected 4 slots across both windows, got %d", len(open))
	}
	for i := 1; i < len(open); i++ {
		if open[i].StartAt.Before(open[i-1].StartAt) {
			t.Fatalf("slots out of order at %d", i)
		}
	}
	if open[0].WindowID != "w-morning" || open[2].WindowID != "w-afternoon" {
		t.Fatalf("unexpected window ordering: %s then %s", open[0].WindowID, open[2].WindowID)
	}
}

func TestAvailableSlots_TieBreakByWindowID(t *testing.T) {
	zone := testZone(t)
	date := civiltime.Date{Year: 2026, Month: time.September, Day: 12}

	a := window("w-a", zone.Instant(date, 9, 0), time.Hour, 30)
	b := window("w-b", zone.Instant(date, 9, 0), time.Hour, 30)

	open, err := AvailableSlots(date, zone, []model.RecruitingWindow{b, a}, nil)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(open) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(open))
	}
	if open[0].WindowID != "w-a" || open[1].WindowID != "w-b" {
		t.Fatalf("tie-break broken: %s before %s", open[0].WindowID, open[1].WindowID)
	}
}

func TestAvailableSlots_NoMatchingWindow(t *testing.T) {
	zone := testZone(t)
	date := civiltime.Date{Year: 2026, Month: time.September, Day: 12}
	w := window("w1", zone.Instant(civiltime.Date{Year: 2026, Month: time.September, Day: 13}, 9, 0), time.Hour, 30)

	open, err := AvailableSlots(date, zone, []model.RecruitingWindow{w}, nil)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected empty result, got %d slots", len(open))
	}
}

func TestAvailableSlots_EveningWindowStaysOnCivilDate(t *testing.T) {
	zone := testZone(t)
	date := civiltime.Date{Year: 2026, Month: time.January, Day: 30}

	// [21:00, 23:00) EST spans UTC midnight; every slot still belongs to
	// January 30 as far as the civil date is concerned.
	w := window("w1", zone.Instant(date, 21, 0), 2*time.Hour, 30)

	open, err := AvailableSlots(date, zone, []model.RecruitingWindow{w}, nil)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(open) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(open))
	}

	next := civiltime.Date{Year: 2026, Month: time.January, Day: 31}
	open, err = AvailableSlots(next, zone, []model.RecruitingWindow{w}, nil)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("window must not leak onto the next civil date, got %d slots", len(open))
	}
}
