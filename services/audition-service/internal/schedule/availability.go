package schedule

import (
	"sort"
	"time"

	"github.com/clefside/auditiond/services/audition-service/internal/civiltime"
	"github.com/clefside/auditiond/services/audition-service/internal/model"
)

// AvailableSlots resolves the open slots for one civil date. Windows
// whose civil start date (in the reference zone) is not the requested
// date are skipped; slots whose start instant carries a reserved
// booking for the same window are removed. The result is ordered by
// start instant, with window ID as the tie-break so the sequence is
// deterministic when two windows share an instant.
//
// Pure computation: no clock reads, no I/O. An empty result is normal,
// not an error.
func AvailableSlots(date civiltime.Date, zone civiltime.Zone, windows []model.RecruitingWindow, bookings []model.Booking) ([]model.Slot, error) {
	reserved := make(map[slotKey]struct{})
	for _, b := range bookings {
		if b.Status != model.BookingReserved {
			continue
		}
		reserved[slotKey{windowID: b.WindowID, startUnix: b.SlotStart.Unix()}] = struct{}{}
	}

	var open []model.Slot
	for _, w := range windows {
		if zone.DateOf(w.StartAt) != date {
			continue
		}
		slots, err := GenerateSlots(w, zone)
		if err != nil {
			return nil, err
		}
		for _, s := range slots {
			if _, taken := reserved[slotKey{windowID: s.WindowID, startUnix: s.StartAt.Unix()}]; taken {
				continue
			}
			open = append(open, s)
		}
	}

	sort.Slice(open, func(i, j int) bool {
		if !open[i].StartAt.Equal(open[j].StartAt) {
			return open[i].StartAt.Before(open[j].StartAt)
		}
		return open[i].WindowID < open[j].WindowID
	})
	return open, nil
}

// ContainsSlotStart reports whether the instant lies on the window's
// slot grid, i.e. would be emitted by GenerateSlots.
func ContainsSlotStart(window model.RecruitingWindow, start time.Time) bool {
	if window.SlotMinutes <= 0 {
		return false
	}
	duration := window.SlotDuration()
	if start.Before(window.StartAt) || start.Add(duration).After(window.EndAt) {
		return false
	}
	offset := start.Sub(window.StartAt)
	return offset%duration == 0
}

type slotKey struct {
	windowID  string
	startUnix int64
}
