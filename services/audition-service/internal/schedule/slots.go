package schedule

import (
	"errors"

	"github.com/clefside/auditiond/services/audition-service/internal/civiltime"
	"github.com/clefside/auditiond/services/audition-service/internal/model"
)

var ErrInvalidDuration = errors.New("slot duration must be positive")

// GenerateSlots walks a cursor from the window start, emitting
// [cursor, cursor+duration) while the full duration still fits before
// the window end. A trailing remainder shorter than the duration is
// discarded, never offered. Identical input always yields the identical
// sequence.
//
// A window whose end is not after its start yields no slots and no
// error; administrators can create a degenerate window before fixing it.
func GenerateSlots(window model.RecruitingWindow, zone civiltime.Zone) ([]model.Slot, error) {
	if window.SlotMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	duration := window.SlotDuration()
	var slots []model.Slot
	for cursor := window.StartAt; !cursor.Add(duration).After(window.EndAt); cursor = cursor.Add(duration) {
		slots = append(slots, model.Slot{
			WindowID: window.ID,
			StartAt:  cursor,
			EndAt:    cursor.Add(duration),
			Label:    zone.Label(cursor),
		})
	}
	return slots, nil
}
