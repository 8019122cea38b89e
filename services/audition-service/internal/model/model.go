package model

import "time"

const (
	BookingReserved  = "reserved"
	BookingCancelled = "cancelled"
)

// RecruitingWindow is an administrator-defined interval during which
// auditions may be scheduled. StartAt/EndAt are absolute instants; the
// civil interpretation always goes through the reference zone.
type RecruitingWindow struct {
	ID          string
	StartAt     time.Time
	EndAt       time.Time
	SlotMinutes int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (w RecruitingWindow) SlotDuration() time.Duration {
	return time.Duration(w.SlotMinutes) * time.Minute
}

// Slot is a computed candidate appointment interval. It is never
// persisted; its identity is (WindowID, StartAt).
type Slot struct {
	WindowID string
	StartAt  time.Time
	EndAt    time.Time
	Label    string
}

// Booking is the durable record of a claimed slot. Cancelled bookings
// are kept for the audit trail and never hard-deleted.
type Booking struct {
	ID          string
	WindowID    string
	SlotStart   time.Time
	ApplicantID string
	Status      string
	CancelledAt *time.Time
	CancelledBy string
	CreatedAt   time.Time
}
