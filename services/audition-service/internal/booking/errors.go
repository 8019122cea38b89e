package booking

import "errors"

// Reservation outcomes are typed so callers can branch on them.
// ErrSlotTaken is the expected high-demand outcome: the caller
// re-queries availability and offers an alternative, never retries the
// same claim transparently.
var (
	ErrSlotTaken        = errors.New("slot already taken")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrWindowNotFound   = errors.New("recruiting window not found")
	ErrSlotInvalid      = errors.New("instant is not a slot of this window")

	// ErrTimeout means the storage round trip was cut short and the
	// outcome is unknown; the caller must re-query before assuming
	// anything.
	ErrTimeout = errors.New("storage operation timed out")

	// ErrStorageUnavailable covers storage failures unrelated to the
	// uniqueness check. The core never retries; callers back off.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
