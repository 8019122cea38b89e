package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/clefside/auditiond/services/audition-service/internal/model"
)

// Notifier records booking events in the outbox for the Kafka
// publisher to drain. It satisfies booking.Notifier: every failure is
// logged and swallowed, never surfaced to the reserve/cancel caller.
type Notifier struct {
	repo   *Repository
	logger *slog.Logger
}

func NewNotifier(repo *Repository, logger *slog.Logger) *Notifier {
	return &Notifier{repo: repo, logger: logger}
}

func (n *Notifier) BookingReserved(ctx context.Context, b model.Booking) {
	payload, err := json.Marshal(map[string]any{
		"booking_id":   b.ID,
		"window_id":    b.WindowID,
		"slot_start":   b.SlotStart.UTC().Format(time.RFC3339),
		"applicant_id": b.ApplicantID,
		"created_at":   b.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		n.logger.Error("failed to build reserved event payload", "err", err, "booking_id", b.ID)
		return
	}
	n.insert(ctx, b.ID, EventBookingReserved, payload)
}

func (n *Notifier) BookingCancelled(ctx context.Context, b model.Booking) {
	cancelledAt := ""
	if b.CancelledAt != nil {
		cancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(map[string]any{
		"booking_id":   b.ID,
		"window_id":    b.WindowID,
		"slot_start":   b.SlotStart.UTC().Format(time.RFC3339),
		"applicant_id": b.ApplicantID,
		"cancelled_at": cancelledAt,
		"cancelled_by": b.CancelledBy,
	})
	if err != nil {
		n.logger.Error("failed to build cancelled event payload", "err", err, "booking_id", b.ID)
		return
	}
	n.insert(ctx, b.ID, EventBookingCancelled, payload)
}

func (n *Notifier) insert(ctx context.Context, bookingID, eventType string, payload []byte) {
	err := n.repo.Insert(ctx, Event{
		AggregateType: "booking",
		AggregateID:   bookingID,
		EventType:     eventType,
		Payload:       payload,
	})
	if err != nil {
		n.logger.Error("failed to enqueue notification event", "err", err, "event_type", eventType, "booking_id", bookingID)
	}
}
