package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clefside/auditiond/services/audition-service/internal/booking"
	"github.com/clefside/auditiond/services/audition-service/internal/civiltime"
	"github.com/clefside/auditiond/services/audition-service/internal/model"
	"github.com/clefside/auditiond/services/audition-service/internal/storage"
)

type BookingHandler struct {
	svc    *booking.Service
	repo   *storage.BookingRepository
	zone   civiltime.Zone
	logger *slog.Logger
}

func NewBookingHandler(svc *booking.Service, repo *storage.BookingRepository, zone civiltime.Zone, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, repo: repo, zone: zone, logger: logger}
}

type slotItem struct {
	WindowID  string `json:"window_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Label     string `json:"label"`
}

type reserveRequest struct {
	WindowID    string `json:"window_id"`
	SlotStart   string `json:"slot_start"`
	ApplicantID string `json:"applicant_id"`
}

type bookingResponse struct {
	BookingID   string `json:"booking_id"`
	WindowID    string `json:"window_id"`
	SlotStart   string `json:"slot_start"`
	SlotLabel   string `json:"slot_label"`
	ApplicantID string `json:"applicant_id"`
	Status      string `json:"status"`
	CancelledAt string `json:"cancelled_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type cancelRequest struct {
	BookingID   string `json:"booking_id"`
	RequestedBy string `json:"requested_by"`
}

// Dates serves the date picker: civil dates with at least one active window.
func (h *BookingHandler) Dates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dates, err := h.svc.ListAvailableDates(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]string, 0, len(dates))
	for _, d := range dates {
		items = append(items, d.String())
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}
	date, err := civiltime.ParseDate(dateStr)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	slots, err := h.svc.AvailableSlots(r.Context(), date)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			WindowID:  s.WindowID,
			StartTime: s.StartAt.UTC().Format(time.RFC3339),
			EndTime:   s.EndAt.UTC().Format(time.RFC3339),
			Label:     s.Label,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.WindowID = strings.TrimSpace(req.WindowID)
	req.ApplicantID = strings.TrimSpace(req.ApplicantID)
	if req.WindowID == "" || req.ApplicantID == "" {
		http.Error(w, "window_id and applicant_id required", http.StatusBadRequest)
		return
	}
	slotStart, err := time.Parse(time.RFC3339, strings.TrimSpace(req.SlotStart))
	if err != nil {
		http.Error(w, "invalid slot_start", http.StatusBadRequest)
		return
	}

	b, err := h.svc.Reserve(r.Context(), req.WindowID, slotStart, req.ApplicantID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toResponse(b))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	req.RequestedBy = strings.TrimSpace(req.RequestedBy)
	if req.BookingID == "" {
		http.Error(w, "booking_id required", http.StatusBadRequest)
		return
	}

	if err := h.svc.Cancel(r.Context(), req.BookingID, req.RequestedBy); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"booking_id": req.BookingID,
		"status":     model.BookingCancelled,
	})
}

// List is the admin audit view of bookings in one window, cancelled
// rows included.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	windowID := strings.TrimSpace(r.URL.Query().Get("window_id"))
	if windowID == "" {
		http.Error(w, "window_id required", http.StatusBadRequest)
		return
	}
	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	bookings, err := h.repo.ListByWindow(r.Context(), windowID, limit)
	if err != nil {
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	items := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, h.toResponse(b))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) toResponse(b model.Booking) bookingResponse {
	resp := bookingResponse{
		BookingID:   b.ID,
		WindowID:    b.WindowID,
		SlotStart:   b.SlotStart.UTC().Format(time.RFC3339),
		SlotLabel:   h.zone.Label(b.SlotStart),
		ApplicantID: b.ApplicantID,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.CancelledAt != nil {
		resp.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// writeServiceError maps the booking error taxonomy onto HTTP statuses.
// A taken slot is a normal outcome with a message the UI can show
// verbatim next to a refreshed slot list.
func (h *BookingHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrSlotTaken):
		http.Error(w, "slot is no longer available", http.StatusConflict)
	case errors.Is(err, booking.ErrAlreadyCancelled):
		http.Error(w, "booking already cancelled", http.StatusConflict)
	case errors.Is(err, booking.ErrBookingNotFound):
		http.Error(w, "booking not found", http.StatusNotFound)
	case errors.Is(err, booking.ErrWindowNotFound):
		http.Error(w, "recruiting window not found", http.StatusNotFound)
	case errors.Is(err, booking.ErrSlotInvalid):
		http.Error(w, "requested time is not an offered slot", http.StatusUnprocessableEntity)
	case errors.Is(err, booking.ErrTimeout):
		http.Error(w, "storage timeout; re-query before retrying", http.StatusGatewayTimeout)
	default:
		h.logger.Error("booking request failed", "err", err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
