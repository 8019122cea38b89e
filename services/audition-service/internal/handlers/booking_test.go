package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clefside/auditiond/services/audition-service/internal/booking"
	"github.com/clefside/auditiond/services/audition-service/internal/civiltime"
	"github.com/clefside/auditiond/services/audition-service/internal/model"
	"github.com/clefside/auditiond/services/audition-service/internal/registry"
)

type fakeStore struct {
	bookings  map[string]model.Booking
	nextID    int
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: make(map[string]model.Booking)}
}

func (s *fakeStore) InsertReservation(_ context.Context, windowID string, slotStart time.Time, applicantID string) (model.Booking, error) {
	if s.insertErr != nil {
		return model.Booking{}, s.insertErr
	}
	for _, b := range s.bookings {
		if b.Status == model.BookingReserved && b.WindowID == windowID && b.SlotStart.Equal(slotStart) {
			return model.Booking{}, booking.ErrSlotTaken
		}
	}
	s.nextID++
	b := model.Booking{
		ID:          fmt.Sprintf("bk-%03d", s.nextID),
		WindowID:    windowID,
		SlotStart:   slotStart,
		ApplicantID: applicantID,
		Status:      model.BookingReserved,
		CreatedAt:   time.Now().UTC(),
	}
	s.bookings[b.ID] = b
	return b, nil
}

func (s *fakeStore) CancelReservation(_ context.Context, bookingID, requestedBy string) (model.Booking, error) {
	b, ok := s.bookings[bookingID]
	if !ok {
		return model.Booking{}, booking.ErrBookingNotFound
	}
	if b.Status == model.BookingCancelled {
		return model.Booking{}, booking.ErrAlreadyCancelled
	}
	now := time.Now().UTC()
	b.Status = model.BookingCancelled
	b.CancelledAt = &now
	b.CancelledBy = requestedBy
	s.bookings[bookingID] = b
	return b, nil
}

func (s *fakeStore) ListReservedInRange(_ context.Context, start, end time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range s.bookings {
		if b.Status == model.BookingReserved && !b.SlotStart.Before(start) && b.SlotStart.Before(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeWindows struct {
	windows []model.RecruitingWindow
}

func (f *fakeWindows) ListActiveWindows(context.Context) ([]model.RecruitingWindow, error) {
	var out []model.RecruitingWindow
	for _, w := range f.windows {
		if w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWindows) GetWindow(_ context.Context, id string) (model.RecruitingWindow, error) {
	for _, w := range f.windows {
		if w.ID == id {
			return w, nil
		}
	}
	return model.RecruitingWindow{}, registry.ErrNotFound
}

func newTestHandler(t *testing.T, store booking.Store, windows registry.Source) *BookingHandler {
	t.Helper()
	zone, err := civiltime.LoadZone("America/New_York")
	if err != nil {
		t.Fatalf("LoadZone: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := booking.NewService(store, windows, zone, booking.NopNotifier{}, logger)
	return NewBookingHandler(svc, nil, zone, logger)
}

func testWindow(zone civiltime.Zone) model.RecruitingWindow {
	d := civiltime.Date{Year: 2026, Month: time.September, Day: 12}
	return model.RecruitingWindow{
		ID:          "win-1",
		StartAt:     zone.Instant(d, 9, 0),
		EndAt:       zone.Instant(d, 12, 0),
		SlotMinutes: 30,
		Active:      true,
	}
}

func TestReserve_HappyPath(t *testing.T) {
	zone, _ := civiltime.LoadZone("America/New_York")
	win := testWindow(zone)
	h := newTestHandler(t, newFakeStore(), &fakeWindows{windows: []model.RecruitingWindow{win}})

	body := `{"window_id":"win-1","slot_start":"` + win.StartAt.Format(time.RFC3339) + `","applicant_id":"app-7"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/reservations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Reserve(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp bookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if resp.Status != model.BookingReserved || resp.WindowID != "win-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.SlotLabel != "9:00 AM" {
		t.Fatalf("expected local label 9:00 AM, got %q", resp.SlotLabel)
	}
}

func TestReserve_TakenSlotConflicts(t *testing.T) {
	zone, _ := civiltime.LoadZone("America/New_York")
	win := testWindow(zone)
	store := newFakeStore()
	h := newTestHandler(t, store, &fakeWindows{windows: []model.RecruitingWindow{win}})

	body := `{"window_id":"win-1","slot_start":"` + win.StartAt.Format(time.RFC3339) + `","applicant_id":"app-1"}`
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/public/reservations", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Reserve(rec, req)
		if rec.Code != want {
			t.Fatalf("attempt %d: expected %d, got %d", i, want, rec.Code)
		}
	}
}

func TestReserve_Validation(t *testing.T) {
	zone, _ := civiltime.LoadZone("America/New_York")
	win := testWindow(zone)
	h := newTestHandler(t, newFakeStore(), &fakeWindows{windows: []model.RecruitingWindow{win}})

	offGrid := win.StartAt.Add(10 * time.Minute).Format(time.RFC3339)
	cases := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing applicant", `{"window_id":"win-1","slot_start":"2026-09-12T13:00:00Z"}`, http.StatusBadRequest},
		{"bad timestamp", `{"window_id":"win-1","slot_start":"noon","applicant_id":"a"}`, http.StatusBadRequest},
		{"unknown window", `{"window_id":"nope","slot_start":"2026-09-12T13:00:00Z","applicant_id":"a"}`, http.StatusNotFound},
		{"off-grid slot", `{"window_id":"win-1","slot_start":"` + offGrid + `","applicant_id":"a"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/public/reservations", strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		h.Reserve(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestReserve_TimeoutMapsToGatewayTimeout(t *testing.T) {
	zone, _ := civiltime.LoadZone("America/New_York")
	win := testWindow(zone)
	store := newFakeStore()
	store.insertErr = context.DeadlineExceeded
	h := newTestHandler(t, store, &fakeWindows{windows: []model.RecruitingWindow{win}})

	body := `{"window_id":"win-1","slot_start":"` + win.StartAt.Format(time.RFC3339) + `","applicant_id":"a"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/reservations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Reserve(rec, req)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", rec.Code)
	}
}

func TestCancel_Statuses(t *testing.T) {
	zone, _ := civiltime.LoadZone("America/New_York")
	win := testWindow(zone)
	store := newFakeStore()
	h := newTestHandler(t, store, &fakeWindows{windows: []model.RecruitingWindow{win}})

	b, err := store.InsertReservation(context.Background(), "win-1", win.StartAt, "app-1")
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	cancelBody := `{"booking_id":"` + b.ID + `","requested_by":"admin"}`
	for i, want := range []int{http.StatusOK, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations/cancel", strings.NewReader(cancelBody))
		rec := httptest.NewRecorder()
		h.Cancel(rec, req)
		if rec.Code != want {
			t.Fatalf("cancel attempt %d: expected %d, got %d", i, want, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations/cancel", strings.NewReader(`{"booking_id":"missing"}`))
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown booking, got %d", rec.Code)
	}
}

func TestSlots_ReflectsReservations(t *testing.T) {
	zone, _ := civiltime.LoadZone("America/New_York")
	win := testWindow(zone)
	store := newFakeStore()
	h := newTestHandler(t, store, &fakeWindows{windows: []model.RecruitingWindow{win}})

	if _, err := store.InsertReservation(context.Background(), "win-1", win.StartAt, "app-1"); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/audition-slots?date=2026-09-12", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var items []slotItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 open slots (6 minus 1 reserved), got %d", len(items))
	}
	for _, item := range items {
		if item.StartTime == win.StartAt.UTC().Format(time.RFC3339) {
			t.Fatalf("reserved slot still offered: %+v", item)
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/public/audition-slots", nil)
	rec = httptest.NewRecorder()
	h.Slots(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without date, got %d", rec.Code)
	}
}

func TestDates_ListsDistinctCivilDates(t *testing.T) {
	zone, _ := civiltime.LoadZone("America/New_York")
	win := testWindow(zone)
	other := win
	other.ID = "win-2"
	d2 := civiltime.Date{Year: 2026, Month: time.September, Day: 19}
	other.StartAt = zone.Instant(d2, 9, 0)
	other.EndAt = zone.Instant(d2, 11, 0)

	h := newTestHandler(t, newFakeStore(), &fakeWindows{windows: []model.RecruitingWindow{win, other}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/audition-dates", nil)
	rec := httptest.NewRecorder()
	h.Dates(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var dates []string
	if err := json.Unmarshal(rec.Body.Bytes(), &dates); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2026-09-12" || dates[1] != "2026-09-19" {
		t.Fatalf("unexpected dates: %v", dates)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	zone, _ := civiltime.LoadZone("America/New_York")
	win := testWindow(zone)
	h := newTestHandler(t, newFakeStore(), &fakeWindows{windows: []model.RecruitingWindow{win}})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/public/reservations", nil)
	rec := httptest.NewRecorder()
	h.Reserve(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
