package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clefside/auditiond/services/audition-service/internal/civiltime"
	"github.com/clefside/auditiond/services/audition-service/internal/model"
	"github.com/clefside/auditiond/services/audition-service/internal/registry"
)

type AdminHandler struct {
	repo   *registry.Repository
	cache  *registry.Cache
	zone   civiltime.Zone
	logger *slog.Logger
}

func NewAdminHandler(repo *registry.Repository, cache *registry.Cache, zone civiltime.Zone, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{repo: repo, cache: cache, zone: zone, logger: logger}
}

type createWindowRequest struct {
	// Civil wall-clock times in the reference zone, e.g. "2026-09-12T09:00".
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	SlotMinutes int    `json:"slot_minutes"`
}

type windowResponse struct {
	WindowID    string `json:"window_id"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	SlotMinutes int    `json:"slot_minutes"`
	Active      bool   `json:"active"`
	Date        string `json:"date"`
}

type deactivateRequest struct {
	WindowID string `json:"window_id"`
}

func (h *AdminHandler) Windows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listWindows(w, r)
	case http.MethodPost:
		h.createWindow(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) listWindows(w http.ResponseWriter, r *http.Request) {
	var windows []model.RecruitingWindow
	var err error
	if isTruthy(r.URL.Query().Get("include_inactive")) {
		windows, err = h.repo.ListWindows(r.Context())
	} else {
		windows, err = h.repo.ListActiveWindows(r.Context())
	}
	if err != nil {
		http.Error(w, "failed to list windows", http.StatusInternalServerError)
		return
	}

	items := make([]windowResponse, 0, len(windows))
	for _, win := range windows {
		items = append(items, h.toWindowResponse(win))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) createWindow(w http.ResponseWriter, r *http.Request) {
	var req createWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	startAt, err := h.zone.ParseLocal(strings.TrimSpace(req.StartsAt))
	if err != nil {
		http.Error(w, "invalid starts_at", http.StatusBadRequest)
		return
	}
	endAt, err := h.zone.ParseLocal(strings.TrimSpace(req.EndsAt))
	if err != nil {
		http.Error(w, "invalid ends_at", http.StatusBadRequest)
		return
	}
	if !endAt.After(startAt) {
		http.Error(w, "ends_at must be after starts_at", http.StatusBadRequest)
		return
	}
	if req.SlotMinutes <= 0 {
		http.Error(w, "slot_minutes must be positive", http.StatusBadRequest)
		return
	}

	win, err := h.repo.CreateWindow(r.Context(), startAt, endAt, req.SlotMinutes)
	if err != nil {
		http.Error(w, "failed to create window", http.StatusInternalServerError)
		return
	}
	h.invalidate(r)
	h.logger.Info("window created", "window_id", win.ID, "slot_minutes", win.SlotMinutes)
	writeJSON(w, http.StatusCreated, h.toWindowResponse(win))
}

func (h *AdminHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req deactivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.WindowID = strings.TrimSpace(req.WindowID)
	if req.WindowID == "" {
		http.Error(w, "window_id required", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeactivateWindow(r.Context(), req.WindowID); err != nil {
		if registry.IsNotFound(err) {
			http.Error(w, "window not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to deactivate window", http.StatusInternalServerError)
		return
	}
	h.invalidate(r)
	h.logger.Info("window deactivated", "window_id", req.WindowID)
	writeJSON(w, http.StatusOK, map[string]string{"window_id": req.WindowID, "status": "inactive"})
}

func (h *AdminHandler) invalidate(r *http.Request) {
	if h.cache != nil {
		h.cache.Invalidate(r.Context())
	}
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (h *AdminHandler) toWindowResponse(win model.RecruitingWindow) windowResponse {
	return windowResponse{
		WindowID:    win.ID,
		StartsAt:    win.StartAt.UTC().Format(time.RFC3339),
		EndsAt:      win.EndAt.UTC().Format(time.RFC3339),
		SlotMinutes: win.SlotMinutes,
		Active:      win.Active,
		Date:        h.zone.DateOf(win.StartAt).String(),
	}
}
