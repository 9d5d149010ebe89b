package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
)

type AvailabilityHandler struct {
	calendar Calendar
	reader   Reader
	logger   *slog.Logger
}

func NewAvailabilityHandler(calendar Calendar, reader Reader, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{calendar: calendar, reader: reader, logger: logger}
}

type ruleItem struct {
	ID        string `json:"id"`
	StaffID   string `json:"staff_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Type      string `json:"type"`
}

func toRuleItem(r model.StaffAvailability) ruleItem {
	return ruleItem{
		ID:        r.ID,
		StaffID:   r.StaffID,
		DayOfWeek: int(r.DayOfWeek),
		StartTime: model.FormatClock(r.StartMinute),
		EndTime:   model.FormatClock(r.EndMinute),
		Type:      string(r.Type),
	}
}

// ServeHTTP routes GET (list), PUT (create or update) and DELETE on the rules collection.
func (h *AvailabilityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPut:
		h.put(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AvailabilityHandler) list(w http.ResponseWriter, r *http.Request) {
	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	if staffID == "" {
		http.Error(w, "staff_id required", http.StatusBadRequest)
		return
	}
	if _, err := h.reader.GetStaff(r.Context(), staffID); err != nil {
		writeError(w, h.logger, err, "failed to load staff")
		return
	}
	rules, err := h.reader.ListRules(r.Context(), staffID)
	if err != nil {
		writeError(w, h.logger, err, "failed to list availability")
		return
	}
	items := make([]ruleItem, 0, len(rules))
	for _, rule := range rules {
		items = append(items, toRuleItem(rule))
	}
	writeJSON(w, http.StatusOK, items)
}

type putRuleRequest struct {
	ID        string `json:"id"`
	StaffID   string `json:"staff_id"`
	DayOfWeek *int   `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Type      string `json:"type"`
}

func (h *AvailabilityHandler) put(w http.ResponseWriter, r *http.Request) {
	var req putRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.DayOfWeek == nil {
		http.Error(w, "day_of_week is required", http.StatusBadRequest)
		return
	}
	start, err := model.ParseClock(req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	end, err := model.ParseClock(req.EndTime)
	if err != nil {
		http.Error(w, "invalid end_time", http.StatusBadRequest)
		return
	}
	typ, ok := model.ParseAvailabilityType(req.Type)
	if !ok {
		http.Error(w, "type must be availability or time_off", http.StatusBadRequest)
		return
	}

	saved, err := h.calendar.SaveRule(r.Context(), model.StaffAvailability{
		ID:          strings.TrimSpace(req.ID),
		StaffID:     req.StaffID,
		DayOfWeek:   time.Weekday(*req.DayOfWeek),
		StartMinute: start,
		EndMinute:   end,
		Type:        typ,
	})
	if err != nil {
		writeError(w, h.logger, err, "failed to save availability")
		return
	}
	writeJSON(w, http.StatusOK, toRuleItem(saved))
}

func (h *AvailabilityHandler) delete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	staffID := strings.TrimSpace(q.Get("staff_id"))
	id := strings.TrimSpace(q.Get("id"))
	if staffID == "" || id == "" {
		http.Error(w, "staff_id and id required", http.StatusBadRequest)
		return
	}
	if err := h.calendar.DeleteRule(r.Context(), staffID, id); err != nil {
		writeError(w, h.logger, err, "failed to delete availability")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
