package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/availability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type SlotHandler struct {
	reader Reader
	engine *availability.Engine
	logger *slog.Logger
	now    func() time.Time
}

func NewSlotHandler(reader Reader, engine *availability.Engine, logger *slog.Logger, now func() time.Time) *SlotHandler {
	if now == nil {
		now = time.Now
	}
	return &SlotHandler{reader: reader, engine: engine, logger: logger, now: now}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Slots lists bookable start times for staff_id on date (YYYY-MM-DD, salon-local).
func (h *SlotHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	staffID := strings.TrimSpace(q.Get("staff_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if staffID == "" || dateStr == "" {
		http.Error(w, "staff_id and date are required", http.StatusBadRequest)
		return
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(q.Get("duration_minutes")))
	if err != nil || minutes <= 0 {
		http.Error(w, "duration_minutes must be a positive integer", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	staff, err := h.reader.GetStaff(ctx, staffID)
	if err != nil {
		writeError(w, h.logger, err, "failed to load staff")
		return
	}
	loc := staff.Location()
	day, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	if !staff.IsActive {
		writeJSON(w, http.StatusOK, []slotItem{})
		return
	}

	rules, err := h.reader.ListRules(ctx, staffID)
	if err != nil {
		writeError(w, h.logger, err, "failed to load availability")
		return
	}
	dayEnd := day.AddDate(0, 0, 1)
	bookings, err := h.reader.ListBookings(ctx, staffID, day, dayEnd, true)
	if err != nil {
		writeError(w, h.logger, err, "failed to load bookings")
		return
	}

	_, span := otel.Tracer("availability").Start(ctx, "availability.compute_slots",
		trace.WithAttributes(
			attribute.String("staff.id", staffID),
			attribute.String("slots.date", dateStr),
			attribute.Int("slots.duration_minutes", minutes),
		),
	)
	slots, err := h.engine.ComputeAvailableSlots(staffID, day, rules, bookings, minutes, h.now())
	span.SetAttributes(attribute.Int("slots.count", len(slots)))
	span.End()
	if err != nil {
		writeError(w, h.logger, err, "failed to compute slots")
		return
	}

	duration := time.Duration(minutes) * time.Minute
	resp := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, slotItem{
			StartTime: s.Format(time.RFC3339),
			EndTime:   s.Add(duration).Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type checkSlotRequest struct {
	StaffID         string `json:"staff_id"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

type checkSlotResponse struct {
	Available            bool   `json:"available"`
	Reason               string `json:"reason,omitempty"`
	ConflictingBookingID string `json:"conflicting_booking_id,omitempty"`
}

// Check validates one proposed appointment without booking it.
func (h *SlotHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req checkSlotRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.StaffID = strings.TrimSpace(req.StaffID)
	if req.StaffID == "" {
		http.Error(w, "staff_id is required", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	staff, err := h.reader.GetStaff(ctx, req.StaffID)
	if err != nil {
		writeError(w, h.logger, err, "failed to load staff")
		return
	}
	rules, err := h.reader.ListRules(ctx, staff.ID)
	if err != nil {
		writeError(w, h.logger, err, "failed to load availability")
		return
	}
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)
	bookings, err := h.reader.ListBookings(ctx, staff.ID, start, end, true)
	if err != nil {
		writeError(w, h.logger, err, "failed to load bookings")
		return
	}

	err = h.engine.CheckSlot(staff.ID, start.In(staff.Location()), req.DurationMinutes, rules, bookings, h.now())
	if ce, ok := availability.AsConflict(err); ok {
		writeJSON(w, http.StatusOK, checkSlotResponse{Reason: string(ce.Reason), ConflictingBookingID: ce.BookingID})
		return
	}
	if err != nil {
		writeError(w, h.logger, err, "failed to check slot")
		return
	}
	writeJSON(w, http.StatusOK, checkSlotResponse{Available: true})
}
