package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/booking"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
)

// maxListRange bounds GET /bookings so one request cannot scan a staff member's history.
const maxListRange = 62 * 24 * time.Hour

type BookingHandler struct {
	calendar Calendar
	reader   Reader
	logger   *slog.Logger
}

func NewBookingHandler(calendar Calendar, reader Reader, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{calendar: calendar, reader: reader, logger: logger}
}

type bookingItem struct {
	BookingID       string `json:"booking_id"`
	SalonID         string `json:"salon_id"`
	StaffID         string `json:"staff_id"`
	ServiceID       string `json:"service_id,omitempty"`
	ClientName      string `json:"client_name,omitempty"`
	ClientPhone     string `json:"client_phone,omitempty"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	Notes           string `json:"notes,omitempty"`
	RescheduledFrom string `json:"rescheduled_from,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

func toBookingItem(b model.Booking) bookingItem {
	item := bookingItem{
		BookingID:       b.ID,
		SalonID:         b.SalonID,
		StaffID:         b.StaffID,
		ServiceID:       b.ServiceID,
		ClientName:      b.ClientName,
		ClientPhone:     b.ClientPhone,
		StartTime:       b.AppointmentStart.UTC().Format(time.RFC3339),
		EndTime:         b.End().UTC().Format(time.RFC3339),
		DurationMinutes: b.DurationMinutes,
		Status:          string(b.Status),
		Notes:           b.Notes,
		RescheduledFrom: b.RescheduledFrom,
	}
	if !b.CreatedAt.IsZero() {
		item.CreatedAt = b.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !b.UpdatedAt.IsZero() {
		item.UpdatedAt = b.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return item
}

type createBookingRequest struct {
	StaffID         string `json:"staff_id"`
	ServiceID       string `json:"service_id"`
	ClientName      string `json:"client_name"`
	ClientPhone     string `json:"client_phone"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	res, err := h.calendar.CreateBooking(r.Context(), booking.CreateRequest{
		StaffID:         req.StaffID,
		ServiceID:       req.ServiceID,
		ClientName:      req.ClientName,
		ClientPhone:     req.ClientPhone,
		Start:           start,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeError(w, h.logger, err, "failed to create booking")
		return
	}
	if res.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	writeJSON(w, http.StatusCreated, toBookingItem(res.Booking))
}

type changeStatusRequest struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

func (h *BookingHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req changeStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	next, ok := model.ParseBookingStatus(req.Status)
	if !ok {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	b, err := h.calendar.ChangeStatus(r.Context(), req.BookingID, next)
	if err != nil {
		writeError(w, h.logger, err, "failed to update booking")
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(b))
}

type rescheduleRequest struct {
	BookingID       string `json:"booking_id"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

type rescheduleResponse struct {
	Previous bookingItem `json:"previous"`
	Booking  bookingItem `json:"booking"`
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	res, err := h.calendar.Reschedule(r.Context(), req.BookingID, start, req.DurationMinutes)
	if err != nil {
		writeError(w, h.logger, err, "failed to reschedule booking")
		return
	}
	writeJSON(w, http.StatusOK, rescheduleResponse{
		Previous: toBookingItem(res.Previous),
		Booking:  toBookingItem(res.Booking),
	})
}

// List returns the bookings of staff_id overlapping [from, to), optionally narrowed by
// status and service_id.
// With ?id= it returns that single booking instead.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	if id := strings.TrimSpace(q.Get("id")); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		b, err := h.reader.GetBooking(r.Context(), id)
		if err != nil {
			writeError(w, h.logger, err, "failed to load booking")
			return
		}
		writeJSON(w, http.StatusOK, toBookingItem(b))
		return
	}
	staffID := strings.TrimSpace(q.Get("staff_id"))
	if staffID == "" {
		http.Error(w, "staff_id required", http.StatusBadRequest)
		return
	}
	from, err := time.Parse(time.RFC3339, strings.TrimSpace(q.Get("from")))
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := time.Parse(time.RFC3339, strings.TrimSpace(q.Get("to")))
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}
	if !to.After(from) || to.Sub(from) > maxListRange {
		http.Error(w, "to must be after from and within 62 days", http.StatusBadRequest)
		return
	}
	var status model.BookingStatus
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		parsed, ok := model.ParseBookingStatus(raw)
		if !ok {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		status = parsed
	}
	serviceID := strings.TrimSpace(q.Get("service_id"))

	bookings, err := h.reader.ListBookings(r.Context(), staffID, from, to, false)
	if err != nil {
		writeError(w, h.logger, err, "failed to list bookings")
		return
	}
	items := make([]bookingItem, 0, len(bookings))
	for _, b := range bookings {
		if (status != "" && b.Status != status) || (serviceID != "" && b.ServiceID != serviceID) {
			continue
		}
		items = append(items, toBookingItem(b))
	}
	writeJSON(w, http.StatusOK, items)
}
