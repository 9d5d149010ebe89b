package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/booking"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/locks"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
)

// Reader serves the read side: staff directory, rules and bookings.
type Reader interface {
	GetStaff(ctx context.Context, staffID string) (model.Staff, error)
	ListRules(ctx context.Context, staffID string) ([]model.StaffAvailability, error)
	ListBookings(ctx context.Context, staffID string, from, to time.Time, blockingOnly bool) ([]model.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (model.Booking, error)
}

// Calendar is implemented by *booking.Service.
type Calendar interface {
	CreateBooking(ctx context.Context, req booking.CreateRequest) (booking.CreateResult, error)
	ChangeStatus(ctx context.Context, bookingID string, next model.BookingStatus) (model.Booking, error)
	Reschedule(ctx context.Context, bookingID string, newStart time.Time, durationMinutes int) (booking.RescheduleResult, error)
	SaveRule(ctx context.Context, r model.StaffAvailability) (model.StaffAvailability, error)
	DeleteRule(ctx context.Context, staffID, ruleID string) error
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

type conflictResponse struct {
	Error                string `json:"error"`
	Reason               string `json:"reason"`
	ConflictingBookingID string `json:"conflicting_booking_id,omitempty"`
}

// writeError maps calendar errors onto HTTP statuses. Unexpected errors are logged and
// reported as 500 with msg.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, msg string) {
	if ce, ok := availability.AsConflict(err); ok {
		writeJSON(w, http.StatusConflict, conflictResponse{
			Error:                "requested time is not available",
			Reason:               string(ce.Reason),
			ConflictingBookingID: ce.BookingID,
		})
		return
	}
	switch {
	case errors.Is(err, availability.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, model.ErrConflict), errors.Is(err, booking.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, booking.ErrInactiveStaff), errors.Is(err, booking.ErrIdempotencyKeyReused):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, locks.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		http.Error(w, "calendar busy, retry", http.StatusServiceUnavailable)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
	default:
		logger.Error(msg, "err", err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
