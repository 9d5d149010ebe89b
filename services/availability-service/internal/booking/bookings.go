package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/outbox"
)

type CreateRequest struct {
	StaffID         string
	ServiceID       string
	ClientName      string
	ClientPhone     string
	Start           time.Time
	DurationMinutes int
	Notes           string
	IdempotencyKey  string
}

type CreateResult struct {
	Booking model.Booking
	// Replayed is set when the idempotency key matched an earlier booking.
	Replayed bool
}

type bookingEvent struct {
	BookingID       string `json:"booking_id"`
	SalonID         string `json:"salon_id"`
	StaffID         string `json:"staff_id"`
	ServiceID       string `json:"service_id,omitempty"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	PreviousStatus  string `json:"previous_status,omitempty"`
	RescheduledFrom string `json:"rescheduled_from,omitempty"`
}

func newBookingEvent(b model.Booking) bookingEvent {
	return bookingEvent{
		BookingID:       b.ID,
		SalonID:         b.SalonID,
		StaffID:         b.StaffID,
		ServiceID:       b.ServiceID,
		StartTime:       b.AppointmentStart.UTC().Format(time.RFC3339),
		EndTime:         b.End().UTC().Format(time.RFC3339),
		DurationMinutes: b.DurationMinutes,
		Status:          string(b.Status),
		RescheduledFrom: b.RescheduledFrom,
	}
}

// CreateBooking books [Start, Start+DurationMinutes) as a pending appointment.
func (s *Service) CreateBooking(ctx context.Context, req CreateRequest) (CreateResult, error) {
	staffID, err := requireID("staff_id", req.StaffID)
	if err != nil {
		return CreateResult{}, err
	}
	if req.Start.IsZero() {
		return CreateResult{}, fmt.Errorf("%w: start time is required", availability.ErrInvalidArgument)
	}
	if req.DurationMinutes <= 0 || req.DurationMinutes > model.MinutesPerDay {
		return CreateResult{}, fmt.Errorf("%w: duration must be between 1 and %d minutes", availability.ErrInvalidArgument, model.MinutesPerDay)
	}
	key := strings.TrimSpace(req.IdempotencyKey)

	var res CreateResult
	err = s.withStaffLock(ctx, staffID, func() error {
		return s.store.InTx(ctx, func(tx Tx) error {
			staff, err := tx.LockStaff(ctx, staffID)
			if err != nil {
				return err
			}

			if key != "" {
				bookingID, found, err := tx.LockIdempotencyKey(ctx, staff.SalonID, key)
				if err != nil {
					return err
				}
				if found {
					existing, err := tx.GetBookingForUpdate(ctx, bookingID)
					if err != nil {
						return err
					}
					if existing.StaffID != staff.ID || !existing.AppointmentStart.Equal(req.Start) || existing.DurationMinutes != req.DurationMinutes {
						return fmt.Errorf("%w: key %q belongs to booking %s", ErrIdempotencyKeyReused, key, existing.ID)
					}
					res = CreateResult{Booking: existing, Replayed: true}
					return nil
				}
			}

			if !staff.IsActive {
				return fmt.Errorf("%w: %s", ErrInactiveStaff, staff.ID)
			}
			if err := s.checkSlot(ctx, tx, staff, req.Start, req.DurationMinutes, ""); err != nil {
				return err
			}

			b := model.Booking{
				ID:               uuid.NewString(),
				SalonID:          staff.SalonID,
				StaffID:          staff.ID,
				ServiceID:        strings.TrimSpace(req.ServiceID),
				ClientName:       strings.TrimSpace(req.ClientName),
				ClientPhone:      strings.TrimSpace(req.ClientPhone),
				AppointmentStart: req.Start.UTC(),
				DurationMinutes:  req.DurationMinutes,
				Status:           model.StatusPending,
				Notes:            strings.TrimSpace(req.Notes),
			}
			created, err := tx.InsertBooking(ctx, b)
			if err != nil {
				return conflictFromStore(err, b.AppointmentStart, b.End())
			}
			if err := insertEvent(ctx, tx, created.StaffID, outbox.EventBookingCreated, newBookingEvent(created)); err != nil {
				return err
			}
			if key != "" {
				if err := tx.FinalizeIdempotency(ctx, staff.SalonID, key, created.ID); err != nil {
					return err
				}
			}
			res = CreateResult{Booking: created}
			return nil
		})
	})
	if err != nil {
		return CreateResult{}, err
	}
	if !res.Replayed {
		s.logger.Info("booking created", "booking_id", res.Booking.ID, "staff_id", res.Booking.StaffID,
			"start", res.Booking.AppointmentStart.Format(time.RFC3339))
	}
	return res, nil
}

// ChangeStatus moves a booking along the lifecycle. Rescheduling goes through Reschedule so
// the replacement booking is created atomically.
func (s *Service) ChangeStatus(ctx context.Context, bookingID string, next model.BookingStatus) (model.Booking, error) {
	bookingID, err := requireUUID("booking_id", bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if next == model.StatusRescheduled {
		return model.Booking{}, fmt.Errorf("%w: use reschedule to move a booking", availability.ErrInvalidArgument)
	}

	var out model.Booking
	err = s.store.InTx(ctx, func(tx Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == next {
			out = b
			return nil
		}
		if !b.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, next)
		}
		prev := b.Status
		updatedAt, err := tx.UpdateBookingStatus(ctx, b.ID, next)
		if err != nil {
			return err
		}
		b.Status = next
		b.UpdatedAt = updatedAt

		evt := newBookingEvent(b)
		evt.PreviousStatus = string(prev)
		if err := insertEvent(ctx, tx, b.StaffID, outbox.EventBookingStatusChanged, evt); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	return out, nil
}

type RescheduleResult struct {
	Previous model.Booking
	Booking  model.Booking
}

// Reschedule marks a confirmed booking as rescheduled and books its replacement at newStart.
// The old booking no longer blocks, so the new time may overlap it. A zero durationMinutes
// keeps the original duration.
func (s *Service) Reschedule(ctx context.Context, bookingID string, newStart time.Time, durationMinutes int) (RescheduleResult, error) {
	bookingID, err := requireUUID("booking_id", bookingID)
	if err != nil {
		return RescheduleResult{}, err
	}
	if newStart.IsZero() {
		return RescheduleResult{}, fmt.Errorf("%w: new start time is required", availability.ErrInvalidArgument)
	}
	if durationMinutes < 0 || durationMinutes > model.MinutesPerDay {
		return RescheduleResult{}, fmt.Errorf("%w: duration must be between 1 and %d minutes", availability.ErrInvalidArgument, model.MinutesPerDay)
	}

	var staffID string
	err = s.store.InTx(ctx, func(tx Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, bookingID)
		staffID = b.StaffID
		return err
	})
	if err != nil {
		return RescheduleResult{}, err
	}

	var res RescheduleResult
	err = s.withStaffLock(ctx, staffID, func() error {
		return s.store.InTx(ctx, func(tx Tx) error {
			staff, err := tx.LockStaff(ctx, staffID)
			if err != nil {
				return err
			}
			old, err := tx.GetBookingForUpdate(ctx, bookingID)
			if err != nil {
				return err
			}
			if !old.Status.CanTransitionTo(model.StatusRescheduled) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, old.Status, model.StatusRescheduled)
			}

			minutes := durationMinutes
			if minutes == 0 {
				minutes = old.DurationMinutes
			}
			if err := s.checkSlot(ctx, tx, staff, newStart, minutes, old.ID); err != nil {
				return err
			}

			updatedAt, err := tx.UpdateBookingStatus(ctx, old.ID, model.StatusRescheduled)
			if err != nil {
				return err
			}
			old.Status = model.StatusRescheduled
			old.UpdatedAt = updatedAt

			next := old
			next.ID = uuid.NewString()
			next.AppointmentStart = newStart.UTC()
			next.DurationMinutes = minutes
			next.Status = model.StatusPending
			next.RescheduledFrom = old.ID
			created, err := tx.InsertBooking(ctx, next)
			if err != nil {
				return conflictFromStore(err, next.AppointmentStart, next.End())
			}

			if err := insertEvent(ctx, tx, created.StaffID, outbox.EventBookingRescheduled, newBookingEvent(created)); err != nil {
				return err
			}
			res = RescheduleResult{Previous: old, Booking: created}
			return nil
		})
	})
	if err != nil {
		return RescheduleResult{}, err
	}
	s.logger.Info("booking rescheduled", "booking_id", res.Booking.ID, "previous_booking_id", res.Previous.ID)
	return res, nil
}
