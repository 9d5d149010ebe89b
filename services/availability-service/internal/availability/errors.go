package availability

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidArgument marks malformed engine input. It is always wrapped with detail.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrSlotUnavailable matches every *ConflictError via errors.Is.
var ErrSlotUnavailable = errors.New("slot unavailable")

type ConflictReason string

const (
	ReasonOutsideAvailability ConflictReason = "outside_availability"
	ReasonTimeOff             ConflictReason = "time_off"
	ReasonBookingOverlap      ConflictReason = "booking_overlap"
	ReasonInPast              ConflictReason = "in_past"
)

// ConflictError explains why a proposed appointment cannot be booked.
type ConflictError struct {
	Reason    ConflictReason
	Start     time.Time
	End       time.Time
	BookingID string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("slot %s-%s unavailable: %s", e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.Reason)
	if e.BookingID != "" {
		msg += " (booking " + e.BookingID + ")"
	}
	return msg
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrSlotUnavailable
}

func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}
