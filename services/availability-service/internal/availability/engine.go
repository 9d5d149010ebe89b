// Package availability computes bookable appointment slots for a staff member and
// validates proposed appointment times. Everything here is pure: rules, bookings and
// the current instant are passed in by the caller.
package availability

import (
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
)

// DefaultStep is the slot granularity.
const DefaultStep = 15 * time.Minute

type Engine struct {
	step time.Duration
}

// NewEngine returns an engine stepping by step. Steps that are not whole minutes or do
// not divide a day evenly fall back to DefaultStep so slots stay aligned to the clock.
func NewEngine(step time.Duration) *Engine {
	if step <= 0 || step%time.Minute != 0 || (24*time.Hour)%step != 0 {
		step = DefaultStep
	}
	return &Engine{step: step}
}

func (e *Engine) Step() time.Duration {
	return e.step
}

var defaultEngine = NewEngine(DefaultStep)

// maxWindowMinutes is the longest span a single local day can offer (a DST fall-back day).
const maxWindowMinutes = model.MinutesPerDay + 60

// maxServiceMinutes keeps serviceMinutes*time.Minute inside time.Duration.
const maxServiceMinutes = math.MaxInt64 / int64(time.Minute)

// ComputeAvailableSlots runs the default 15-minute engine.
func ComputeAvailableSlots(staffID string, date time.Time, rules []model.StaffAvailability, bookings []model.Booking, serviceMinutes int, now time.Time) ([]time.Time, error) {
	return defaultEngine.ComputeAvailableSlots(staffID, date, rules, bookings, serviceMinutes, now)
}

// IsSlotAvailable runs the default engine's single-slot check.
func IsSlotAvailable(staffID string, proposedStart time.Time, serviceMinutes int, rules []model.StaffAvailability, bookings []model.Booking, now time.Time) (bool, error) {
	return defaultEngine.IsSlotAvailable(staffID, proposedStart, serviceMinutes, rules, bookings, now)
}

// ComputeAvailableSlots lists bookable start times on date's calendar day, interpreted in
// date's location, in ascending order. No availability yields an empty, non-nil slice.
func (e *Engine) ComputeAvailableSlots(staffID string, date time.Time, rules []model.StaffAvailability, bookings []model.Booking, serviceMinutes int, now time.Time) ([]time.Time, error) {
	if date.IsZero() {
		return nil, invalidf("date is required")
	}
	busy, err := e.validate(staffID, serviceMinutes, rules, bookings, now)
	if err != nil {
		return nil, err
	}
	if serviceMinutes > maxWindowMinutes {
		return []time.Time{}, nil
	}

	day := startOfDay(date)
	duration := time.Duration(serviceMinutes) * time.Minute
	stepMinutes := int(e.step / time.Minute)

	slots := []time.Time{}
	for _, r := range openRanges(day.Weekday(), rules) {
		first := alignUp(r.start, stepMinutes)
		if first >= r.end {
			continue
		}
		slots = append(slots, AvailableSlots(clock(day, first), clock(day, r.end), duration, e.step, busy.intervals, now)...)
	}

	slices.SortFunc(slots, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(slots, func(a, b time.Time) bool { return a.Equal(b) }), nil
}

// CheckSlot returns nil when [proposedStart, proposedStart+serviceMinutes) can be booked,
// a *ConflictError when it cannot, and an ErrInvalidArgument error for bad input. The
// weekday is taken from proposedStart's location, so callers pass it in the salon's zone.
func (e *Engine) CheckSlot(staffID string, proposedStart time.Time, serviceMinutes int, rules []model.StaffAvailability, bookings []model.Booking, now time.Time) error {
	if proposedStart.IsZero() {
		return invalidf("proposed start is required")
	}
	busy, err := e.validate(staffID, serviceMinutes, rules, bookings, now)
	if err != nil {
		return err
	}

	start := proposedStart
	end := start.Add(time.Duration(serviceMinutes) * time.Minute)
	conflict := func(reason ConflictReason, bookingID string) error {
		return &ConflictError{Reason: reason, Start: start, End: end, BookingID: bookingID}
	}

	if start.Before(now) {
		return conflict(ReasonInPast, "")
	}

	day := startOfDay(start)
	if !fitsAny(start, end, toIntervals(day, openRanges(day.Weekday(), rules))) {
		open, _ := dayRanges(day.Weekday(), rules)
		if fitsAny(start, end, toIntervals(day, open)) {
			return conflict(ReasonTimeOff, "")
		}
		return conflict(ReasonOutsideAvailability, "")
	}

	if i, hit := firstOverlap(start, end, busy.intervals); hit {
		return conflict(ReasonBookingOverlap, busy.ids[i])
	}
	return nil
}

// IsSlotAvailable is CheckSlot reduced to a boolean; only invalid input is an error.
func (e *Engine) IsSlotAvailable(staffID string, proposedStart time.Time, serviceMinutes int, rules []model.StaffAvailability, bookings []model.Booking, now time.Time) (bool, error) {
	err := e.CheckSlot(staffID, proposedStart, serviceMinutes, rules, bookings, now)
	if errors.Is(err, ErrSlotUnavailable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type busySet struct {
	intervals []Interval
	ids       []string
}

func (e *Engine) validate(staffID string, serviceMinutes int, rules []model.StaffAvailability, bookings []model.Booking, now time.Time) (busySet, error) {
	if strings.TrimSpace(staffID) == "" {
		return busySet{}, invalidf("staff id is required")
	}
	if serviceMinutes <= 0 {
		return busySet{}, invalidf("service duration must be positive (got %d)", serviceMinutes)
	}
	if int64(serviceMinutes) > maxServiceMinutes {
		return busySet{}, invalidf("service duration %d is out of range", serviceMinutes)
	}
	if now.IsZero() {
		return busySet{}, invalidf("current time is required")
	}
	for _, r := range rules {
		if err := validateRule(staffID, r); err != nil {
			return busySet{}, err
		}
	}

	var busy busySet
	for _, b := range bookings {
		if b.StaffID != staffID {
			return busySet{}, invalidf("booking %s belongs to staff %q, not %q", b.ID, b.StaffID, staffID)
		}
		if !b.Status.Blocking() {
			continue
		}
		if b.AppointmentStart.IsZero() || b.DurationMinutes <= 0 {
			return busySet{}, invalidf("booking %s has no valid interval", b.ID)
		}
		busy.intervals = append(busy.intervals, Interval{Start: b.AppointmentStart, End: b.End()})
		busy.ids = append(busy.ids, b.ID)
	}
	return busy, nil
}

// ValidateRule checks a single availability rule in isolation.
func ValidateRule(r model.StaffAvailability) error {
	return validateRule(r.StaffID, r)
}

func validateRule(staffID string, r model.StaffAvailability) error {
	if r.StaffID != "" && r.StaffID != staffID {
		return invalidf("availability rule %s belongs to staff %q, not %q", r.ID, r.StaffID, staffID)
	}
	if r.DayOfWeek < time.Sunday || r.DayOfWeek > time.Saturday {
		return invalidf("availability rule %s has day of week %d outside 0-6", r.ID, r.DayOfWeek)
	}
	if r.StartMinute < 0 || r.EndMinute > model.MinutesPerDay || r.StartMinute >= r.EndMinute {
		return invalidf("availability rule %s has invalid range %d-%d", r.ID, r.StartMinute, r.EndMinute)
	}
	if r.Type != model.TypeAvailability && r.Type != model.TypeTimeOff {
		return invalidf("availability rule %s has unknown type %q", r.ID, r.Type)
	}
	return nil
}

func fitsAny(start, end time.Time, windows []Interval) bool {
	for _, w := range windows {
		if w.Contains(start, end) {
			return true
		}
	}
	return false
}
