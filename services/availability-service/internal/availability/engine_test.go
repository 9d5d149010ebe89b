package availability

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/go-cmp/cmp"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
)

// 2026-01-28 is a Wednesday.
var wed = time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

func at(hhmm string) time.Time {
	m, err := model.ParseClock(hhmm)
	if err != nil {
		panic(err)
	}
	return wed.Add(time.Duration(m) * time.Minute)
}

func booking(id, start string, minutes int, status model.BookingStatus) model.Booking {
	return model.Booking{ID: id, StaffID: "staff-1", AppointmentStart: at(start), DurationMinutes: minutes, Status: status}
}

func fullDay() []model.StaffAvailability {
	return []model.StaffAvailability{rule(time.Wednesday, "09:00", "17:00", model.TypeAvailability)}
}

// yesterday keeps the past filter out of the way.
var yesterday = wed.Add(-24 * time.Hour)

func clocks(ts []time.Time) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Format("15:04"))
	}
	return out
}

func TestComputeAvailableSlots_EmptyAvailability(t *testing.T) {
	slots, err := ComputeAvailableSlots("staff-1", wed, nil, nil, 30, yesterday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", slots)
	}
}

func TestComputeAvailableSlots_FullDayNoBookings(t *testing.T) {
	slots, err := ComputeAvailableSlots("staff-1", wed, fullDay(), nil, 30, yesterday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 31 {
		t.Fatalf("expected 31 slots, got %d", len(slots))
	}
	if !slots[0].Equal(at("09:00")) || !slots[30].Equal(at("16:30")) {
		t.Fatalf("expected 09:00..16:30, got %s..%s", slots[0].Format("15:04"), slots[30].Format("15:04"))
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].Sub(slots[i-1]) != 15*time.Minute {
			t.Fatalf("expected 15 minute step between %s and %s", slots[i-1], slots[i])
		}
	}
}

func TestComputeAvailableSlots_SingleConflictingBooking(t *testing.T) {
	bookings := []model.Booking{booking("b-1", "10:00", 30, model.StatusConfirmed)}
	slots, err := ComputeAvailableSlots("staff-1", wed, fullDay(), bookings, 30, yesterday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var want []string
	for c := at("09:00"); !c.After(at("16:30")); c = c.Add(15 * time.Minute) {
		if c.Before(at("10:30")) && c.Add(30*time.Minute).After(at("10:00")) {
			continue
		}
		want = append(want, c.Format("15:04"))
	}
	if diff := cmp.Diff(want, clocks(slots)); diff != "" {
		t.Fatalf("slots mismatch (-want +got):\n%s", diff)
	}
	for _, excluded := range []string{"09:45", "10:00", "10:15"} {
		for _, s := range clocks(slots) {
			if s == excluded {
				t.Fatalf("slot %s overlaps the booking", excluded)
			}
		}
	}
}

func TestComputeAvailableSlots_TimeOffSubtraction(t *testing.T) {
	rules := append(fullDay(), rule(time.Wednesday, "12:00", "13:00", model.TypeTimeOff))
	slots, err := ComputeAvailableSlots("staff-1", wed, rules, nil, 30, yesterday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range slots {
		if s.Add(30*time.Minute).After(at("12:00")) && s.Before(at("13:00")) {
			t.Fatalf("slot %s spills into time off", s.Format("15:04"))
		}
	}
	got := clocks(slots)
	if got[len(got)-16] != "11:30" || got[len(got)-15] != "13:00" {
		t.Fatalf("expected 11:30 followed by 13:00, got %v", got)
	}
	if len(slots) != 26 {
		t.Fatalf("expected 26 slots, got %d", len(slots))
	}
}

func TestComputeAvailableSlots_PastExclusion(t *testing.T) {
	now := at("14:00")
	slots, err := ComputeAvailableSlots("staff-1", wed, fullDay(), nil, 30, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 11 {
		t.Fatalf("expected 11 slots from 14:00, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Before(now) {
			t.Fatalf("slot %s is in the past", s.Format("15:04"))
		}
	}

	slots, err = ComputeAvailableSlots("staff-1", wed, fullDay(), nil, 30, wed.Add(48*time.Hour))
	if err != nil || len(slots) != 0 {
		t.Fatalf("expected no slots for a past day, got %v (%v)", slots, err)
	}
}

func TestComputeAvailableSlots_AlignsOddWindowEdges(t *testing.T) {
	rules := []model.StaffAvailability{
		rule(time.Wednesday, "09:10", "11:00", model.TypeAvailability),
		rule(time.Wednesday, "09:50", "10:20", model.TypeTimeOff),
	}
	slots, err := ComputeAvailableSlots("staff-1", wed, rules, nil, 15, yesterday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"09:15", "09:30", "10:30", "10:45"}
	if diff := cmp.Diff(want, clocks(slots)); diff != "" {
		t.Fatalf("slots mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeAvailableSlots_EmptyCases(t *testing.T) {
	cases := []struct {
		name     string
		rules    []model.StaffAvailability
		bookings []model.Booking
		minutes  int
	}{
		{
			name:    "duration exceeds every window",
			rules:   []model.StaffAvailability{rule(time.Wednesday, "09:00", "10:00", model.TypeAvailability), rule(time.Wednesday, "11:00", "12:00", model.TypeAvailability)},
			minutes: 90,
		},
		{
			name:     "bookings cover the window",
			rules:    []model.StaffAvailability{rule(time.Wednesday, "09:00", "10:00", model.TypeAvailability)},
			bookings: []model.Booking{booking("b-1", "09:00", 30, model.StatusPending), booking("b-2", "09:30", 30, model.StatusCompleted)},
			minutes:  15,
		},
		{
			name:    "rules only for another weekday",
			rules:   []model.StaffAvailability{rule(time.Monday, "09:00", "17:00", model.TypeAvailability)},
			minutes: 30,
		},
		{
			name:    "time off only",
			rules:   []model.StaffAvailability{rule(time.Wednesday, "09:00", "17:00", model.TypeTimeOff)},
			minutes: 30,
		},
		{
			name:    "duration longer than a day",
			rules:   fullDay(),
			minutes: 1441,
		},
		{
			name:    "duration of several days",
			rules:   fullDay(),
			minutes: 7 * model.MinutesPerDay,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slots, err := ComputeAvailableSlots("staff-1", wed, tc.rules, tc.bookings, tc.minutes, yesterday)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(slots) != 0 {
				t.Fatalf("expected no slots, got %v", clocks(slots))
			}
		})
	}
}

func TestComputeAvailableSlots_NonBlockingStatuses(t *testing.T) {
	bookings := []model.Booking{
		booking("b-1", "09:00", 60, model.StatusCancelled),
		booking("b-2", "10:00", 60, model.StatusRescheduled),
		booking("b-3", "11:00", 60, model.StatusNoShow),
	}
	slots, err := ComputeAvailableSlots("staff-1", wed, fullDay(), bookings, 30, yesterday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 31 {
		t.Fatalf("expected non-blocking bookings to be ignored, got %d slots", len(slots))
	}
}

func TestComputeAvailableSlots_InvalidArguments(t *testing.T) {
	cases := []struct {
		name     string
		staffID  string
		date     time.Time
		rules    []model.StaffAvailability
		bookings []model.Booking
		minutes  int
		now      time.Time
	}{
		{name: "zero duration", staffID: "staff-1", date: wed, minutes: 0, now: yesterday},
		{name: "negative duration", staffID: "staff-1", date: wed, minutes: -15, now: yesterday},
		{name: "missing staff", staffID: " ", date: wed, minutes: 30, now: yesterday},
		{name: "zero date", staffID: "staff-1", minutes: 30, now: yesterday},
		{name: "zero now", staffID: "staff-1", date: wed, minutes: 30},
		{
			name: "rule for another staff member", staffID: "staff-2", date: wed, minutes: 30, now: yesterday,
			rules: fullDay(),
		},
		{
			name: "booking for another staff member", staffID: "staff-2", date: wed, minutes: 30, now: yesterday,
			bookings: []model.Booking{booking("b-1", "10:00", 30, model.StatusConfirmed)},
		},
		{
			name: "inverted rule", staffID: "staff-1", date: wed, minutes: 30, now: yesterday,
			rules: []model.StaffAvailability{{StaffID: "staff-1", DayOfWeek: time.Wednesday, StartMinute: 600, EndMinute: 540, Type: model.TypeAvailability}},
		},
		{
			name: "weekday out of range", staffID: "staff-1", date: wed, minutes: 30, now: yesterday,
			rules: []model.StaffAvailability{{StaffID: "staff-1", DayOfWeek: 7, StartMinute: 540, EndMinute: 600, Type: model.TypeAvailability}},
		},
		{
			name: "unknown rule type", staffID: "staff-1", date: wed, minutes: 30, now: yesterday,
			rules: []model.StaffAvailability{{StaffID: "staff-1", DayOfWeek: time.Wednesday, StartMinute: 540, EndMinute: 600, Type: "holiday"}},
		},
		{
			name: "booking without duration", staffID: "staff-1", date: wed, minutes: 30, now: yesterday,
			bookings: []model.Booking{booking("b-1", "10:00", 0, model.StatusPending)},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeAvailableSlots(tc.staffID, tc.date, tc.rules, tc.bookings, tc.minutes, tc.now)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestComputeAvailableSlots_SalonTimezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Wednesday 2026-07-15; 10:00 EDT is 14:00 UTC.
	date := time.Date(2026, 7, 15, 0, 0, 0, 0, ny)
	rules := []model.StaffAvailability{{StaffID: "staff-1", DayOfWeek: time.Wednesday, StartMinute: 540, EndMinute: 660, Type: model.TypeAvailability}}
	bookings := []model.Booking{{ID: "b-1", StaffID: "staff-1", AppointmentStart: time.Date(2026, 7, 15, 14, 0, 0, 0, time.UTC), DurationMinutes: 30, Status: model.StatusConfirmed}}

	slots, err := ComputeAvailableSlots("staff-1", date, rules, bookings, 30, date.Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"09:00", "09:15", "09:30", "10:30"}
	if diff := cmp.Diff(want, clocks(slots)); diff != "" {
		t.Fatalf("slots mismatch (-want +got):\n%s", diff)
	}
	if !slots[0].Equal(time.Date(2026, 7, 15, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected first slot at 13:00 UTC, got %s", slots[0].UTC())
	}
}

func TestComputeAvailableSlots_SpringForward(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2026-03-08 is a Sunday; clocks jump from 02:00 EST to 03:00 EDT.
	date := time.Date(2026, 3, 8, 0, 0, 0, 0, ny)
	rules := []model.StaffAvailability{{StaffID: "staff-1", DayOfWeek: time.Sunday, StartMinute: 60, EndMinute: 240, Type: model.TypeAvailability}}

	slots, err := ComputeAvailableSlots("staff-1", date, rules, nil, 60, date.Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"01:00", "01:15", "01:30", "01:45", "03:00"}
	if diff := cmp.Diff(want, clocks(slots)); diff != "" {
		t.Fatalf("slots mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineStep(t *testing.T) {
	if NewEngine(7*time.Minute).Step() != DefaultStep {
		t.Fatalf("expected a step that does not divide a day to fall back")
	}
	if NewEngine(90*time.Second).Step() != DefaultStep {
		t.Fatalf("expected a sub-minute step to fall back")
	}
	e := NewEngine(30 * time.Minute)
	slots, err := e.ComputeAvailableSlots("staff-1", wed, fullDay(), nil, 60, yesterday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 15 {
		t.Fatalf("expected 15 half-hour slots, got %d", len(slots))
	}
}

func TestCheckSlot(t *testing.T) {
	rules := append(fullDay(), rule(time.Wednesday, "12:00", "13:00", model.TypeTimeOff))
	bookings := []model.Booking{
		booking("b-1", "10:00", 30, model.StatusConfirmed),
		booking("b-2", "14:00", 60, model.StatusCancelled),
	}
	now := at("08:00")

	cases := []struct {
		name      string
		start     string
		minutes   int
		now       time.Time
		reason    ConflictReason
		bookingID string
	}{
		{name: "free slot", start: "09:00", minutes: 30},
		{name: "adjacent to booking end", start: "10:30", minutes: 30},
		{name: "adjacent to booking start", start: "09:30", minutes: 30},
		{name: "cancelled booking does not block", start: "14:00", minutes: 60},
		{name: "unaligned but free", start: "15:07", minutes: 30},
		{name: "overlaps booking", start: "09:45", minutes: 30, reason: ReasonBookingOverlap, bookingID: "b-1"},
		{name: "inside booking", start: "10:10", minutes: 10, reason: ReasonBookingOverlap, bookingID: "b-1"},
		{name: "spills into time off", start: "11:45", minutes: 30, reason: ReasonTimeOff},
		{name: "inside time off", start: "12:15", minutes: 15, reason: ReasonTimeOff},
		{name: "before opening", start: "08:30", minutes: 60, reason: ReasonOutsideAvailability},
		{name: "after closing", start: "16:45", minutes: 30, reason: ReasonOutsideAvailability},
		{name: "longer than a day", start: "09:00", minutes: 1441, reason: ReasonOutsideAvailability},
		{name: "in the past", start: "09:00", minutes: 30, now: at("09:05"), reason: ReasonInPast},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checkNow := now
			if !tc.now.IsZero() {
				checkNow = tc.now
			}
			err := defaultEngine.CheckSlot("staff-1", at(tc.start), tc.minutes, rules, bookings, checkNow)
			if tc.reason == "" {
				if err != nil {
					t.Fatalf("expected slot to be free, got %v", err)
				}
				return
			}
			ce, ok := AsConflict(err)
			if !ok {
				t.Fatalf("expected conflict, got %v", err)
			}
			if ce.Reason != tc.reason || ce.BookingID != tc.bookingID {
				t.Fatalf("expected %s/%q, got %s/%q", tc.reason, tc.bookingID, ce.Reason, ce.BookingID)
			}
			if !errors.Is(err, ErrSlotUnavailable) {
				t.Fatalf("expected conflict to match ErrSlotUnavailable")
			}
		})
	}
}

func TestIsSlotAvailable(t *testing.T) {
	bookings := []model.Booking{booking("b-1", "10:00", 30, model.StatusPending)}

	ok, err := IsSlotAvailable("staff-1", at("10:15"), 30, fullDay(), bookings, yesterday)
	if err != nil || ok {
		t.Fatalf("expected unavailable without error, got %v, %v", ok, err)
	}
	ok, err = IsSlotAvailable("staff-1", at("10:30"), 30, fullDay(), bookings, yesterday)
	if err != nil || !ok {
		t.Fatalf("expected available, got %v, %v", ok, err)
	}
	_, err = IsSlotAvailable("staff-1", at("10:30"), -30, fullDay(), bookings, yesterday)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	_, err = IsSlotAvailable("staff-1", time.Time{}, 30, fullDay(), bookings, yesterday)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for zero start, got %v", err)
	}
}

// TestSlotProperties checks the engine's guarantees over seeded random schedules and
// cross-checks the slot list against the single-slot check.
func TestSlotProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(20260128, 7))
	statuses := []model.BookingStatus{model.StatusPending, model.StatusConfirmed, model.StatusCompleted, model.StatusCancelled, model.StatusNoShow, model.StatusRescheduled}

	for iter := 0; iter < 200; iter++ {
		var rules []model.StaffAvailability
		for n := 1 + rng.IntN(3); n > 0; n-- {
			start := rng.IntN(20*60) + rng.IntN(2)*7
			rules = append(rules, model.StaffAvailability{
				StaffID: "staff-1", DayOfWeek: time.Wednesday,
				StartMinute: start, EndMinute: min(start+30+rng.IntN(8*60), model.MinutesPerDay),
				Type: model.TypeAvailability,
			})
		}
		for n := rng.IntN(3); n > 0; n-- {
			start := rng.IntN(22 * 60)
			rules = append(rules, model.StaffAvailability{
				StaffID: "staff-1", DayOfWeek: time.Wednesday,
				StartMinute: start, EndMinute: min(start+5+rng.IntN(120), model.MinutesPerDay),
				Type: model.TypeTimeOff,
			})
		}
		var bookings []model.Booking
		for n := rng.IntN(6); n > 0; n-- {
			bookings = append(bookings, model.Booking{
				ID: "b", StaffID: "staff-1",
				AppointmentStart: wed.Add(time.Duration(rng.IntN(24*60)) * time.Minute),
				DurationMinutes:  5 + rng.IntN(90),
				Status:           statuses[rng.IntN(len(statuses))],
			})
		}
		minutes := 15 + 15*rng.IntN(6)
		now := wed.Add(time.Duration(rng.IntN(26*60)-60) * time.Minute)

		slots, err := ComputeAvailableSlots("staff-1", wed, rules, bookings, minutes, now)
		if err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", iter, err)
		}
		again, _ := ComputeAvailableSlots("staff-1", wed, rules, bookings, minutes, now)
		if diff := cmp.Diff(slots, again); diff != "" {
			t.Fatalf("iteration %d: not idempotent:\n%s", iter, diff)
		}

		inList := make(map[int64]bool, len(slots))
		for i, s := range slots {
			if i > 0 && !slots[i-1].Before(s) {
				t.Fatalf("iteration %d: slots not strictly ascending at %d", iter, i)
			}
			if s.Minute()%15 != 0 {
				t.Fatalf("iteration %d: slot %s not aligned", iter, s.Format("15:04"))
			}
			if s.Before(now) {
				t.Fatalf("iteration %d: slot %s before now %s", iter, s.Format("15:04"), now.Format("15:04"))
			}
			end := s.Add(time.Duration(minutes) * time.Minute)
			for _, b := range bookings {
				if b.Status.Blocking() && s.Before(b.End()) && b.AppointmentStart.Before(end) {
					t.Fatalf("iteration %d: slot %s overlaps booking", iter, s.Format("15:04"))
				}
			}
			if !fitsAny(s, end, toIntervals(wed, openRanges(time.Wednesday, rules))) {
				t.Fatalf("iteration %d: slot %s outside open windows", iter, s.Format("15:04"))
			}
			inList[s.Unix()] = true
		}

		for c := wed; c.Before(wed.Add(24 * time.Hour)); c = c.Add(15 * time.Minute) {
			ok, err := IsSlotAvailable("staff-1", c, minutes, rules, bookings, now)
			if err != nil {
				t.Fatalf("iteration %d: unexpected error: %v", iter, err)
			}
			if ok != inList[c.Unix()] {
				t.Fatalf("iteration %d: %s listed=%v but check=%v", iter, c.Format("15:04"), inList[c.Unix()], ok)
			}
		}
	}
}
