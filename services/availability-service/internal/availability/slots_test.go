package availability

import (
	"testing"
	"time"
)

func TestAvailableSlots_Basic(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, loc)
	windowStart := time.Date(2026, 1, 28, 9, 0, 0, 0, loc)
	windowEnd := time.Date(2026, 1, 28, 10, 0, 0, 0, loc)

	busy := []Interval{
		{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)},
	}

	slots := AvailableSlots(windowStart, windowEnd, 15*time.Minute, 15*time.Minute, busy, day)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Format(time.RFC3339))
	}
	if !slots[1].Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected second slot 09:45, got %s", slots[1].Format(time.RFC3339))
	}
}

func TestAvailableSlots_SkipsPast(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	now := day.Add(9*time.Hour + 31*time.Minute)

	slots := AvailableSlots(day.Add(9*time.Hour), day.Add(10*time.Hour), 15*time.Minute, 15*time.Minute, nil, now)
	// 09:00, 09:15, 09:30 start before now; 09:45 is the only future slot.
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected slot 09:45, got %s", slots[0].Format(time.RFC3339))
	}
}

func TestAvailableSlots_DegenerateInput(t *testing.T) {
	day := time.Date(2026, 1, 28, 9, 0, 0, 0, time.UTC)
	if got := AvailableSlots(day, day.Add(time.Hour), 0, 15*time.Minute, nil, day); got != nil {
		t.Fatalf("expected nil for zero duration, got %v", got)
	}
	if got := AvailableSlots(day, day, 30*time.Minute, 15*time.Minute, nil, day); got != nil {
		t.Fatalf("expected nil for empty window, got %v", got)
	}
	if got := AvailableSlots(day, day.Add(20*time.Minute), 30*time.Minute, 15*time.Minute, nil, day); got != nil {
		t.Fatalf("expected nil when duration exceeds window, got %v", got)
	}
}

func TestIntervalOverlapIsHalfOpen(t *testing.T) {
	base := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	iv := Interval{Start: base, End: base.Add(30 * time.Minute)}
	if iv.Overlaps(base.Add(30*time.Minute), base.Add(time.Hour)) {
		t.Fatalf("touching intervals must not overlap")
	}
	if iv.Overlaps(base.Add(-30*time.Minute), base) {
		t.Fatalf("interval ending at start must not overlap")
	}
	if !iv.Overlaps(base.Add(29*time.Minute), base.Add(time.Hour)) {
		t.Fatalf("expected overlap")
	}
}
