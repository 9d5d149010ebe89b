package availability

import "time"

type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Contains(start, end time.Time) bool {
	return !start.Before(i.Start) && !end.After(i.End)
}

// Overlaps treats both intervals as half-open.
func (i Interval) Overlaps(start, end time.Time) bool {
	return start.Before(i.End) && i.Start.Before(end)
}

// AvailableSlots returns slot start times within [windowStart, windowEnd) where a booking of
// length duration would not overlap any of the busy intervals.
//
// All times are expected to be in the same location (timezone).
func AvailableSlots(windowStart, windowEnd time.Time, duration, step time.Duration, busy []Interval, now time.Time) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) {
		return nil
	}
	if windowStart.Add(duration).After(windowEnd) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(step) {
		if t.Before(now) {
			continue
		}
		if _, hit := firstOverlap(t, t.Add(duration), busy); !hit {
			slots = append(slots, t)
		}
	}
	return slots
}

func firstOverlap(start, end time.Time, busy []Interval) (int, bool) {
	for i, b := range busy {
		if b.Overlaps(start, end) {
			return i, true
		}
	}
	return -1, false
}
