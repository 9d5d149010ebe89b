package availability

import (
	"slices"
	"time"

	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
)

// minuteRange is a half-open range of wall-clock minutes after local midnight.
type minuteRange struct {
	start int
	end   int
}

// dayRanges splits the rules for weekday into merged availability ranges and merged
// time-off ranges.
func dayRanges(weekday time.Weekday, rules []model.StaffAvailability) (open, off []minuteRange) {
	for _, r := range rules {
		if r.DayOfWeek != weekday {
			continue
		}
		mr := minuteRange{start: r.StartMinute, end: r.EndMinute}
		switch r.Type {
		case model.TypeAvailability:
			open = append(open, mr)
		case model.TypeTimeOff:
			off = append(off, mr)
		}
	}
	return mergeRanges(open), mergeRanges(off)
}

// openRanges is availability minus time-off for weekday.
func openRanges(weekday time.Weekday, rules []model.StaffAvailability) []minuteRange {
	open, off := dayRanges(weekday, rules)
	var out []minuteRange
	for _, base := range open {
		out = append(out, subtractRanges(base, off)...)
	}
	return out
}

// mergeRanges sorts and unions ranges; touching ranges are joined so a service may run
// across the seam of two back-to-back windows.
func mergeRanges(in []minuteRange) []minuteRange {
	if len(in) == 0 {
		return nil
	}
	sorted := slices.Clone(in)
	slices.SortFunc(sorted, func(a, b minuteRange) int {
		if a.start != b.start {
			return a.start - b.start
		}
		return a.end - b.end
	})

	merged := make([]minuteRange, 0, len(sorted))
	for _, cur := range sorted {
		if len(merged) == 0 || cur.start > merged[len(merged)-1].end {
			merged = append(merged, cur)
			continue
		}
		last := &merged[len(merged)-1]
		if cur.end > last.end {
			last.end = cur.end
		}
	}
	return merged
}

// subtractRanges removes merged, sorted blocks from base.
func subtractRanges(base minuteRange, blocks []minuteRange) []minuteRange {
	if base.end <= base.start {
		return nil
	}
	var out []minuteRange
	cursor := base.start
	for _, b := range blocks {
		if b.end <= cursor || b.start >= base.end {
			continue
		}
		if b.start > cursor {
			out = append(out, minuteRange{start: cursor, end: b.start})
		}
		if b.end > cursor {
			cursor = b.end
		}
	}
	if base.end > cursor {
		out = append(out, minuteRange{start: cursor, end: base.end})
	}
	return out
}

// alignUp rounds minute up to the next multiple of step.
func alignUp(minute, step int) int {
	if rem := minute % step; rem != 0 {
		return minute + step - rem
	}
	return minute
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// clock converts a wall-clock minute on day into an instant. time.Date normalizes
// minute 1440 to the following midnight and follows DST transitions.
func clock(day time.Time, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, minute, 0, 0, day.Location())
}

func toIntervals(day time.Time, ranges []minuteRange) []Interval {
	out := make([]Interval, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, Interval{Start: clock(day, r.start), End: clock(day, r.end)})
	}
	return out
}
