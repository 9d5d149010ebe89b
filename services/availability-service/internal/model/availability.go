package model

import (
	"fmt"
	"strings"
	"time"
)

type AvailabilityType string

const (
	TypeAvailability AvailabilityType = "availability"
	TypeTimeOff      AvailabilityType = "time_off"
)

func ParseAvailabilityType(raw string) (AvailabilityType, bool) {
	switch AvailabilityType(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeAvailability:
		return TypeAvailability, true
	case TypeTimeOff, "timeoff", "time-off":
		return TypeTimeOff, true
	}
	return "", false
}

// StaffAvailability is a recurring weekly window. Start and end are minutes after local
// midnight in the salon's timezone; EndMinute may be 1440 for "until midnight".
type StaffAvailability struct {
	ID          string
	StaffID     string
	SalonID     string
	DayOfWeek   time.Weekday
	StartMinute int
	EndMinute   int
	Type        AvailabilityType
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const MinutesPerDay = 24 * 60

// ParseClock parses "HH:MM" (or "HH:MM:SS" as stored by Postgres TIME columns) into
// minutes after midnight. "24:00" is accepted as the end of the day.
func ParseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "24:00" || raw == "24:00:00" {
		return MinutesPerDay, nil
	}
	layout := "15:04"
	if strings.Count(raw, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	if t.Second() != 0 {
		return 0, fmt.Errorf("clock time %q must be whole minutes", raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

type Staff struct {
	ID       string
	SalonID  string
	Name     string
	Timezone string
	IsActive bool
}

// Location resolves the staff member's salon timezone, defaulting to UTC.
func (s Staff) Location() *time.Location {
	if strings.TrimSpace(s.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
