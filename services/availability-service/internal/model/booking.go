package model

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusPending     BookingStatus = "pending"
	StatusConfirmed   BookingStatus = "confirmed"
	StatusCancelled   BookingStatus = "cancelled"
	StatusCompleted   BookingStatus = "completed"
	StatusNoShow      BookingStatus = "no_show"
	StatusRescheduled BookingStatus = "rescheduled"
)

var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusRescheduled, StatusNoShow},
}

func ParseBookingStatus(raw string) (BookingStatus, bool) {
	s := BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow, StatusRescheduled:
		return s, true
	}
	return "", false
}

// Blocking reports whether a booking in this status occupies the staff member's time.
func (s BookingStatus) Blocking() bool {
	switch s {
	case StatusCancelled, StatusRescheduled, StatusNoShow:
		return false
	}
	return true
}

func (s BookingStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// BlockingStatuses lists the statuses the database treats as occupying time.
func BlockingStatuses() []string {
	return []string{string(StatusPending), string(StatusConfirmed), string(StatusCompleted)}
}

type Booking struct {
	ID               string
	SalonID          string
	StaffID          string
	ServiceID        string
	ClientName       string
	ClientPhone      string
	AppointmentStart time.Time
	DurationMinutes  int
	Status           BookingStatus
	Notes            string
	RescheduledFrom  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// End is the exclusive end of the booking interval.
func (b Booking) End() time.Time {
	return b.AppointmentStart.Add(time.Duration(b.DurationMinutes) * time.Minute)
}
