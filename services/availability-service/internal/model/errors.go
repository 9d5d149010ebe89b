package model

import "errors"

var (
	// ErrNotFound is returned when a staff member, rule or booking does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write collides with existing data, such as
	// an overlapping booking rejected by the database.
	ErrConflict = errors.New("conflict")
)
