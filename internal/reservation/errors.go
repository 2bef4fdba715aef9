package reservation

import "errors"

var (
	// ErrInvalidDate is returned when a calendar date string is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("reservation: invalid date")
	// ErrInvalidTime is returned when a slot time is not HH:MM.
	ErrInvalidTime = errors.New("reservation: invalid time")
	// ErrUnknownCountry is returned for calling codes missing from the country table.
	ErrUnknownCountry = errors.New("reservation: unknown country code")
	// ErrNoDate is returned when a time slot is chosen before a date.
	ErrNoDate = errors.New("reservation: time requires a date")
)
