package core

import "errors"

var (
	ErrAttendanceNotFound = errors.New("attendance not found")
	ErrRecordNotFound     = errors.New("time record not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidMarkType    = errors.New("type must be check_in or check_out")
	ErrInvalidStatus      = errors.New("status must be one of pending, completed, absent, late")
	ErrInvalidLateMinutes = errors.New("late_minutes must be zero or greater")
	ErrInvalidDateRange   = errors.New("start_date must not be after end_date")
	ErrForbidden          = errors.New("forbidden")
)
