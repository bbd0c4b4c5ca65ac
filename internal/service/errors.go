package service

import "errors"

var (
	ErrInvalidRange   = errors.New("range end is before range start")
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("caller does not own this booking")
	ErrInvalidState   = errors.New("operation not allowed in current booking status")
	ErrAlreadyBooked  = errors.New("student has already booked this session")
	ErrSessionFull    = errors.New("session is full")
	ErrPastWindow     = errors.New("session time window is not in the future")
	ErrSessionStarted = errors.New("session has already started")
	ErrLockContention = errors.New("session is currently being booked by another user")
	ErrInvalidRequest = errors.New("invalid request")
	ErrSlotOverlap    = errors.New("time slot overlaps with an existing slot")
)
