package service

import "errors"

// Service errors.
var (
	// ErrNotStarted is returned when the pipeline has not been started.
	ErrNotStarted = errors.New("service not started")

	// ErrClickOutOfBounds is returned for clicks outside the frame.
	ErrClickOutOfBounds = errors.New("click out of bounds")

	// ErrQueueFull is returned when the click queue rejects an event.
	ErrQueueFull = errors.New("click queue full")
)
