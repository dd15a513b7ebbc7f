package service

import "errors"

// Validation and availability errors surfaced to the API layer.
var (
	// ErrInvalidScope indicates an unknown scope or a keyed scope queried
	// without its key.
	ErrInvalidScope = errors.New("invalid scope")

	// ErrInvalidPagination indicates a page number below 1.
	ErrInvalidPagination = errors.New("page must be >= 1")

	// ErrInvalidLimit indicates a limit outside the accepted range.
	ErrInvalidLimit = errors.New("limit out of range")

	// ErrInvalidRange indicates a rank range with lo < 1 or hi < lo.
	ErrInvalidRange = errors.New("invalid rank range")

	// ErrQueueFull indicates the submission queue rejected an enqueue.
	ErrQueueFull = errors.New("submission queue full")

	// ErrNotStarted indicates an operation on a service that was never
	// started or was already stopped.
	ErrNotStarted = errors.New("service not started")
)
