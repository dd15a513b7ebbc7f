package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrPlayerExists    = errors.New("player already exists")
	ErrDuplicateResult = errors.New("match result already recorded")
	ErrPersistence     = errors.New("persistence failure")
)
