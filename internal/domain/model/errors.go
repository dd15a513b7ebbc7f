package model

import "errors"

// Sentinel kinds for domain validation errors.
var (
	ErrInvalidMatch  = errors.New("invalid match")
	ErrInvalidPlayer = errors.New("invalid player")
)
