package repository

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrAlreadyExists = errors.New("participant already exists")
	ErrInvalidLimit  = errors.New("invalid standings limit")
	ErrInvalidRecord = errors.New("invalid jsonl record")
)
