package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds shared by the engine packages.
var (
	ErrInsufficientPlayers   = errors.New("insufficient players")
	ErrInvalidConfiguration  = errors.New("invalid configuration")
	ErrOptimizationExhausted = errors.New("optimization budget exhausted")
	ErrModelUnavailable      = errors.New("rating model unavailable")
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrDuplicateGame         = errors.New("game already recorded")
)

// NotFound wraps ErrParticipantNotFound with the offending id.
func NotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrParticipantNotFound, id)
}
