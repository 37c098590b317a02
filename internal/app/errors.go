package service

import "errors"

// Service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("game queue is full")
)
