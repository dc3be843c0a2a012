package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrAggregation marks manager data that cannot be reconciled into a
	// coherent squad snapshot, for example a squad with zero captains.
	ErrAggregation = errors.New("aggregation failed")

	// ErrSessionBusy is returned when a chat session already has a request
	// in flight. Callers should surface it without retrying.
	ErrSessionBusy = errors.New("session busy")
)
