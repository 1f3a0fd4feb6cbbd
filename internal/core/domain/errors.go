package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound    = errors.New("tracking session not found")
	ErrSessionInactive    = errors.New("tracking session inactive")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidCoordinates = errors.New("coordinates out of range")
	ErrOutsideServiceArea = errors.New("location outside service area")
	ErrInvalidStatus      = errors.New("unknown tracking status")
	ErrLockTimeout        = errors.New("session busy, deadline exceeded")
	ErrStoreUnavailable   = errors.New("tracking store unavailable")
	ErrForbidden          = errors.New("access forbidden")
)

// TransitionError carries the attempted and allowed transitions so clients
// can see exactly why a status update was rejected.
type TransitionError struct {
	From      TrackingStatus
	Attempted TrackingStatus
	Allowed   []TrackingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s (allowed: %v)", e.From, e.Attempted, e.Allowed)
}

// Unwrap makes errors.Is(err, ErrInvalidTransition) hold for TransitionError.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// NewTransitionError builds a TransitionError for the rejected edge.
func NewTransitionError(from, attempted TrackingStatus) *TransitionError {
	return &TransitionError{From: from, Attempted: attempted, Allowed: from.AvailableTransitions()}
}
