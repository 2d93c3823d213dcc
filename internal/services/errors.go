package services

import (
	stderrors "errors"
)

// Service errors
var (
	// ErrIgnored marks an action that was dropped without effect: unknown
	// room or round, wrong phase, or a host action from a non-host.
	// Transports swallow it.
	ErrIgnored = &ServiceError{Message: "action ignored"}

	ErrRoomNameRequired   = &ServiceError{Message: "room name is required"}
	ErrPlayerNameRequired = &ServiceError{Message: "player name is required"}
	ErrParlayTextRequired = &ServiceError{Message: "parlay text is required"}
	ErrCallTextRequired   = &ServiceError{Message: "call text is required"}
	ErrCallRateLimited    = &ServiceError{Message: "calls are limited to one every 2 seconds"}
	ErrInvalidVideoAction = &ServiceError{Message: "video action must be play, pause or seek"}
	ErrInvalidVideoTime   = &ServiceError{Message: "video time must not be negative"}
	ErrNotHost            = &ServiceError{Message: "only the host can change room settings"}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// IsIgnored reports whether err is a dropped action
func IsIgnored(err error) bool {
	return stderrors.Is(err, ErrIgnored)
}
