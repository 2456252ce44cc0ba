package hook

import "errors"

var (
	// ErrUnknownEvent is returned for an Event outside the defined set.
	ErrUnknownEvent = errors.New("hook: unknown event")
	// ErrRegistration wraps host failures while installing a hook.
	ErrRegistration = errors.New("hook: registration failed")
	// ErrExpiredView is returned when RegisterForExchange gets a view whose
	// handler already returned.
	ErrExpiredView = errors.New("hook: exchange view expired")
	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("hook: nil handler")
)
