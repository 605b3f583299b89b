package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: optimistic version check lost against a concurrent writer
// - ErrActiveSessionExists: the one-active-session-per-user constraint fired
// - ErrExpired: session TTL elapsed
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrActiveSessionExists = errors.New("active session exists")
	ErrExpired             = errors.New("expired")
	ErrInvalidState        = errors.New("invalid state")
	ErrUnavailable         = errors.New("unavailable")
)
