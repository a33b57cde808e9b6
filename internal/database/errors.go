package database

import "errors"

var (
	// ErrDuplicateIdentity is returned when registering a name that is
	// already enrolled (compared on the normalized form).
	ErrDuplicateIdentity = errors.New("identity name already registered")

	// ErrIdentityNotFound is returned when an operation references a name
	// that is not enrolled.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrSessionNotFound is returned when closing a session that does not exist.
	ErrSessionNotFound = errors.New("session not found")
)
