package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrCorruptState indicates persisted data could not be decoded.
	ErrCorruptState = errors.New("corrupt persisted state")
	// ErrUnauthenticated indicates an operation that needs a known customer.
	ErrUnauthenticated = errors.New("customer not authenticated")
)
