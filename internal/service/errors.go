package service

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when a request fails validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState is returned when an operation is not legal in the
	// entity's current lifecycle state
	ErrInvalidState = errors.New("invalid state for operation")
)
