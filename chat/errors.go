package chat

import "errors"

var (
	// ErrNotFound is returned when a referenced conversation, message or
	// user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when a user mutates a record they do not
	// own.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is returned for malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
)
