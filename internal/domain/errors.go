package domain

import "errors"

var (
	// ErrNotFound is returned when a review or movie is not known
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when the author already reviewed the movie
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden is returned when a user touches a review they did not write
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized is returned when no identity is attached to a request
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRemoteUnavailable is returned when a remote API call could not be completed
	ErrRemoteUnavailable = errors.New("remote service unavailable")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)
