package common

import "errors"

var (
	// ErrNotFound covers unknown users, conversations and messages, and
	// conversations the caller cannot see.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the caller is not an active participant
	// of the conversation it acts on, or carries no valid identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedInput marks payloads that cannot be decoded or lack required fields.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInvalidArgument marks well-formed requests that break a business rule.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDeliveryFailure is reported when a live session could not be reached.
	// It is logged and never retried.
	ErrDeliveryFailure = errors.New("delivery failure")
)
