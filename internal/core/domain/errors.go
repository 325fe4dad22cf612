package domain

import "errors"

var (
	// ErrTaskNotFound is returned by task table reads for unknown IDs.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidMessage marks a malformed worker IPC frame. The sending
	// worker is disconnected and treated as dead.
	ErrInvalidMessage = errors.New("invalid message")
)
