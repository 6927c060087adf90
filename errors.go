package delayq

import "errors"

var (
	// Configuration errors.
	ErrNoStore = errors.New("delayq: no store configured")
	ErrNoQueue = errors.New("delayq: no queue configured")

	// Not found errors.
	ErrTaskNotFound = errors.New("delayq: task not found")

	// Conflict errors.
	ErrTaskAlreadyExists = errors.New("delayq: task already exists")

	// State errors.
	ErrNotReady          = errors.New("delayq: task is not in ready state")
	ErrInvalidTransition = errors.New("delayq: invalid state transition")
	ErrNoTaskable        = errors.New("delayq: no taskable registered for service")
	ErrAlreadyRegistered = errors.New("delayq: taskable already registered for service")
)
