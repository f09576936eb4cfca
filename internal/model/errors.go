package model

import (
	"errors"
)

var (
	// ErrNotFound is returned by the stores for an unknown session id.
	ErrNotFound = errors.New("not found")
	// ErrEmptyBatch rejects a submission carrying no files.
	ErrEmptyBatch = errors.New("empty batch")
	// ErrNotCompleted signals a result was requested before the session
	// reached its terminal state.
	ErrNotCompleted = errors.New("review not completed")
)
