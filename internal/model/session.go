package model

import "time"

// Status is the lifecycle state of a review session.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusRunning      Status = "running"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Snapshot is a point-in-time copy of a session's mutable state, safe to
// hand out to any number of pollers.
type Snapshot struct {
	ID          string    `json:"session_id"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	CurrentStep string    `json:"current_step"`
	StartTime   time.Time `json:"start_time"`
	Error       string    `json:"error,omitempty"`
}
