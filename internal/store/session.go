package store

import (
	"sync"
	"time"

	"github.com/reviewd/reviewd/internal/model"
)

// Session is the mutable record tracking one submitted review. All mutation
// goes through the methods below and is performed by exactly one runner;
// any number of pollers read concurrently via Snapshot.
type Session struct {
	mx          sync.RWMutex
	id          string
	files       []string
	config      model.ReviewConfig
	status      model.Status
	progress    int
	currentStep string
	startTime   time.Time
	finishTime  time.Time // zero until terminal
	err         string
}

func NewSession(id string, files []string, config model.ReviewConfig) *Session {
	return &Session{
		id:        id,
		files:     files,
		config:    config,
		status:    model.StatusInitializing,
		startTime: time.Now().UTC(),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Config() model.ReviewConfig {
	return s.config
}

// Files returns the submitted file names in submission order.
func (s *Session) Files() []string {
	return append([]string(nil), s.files...)
}

// UpdateProgress records a finished phase. It transitions the session to
// running, keeps progress monotone and is a no-op once terminal.
func (s *Session) UpdateProgress(progress int, step string) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = model.StatusRunning
	if progress > s.progress {
		s.progress = min(progress, 100)
	}
	s.currentStep = step
}

// Complete marks the session as successfully finished.
func (s *Session) Complete() {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = model.StatusCompleted
	s.progress = 100
	s.finishTime = time.Now().UTC()
}

// Fail marks the session as failed with the error message.
func (s *Session) Fail(err error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = model.StatusFailed
	s.err = err.Error()
	s.finishTime = time.Now().UTC()
}

// Snapshot returns a consistent copy of the mutable state.
func (s *Session) Snapshot() model.Snapshot {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return model.Snapshot{
		ID:          s.id,
		Status:      s.status,
		Progress:    s.progress,
		CurrentStep: s.currentStep,
		StartTime:   s.startTime,
		Error:       s.err,
	}
}

func (s *Session) terminalBefore(cutoff time.Time) bool {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.status.Terminal() && !s.finishTime.IsZero() && s.finishTime.Before(cutoff)
}
