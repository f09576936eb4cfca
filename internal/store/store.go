// Package store holds the in-flight session registry and the completed
// result registry. Both are plain mutex-guarded maps: many concurrent
// readers poll them while a single runner per session id writes.
package store

import (
	"sync"
	"time"

	"github.com/reviewd/reviewd/internal/model"
)

// Sessions maps session id to its Session.
type Sessions struct {
	mx sync.RWMutex
	m  map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{
		m: make(map[string]*Session),
	}
}

func (s *Sessions) Put(sess *Session) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.m[sess.ID()] = sess
}

// Get returns the session or model.ErrNotFound.
func (s *Sessions) Get(id string) (*Session, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()
	sess, ok := s.m[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return sess, nil
}

func (s *Sessions) Len() int {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return len(s.m)
}

// ActiveCount counts sessions which did not reach a terminal state yet.
func (s *Sessions) ActiveCount() int {
	s.mx.RLock()
	defer s.mx.RUnlock()
	var n int
	for _, sess := range s.m {
		if !sess.Snapshot().Status.Terminal() {
			n++
		}
	}
	return n
}

// EvictTerminalBefore removes terminal sessions which finished before the
// cutoff and returns their ids, so callers can drop the matching results.
// Running sessions are never evicted.
func (s *Sessions) EvictTerminalBefore(cutoff time.Time) []string {
	s.mx.Lock()
	defer s.mx.Unlock()
	var evicted []string
	for id, sess := range s.m {
		if sess.terminalBefore(cutoff) {
			delete(s.m, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Results maps session id to its immutable Result. Written exactly once per
// id, after which the value never changes.
type Results struct {
	mx sync.RWMutex
	m  map[string]model.Result
}

func NewResults() *Results {
	return &Results{
		m: make(map[string]model.Result),
	}
}

func (r *Results) Put(res model.Result) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.m[res.SessionID] = res
}

// Get returns the result or model.ErrNotFound.
func (r *Results) Get(id string) (model.Result, error) {
	r.mx.RLock()
	defer r.mx.RUnlock()
	res, ok := r.m[id]
	if !ok {
		return model.Result{}, model.ErrNotFound
	}
	return res, nil
}

func (r *Results) Delete(id string) {
	r.mx.Lock()
	defer r.mx.Unlock()
	delete(r.m, id)
}
