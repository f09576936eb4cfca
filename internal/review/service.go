package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/reviewd/reviewd/internal/archive"
	"github.com/reviewd/reviewd/internal/bom"
	"github.com/reviewd/reviewd/internal/engine"
	"github.com/reviewd/reviewd/internal/log"
	"github.com/reviewd/reviewd/internal/model"
	"github.com/reviewd/reviewd/internal/report"
	"github.com/reviewd/reviewd/internal/store"
)

var (
	// ErrBusy rejects a submission when the runner queue is full.
	ErrBusy = errors.New("review queue is full")
	// ErrClosed rejects submissions after Close.
	ErrClosed = errors.New("service is closed")
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
)

type job struct {
	sess  *store.Session
	batch model.Batch
}

// Service drives review sessions from submission to terminal state and
// answers all read queries. Reads never mutate session state and are safe
// from any number of goroutines.
type Service struct {
	analyzer engine.Analyzer
	sessions *store.Sessions
	results  *store.Results

	workers int
	queue   chan job
	wg      sync.WaitGroup

	mx     sync.Mutex
	closed bool
}

type Option func(*Service)

// WithWorkers bounds the number of concurrently running sessions.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQueueSize bounds how many submitted sessions may wait for a runner.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queue = make(chan job, n)
		}
	}
}

func New(analyzer engine.Analyzer, sessions *store.Sessions, results *store.Results, opts ...Option) *Service {
	s := &Service{
		analyzer: analyzer,
		sessions: sessions,
		results:  results,
		workers:  defaultWorkers,
		queue:    make(chan job, defaultQueueSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the runner pool. Runners exit when Close is called and the
// queue drains, or when ctx is canceled.
func (s *Service) Start(ctx context.Context) {
	for range s.workers {
		s.wg.Go(func() {
			for j := range s.queue {
				s.run(ctx, j)
			}
		})
	}
}

// Close stops accepting submissions and waits for in-flight sessions.
func (s *Service) Close() {
	s.mx.Lock()
	if s.closed {
		s.mx.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mx.Unlock()
	s.wg.Wait()
}

// Submit validates the batch, allocates a session in initializing state and
// hands it to the runner pool. It returns the session id immediately, the
// analysis happens in the background.
func (s *Service) Submit(ctx context.Context, batch model.Batch, config model.ReviewConfig) (string, error) {
	if len(batch.Files) == 0 {
		return "", model.ErrEmptyBatch
	}

	id := uuid.New().String()
	sess := store.NewSession(id, batch.Names(), config)

	s.mx.Lock()
	if s.closed {
		s.mx.Unlock()
		return "", ErrClosed
	}
	select {
	case s.queue <- job{sess: sess, batch: batch}:
	default:
		s.mx.Unlock()
		return "", ErrBusy
	}
	s.mx.Unlock()

	s.sessions.Put(sess)
	slog.InfoContext(ctx, "review submitted", "session_id", id, "files", len(batch.Files))
	return id, nil
}

// Status returns a snapshot of the session state or model.ErrNotFound.
func (s *Service) Status(id string) (model.Snapshot, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return model.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Result returns the completed result or model.ErrNotFound.
func (s *Service) Result(id string) (model.Result, error) {
	return s.results.Get(id)
}

// Report renders the HTML report for a completed session.
func (s *Service) Report(id string) ([]byte, error) {
	res, err := s.results.Get(id)
	if err != nil {
		return nil, err
	}
	return report.HTML(res)
}

// Findings renders the CycloneDX findings document for a completed session.
func (s *Service) Findings(id string) ([]byte, error) {
	res, err := s.results.Get(id)
	if err != nil {
		return nil, err
	}
	return bom.FromResult(res).AsJSON()
}

// Archive builds the downloadable ZIP bundle for a completed session.
func (s *Service) Archive(id string) ([]byte, error) {
	res, err := s.results.Get(id)
	if err != nil {
		return nil, err
	}
	html, err := report.HTML(res)
	if err != nil {
		return nil, err
	}
	return archive.Build(res, html)
}

// ActiveCount reports sessions not yet in a terminal state.
func (s *Service) ActiveCount() int {
	return s.sessions.ActiveCount()
}

// run drives one session to its terminal state. Every failure mode ends in
// session.Fail, nothing escapes the runner.
func (s *Service) run(ctx context.Context, j job) {
	ctx = log.ContextAttrs(ctx, slog.String("session_id", j.sess.ID()))

	defer func() {
		if r := recover(); r != nil {
			j.sess.Fail(fmt.Errorf("analyzer panic: %v", r))
			slog.ErrorContext(ctx, "analyzer panicked", "panic", r)
		}
	}()

	config := j.sess.Config()
	phases := s.analyzer.Phases()
	n := len(phases)

	for i, label := range phases {
		if err := ctx.Err(); err != nil {
			j.sess.Fail(err)
			return
		}
		if err := s.analyzer.RunPhase(ctx, i, j.batch, config); err != nil {
			j.sess.Fail(err)
			slog.ErrorContext(ctx, "analysis failed", "phase", label, "error", err)
			return
		}
		// progress is written strictly after the phase finished
		progress := int(math.Round(float64(i+1) / float64(n) * 100))
		j.sess.UpdateProgress(progress, label)
		slog.DebugContext(ctx, "phase done", "phase", label, "progress", progress)
		runtime.Gosched() // let pollers observe the update before the next phase
	}

	res, err := s.analyzer.Result(ctx, j.batch, config)
	if err != nil {
		j.sess.Fail(err)
		slog.ErrorContext(ctx, "building result failed", "error", err)
		return
	}
	res.SessionID = j.sess.ID()

	s.results.Put(res)
	j.sess.Complete()
	slog.InfoContext(ctx, "review completed", "issues", res.Metrics.TotalIssues)
}
