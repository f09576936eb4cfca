package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocron "github.com/go-co-op/gocron/v2"
)

// Janitor periodically evicts terminal sessions older than the retention
// period, together with their results. Running sessions are left alone.
type Janitor struct {
	scheduler gocron.Scheduler
	sessions  *Sessions
	results   *Results
	retention time.Duration
}

func NewJanitor(ctx context.Context, sessions *Sessions, results *Results, retention, interval time.Duration) (*Janitor, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}
	if interval <= 0 {
		interval = retention
	}

	j := &Janitor{
		sessions:  sessions,
		results:   results,
		retention: retention,
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { j.Sweep(ctx) }),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	j.scheduler = scheduler
	return j, nil
}

func (j *Janitor) Start() {
	j.scheduler.Start()
}

func (j *Janitor) Shutdown() error {
	return j.scheduler.Shutdown()
}

// Sweep runs one eviction pass. Exposed so tests and shutdown paths do not
// have to wait for the schedule.
func (j *Janitor) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.retention)
	evicted := j.sessions.EvictTerminalBefore(cutoff)
	for _, id := range evicted {
		j.results.Delete(id)
	}
	if len(evicted) > 0 {
		slog.DebugContext(ctx, "evicted expired sessions", "count", len(evicted))
	}
}
