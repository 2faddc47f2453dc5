// Package scheduler provides the single tick source that drives every
// periodic game job (energy regeneration, crop growth, event refresh, HUD).
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/fazenda/internal/clock"
)

// JobFunc is invoked with the tick's timestamp. A returned error is logged
// and does not stop the scheduler.
type JobFunc func(ctx context.Context, now time.Time) error

type job struct {
	name    string
	every   time.Duration
	lastRun time.Time
	fn      JobFunc
}

// Scheduler runs registered jobs in registration order on every tick.
//
// Invariant: a job with period p runs at most once per p of clock time;
// a job with period 0 runs on every tick.
type Scheduler struct {
	clk      clock.Clock
	interval time.Duration
	logger   *zap.Logger

	mu   sync.Mutex
	jobs []*job
}

// New returns a Scheduler whose real-time loop fires every interval.
//
// Precondition: clk and logger must be non-nil; interval must be > 0.
func New(clk clock.Clock, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		panic("scheduler.New: interval must be > 0")
	}
	return &Scheduler{
		clk:      clk,
		interval: interval,
		logger:   logger,
	}
}

// Register appends a job. every == 0 runs the job on every tick.
//
// Precondition: name must be unique; every >= 0; fn must be non-nil.
// Postcondition: Returns an error if name is already registered.
func (s *Scheduler) Register(name string, every time.Duration, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.name == name {
			return fmt.Errorf("scheduler: job %q already registered", name)
		}
	}
	if every < 0 {
		return fmt.Errorf("scheduler: job %q period must be >= 0, got %s", name, every)
	}
	s.jobs = append(s.jobs, &job{name: name, every: every, fn: fn})
	return nil
}

// Unregister removes the named job. Unknown names are ignored.
func (s *Scheduler) Unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, j := range s.jobs {
		if j.name == name {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			return
		}
	}
}

// Jobs returns registered job names in run order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.name
	}
	return names
}

// Tick runs every due job once, in registration order, at the clock's
// current time. Returns the names of the jobs that ran.
func (s *Scheduler) Tick(ctx context.Context) []string {
	now := s.clk.Now()

	s.mu.Lock()
	due := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.every == 0 || j.lastRun.IsZero() || now.Sub(j.lastRun) >= j.every {
			j.lastRun = now
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	ran := make([]string, 0, len(due))
	for _, j := range due {
		if ctx.Err() != nil {
			break
		}
		if err := j.fn(ctx, now); err != nil {
			s.logger.Warn("scheduled job failed",
				zap.String("job", j.name),
				zap.Error(err),
			)
		}
		ran = append(ran, j.name)
	}
	return ran
}

// Run ticks every interval until ctx is cancelled. It blocks.
//
// Postcondition: no job is invoked after Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
