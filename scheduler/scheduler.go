// Package scheduler drives the periodic collect, report, and cleanup jobs.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs named jobs on independent cron triggers. Each job is
// mutually exclusive with itself: a trigger firing while the previous run of
// the same job is still going is skipped, not queued.
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.Mutex
	started bool
}

// New creates a scheduler for the given timezone.
func New(timezone string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	logger := &cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(
			cron.SkipIfStillRunning(logger),
			cron.Recover(logger),
		),
	)
	return &Scheduler{cron: c}, nil
}

// AddJob registers a job under the given cron spec. A job returning an error
// is logged and left alone; its future firings are unaffected.
func (s *Scheduler) AddJob(name, spec string, job func() error) error {
	_, err := s.cron.AddFunc(spec, func() {
		slog.Info("job started", "job", name)
		if err := job(); err != nil {
			slog.Error("job failed", "job", name, "error", err)
			return
		}
		slog.Info("job finished", "job", name)
	})
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}
	return nil
}

// Start begins firing triggers. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.cron.Start()
		s.started = true
	}
}

// Stop halts the triggers and waits for in-flight jobs to finish. Calling
// Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		<-s.cron.Stop().Done()
		s.started = false
	}
}

// cronLogger adapts slog to the cron.Logger interface used by the job
// wrappers.
type cronLogger struct{}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Info(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
