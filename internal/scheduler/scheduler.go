package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

const (
	defaultInterval = 15 * time.Minute
	jobTimeout      = 30 * time.Second
)

// Job is a unit of periodic work. Errors are logged, never fatal.
type Job func(ctx context.Context) error

// Scheduler runs the advisor's periodic jobs: refreshing weather and,
// optionally, evaluating the plot without a request.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	jobs      []entry
}

type entry struct {
	name     string
	interval time.Duration
	run      Job
}

// New creates a Scheduler. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		logger:    logger,
	}
}

// Add registers a job. A non-positive interval disables it.
func (s *Scheduler) Add(name string, interval time.Duration, job Job) {
	if interval <= 0 {
		s.logger.Info("scheduler: job disabled", "job", name)
		return
	}
	s.jobs = append(s.jobs, entry{name: name, interval: interval, run: job})
}

// Start schedules every registered job and starts the underlying scheduler.
// Jobs run once immediately, then every interval.
func (s *Scheduler) Start() error {
	if len(s.jobs) == 0 {
		s.logger.Info("scheduler: no jobs configured; nothing to schedule")
		return nil
	}

	for _, e := range s.jobs {
		interval := e.interval
		if interval < time.Second {
			interval = defaultInterval
		}
		if _, err := s.scheduler.Every(interval).Do(s.wrap(e)); err != nil {
			return err
		}
		s.logger.Info("scheduler: job scheduled", "job", e.name, "interval", interval)
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) wrap(e entry) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := e.run(ctx); err != nil {
			s.logger.Warn("scheduler: job failed", "job", e.name, "error", err)
			return
		}
		s.logger.Debug("scheduler: job completed", "job", e.name, "took", time.Since(start))
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
