package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Guard is a single-slot run guard. Jobs that share a Guard never run
// concurrently with each other: a tick that fires while the slot is
// held is skipped, not queued.
type Guard struct {
	slot chan struct{}
}

// NewGuard returns an unheld guard.
func NewGuard() *Guard {
	return &Guard{slot: make(chan struct{}, 1)}
}

// tryAcquire takes the slot without blocking. It returns false if
// another job holding the same guard is still running.
func (g *Guard) tryAcquire() bool {
	select {
	case g.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

func (g *Guard) release() {
	select {
	case <-g.slot:
	default:
	}
}

// Job is a unit of scheduled work driven by a cron expression.
type Job struct {
	// Name identifies the job in logs.
	Name string

	// Cron is a standard 5-field cron expression.
	Cron string

	// Guard serializes this job against every other job sharing the
	// same guard. Required.
	Guard *Guard

	// MinSpacing, when positive, suppresses ticks that fire before
	// this much time has passed since the job last started.
	MinSpacing time.Duration

	// Run does the work. Errors are logged, never fatal.
	Run func(ctx context.Context) error

	mu          sync.Mutex
	lastStarted time.Time
}

// Scheduler drives registered jobs on their cron schedules.
type Scheduler struct {
	jobs   []*Job
	logger *slog.Logger
	now    func() time.Time
}

// New creates a scheduler with no jobs registered.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger.With(slog.String("component", "scheduler")),
		now:    time.Now,
	}
}

// Register adds a job to the scheduler. It must be called before Start.
func (s *Scheduler) Register(job *Job) error {
	if job.Guard == nil {
		return fmt.Errorf("job %s has no guard", job.Name)
	}
	if _, err := parseCron(job.Cron); err != nil {
		return fmt.Errorf("job %s: %w", job.Name, err)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start runs every registered job on its schedule until ctx is
// canceled. It blocks for the lifetime of the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		g.Go(func() error {
			return s.runLoop(ctx, job)
		})
	}
	return g.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, job *Job) error {
	logger := s.logger.With(slog.String("job", job.Name))
	for {
		next, err := nextCronTime(job.Cron, s.now())
		if err != nil {
			return fmt.Errorf("scheduling %s: %w", job.Name, err)
		}
		wait := next.Sub(s.now())
		logger.Debug("waiting for next run",
			slog.Time("next_run", next),
			slog.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.execute(ctx, job, logger)
	}
}

// execute runs one tick of the job. The guard is released and panics
// are recovered no matter how the job body exits, so a failed run
// never wedges its guard.
func (s *Scheduler) execute(ctx context.Context, job *Job, logger *slog.Logger) {
	job.mu.Lock()
	since := s.now().Sub(job.lastStarted)
	if job.MinSpacing > 0 && !job.lastStarted.IsZero() && since < job.MinSpacing {
		job.mu.Unlock()
		logger.Info("skipping run, too soon since last start",
			slog.Duration("since_last", since),
			slog.Duration("min_spacing", job.MinSpacing))
		return
	}
	job.mu.Unlock()

	if !job.Guard.tryAcquire() {
		logger.Info("skipping run, previous run still in progress")
		return
	}
	defer job.Guard.release()

	job.mu.Lock()
	job.lastStarted = s.now()
	job.mu.Unlock()

	runID := uuid.New().String()
	logger = logger.With(slog.String("run_id", runID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("run panicked", slog.Any("panic", r))
		}
	}()

	start := s.now()
	logger.Info("run started")
	if err := job.Run(ctx); err != nil {
		logger.Error("run failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", s.now().Sub(start)))
		return
	}
	logger.Info("run finished", slog.Duration("elapsed", s.now().Sub(start)))
}
