package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/biblioteca/backend/internal/infrastructure/logger"
	"github.com/biblioteca/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// JobStatus represents the outcome of the last run of a job
type JobStatus string

const (
	JobStatusIdle    JobStatus = "IDLE"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobFunc is the body of a periodic job
type JobFunc func(ctx context.Context) error

// Job is a named function run every Interval
type Job struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
	// RunOnStart runs the job once immediately instead of waiting a full interval
	RunOnStart bool
}

// JobState is a snapshot of a job's run history
type JobState struct {
	Name        string
	Status      JobStatus
	Runs        int
	Failures    int
	LastError   string
	LastStarted *time.Time
	LastEnded   *time.Time
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled    bool
	JobTimeout time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:    true,
		JobTimeout: 5 * time.Minute,
	}
}

type jobEntry struct {
	job     Job
	mu      sync.Mutex // held while the job runs
	stateMu sync.Mutex
	state   JobState
}

// Scheduler runs registered jobs on fixed intervals. A job never overlaps
// itself: a tick that arrives while the previous run is in progress is skipped.
type Scheduler struct {
	config SchedulerConfig
	logger *zap.Logger

	jobs      map[string]*jobEntry
	order     []string
	cancel    context.CancelFunc
	runCtx    context.Context
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultSchedulerConfig().JobTimeout
	}
	return &Scheduler{
		config: config,
		logger: log.Named("scheduler"),
		jobs:   make(map[string]*jobEntry),
	}
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Interval <= 0 || job.Run == nil {
		return fmt.Errorf("%w: %q", ErrInvalidJob, job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("%w: duplicate job %q", ErrInvalidJob, job.Name)
	}
	s.jobs[job.Name] = &jobEntry{job: job, state: JobState{Name: job.Name, Status: JobStatusIdle}}
	s.order = append(s.order, job.Name)
	return nil
}

// Start starts one loop per registered job. It is a no-op when the
// scheduler is disabled or already running.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	s.runCtx, s.cancel = context.WithCancel(ctx)
	for _, name := range s.order {
		entry := s.jobs[name]
		s.wg.Add(1)
		go s.loop(s.runCtx, entry)
	}

	s.logger.Info("Scheduler started",
		zap.Int("jobs", len(s.order)),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the loops to exit
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow runs a job immediately and waits for it to finish
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	entry, ok := s.jobs[name]
	running := s.isRunning
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !running {
		return ErrSchedulerNotRunning
	}
	if !entry.mu.TryLock() {
		return ErrJobAlreadyRunning
	}
	defer entry.mu.Unlock()
	return s.execute(ctx, entry)
}

// States returns a snapshot of every job, in registration order
func (s *Scheduler) States() []JobState {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]JobState, 0, len(s.order))
	for _, name := range s.order {
		entry := s.jobs[name]
		entry.stateMu.Lock()
		states = append(states, entry.state)
		entry.stateMu.Unlock()
	}
	return states
}

// IsRunning reports whether Start has been called without a matching Stop
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Scheduler) loop(ctx context.Context, entry *jobEntry) {
	defer s.wg.Done()

	if entry.job.RunOnStart {
		s.tick(ctx, entry)
	}

	ticker := time.NewTicker(entry.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, entry)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, entry *jobEntry) {
	if !entry.mu.TryLock() {
		s.logger.Warn("Skipping tick, previous run still in progress", zap.String("job", entry.job.Name))
		return
	}
	defer entry.mu.Unlock()
	_ = s.execute(ctx, entry)
}

// execute runs the job with the configured timeout, recording its outcome.
// The caller holds entry.mu.
func (s *Scheduler) execute(ctx context.Context, entry *jobEntry) (err error) {
	name := entry.job.Name
	started := time.Now()
	entry.setRunning(started)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()
	jobCtx, span := telemetry.StartServiceSpan(jobCtx, "scheduler", name)
	log := logger.WithTraceContext(jobCtx, s.logger).With(zap.String("job", name))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
		telemetry.RecordError(span, err)
		span.End()
		elapsed := time.Since(started)
		entry.setDone(time.Now(), err)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Error("Job timed out", zap.Duration("timeout", s.config.JobTimeout), zap.Error(err))
				return
			}
			log.Error("Job failed", zap.Duration("duration", elapsed), zap.Error(err))
			return
		}
		log.Debug("Job completed", zap.Duration("duration", elapsed))
	}()

	return entry.job.Run(jobCtx)
}

func (e *jobEntry) setRunning(at time.Time) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.state.Status = JobStatusRunning
	e.state.LastStarted = &at
}

func (e *jobEntry) setDone(at time.Time, err error) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.state.Runs++
	e.state.LastEnded = &at
	if err != nil {
		e.state.Status = JobStatusFailed
		e.state.Failures++
		e.state.LastError = err.Error()
		return
	}
	e.state.Status = JobStatusSuccess
	e.state.LastError = ""
}
