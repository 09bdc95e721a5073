// Package scheduler runs named maintenance jobs on cron schedules. The server
// uses it to evict idle grid sessions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is the callback invoked when a scheduled job fires.
type JobFunc func(ctx context.Context) error

// JobStatus represents the state of a scheduled job.
type JobStatus struct {
	Name      string    `json:"name"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitempty"`
	NextRun   time.Time `json:"next_run"`
	Schedule  string    `json:"schedule"`
	LastError string    `json:"last_error,omitempty"`
}

type job struct {
	entry    cron.EntryID
	schedule string
	fn       JobFunc
	running  bool
	lastRun  time.Time
	lastErr  error
}

// parser accepts standard five-field expressions and descriptors such as
// "@every 5m" or "@hourly".
var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler manages cron-based jobs. A job never overlaps itself: a firing
// while the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*job

	ctx     context.Context    // cancelled on Stop
	cancel  context.CancelFunc // cancels ctx
	wg      sync.WaitGroup     // tracks running jobs
	started bool
	stopped bool
}

// New creates an empty Scheduler.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser)),
		logger: slog.Default(),
		jobs:   make(map[string]*job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// WithLogger sets the logger for the scheduler.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// AddJob schedules fn under name, replacing any job with the same name.
// Returns an error if the cron expression is invalid.
func (s *Scheduler) AddJob(name, cronExpr string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, exists := s.jobs[name]; exists {
		s.cron.Remove(j.entry)
		delete(s.jobs, name)
	}

	j := &job{schedule: cronExpr, fn: fn}
	entryID, err := s.cron.AddFunc(cronExpr, func() {
		if s.claim(name, j) {
			s.run(name, j)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	j.entry = entryID
	s.jobs[name] = j

	s.logger.Info("scheduled job",
		"job", name,
		"schedule", cronExpr,
		"next_run", s.cron.Entry(entryID).Next)
	return nil
}

// RemoveJob removes the named job. Unknown names are ignored.
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, exists := s.jobs[name]; exists {
		s.cron.Remove(j.entry)
		delete(s.jobs, name)
		s.logger.Info("removed job", "job", name)
	}
}

// IsScheduled returns true if a job with this name exists.
func (s *Scheduler) IsScheduled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.jobs[name]
	return exists
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.started = true
	s.stopped = false
	n := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", n)
}

// IsRunning returns true if the scheduler has been started and not yet stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && !s.stopped
}

// Stop stops the scheduler, cancels running jobs, and returns a context
// that is done when all of them have returned.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopping")

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

// TriggerJob runs the named job now, outside its schedule.
func (s *Scheduler) TriggerJob(name string) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is stopped")
	}
	j, exists := s.jobs[name]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("job %s is not scheduled", name)
	}
	if j.running {
		s.mu.Unlock()
		return fmt.Errorf("job %s is already running", name)
	}
	j.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(name, j)
	return nil
}

// claim marks j as running. It returns false when the scheduler is stopped
// or the previous run has not finished.
func (s *Scheduler) claim(name string, j *job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || j.running {
		if j.running {
			s.logger.Debug("skipping overlapping run", "job", name)
		}
		return false
	}
	j.running = true
	s.wg.Add(1)
	return true
}

// run executes j. The caller must have claimed it.
func (s *Scheduler) run(name string, j *job) {
	defer s.wg.Done()

	start := time.Now()
	err := j.fn(s.ctx)

	s.mu.Lock()
	j.running = false
	j.lastErr = err
	if err == nil {
		j.lastRun = time.Now()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", "job", name, "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Debug("scheduled job completed", "job", name, "duration", time.Since(start))
}

// Status returns the state of all jobs, sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for name, j := range s.jobs {
		status := JobStatus{
			Name:     name,
			Running:  j.running,
			LastRun:  j.lastRun,
			NextRun:  s.cron.Entry(j.entry).Next,
			Schedule: j.schedule,
		}
		if j.lastErr != nil {
			status.LastError = j.lastErr.Error()
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(a, b int) bool { return statuses[a].Name < statuses[b].Name })
	return statuses
}

// ValidateCronExpr validates a cron expression without scheduling anything.
func ValidateCronExpr(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
