// Package scheduler runs the gate's periodic maintenance: purging expired
// cache rows and refreshing OAuth tokens before they lapse. Every run takes a
// lock first so that only one instance does the work when several share a
// database.
package scheduler

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/locks"
	"newsletter-gate/internal/metrics"
)

const (
	PurgeJob        = "purge_subscribers"
	OAuthRefreshJob = "oauth_refresh"
)

// Purger deletes cache rows that expired before a time. storage.Storage satisfies it.
type Purger interface {
	DeleteExpiredSubscribers(ctx context.Context, before time.Time) (int64, error)
}

// TokenRefresher refreshes the OAuth tokens that are due. *oauth2.Manager satisfies it.
type TokenRefresher interface {
	RefreshDue(ctx context.Context, providerIDs []string) int
}

// Job is one scheduled unit of work
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	locks   locks.Manager
	timeout time.Duration
	logger  logging.Logger

	mu     sync.Mutex
	jobs   map[string]Job
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Scheduler)

// WithTimeout bounds each run; the job's lock lives as long
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

func New(lockManager locks.Manager, opts ...Option) *Scheduler {
	if lockManager == nil {
		lockManager = locks.NewLocalManager()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		locks:   lockManager,
		timeout: 5 * time.Minute,
		logger:  logging.GetGlobalLogger().WithFields(logging.String("component", "scheduler")),
		jobs:    make(map[string]Job),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a job. An empty schedule disables it.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.ValidationError("job requires a name and a run function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return errors.ValidationError("job already registered: " + job.Name)
	}
	s.jobs[job.Name] = job

	if job.Schedule == "" {
		s.logger.Info("Job disabled", logging.String("job", job.Name))
		return nil
	}
	if _, err := s.cron.AddFunc(job.Schedule, func() { _ = s.RunNow(s.ctx, job.Name) }); err != nil {
		delete(s.jobs, job.Name)
		return errors.ConfigError("invalid schedule for " + job.Name + ": " + err.Error())
	}
	return nil
}

// RunNow runs a job immediately if no one else holds its lock.
// It returns locks.ErrLockHeld when the run was skipped.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return errors.NotFoundError("job " + name)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	lock, err := s.locks.TryAcquire(ctx, "scheduler:"+name, s.timeout)
	if err != nil {
		if stderrors.Is(err, locks.ErrLockHeld) {
			s.logger.Debug("Job already running elsewhere", logging.String("job", name))
		} else {
			s.logger.Warn("Failed to acquire job lock", logging.String("job", name), logging.Err(err))
		}
		return err
	}
	defer lock.Release(context.Background())

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("Job failed", err, logging.String("job", name), logging.Duration("duration", time.Since(start)))
		return err
	}
	s.logger.Debug("Job finished", logging.String("job", name), logging.Duration("duration", time.Since(start)))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", logging.Int("jobs", len(s.cron.Entries())))
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PurgeJobFunc deletes rows that expired before now
func PurgeJobFunc(p Purger, now func() time.Time) func(ctx context.Context) error {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		n, err := p.DeleteExpiredSubscribers(ctx, now().UTC())
		if err != nil {
			return errors.InternalError("failed to purge expired subscribers", err)
		}
		metrics.AddPurged(n)
		if n > 0 {
			logging.Info("Purged expired subscribers", logging.Int64("count", n))
		}
		return nil
	}
}

// OAuthRefreshJobFunc refreshes due tokens of the providers ids returns
func OAuthRefreshJobFunc(r TokenRefresher, ids func(ctx context.Context) []string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		providers := ids(ctx)
		if len(providers) == 0 {
			return nil
		}
		if n := r.RefreshDue(ctx, providers); n > 0 {
			logging.Info("Refreshed OAuth tokens", logging.Int("count", n))
		}
		return nil
	}
}
