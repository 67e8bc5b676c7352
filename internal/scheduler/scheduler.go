// Package scheduler runs the periodic listing refresh and log cleanup.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Fn-M/HousingManager/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrAlreadyRunning is returned by RunNow while a refresh is in progress.
var ErrAlreadyRunning = errors.New("refresh already running")

// RefreshFunc refreshes the listing store
type RefreshFunc func(ctx context.Context) error

// CleanupFunc prunes logs older than retentionDays
type CleanupFunc func(ctx context.Context, retentionDays int) error

// Status reports the scheduler's last and next runs
type Status struct {
	Enabled   bool      `json:"enabled"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	NextRun   time.Time `json:"next_run,omitempty"`
	Runs      int       `json:"runs"`
}

// Scheduler handles scheduled refresh and cleanup jobs
type Scheduler struct {
	cron    *cron.Cron
	refresh RefreshFunc
	cleanup CleanupFunc
	cfg     config.SchedulerConfig
	clean   config.CleanupConfig
	timeout time.Duration
	logger  zerolog.Logger

	mu        sync.Mutex
	isRunning bool
	busy      bool
	refreshID cron.EntryID
	status    Status
}

// NewScheduler creates a new scheduler. cleanup may be nil when no database
// keeps logs.
func NewScheduler(cfg *config.Config, refresh RefreshFunc, cleanup CleanupFunc, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		refresh: refresh,
		cleanup: cleanup,
		cfg:     cfg.Scheduler,
		clean:   cfg.Cleanup,
		timeout: 5 * time.Minute,
		logger:  logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the enabled jobs and starts the cron runner
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.RefreshEnabled {
		spec, err := config.CronSpec(s.cfg.RefreshSchedule)
		if err != nil {
			return err
		}
		id, err := s.cron.AddFunc(spec, func() {
			if err := s.RunNow(); err != nil && !errors.Is(err, ErrAlreadyRunning) {
				s.logger.Error().Err(err).Msg("scheduled refresh failed")
			}
		})
		if err != nil {
			return err
		}
		s.refreshID = id
		s.status.Enabled = true
		s.logger.Info().Str("schedule", s.cfg.RefreshSchedule).Str("cron", spec).Msg("refresh scheduled")
	} else {
		s.logger.Info().Msg("periodic refresh is disabled in configuration")
	}

	if s.clean.Enabled && s.cleanup != nil {
		spec, err := config.CronSpec(s.clean.Schedule)
		if err != nil {
			return err
		}
		days := s.clean.RetentionDays
		if _, err := s.cron.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			if err := s.cleanup(ctx, days); err != nil {
				s.logger.Error().Err(err).Msg("scheduled cleanup failed")
			}
		}); err != nil {
			return err
		}
		s.logger.Info().Str("cron", spec).Int("retention_days", days).Msg("cleanup scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	running := s.isRunning
	s.isRunning = false
	s.mu.Unlock()

	if running {
		<-s.cron.Stop().Done()
		s.logger.Info().Msg("scheduler stopped")
	}
}

// RunNow immediately executes the refresh job. Concurrent calls are rejected.
func (s *Scheduler) RunNow() error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.busy = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := s.refresh(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.status.LastRun = start
	s.status.Runs++
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.logger.Info().Dur("took", time.Since(start)).Err(err).Msg("refresh job finished")
	return err
}

// Status returns the current scheduler status
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Running = s.busy
	if s.isRunning && s.refreshID != 0 {
		st.NextRun = s.cron.Entry(s.refreshID).Next
	}
	return st
}
