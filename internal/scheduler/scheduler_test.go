package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Fn-M/HousingManager/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunNowRecordsStatus(t *testing.T) {
	var calls atomic.Int32
	fail := errors.New("api down")
	s := NewScheduler(config.DefaultConfig(), func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			return fail
		}
		return nil
	}, nil, zerolog.Nop())

	assert.ErrorIs(t, s.RunNow(), fail)
	st := s.Status()
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, "api down", st.LastError)

	require.NoError(t, s.RunNow())
	st = s.Status()
	assert.Equal(t, 2, st.Runs)
	assert.Empty(t, st.LastError)
	assert.False(t, st.Running)
}

func TestRunNowRejectsOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	s := NewScheduler(config.DefaultConfig(), func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}, nil, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- s.RunNow() }()
	<-started

	assert.ErrorIs(t, s.RunNow(), ErrAlreadyRunning)
	assert.True(t, s.Status().Running)

	close(release)
	require.NoError(t, <-done)
}

func TestStartSchedulesRefresh(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scheduler.RefreshEnabled = true
	cfg.Scheduler.RefreshSchedule = "06:30"

	s := NewScheduler(cfg, func(ctx context.Context) error { return nil }, nil, zerolog.Nop())
	require.NoError(t, s.Start())
	defer s.Stop()

	st := s.Status()
	assert.True(t, st.Enabled)
	require.False(t, st.NextRun.IsZero())
	assert.Equal(t, 6, st.NextRun.Hour())
	assert.Equal(t, 30, st.NextRun.Minute())
	assert.True(t, st.NextRun.After(time.Now()))
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scheduler.RefreshEnabled = true
	cfg.Scheduler.RefreshSchedule = "whenever"

	s := NewScheduler(cfg, func(ctx context.Context) error { return nil }, nil, zerolog.Nop())
	assert.Error(t, s.Start())
}
