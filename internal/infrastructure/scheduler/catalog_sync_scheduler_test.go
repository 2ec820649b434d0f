package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/catalog"
)

type stubRunner struct {
	runs atomic.Int64
	err  error
}

func (r *stubRunner) Run(ctx context.Context) (*catalog.SyncOutcome, error) {
	r.runs.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return catalog.NewSyncOutcome(), nil
}

func TestCatalogSyncSchedulerConfig_Validate(t *testing.T) {
	t.Run("default is valid", func(t *testing.T) {
		cfg := DefaultCatalogSyncSchedulerConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		cfg := DefaultCatalogSyncSchedulerConfig()
		cfg.Interval = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("rejects non-positive run timeout", func(t *testing.T) {
		cfg := DefaultCatalogSyncSchedulerConfig()
		cfg.RunTimeout = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})
}

func TestCatalogSyncScheduler_RunOnStart(t *testing.T) {
	runner := &stubRunner{}

	cfg := CatalogSyncSchedulerConfig{
		Interval:   time.Hour,
		RunOnStart: true,
		RunTimeout: time.Minute,
	}

	sched, err := NewCatalogSyncScheduler(cfg, runner, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop(context.Background())

	assert.Eventually(t, func() bool {
		return runner.runs.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCatalogSyncScheduler_PeriodicRuns(t *testing.T) {
	runner := &stubRunner{}

	cfg := CatalogSyncSchedulerConfig{
		Interval:   20 * time.Millisecond,
		RunOnStart: false,
		RunTimeout: time.Minute,
	}

	sched, err := NewCatalogSyncScheduler(cfg, runner, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop(context.Background())

	assert.Eventually(t, func() bool {
		return runner.runs.Load() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestCatalogSyncScheduler_SkippedRunIsBenign(t *testing.T) {
	runner := &stubRunner{err: catalog.ErrSyncAlreadyRunning}

	cfg := CatalogSyncSchedulerConfig{
		Interval:   time.Hour,
		RunOnStart: true,
		RunTimeout: time.Minute,
	}

	sched, err := NewCatalogSyncScheduler(cfg, runner, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, sched.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return runner.runs.Load() == 1
	}, time.Second, 10*time.Millisecond)

	assert.NoError(t, sched.Stop(context.Background()))
}

func TestCatalogSyncScheduler_StopWaitsForLoop(t *testing.T) {
	runner := &stubRunner{}

	cfg := CatalogSyncSchedulerConfig{
		Interval:   time.Hour,
		RunOnStart: false,
		RunTimeout: time.Minute,
	}

	sched, err := NewCatalogSyncScheduler(cfg, runner, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, sched.Start(context.Background()))
	require.NoError(t, sched.Stop(context.Background()))

	// stopping twice is a no-op
	require.NoError(t, sched.Stop(context.Background()))
}
