package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/catalog"
)

// SyncRunner executes one catalog synchronization pass.
type SyncRunner interface {
	Run(ctx context.Context) (*catalog.SyncOutcome, error)
}

// CatalogSyncSchedulerConfig holds configuration for the periodic catalog sync.
type CatalogSyncSchedulerConfig struct {
	// Interval is the time between scheduled sync runs
	Interval time.Duration
	// RunOnStart triggers an immediate run when the scheduler starts
	RunOnStart bool
	// RunTimeout is the maximum time one sync run may take
	RunTimeout time.Duration
}

// DefaultCatalogSyncSchedulerConfig returns default scheduler configuration.
func DefaultCatalogSyncSchedulerConfig() CatalogSyncSchedulerConfig {
	return CatalogSyncSchedulerConfig{
		Interval:   6 * time.Hour,
		RunOnStart: true,
		RunTimeout: 15 * time.Minute,
	}
}

// Validate validates the configuration.
func (c *CatalogSyncSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	if c.RunTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// CatalogSyncScheduler runs catalog synchronization on a fixed interval.
// Manual runs triggered through the API share the synchronizer's own
// non-reentrancy guard, so an overlapping tick is skipped rather than queued.
type CatalogSyncScheduler struct {
	config CatalogSyncSchedulerConfig
	runner SyncRunner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewCatalogSyncScheduler creates a new scheduler.
func NewCatalogSyncScheduler(config CatalogSyncSchedulerConfig, runner SyncRunner, logger *zap.Logger) (*CatalogSyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CatalogSyncScheduler{
		config: config,
		runner: runner,
		logger: logger,
	}, nil
}

// Start starts the scheduler loop.
func (s *CatalogSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Catalog sync scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Bool("run_on_start", s.config.RunOnStart),
	)

	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-flight run.
func (s *CatalogSyncScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Catalog sync scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CatalogSyncScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *CatalogSyncScheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	outcome, err := s.runner.Run(runCtx)
	if err != nil {
		if errors.Is(err, catalog.ErrSyncAlreadyRunning) {
			s.logger.Info("Scheduled sync skipped, another run in progress")
			return
		}
		s.logger.Error("Scheduled sync failed", zap.Error(err))
		return
	}

	s.logger.Info("Scheduled sync completed",
		zap.Int("created", len(outcome.Created)),
		zap.Int("deleted", len(outcome.Deleted)),
		zap.Int("errors", outcome.ErrorCount()),
	)
}
