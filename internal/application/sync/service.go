package sync

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/catalog"
	"github.com/netesim/backend/internal/domain/storefront"
)

const (
	defaultBatchSize  = 5
	defaultBatchPause = 2 * time.Second
)

// Service reconciles the remote catalog against the storefront listings.
// Each run computes a full diff, deletes orphaned listings, creates listings
// for new or changed packages in rate-limited batches, and appends a sync log
// entry. Unchanged packages are detected via the in-memory snapshot and cost
// no network call.
type Service struct {
	source catalog.Source
	store  storefront.Storefront
	logs   catalog.SyncLogRepository
	logger *zap.Logger

	snapshot   *catalog.Snapshot
	running    atomic.Bool
	batchSize  int
	batchPause time.Duration
}

// NewService creates a synchronizer service
func NewService(
	source catalog.Source,
	store storefront.Storefront,
	logs catalog.SyncLogRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		source:     source,
		store:      store,
		logs:       logs,
		logger:     logger,
		snapshot:   catalog.NewSnapshot(),
		batchSize:  defaultBatchSize,
		batchPause: defaultBatchPause,
	}
}

// SetBatching overrides the upsert batch size and inter-batch pause.
// Intended for tests and operational tuning.
func (s *Service) SetBatching(size int, pause time.Duration) {
	if size > 0 {
		s.batchSize = size
	}
	s.batchPause = pause
}

// Run executes one sync pass. Runs are not reentrant: a call while another
// run is in flight returns immediately with a skipped outcome and
// catalog.ErrSyncAlreadyRunning instead of queuing.
//
// A fetch or list failure aborts the run before any mutation and is still
// recorded in the sync log, so every run leaves an inspectable record.
func (s *Service) Run(ctx context.Context) (*catalog.SyncOutcome, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("sync run skipped, another run in progress")
		return &catalog.SyncOutcome{Skipped: true}, catalog.ErrSyncAlreadyRunning
	}
	defer s.running.Store(false)

	started := time.Now()
	s.logger.Info("sync run started")

	packages, err := s.source.ListActive(ctx)
	if err != nil {
		err = fmt.Errorf("fetch catalog: %w", err)
		s.appendLog(ctx, nil, err)
		return nil, err
	}

	listings, err := s.store.ListAll(ctx)
	if err != nil {
		err = fmt.Errorf("list storefront: %w", err)
		s.appendLog(ctx, nil, err)
		return nil, err
	}

	outcome := catalog.NewSyncOutcome()

	active := make(map[string]catalog.Package, len(packages))
	for _, pkg := range packages {
		active[pkg.PackageID] = pkg
	}

	s.deleteOrphans(ctx, listings, active, outcome)
	s.createChanged(ctx, packages, outcome)

	s.appendLog(ctx, outcome, nil)
	s.logger.Info("sync run finished",
		zap.Int("total", outcome.Total),
		zap.Int("created", len(outcome.Created)),
		zap.Int("deleted", len(outcome.Deleted)),
		zap.Int("unchanged", outcome.Unchanged),
		zap.Int("errors", outcome.ErrorCount()),
		zap.Duration("elapsed", time.Since(started)),
	)
	return outcome, nil
}

// deleteOrphans removes listings whose package is no longer in the active
// catalog. Listings without the catalog SKU prefix are not managed by the
// synchronizer and are left alone. Per-item failures are collected, never
// fatal.
func (s *Service) deleteOrphans(ctx context.Context, listings []storefront.Listing, active map[string]catalog.Package, outcome *catalog.SyncOutcome) {
	for _, listing := range listings {
		packageID, ok := listing.PackageID()
		if !ok {
			continue
		}
		if _, exists := active[packageID]; exists {
			continue
		}

		if err := s.store.Delete(ctx, listing.ListingID); err != nil {
			s.logger.Error("listing delete failed",
				zap.Int64("listing_id", listing.ListingID),
				zap.String("package_id", packageID),
				zap.Error(err),
			)
			outcome.DeleteErrors = append(outcome.DeleteErrors, catalog.SyncItemError{
				ID:      fmt.Sprintf("%d", listing.ListingID),
				Message: err.Error(),
			})
			continue
		}
		outcome.Deleted = append(outcome.Deleted, listing.ListingID)
	}
}

// createChanged creates listings for packages that are new or whose fields
// differ from the snapshot, in fixed-size batches with a pause between
// batches. Successful creates update the snapshot; failed ones leave it
// untouched so the package is retried on the next run.
func (s *Service) createChanged(ctx context.Context, packages []catalog.Package, outcome *catalog.SyncOutcome) {
	var upserts []catalog.Package
	for _, pkg := range packages {
		if pkg.Changed(s.snapshot.Get(pkg.PackageID)) {
			upserts = append(upserts, pkg)
		} else {
			outcome.Unchanged++
		}
	}
	outcome.Total = len(upserts)

	for start := 0; start < len(upserts); start += s.batchSize {
		if start > 0 && s.batchPause > 0 {
			time.Sleep(s.batchPause)
		}
		end := start + s.batchSize
		if end > len(upserts) {
			end = len(upserts)
		}

		for _, pkg := range upserts[start:end] {
			if _, err := s.store.Create(ctx, pkg); err != nil {
				s.logger.Error("listing create failed",
					zap.String("package_id", pkg.PackageID),
					zap.Error(err),
				)
				outcome.CreateErrors = append(outcome.CreateErrors, catalog.SyncItemError{
					ID:      pkg.PackageID,
					Message: err.Error(),
				})
				continue
			}
			s.snapshot.Put(pkg)
			outcome.Created = append(outcome.Created, pkg.PackageID)
		}
	}
}

// RecentLogs returns the latest sync log entries, newest first
func (s *Service) RecentLogs(ctx context.Context, limit int) ([]catalog.SyncLogEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.logs.FindRecent(ctx, limit)
}

func (s *Service) appendLog(ctx context.Context, outcome *catalog.SyncOutcome, runErr error) {
	entry := catalog.NewSyncLogEntry(outcome, runErr)
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("failed to persist sync log entry", zap.Error(err))
	}
}
