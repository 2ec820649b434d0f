package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSyncAlreadyRunning is returned when a sync run is requested while another
// run is still in progress. Concurrent runs are rejected, not queued.
var ErrSyncAlreadyRunning = errors.New("catalog: sync already in progress")

// SyncStatus is the overall status recorded for a sync run
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
)

// SyncItemError records a per-item failure inside a sync run
type SyncItemError struct {
	// ID is the package ID (for creates) or listing ID (for deletes)
	ID string `json:"id"`
	// Message is the failure detail
	Message string `json:"message"`
}

// SyncOutcome summarizes a single synchronizer run. Every create/delete
// attempt lands in exactly one of the success or error lists, so callers can
// always distinguish "no changes needed" from "changes failed".
type SyncOutcome struct {
	// Skipped is true when the run was rejected because another was in flight
	Skipped bool `json:"skipped,omitempty"`
	// Total is the number of packages that needed an upsert
	Total int `json:"total"`
	// Created lists package IDs whose listing was created successfully
	Created []string `json:"created"`
	// Unchanged counts active packages skipped because the snapshot matched
	Unchanged int `json:"unchanged"`
	// Deleted lists storefront listing IDs removed successfully
	Deleted []int64 `json:"deleted"`
	// CreateErrors lists per-package creation failures
	CreateErrors []SyncItemError `json:"create_errors"`
	// DeleteErrors lists per-listing deletion failures
	DeleteErrors []SyncItemError `json:"delete_errors"`
}

// NewSyncOutcome returns an outcome with initialized lists
func NewSyncOutcome() *SyncOutcome {
	return &SyncOutcome{
		Created:      make([]string, 0),
		Deleted:      make([]int64, 0),
		CreateErrors: make([]SyncItemError, 0),
		DeleteErrors: make([]SyncItemError, 0),
	}
}

// ErrorCount returns the combined number of per-item failures
func (o *SyncOutcome) ErrorCount() int {
	return len(o.CreateErrors) + len(o.DeleteErrors)
}

// SyncLogEntry is the append-only record persisted for every sync run,
// success or failure.
type SyncLogEntry struct {
	ID           uuid.UUID
	SyncTime     time.Time
	Total        int
	Updated      int
	Deleted      int
	Errors       int
	Unchanged    int
	Details      *SyncOutcome
	Status       SyncStatus
	ErrorMessage string
}

// NewSyncLogEntry builds a log entry from a run outcome. A non-nil runErr
// flags the whole run as failed; per-item failures alone keep the run status
// success with a non-zero error count.
func NewSyncLogEntry(outcome *SyncOutcome, runErr error) *SyncLogEntry {
	entry := &SyncLogEntry{
		ID:       uuid.New(),
		SyncTime: time.Now().UTC(),
		Status:   SyncStatusSuccess,
		Details:  outcome,
	}
	if outcome != nil {
		entry.Total = outcome.Total
		entry.Updated = len(outcome.Created)
		entry.Deleted = len(outcome.Deleted)
		entry.Errors = outcome.ErrorCount()
		entry.Unchanged = outcome.Unchanged
	}
	if runErr != nil {
		entry.Status = SyncStatusError
		entry.ErrorMessage = runErr.Error()
	}
	return entry
}

// SyncLogRepository persists sync run records
type SyncLogRepository interface {
	// Append stores a new log entry. Entries are never updated or deleted.
	Append(ctx context.Context, entry *SyncLogEntry) error

	// FindRecent returns the most recent entries, newest first
	FindRecent(ctx context.Context, limit int) ([]SyncLogEntry, error)
}
