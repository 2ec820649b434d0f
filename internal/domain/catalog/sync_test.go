package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncOutcomeErrorCount(t *testing.T) {
	outcome := NewSyncOutcome()
	assert.Equal(t, 0, outcome.ErrorCount())

	outcome.CreateErrors = append(outcome.CreateErrors, SyncItemError{ID: "131519", Message: "boom"})
	outcome.DeleteErrors = append(outcome.DeleteErrors,
		SyncItemError{ID: "9001", Message: "gone"},
		SyncItemError{ID: "9002", Message: "gone"},
	)
	assert.Equal(t, 3, outcome.ErrorCount())
}

func TestNewSyncLogEntry(t *testing.T) {
	t.Run("successful run with per-item errors stays success", func(t *testing.T) {
		outcome := NewSyncOutcome()
		outcome.Total = 4
		outcome.Created = []string{"131519", "131520", "131521"}
		outcome.Deleted = []int64{9001}
		outcome.Unchanged = 7
		outcome.CreateErrors = []SyncItemError{{ID: "131522", Message: "throttled"}}

		entry := NewSyncLogEntry(outcome, nil)
		require.NotNil(t, entry)
		assert.Equal(t, SyncStatusSuccess, entry.Status)
		assert.Equal(t, 4, entry.Total)
		assert.Equal(t, 3, entry.Updated)
		assert.Equal(t, 1, entry.Deleted)
		assert.Equal(t, 1, entry.Errors)
		assert.Equal(t, 7, entry.Unchanged)
		assert.Empty(t, entry.ErrorMessage)
		assert.NotEqual(t, entry.ID.String(), "00000000-0000-0000-0000-000000000000")
		assert.False(t, entry.SyncTime.IsZero())
		assert.Same(t, outcome, entry.Details)
	})

	t.Run("run error marks the whole run failed", func(t *testing.T) {
		entry := NewSyncLogEntry(nil, errors.New("catalog fetch failed"))
		assert.Equal(t, SyncStatusError, entry.Status)
		assert.Equal(t, "catalog fetch failed", entry.ErrorMessage)
		assert.Equal(t, 0, entry.Total)
		assert.Nil(t, entry.Details)
	})
}
