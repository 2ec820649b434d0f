package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/catalog"
)

type MockSynchronizer struct {
	mock.Mock
}

func (m *MockSynchronizer) Run(ctx context.Context) (*catalog.SyncOutcome, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.SyncOutcome), args.Error(1)
}

func (m *MockSynchronizer) RecentLogs(ctx context.Context, limit int) ([]catalog.SyncLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.SyncLogEntry), args.Error(1)
}

func newSyncRouter(sync Synchronizer) *gin.Engine {
	h := NewSyncHandler(sync, zap.NewNop())
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestTriggerSync(t *testing.T) {
	t.Run("returns outcome on success", func(t *testing.T) {
		outcome := catalog.NewSyncOutcome()
		outcome.Total = 2
		outcome.Created = []string{"131519", "131520"}

		sync := new(MockSynchronizer)
		sync.On("Run", mock.Anything).Return(outcome, nil)

		r := newSyncRouter(sync)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":2`)
		assert.Contains(t, w.Body.String(), "131519")
	})

	t.Run("answers 409 while a run is in flight", func(t *testing.T) {
		sync := new(MockSynchronizer)
		sync.On("Run", mock.Anything).
			Return(&catalog.SyncOutcome{Skipped: true}, catalog.ErrSyncAlreadyRunning)

		r := newSyncRouter(sync)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("answers 502 when the vendor catalog is down", func(t *testing.T) {
		sync := new(MockSynchronizer)
		sync.On("Run", mock.Anything).Return(nil, catalog.ErrSourceUnavailable)

		r := newSyncRouter(sync)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestListSyncLogs(t *testing.T) {
	entries := []catalog.SyncLogEntry{
		*catalog.NewSyncLogEntry(catalog.NewSyncOutcome(), nil),
	}
	entries[0].SyncTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	sync := new(MockSynchronizer)
	sync.On("RecentLogs", mock.Anything, 5).Return(entries, nil)

	r := newSyncRouter(sync)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sync/logs?limit=5", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)
	sync.AssertExpectations(t)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 0, parseLimit(""))
	assert.Equal(t, 0, parseLimit("abc"))
	assert.Equal(t, 0, parseLimit("-3"))
	assert.Equal(t, 25, parseLimit("25"))
}
