package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping() error { return p.err }

type stubVendorChecker struct {
	err   error
	calls int
}

func (v *stubVendorChecker) CheckAndRefresh(ctx context.Context) error {
	v.calls++
	return v.err
}

func newSystemRouter(db Pinger, vendor VendorChecker) *gin.Engine {
	h := NewSystemHandler(db, vendor, "netesim-backend", zap.NewNop())
	r := gin.New()
	h.RegisterRoutes(r.Group("/"))
	return r
}

func TestHealth(t *testing.T) {
	t.Run("all dependencies healthy", func(t *testing.T) {
		vendor := &stubVendorChecker{}
		r := newSystemRouter(stubPinger{}, vendor)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
		assert.Equal(t, 1, vendor.calls, "health must force a vendor session check")
	})

	t.Run("vendor session unusable", func(t *testing.T) {
		vendor := &stubVendorChecker{err: errors.New("auth failed")}
		r := newSystemRouter(stubPinger{}, vendor)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	})

	t.Run("database unreachable", func(t *testing.T) {
		vendor := &stubVendorChecker{}
		r := newSystemRouter(stubPinger{err: errors.New("connection refused")}, vendor)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
