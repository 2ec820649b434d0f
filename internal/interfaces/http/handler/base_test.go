package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/netesim/backend/internal/domain/shared"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, "ERR_NOT_FOUND"},
		{"already exists", shared.ErrAlreadyExists, http.StatusConflict, "ERR_CONFLICT"},
		{"invalid input", shared.ErrInvalidInput, http.StatusBadRequest, "ERR_BAD_REQUEST"},
		{"invalid state", shared.ErrInvalidState, http.StatusBadRequest, "ERR_BAD_REQUEST"},
		{"unknown domain code", shared.NewDomainError("SOMETHING_ELSE", "boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
		{"wrapped domain error", fmt.Errorf("lookup: %w", shared.ErrNotFound), http.StatusNotFound, "ERR_NOT_FOUND"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}

	h := &BaseHandler{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}
