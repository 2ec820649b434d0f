package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/netesim/backend/internal/domain/shared"
	"github.com/netesim/backend/internal/interfaces/http/dto"
	"github.com/netesim/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := middleware.GetRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// BadGateway sends a 502 response for upstream failures
func (h *BaseHandler) BadGateway(c *gin.Context, message string) {
	h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstreamUnavailable, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts domain errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case shared.ErrNotFound.Code:
			h.NotFound(c, domainErr.Message)
		case shared.ErrAlreadyExists.Code:
			h.Conflict(c, domainErr.Message)
		case shared.ErrInvalidInput.Code, shared.ErrInvalidState.Code:
			h.BadRequest(c, domainErr.Message)
		default:
			h.InternalError(c, domainErr.Message)
		}
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}
