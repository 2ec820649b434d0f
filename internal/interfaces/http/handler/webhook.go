package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	orderapp "github.com/netesim/backend/internal/application/order"
	"github.com/netesim/backend/internal/domain/fulfillment"
	"github.com/netesim/backend/internal/domain/shared"
	"github.com/netesim/backend/internal/infrastructure/shopify"
	"github.com/netesim/backend/internal/interfaces/http/dto"
)

// Maximum webhook payload size (256KB - order payloads are small)
const maxWebhookPayloadSize = 262144

// deliveryDedupTTL bounds how long a delivery ID is remembered. Redeliveries
// past the TTL fall through to the order ledger, which stays idempotent.
const deliveryDedupTTL = 24 * time.Hour

// OrderProcessor handles one inbound order event
type OrderProcessor interface {
	HandleOrder(ctx context.Context, order fulfillment.InboundOrder) (*orderapp.Result, error)
}

// WebhookHandler receives order events from the storefront. These endpoints
// are called by Shopify and authenticate via HMAC signature, not sessions.
type WebhookHandler struct {
	BaseHandler
	orders        OrderProcessor
	dedup         shared.IdempotencyStore
	webhookSecret string
	validate      *validator.Validate
	logger        *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(orders OrderProcessor, dedup shared.IdempotencyStore, webhookSecret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		orders:        orders,
		dedup:         dedup,
		webhookSecret: webhookSecret,
		validate:      validator.New(),
		logger:        logger,
	}
}

// HandleOrderCreated processes a Shopify orders/create webhook delivery.
// The raw body is needed for signature verification, so it is read before
// any JSON decoding.
func (h *WebhookHandler) HandleOrderCreated(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeBadRequest, "Payload too large")
		return
	}

	signature := c.GetHeader(shopify.SignatureHeader)
	if !shopify.VerifyWebhookSignature(h.webhookSecret, payload, signature) {
		h.logger.Warn("webhook signature verification failed",
			zap.String("remote_addr", c.ClientIP()),
		)
		h.Unauthorized(c, "Webhook signature verification failed")
		return
	}

	// Delivery-level dedup is best effort. A dedup store failure falls
	// through to processing; the order ledger rejects real duplicates.
	deliveryID := c.GetHeader(shopify.DeliveryIDHeader)
	if deliveryID != "" {
		fresh, err := h.dedup.MarkProcessed(c.Request.Context(), deliveryID, deliveryDedupTTL)
		if err != nil {
			h.logger.Warn("delivery dedup check failed",
				zap.String("delivery_id", deliveryID),
				zap.Error(err),
			)
		} else if !fresh {
			h.logger.Info("duplicate webhook delivery acknowledged",
				zap.String("delivery_id", deliveryID),
			)
			h.Success(c, dto.WebhookAckResponse{Received: true, AlreadyProcessed: true})
			return
		}
	}

	var order fulfillment.InboundOrder
	if err := json.Unmarshal(payload, &order); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed order payload")
		return
	}
	if err := h.validate.Struct(order); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Order payload failed validation")
		return
	}

	result, err := h.orders.HandleOrder(c.Request.Context(), order)
	if err != nil {
		// A non-2xx answer makes Shopify redeliver; the ledger keeps the
		// retry from double-provisioning completed items.
		h.logger.Error("order fulfillment failed",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
		h.InternalError(c, "Order fulfillment failed")
		return
	}

	h.Success(c, dto.WebhookAckResponse{
		Received:         true,
		AlreadyProcessed: result.AlreadyProcessed,
		Fulfilled:        result.Fulfilled,
	})
}

// RegisterRoutes registers webhook routes on the root group
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/shopify/orders", h.HandleOrderCreated)
}
