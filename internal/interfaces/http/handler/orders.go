package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/netesim/backend/internal/domain/fulfillment"
	"github.com/netesim/backend/internal/interfaces/http/dto"
)

// OrderReader reads the fulfillment ledger
type OrderReader interface {
	OrderStatus(ctx context.Context, orderID int64) ([]fulfillment.OrderRecord, error)
	RecentOrders(ctx context.Context, limit int) ([]fulfillment.OrderRecord, error)
}

// OrderHandler exposes the fulfillment ledger for support and monitoring
type OrderHandler struct {
	BaseHandler
	orders OrderReader
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderReader) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// GetOrderStatus returns the ledger rows for one storefront order
func (h *OrderHandler) GetOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("orderID"), 10, 64)
	if err != nil {
		h.BadRequest(c, "Order ID must be an integer")
		return
	}

	records, err := h.orders.OrderStatus(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if len(records) == 0 {
		h.NotFound(c, "No fulfillment records for this order")
		return
	}

	h.Success(c, dto.NewOrderRecordResponses(records))
}

// ListRecentOrders returns recent ledger rows, newest first
func (h *OrderHandler) ListRecentOrders(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))

	records, err := h.orders.RecentOrders(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.NewOrderRecordResponses(records))
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.GET("/recent", h.ListRecentOrders)
		orders.GET("/:orderID", h.GetOrderStatus)
	}
}
