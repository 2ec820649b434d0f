package dto

import (
	"time"

	"github.com/netesim/backend/internal/domain/fulfillment"
)

// OrderRecordResponse is the API view of one ledger row
type OrderRecordResponse struct {
	ID                  string                    `json:"id"`
	ShopifyOrderID      int64                     `json:"shopify_order_id"`
	PackageID           string                    `json:"package_id"`
	CustomerEmail       string                    `json:"customer_email"`
	CustomerName        string                    `json:"customer_name,omitempty"`
	Status              string                    `json:"status"`
	VendorTransactionID string                    `json:"vendor_transaction_id,omitempty"`
	Fulfillment         *fulfillment.ESIMDetails  `json:"fulfillment,omitempty"`
	ErrorMessage        string                    `json:"error_message,omitempty"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

// NewOrderRecordResponse maps a domain record to its API view
func NewOrderRecordResponse(r fulfillment.OrderRecord) OrderRecordResponse {
	return OrderRecordResponse{
		ID:                  r.ID.String(),
		ShopifyOrderID:      r.ShopifyOrderID,
		PackageID:           r.PackageID,
		CustomerEmail:       r.CustomerEmail,
		CustomerName:        r.CustomerName,
		Status:              string(r.Status),
		VendorTransactionID: r.VendorTransactionID,
		Fulfillment:         r.Fulfillment,
		ErrorMessage:        r.ErrorMessage,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// NewOrderRecordResponses maps a slice of ledger rows
func NewOrderRecordResponses(records []fulfillment.OrderRecord) []OrderRecordResponse {
	out := make([]OrderRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, NewOrderRecordResponse(r))
	}
	return out
}

// WebhookAckResponse acknowledges a processed webhook delivery
type WebhookAckResponse struct {
	Received         bool `json:"received"`
	AlreadyProcessed bool `json:"already_processed,omitempty"`
	Fulfilled        int  `json:"fulfilled,omitempty"`
}
