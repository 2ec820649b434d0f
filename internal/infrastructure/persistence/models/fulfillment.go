package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/netesim/backend/internal/domain/fulfillment"
)

// OrderModel is the persistence model for the order ledger. The unique pair
// index is the idempotency guarantee: a second insert for the same
// (shopify_order_id, package_id) must conflict instead of creating a row.
type OrderModel struct {
	ID                  uuid.UUID `gorm:"type:uuid;primary_key"`
	ShopifyOrderID      int64     `gorm:"not null;uniqueIndex:idx_orders_order_package,priority:1"`
	PackageID           string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_orders_order_package,priority:2"`
	CustomerEmail       string    `gorm:"type:varchar(255);not null"`
	CustomerName        string    `gorm:"type:varchar(255)"`
	Status              string    `gorm:"type:varchar(20);not null;default:'pending';index"`
	VendorTransactionID string    `gorm:"type:varchar(100)"`
	FulfillmentDetails  []byte    `gorm:"type:jsonb"`
	ErrorMessage        string    `gorm:"type:text"`
	CreatedAt           time.Time `gorm:"not null;index"`
	UpdatedAt           time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain OrderRecord
func (m *OrderModel) ToDomain() (*fulfillment.OrderRecord, error) {
	record := &fulfillment.OrderRecord{
		ID:                  m.ID,
		ShopifyOrderID:      m.ShopifyOrderID,
		PackageID:           m.PackageID,
		CustomerEmail:       m.CustomerEmail,
		CustomerName:        m.CustomerName,
		Status:              fulfillment.OrderStatus(m.Status),
		VendorTransactionID: m.VendorTransactionID,
		ErrorMessage:        m.ErrorMessage,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	if len(m.FulfillmentDetails) > 0 {
		var details fulfillment.ESIMDetails
		if err := json.Unmarshal(m.FulfillmentDetails, &details); err != nil {
			return nil, err
		}
		record.Fulfillment = &details
	}
	return record, nil
}

// FromDomain populates the persistence model from a domain OrderRecord
func (m *OrderModel) FromDomain(r *fulfillment.OrderRecord) error {
	m.ID = r.ID
	m.ShopifyOrderID = r.ShopifyOrderID
	m.PackageID = r.PackageID
	m.CustomerEmail = r.CustomerEmail
	m.CustomerName = r.CustomerName
	m.Status = string(r.Status)
	m.VendorTransactionID = r.VendorTransactionID
	m.ErrorMessage = r.ErrorMessage
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt

	m.FulfillmentDetails = nil
	if r.Fulfillment != nil {
		details, err := json.Marshal(r.Fulfillment)
		if err != nil {
			return err
		}
		m.FulfillmentDetails = details
	}
	return nil
}
