package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateOrderItem is returned by the ledger when an order/package pair
// is already recorded. The unique pair plus the write-ahead pending insert is
// the sole concurrency control against double fulfillment.
var ErrDuplicateOrderItem = errors.New("fulfillment: order item already recorded")

// OrderStatus is the per-line-item ledger status
type OrderStatus string

const (
	// OrderStatusPending is the write-ahead reservation, inserted before the
	// vendor purchase call
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusCompleted means the vendor purchase succeeded
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusError means the vendor purchase failed; terminal for the
	// automated flow, recovery is an operator action
	OrderStatusError OrderStatus = "error"
)

// OrderRecord is the durable ledger row for one (order, package) pair.
// At most one record per pair ever reaches completed; records are never
// deleted.
type OrderRecord struct {
	ID                  uuid.UUID
	ShopifyOrderID      int64
	PackageID           string
	CustomerEmail       string
	CustomerName        string
	Status              OrderStatus
	VendorTransactionID string
	Fulfillment         *ESIMDetails
	ErrorMessage        string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewOrderRecord creates a pending ledger record for a line item
func NewOrderRecord(shopifyOrderID int64, packageID, email, name string) (*OrderRecord, error) {
	if shopifyOrderID == 0 {
		return nil, errors.New("fulfillment: missing order ID")
	}
	if packageID == "" {
		return nil, errors.New("fulfillment: missing package ID")
	}
	if email == "" {
		return nil, errors.New("fulfillment: missing customer email")
	}

	now := time.Now().UTC()
	return &OrderRecord{
		ID:             uuid.New(),
		ShopifyOrderID: shopifyOrderID,
		PackageID:      packageID,
		CustomerEmail:  email,
		CustomerName:   name,
		Status:         OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Complete transitions pending → completed, storing the vendor transaction
// and fulfillment payload. Completed and error are terminal.
func (r *OrderRecord) Complete(transactionID string, details ESIMDetails) error {
	if r.Status != OrderStatusPending {
		return errors.New("fulfillment: only pending records can complete")
	}
	r.Status = OrderStatusCompleted
	r.VendorTransactionID = transactionID
	r.Fulfillment = &details
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail transitions pending → error with the failure message
func (r *OrderRecord) Fail(message string) error {
	if r.Status != OrderStatusPending {
		return errors.New("fulfillment: only pending records can fail")
	}
	r.Status = OrderStatusError
	r.ErrorMessage = message
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// OrderRepository is the durable ledger. Insert must be atomic
// insert-or-fail-on-conflict; a second concurrent writer for the same
// (order, package) pair must observe ErrDuplicateOrderItem, never a second
// row.
type OrderRepository interface {
	// Insert stores a new record, returning ErrDuplicateOrderItem when the
	// (ShopifyOrderID, PackageID) pair already exists
	Insert(ctx context.Context, record *OrderRecord) error

	// Update persists a status transition
	Update(ctx context.Context, record *OrderRecord) error

	// FindByOrderAndPackage returns the record for one pair, or
	// shared.ErrNotFound
	FindByOrderAndPackage(ctx context.Context, shopifyOrderID int64, packageID string) (*OrderRecord, error)

	// FindByOrder returns all records for an order
	FindByOrder(ctx context.Context, shopifyOrderID int64) ([]OrderRecord, error)

	// FindRecent returns the most recent records, newest first
	FindRecent(ctx context.Context, limit int) ([]OrderRecord, error)
}
