package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/netesim/backend/internal/domain/fulfillment"
	"github.com/netesim/backend/internal/domain/shared"
	"github.com/netesim/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements fulfillment.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

var _ fulfillment.OrderRepository = (*GormOrderRepository)(nil)

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Insert stores a new ledger record. The insert is atomic
// insert-or-nothing on the unique (shopify_order_id, package_id) pair:
// a conflicting concurrent writer observes ErrDuplicateOrderItem, never a
// second row.
func (r *GormOrderRepository) Insert(ctx context.Context, record *fulfillment.OrderRecord) error {
	var model models.OrderModel
	if err := model.FromDomain(record); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shopify_order_id"}, {Name: "package_id"}},
			DoNothing: true,
		}).
		Create(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fulfillment.ErrDuplicateOrderItem
	}
	return nil
}

// Update persists a status transition
func (r *GormOrderRepository) Update(ctx context.Context, record *fulfillment.OrderRecord) error {
	var model models.OrderModel
	if err := model.FromDomain(record); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByOrderAndPackage returns the record for one (order, package) pair
func (r *GormOrderRepository) FindByOrderAndPackage(ctx context.Context, shopifyOrderID int64, packageID string) (*fulfillment.OrderRecord, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("shopify_order_id = ? AND package_id = ?", shopifyOrderID, packageID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByOrder returns all records for a storefront order
func (r *GormOrderRepository) FindByOrder(ctx context.Context, shopifyOrderID int64) ([]fulfillment.OrderRecord, error) {
	var orderModels []models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("shopify_order_id = ?", shopifyOrderID).
		Order("created_at").
		Find(&orderModels).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(orderModels)
}

// FindRecent returns the most recent records, newest first
func (r *GormOrderRepository) FindRecent(ctx context.Context, limit int) ([]fulfillment.OrderRecord, error) {
	var orderModels []models.OrderModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&orderModels).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(orderModels)
}

func toDomainRecords(orderModels []models.OrderModel) ([]fulfillment.OrderRecord, error) {
	records := make([]fulfillment.OrderRecord, 0, len(orderModels))
	for i := range orderModels {
		record, err := orderModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}
