package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/netesim/backend/internal/domain/catalog"
	"github.com/netesim/backend/internal/infrastructure/persistence/models"
)

// GormSyncLogRepository implements catalog.SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

var _ catalog.SyncLogRepository = (*GormSyncLogRepository)(nil)

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Append stores a new log entry
func (r *GormSyncLogRepository) Append(ctx context.Context, entry *catalog.SyncLogEntry) error {
	var model models.SyncLogModel
	if err := model.FromDomain(entry); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindRecent returns the most recent entries, newest first
func (r *GormSyncLogRepository) FindRecent(ctx context.Context, limit int) ([]catalog.SyncLogEntry, error) {
	var logModels []models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Order("sync_time DESC").
		Limit(limit).
		Find(&logModels).Error; err != nil {
		return nil, err
	}

	entries := make([]catalog.SyncLogEntry, 0, len(logModels))
	for i := range logModels {
		entry, err := logModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}
