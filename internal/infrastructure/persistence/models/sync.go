package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/netesim/backend/internal/domain/catalog"
)

// SyncLogModel is the persistence model for sync run records. Rows are
// append-only; they are never updated or deleted.
type SyncLogModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	SyncTime     time.Time `gorm:"not null;index"`
	Total        int       `gorm:"not null;default:0"`
	Updated      int       `gorm:"not null;default:0"`
	Deleted      int       `gorm:"not null;default:0"`
	Errors       int       `gorm:"not null;default:0"`
	Unchanged    int       `gorm:"not null;default:0"`
	Details      []byte    `gorm:"type:jsonb"`
	Status       string    `gorm:"type:varchar(20);not null"`
	ErrorMessage string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLogEntry
func (m *SyncLogModel) ToDomain() (*catalog.SyncLogEntry, error) {
	entry := &catalog.SyncLogEntry{
		ID:           m.ID,
		SyncTime:     m.SyncTime,
		Total:        m.Total,
		Updated:      m.Updated,
		Deleted:      m.Deleted,
		Errors:       m.Errors,
		Unchanged:    m.Unchanged,
		Status:       catalog.SyncStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
	}
	if len(m.Details) > 0 {
		var outcome catalog.SyncOutcome
		if err := json.Unmarshal(m.Details, &outcome); err != nil {
			return nil, err
		}
		entry.Details = &outcome
	}
	return entry, nil
}

// FromDomain populates the persistence model from a domain SyncLogEntry
func (m *SyncLogModel) FromDomain(e *catalog.SyncLogEntry) error {
	m.ID = e.ID
	m.SyncTime = e.SyncTime
	m.Total = e.Total
	m.Updated = e.Updated
	m.Deleted = e.Deleted
	m.Errors = e.Errors
	m.Unchanged = e.Unchanged
	m.Status = string(e.Status)
	m.ErrorMessage = e.ErrorMessage

	m.Details = nil
	if e.Details != nil {
		details, err := json.Marshal(e.Details)
		if err != nil {
			return err
		}
		m.Details = details
	}
	return nil
}
