package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialModel is the GORM model for the session_credentials table.
type CredentialModel struct {
	DeviceID          string    `gorm:"primaryKey;size:64"`
	Kind              string    `gorm:"primaryKey;size:16"`
	SessionID         string    `gorm:"not null;size:255"`
	SessionIdentifier string    `gorm:"not null;size:255"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (CredentialModel) TableName() string {
	return "session_credentials"
}

// GormCredentialRepository persists the system and user session pairs.
type GormCredentialRepository struct {
	db *gorm.DB
}

// NewGormCredentialRepository creates a new GormCredentialRepository.
func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

// LoadPairs returns every stored pair for deviceID keyed by kind.
func (r *GormCredentialRepository) LoadPairs(ctx context.Context, deviceID string) (map[session.Kind]session.Pair, error) {
	var models []CredentialModel
	if err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load session credentials: %w", err)
	}

	pairs := make(map[session.Kind]session.Pair, len(models))
	for _, m := range models {
		pairs[session.Kind(m.Kind)] = session.Pair{
			SessionID:         m.SessionID,
			SessionIdentifier: m.SessionIdentifier,
		}
	}
	return pairs, nil
}

// SavePair upserts one pair.
func (r *GormCredentialRepository) SavePair(ctx context.Context, deviceID string, kind session.Kind, pair session.Pair) error {
	model := CredentialModel{
		DeviceID:          deviceID,
		Kind:              string(kind),
		SessionID:         pair.SessionID,
		SessionIdentifier: pair.SessionIdentifier,
		UpdatedAt:         time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"session_id", "session_identifier", "updated_at"}),
	}).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to save %s session: %w", kind, err)
	}
	return nil
}

// DeletePair removes one pair.
func (r *GormCredentialRepository) DeletePair(ctx context.Context, deviceID string, kind session.Kind) error {
	if err := r.db.WithContext(ctx).
		Where("device_id = ? AND kind = ?", deviceID, string(kind)).
		Delete(&CredentialModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete %s session: %w", kind, err)
	}
	return nil
}
