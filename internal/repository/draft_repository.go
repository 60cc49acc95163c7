package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DraftModel is the GORM model for the booking_drafts table.
type DraftModel struct {
	DeviceID  string          `gorm:"primaryKey;size:64"`
	Draft     json.RawMessage `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (DraftModel) TableName() string {
	return "booking_drafts"
}

// GormDraftRepository stores one booking draft per device.
type GormDraftRepository struct {
	db *gorm.DB
}

// NewGormDraftRepository creates a new GormDraftRepository.
func NewGormDraftRepository(db *gorm.DB) *GormDraftRepository {
	return &GormDraftRepository{db: db}
}

// Load retrieves the draft saved for deviceID.
func (r *GormDraftRepository) Load(ctx context.Context, deviceID string) (ride.Draft, bool, error) {
	var model DraftModel
	if err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ride.Draft{}, false, nil
		}
		return ride.Draft{}, false, fmt.Errorf("failed to load booking draft: %w", err)
	}

	var draft ride.Draft
	if err := json.Unmarshal(model.Draft, &draft); err != nil {
		return ride.Draft{}, false, fmt.Errorf("failed to unmarshal booking draft: %w", err)
	}
	return draft, true, nil
}

// Save upserts the draft for deviceID.
func (r *GormDraftRepository) Save(ctx context.Context, deviceID string, draft ride.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal booking draft: %w", err)
	}

	model := DraftModel{DeviceID: deviceID, Draft: data, UpdatedAt: time.Now().UTC()}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"draft", "updated_at"}),
	}).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to save booking draft: %w", err)
	}
	return nil
}

// Delete removes the draft for deviceID. Deleting a missing draft is not an error.
func (r *GormDraftRepository) Delete(ctx context.Context, deviceID string) error {
	if err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).Delete(&DraftModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete booking draft: %w", err)
	}
	return nil
}
