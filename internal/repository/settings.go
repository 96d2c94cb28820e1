package repository

import (
	"context"
	"errors"

	"triplog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository persists per-user preferences.
type SettingsRepository interface {
	GetOrCreate(ctx context.Context, userID uint) (*models.Settings, error)
	Update(ctx context.Context, settings *models.Settings) error
}

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository returns a new SettingsRepository implementation.
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// GetOrCreate returns the user's settings, creating the default row on first
// read. The insert ignores conflicts so two racing first reads both succeed
// and converge on the same row.
func (r *settingsRepository) GetOrCreate(ctx context.Context, userID uint) (*models.Settings, error) {
	var settings models.Settings
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewInternalError(err)
	}

	defaults := models.DefaultSettings(userID)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(defaults)
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		return defaults, nil
	}

	// Lost the race: another request created the row between our read and insert.
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &settings, nil
}

func (r *settingsRepository) Update(ctx context.Context, settings *models.Settings) error {
	if err := r.db.WithContext(ctx).Save(settings).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
