package service

import (
	"context"

	"triplog/internal/models"
	"triplog/internal/repository"
)

type SettingsService struct {
	settingsRepo repository.SettingsRepository
}

// UpdateSettingsInput carries partial updates; nil fields keep their value.
type UpdateSettingsInput struct {
	UserID      uint
	NotifyPush  *bool
	NotifyEmail *bool
	Theme       *string
	Language    *string
}

func NewSettingsService(settingsRepo repository.SettingsRepository) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo}
}

// GetSettings returns the user's settings, materializing the default row on
// first read.
func (s *SettingsService) GetSettings(ctx context.Context, userID uint) (*models.Settings, error) {
	return s.settingsRepo.GetOrCreate(ctx, userID)
}

func (s *SettingsService) UpdateSettings(ctx context.Context, in UpdateSettingsInput) (*models.Settings, error) {
	settings, err := s.settingsRepo.GetOrCreate(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.NotifyPush != nil {
		settings.NotifyPush = *in.NotifyPush
	}
	if in.NotifyEmail != nil {
		settings.NotifyEmail = *in.NotifyEmail
	}
	if in.Theme != nil {
		switch *in.Theme {
		case "light", "dark", "system":
			settings.Theme = *in.Theme
		default:
			return nil, models.NewValidationError("Invalid theme value")
		}
	}
	if in.Language != nil {
		switch *in.Language {
		case "ko", "en", "ja":
			settings.Language = *in.Language
		default:
			return nil, models.NewValidationError("Unsupported language")
		}
	}

	if err := s.settingsRepo.Update(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
