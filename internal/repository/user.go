// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"triplog/internal/cache"
	"triplog/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByProviderIdentity(ctx context.Context, provider, providerID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetSummariesByIDs(ctx context.Context, ids []uint) (map[uint]models.AuthorSummary, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateRefreshToken(ctx context.Context, id uint, token *string) error
	Delete(ctx context.Context, id uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// cachedUser is the storage representation for the user cache. models.User
// hides ProviderID and RefreshToken from JSON responses, so caching the model
// directly would drop them and a cache hit would break session refresh.
type cachedUser struct {
	User         models.User `json:"user"`
	ProviderID   string      `json:"provider_id"`
	RefreshToken *string     `json:"refresh_token"`
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var entry cachedUser
	key := cache.UserKey(id)

	err := cache.CacheAside(ctx, key, &entry, cache.UserTTL, func() error {
		var user models.User
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		entry = cachedUser{
			User:         user,
			ProviderID:   user.ProviderID,
			RefreshToken: user.RefreshToken,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	user := entry.User
	user.ProviderID = entry.ProviderID
	user.RefreshToken = entry.RefreshToken
	return &user, nil
}

func (r *userRepository) GetByProviderIdentity(ctx context.Context, provider, providerID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetSummariesByIDs resolves author summaries in one query. IDs that do not
// resolve are simply absent from the result map; callers skip those entries.
func (r *userRepository) GetSummariesByIDs(ctx context.Context, ids []uint) (map[uint]models.AuthorSummary, error) {
	result := make(map[uint]models.AuthorSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range users {
		result[users[i].ID] = users[i].Summary()
	}
	return result, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505; SQLite reports "UNIQUE constraint failed"
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) UpdateRefreshToken(ctx context.Context, id uint, token *string) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("refresh_token", token).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	// The cached copy carries the token; a stale entry would keep a rotated
	// or revoked token valid until the TTL expires.
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.User{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}
