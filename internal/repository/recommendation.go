package repository

import (
	"context"
	"errors"

	"triplog/internal/models"

	"gorm.io/gorm"
)

// RecommendationRepository persists curated recommendations and per-user
// bookmarks of them. Bookmark references are opaque strings because a user may
// bookmark items that live only in the upstream tourism API.
type RecommendationRepository interface {
	List(ctx context.Context, category string, limit, offset int) ([]*models.Recommendation, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Recommendation, error)
	Create(ctx context.Context, rec *models.Recommendation) error
	ToggleBookmark(ctx context.Context, userID uint, refID string) (bool, int64, error)
	IsBookmarked(ctx context.Context, userID uint, refID string) (bool, error)
	ListBookmarks(ctx context.Context, userID uint) ([]models.RecommendationBookmark, error)
	ClearBookmarks(ctx context.Context, userID uint) (int64, error)
}

type recommendationRepository struct {
	db *gorm.DB
}

// NewRecommendationRepository returns a new RecommendationRepository implementation.
func NewRecommendationRepository(db *gorm.DB) RecommendationRepository {
	return &recommendationRepository{db: db}
}

func (r *recommendationRepository) List(ctx context.Context, category string, limit, offset int) ([]*models.Recommendation, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Recommendation{}).Where("is_published = ?", true)
	if category != "" {
		base = base.Where("category = ?", category)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var recs []*models.Recommendation
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return recs, total, nil
}

func (r *recommendationRepository) GetByID(ctx context.Context, id uint) (*models.Recommendation, error) {
	var rec models.Recommendation
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Recommendation", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &rec, nil
}

func (r *recommendationRepository) Create(ctx context.Context, rec *models.Recommendation) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ToggleBookmark flips the bookmark state and reports the new state (true
// when the reference is now bookmarked) plus the user's resulting bookmark
// count. The delete-first shape makes the operation idempotent per direction;
// the count is taken inside the transaction so it matches the flip.
func (r *recommendationRepository) ToggleBookmark(ctx context.Context, userID uint, refID string) (bool, int64, error) {
	var bookmarked bool
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND ref_id = ?", userID, refID).
			Delete(&models.RecommendationBookmark{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			bookmarked = false
		} else {
			bookmarked = true
			if err := tx.Create(&models.RecommendationBookmark{UserID: userID, RefID: refID}).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.RecommendationBookmark{}).
			Where("user_id = ?", userID).
			Count(&count).Error
	})
	if err != nil {
		return false, 0, models.NewInternalError(err)
	}
	return bookmarked, count, nil
}

func (r *recommendationRepository) IsBookmarked(ctx context.Context, userID uint, refID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RecommendationBookmark{}).
		Where("user_id = ? AND ref_id = ?", userID, refID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *recommendationRepository) ListBookmarks(ctx context.Context, userID uint) ([]models.RecommendationBookmark, error) {
	var bookmarks []models.RecommendationBookmark
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookmarks).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return bookmarks, nil
}

// ClearBookmarks removes every recommendation bookmark the user has and
// reports how many were removed.
func (r *recommendationRepository) ClearBookmarks(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.RecommendationBookmark{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
