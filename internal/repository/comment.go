package repository

import (
	"context"
	"errors"

	"triplog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCommentAlreadyLiked = models.NewConflictError("Comment already liked")
	ErrCommentNotLiked     = models.NewConflictError("Comment not liked")
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint, viewerID uint, limit, offset int) ([]*models.Comment, int64, error)
	Update(ctx context.Context, comment *models.Comment) error
	SoftDelete(ctx context.Context, id uint) error
	Like(ctx context.Context, userID, commentID uint) error
	Unlike(ctx context.Context, userID, commentID uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts the comment and bumps the post's comment counter in the same
// transaction, so the count never drifts from the rows.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Model(&models.Post{}).
			Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *commentRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.applyViewerFields(r.db.WithContext(ctx), viewerID).
		Preload("Author").
		First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// ListByPost returns one page of the post's comments threaded one level deep:
// top-level comments newest first, replies under their parent oldest first.
// Pagination counts top-level comments only; a page carries all replies of its
// parents. Deleted comments keep their slot with tombstone content so threads
// stay navigable.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint, viewerID uint, limit, offset int) ([]*models.Comment, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ? AND parent_id IS NULL", postID).
		Count(&total).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var topLevel []*models.Comment
	err = r.applyViewerFields(r.db.WithContext(ctx), viewerID).
		Preload("Author").
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&topLevel).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if len(topLevel) == 0 {
		return topLevel, total, nil
	}

	byID := make(map[uint]*models.Comment, len(topLevel))
	parentIDs := make([]uint, 0, len(topLevel))
	for _, c := range topLevel {
		if c.IsDeleted {
			c.Content = models.DeletedCommentContent
		}
		byID[c.ID] = c
		parentIDs = append(parentIDs, c.ID)
	}

	var replies []*models.Comment
	err = r.applyViewerFields(r.db.WithContext(ctx), viewerID).
		Preload("Author").
		Where("parent_id IN ?", parentIDs).
		Order("created_at ASC").
		Find(&replies).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	for _, c := range replies {
		if c.IsDeleted {
			c.Content = models.DeletedCommentContent
		}
		if parent, ok := byID[*c.ParentID]; ok {
			parent.Replies = append(parent.Replies, c)
		}
	}
	return topLevel, total, nil
}

func (r *commentRepository) applyViewerFields(db *gorm.DB, viewerID uint) *gorm.DB {
	if viewerID != 0 {
		return db.Select(
			"comments.*, "+
				"EXISTS(SELECT 1 FROM comment_likes WHERE comment_likes.comment_id = comments.id AND comment_likes.user_id = ?) AS is_liked",
			viewerID,
		)
	}
	return db.Select("comments.*, 0 AS is_liked")
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Save(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// SoftDelete tombstones the comment and decrements the post's counter in the
// same transaction. The row stays so replies keep their parent.
func (r *commentRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Comment", id)
			}
			return models.NewInternalError(err)
		}
		if comment.IsDeleted {
			return models.NewConflictError("Comment already deleted")
		}
		err := tx.Model(&models.Comment{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"is_deleted": true,
				"content":    models.DeletedCommentContent,
			}).Error
		if err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Model(&models.Post{}).
			Where("id = ? AND comment_count > 0", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *commentRepository) Like(ctx context.Context, userID, commentID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.CommentLike{CommentID: commentID, UserID: userID})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrCommentAlreadyLiked
		}
		if err := tx.Model(&models.Comment{}).
			Where("id = ?", commentID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *commentRepository) Unlike(ctx context.Context, userID, commentID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).
			Delete(&models.CommentLike{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrCommentNotLiked
		}
		if err := tx.Model(&models.Comment{}).
			Where("id = ? AND like_count > 0", commentID).
			UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}
