package repository

import (
	"context"
	"errors"
	"strings"

	"triplog/internal/geo"
	"triplog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Domain errors surfaced by the like/bookmark membership operations. The
// insert-or-nothing and delete-or-nothing statements report these when the
// membership row was already in (or already absent from) the table.
var (
	ErrAlreadyLiked      = models.NewConflictError("Post already liked")
	ErrNotLiked          = models.NewConflictError("Post not liked")
	ErrAlreadyBookmarked = models.NewConflictError("Post already bookmarked")
	ErrNotBookmarked     = models.NewConflictError("Post not bookmarked")
)

// MaxMapPosts caps how many posts the map view considers per request.
const MaxMapPosts = 100

// ListPostsParams narrows a post listing. Zero values mean "no filter".
type ListPostsParams struct {
	ViewerID uint // 0 = anonymous
	AuthorID uint
	Tag      string
	Search   string
	Sort     string // field name with optional leading "-", default "-createdAt"
	Limit    int
	Offset   int
}

// MapListParams narrows the map candidate query. The viewer sees public
// published posts plus their own, optionally filtered by tag.
type MapListParams struct {
	ViewerID uint // 0 = anonymous
	Tag      string
	Limit    int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, params ListPostsParams) ([]*models.Post, int64, error)
	ListForMap(ctx context.Context, box geo.BoundingBox, params MapListParams) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	IncrementViewCount(ctx context.Context, id uint) error
	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
	Bookmark(ctx context.Context, userID, postID uint) error
	Unbookmark(ctx context.Context, userID, postID uint) error
	ListBookmarked(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, int64, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := r.applyViewerFields(r.db.WithContext(ctx), viewerID).
		Preload("Author").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Preload("Tags").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, params ListPostsParams) ([]*models.Post, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Post{})
	base = r.applyFilters(base, params)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []*models.Post
	query := r.applyViewerFields(base.Session(&gorm.Session{}), params.ViewerID).
		Preload("Author").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Preload("Tags")
	err := r.applySort(query, params.Sort).
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

// applyFilters narrows the listing to what the viewer may see plus the
// requested author/tag/search filters. Unpublished and non-public posts are
// visible to their author only.
func (r *postRepository) applyFilters(db *gorm.DB, params ListPostsParams) *gorm.DB {
	if params.ViewerID != 0 {
		db = db.Where(
			"(posts.visibility = ? AND posts.is_published) OR posts.author_id = ?",
			models.VisibilityPublic, params.ViewerID,
		)
	} else {
		db = db.Where("posts.visibility = ? AND posts.is_published", models.VisibilityPublic)
	}

	if params.AuthorID != 0 {
		db = db.Where("posts.author_id = ?", params.AuthorID)
	}
	if params.Tag != "" {
		db = db.Where(
			"EXISTS(SELECT 1 FROM post_tags WHERE post_tags.post_id = posts.id AND post_tags.name = ?)",
			params.Tag,
		)
	}
	if params.Search != "" {
		like := "%" + params.Search + "%"
		db = db.Where("LOWER(posts.content) LIKE LOWER(?)", like)
	}
	return db
}

// Columns the listing may be ordered by. Sort values pass through this map so
// request input never reaches the ORDER BY clause directly.
var sortColumns = map[string]string{
	"createdAt":   "posts.created_at",
	"likeCount":   "posts.like_count",
	"viewCount":   "posts.view_count",
	"publishedAt": "posts.published_at",
}

// applySort appends the ORDER BY clause. The sort value is a whitelisted field
// name with an optional leading "-" for descending; "latest" and "popular" are
// kept as aliases. Anything unrecognized falls back to newest first.
func (r *postRepository) applySort(db *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case "", "latest":
		sort = "-createdAt"
	case "popular":
		sort = "-likeCount"
	}

	direction := "ASC"
	field := sort
	if strings.HasPrefix(sort, "-") {
		direction = "DESC"
		field = sort[1:]
	}
	column, ok := sortColumns[field]
	if !ok {
		return db.Order("posts.created_at DESC")
	}
	db = db.Order(column + " " + direction)
	if column != "posts.created_at" {
		// Stable tiebreak so pages do not shuffle between requests.
		db = db.Order("posts.created_at DESC")
	}
	return db
}

// applyViewerFields adds EXISTS subqueries so is_liked / is_bookmarked come
// back in the same query instead of N+1 membership lookups.
func (r *postRepository) applyViewerFields(db *gorm.DB, viewerID uint) *gorm.DB {
	if viewerID != 0 {
		return db.Select(
			"posts.*, "+
				"EXISTS(SELECT 1 FROM post_likes WHERE post_likes.post_id = posts.id AND post_likes.user_id = ?) AS is_liked, "+
				"EXISTS(SELECT 1 FROM post_bookmarks WHERE post_bookmarks.post_id = posts.id AND post_bookmarks.user_id = ?) AS is_bookmarked",
			viewerID, viewerID,
		)
	}
	return db.Select("posts.*, 0 AS is_liked, 0 AS is_bookmarked")
}

// ListForMap returns the newest published posts visible to the viewer that
// have at least one image located inside the box. The service layer flattens
// posts into per-image map items, so images and authors come preloaded.
func (r *postRepository) ListForMap(ctx context.Context, box geo.BoundingBox, params MapListParams) ([]*models.Post, error) {
	limit := params.Limit
	if limit <= 0 || limit > MaxMapPosts {
		limit = MaxMapPosts
	}

	db := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Where("posts.is_published")
	if params.ViewerID != 0 {
		db = db.Where("posts.visibility = ? OR posts.author_id = ?",
			models.VisibilityPublic, params.ViewerID)
	} else {
		db = db.Where("posts.visibility = ?", models.VisibilityPublic)
	}
	if params.Tag != "" {
		db = db.Where(
			"EXISTS(SELECT 1 FROM post_tags WHERE post_tags.post_id = posts.id AND post_tags.name = ?)",
			params.Tag,
		)
	}

	var posts []*models.Post
	err := db.Where(
		"EXISTS(SELECT 1 FROM post_images WHERE post_images.post_id = posts.id"+
			" AND post_images.location_latitude BETWEEN ? AND ?"+
			" AND post_images.location_longitude BETWEEN ? AND ?)",
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon,
	).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the post and everything hanging off it in one transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.PostImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostBookmark{}).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			"DELETE FROM comment_likes WHERE comment_id IN (SELECT id FROM comments WHERE post_id = ?)", id,
		).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// IncrementViewCount bumps the counter unconditionally; repeat views by the
// same user all count.
func (r *postRepository) IncrementViewCount(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Like inserts the membership row and bumps the counter in one transaction.
// The insert uses ON CONFLICT DO NOTHING so two racing likes cannot both
// increment: the loser sees zero rows affected and reports ErrAlreadyLiked.
func (r *postRepository) Like(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PostLike{PostID: postID, UserID: userID})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyLiked
		}
		if err := tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

// Unlike removes the membership row and decrements with a floor of zero.
func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).
			Delete(&models.PostLike{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotLiked
		}
		if err := tx.Model(&models.Post{}).
			Where("id = ? AND like_count > 0", postID).
			UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *postRepository) Bookmark(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PostBookmark{PostID: postID, UserID: userID})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyBookmarked
		}
		if err := tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("bookmark_count", gorm.Expr("bookmark_count + 1")).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *postRepository) Unbookmark(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).
			Delete(&models.PostBookmark{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotBookmarked
		}
		if err := tx.Model(&models.Post{}).
			Where("id = ? AND bookmark_count > 0", postID).
			UpdateColumn("bookmark_count", gorm.Expr("bookmark_count - 1")).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

// ListBookmarked returns the viewer's bookmarked posts, most recently
// bookmarked first.
func (r *postRepository) ListBookmarked(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Post{}).
		Joins("JOIN post_bookmarks ON post_bookmarks.post_id = posts.id").
		Where("post_bookmarks.user_id = ?", userID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []*models.Post
	err := r.applyViewerFields(base.Session(&gorm.Session{}), userID).
		Preload("Author").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Preload("Tags").
		Order("post_bookmarks.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}
