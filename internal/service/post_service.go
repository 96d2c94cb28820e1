package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"triplog/internal/geo"
	"triplog/internal/middleware"
	"triplog/internal/models"
	"triplog/internal/repository"
	"triplog/internal/storage"

	"github.com/google/uuid"
)

const (
	maxPostContentLen = 5000
	maxPostImages     = 10
	maxPostTags       = 20
)

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	store    storage.ObjectStore
}

// ImageUpload is one incoming image file with its optional sidecar metadata.
type ImageUpload struct {
	Body        io.Reader
	Filename    string
	ContentType string
	Location    models.GeoPoint
	CapturedAt  *time.Time
	Description string
}

type CreatePostInput struct {
	AuthorID       uint
	Content        string
	Visibility     string
	Tags           string // raw: JSON array or comma-separated
	Location       string // raw: JSON object or plain place name
	RelatedTripID  *uint
	RelatedPlaceID *uint
	Images         []ImageUpload
}

type UpdatePostInput struct {
	UserID     uint
	PostID     uint
	Content    *string
	Visibility *string
	Tags       *string
	Location   *string
}

type ListPostsInput struct {
	ViewerID uint
	AuthorID uint
	Tag      string
	Search   string
	Sort     string
	Page     int
	Limit    int
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	store storage.ObjectStore,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		store:    store,
	}
}

// CreatePost uploads the images, then persists the post with its tags and
// image rows. If the insert fails the uploaded objects are removed on a best
// effort basis so the bucket does not accumulate orphans.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxPostContentLen {
		return nil, models.NewValidationError(fmt.Sprintf("Content too long (max %d characters)", maxPostContentLen))
	}
	if len(in.Images) > maxPostImages {
		return nil, models.NewValidationError(fmt.Sprintf("Too many images (max %d)", maxPostImages))
	}

	visibility := models.Visibility(in.Visibility)
	if in.Visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !visibility.Valid() {
		return nil, models.NewValidationError("Invalid visibility value")
	}

	tags, err := NormalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	location, err := ParseLocation(in.Location)
	if err != nil {
		return nil, err
	}

	images, uploadedKeys, err := s.uploadImages(ctx, in.Images)
	if err != nil {
		s.cleanupKeys(ctx, uploadedKeys)
		return nil, err
	}

	now := time.Now()
	post := &models.Post{
		AuthorID:       in.AuthorID,
		Content:        content,
		Images:         images,
		Location:       location,
		RelatedTripID:  in.RelatedTripID,
		RelatedPlaceID: in.RelatedPlaceID,
		Tags:           tags,
		Visibility:     visibility,
		IsPublished:    true,
		PublishedAt:    &now,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		s.cleanupKeys(ctx, uploadedKeys)
		return nil, err
	}

	return s.postRepo.GetByID(ctx, post.ID, in.AuthorID)
}

func (s *PostService) uploadImages(ctx context.Context, uploads []ImageUpload) ([]models.PostImage, []string, error) {
	var images []models.PostImage
	var keys []string
	for i, up := range uploads {
		ext := strings.ToLower(path.Ext(up.Filename))
		if ext == "" {
			ext = ".jpg"
		}
		key := fmt.Sprintf("posts/%s%s", uuid.New().String(), ext)
		url, err := s.store.Upload(ctx, key, up.ContentType, up.Body)
		if err != nil {
			return nil, keys, models.NewUpstreamError("Image upload failed", err)
		}
		keys = append(keys, key)
		images = append(images, models.PostImage{
			URL: url,
			// Thumbnail generation is the CDN's job; fall back to the original.
			Thumbnail:   url,
			OrderIndex:  i,
			Location:    up.Location,
			CapturedAt:  up.CapturedAt,
			Description: up.Description,
		})
	}
	return images, keys, nil
}

func (s *PostService) cleanupKeys(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "orphaned object cleanup failed",
				slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

// GetPost returns one post and counts the view. Existence is checked before
// authorization, so a hidden post answers 403 rather than leaking as 404.
func (s *PostService) GetPost(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(post, viewerID); err != nil {
		return nil, err
	}

	// Every single-post fetch counts, repeat views included.
	if err := s.postRepo.IncrementViewCount(ctx, id); err != nil {
		return nil, err
	}
	post.ViewCount++
	return post, nil
}

func (s *PostService) authorizeView(post *models.Post, viewerID uint) error {
	if post.AuthorID == viewerID {
		return nil
	}
	if post.Visibility != models.VisibilityPublic || !post.IsPublished {
		return models.NewForbiddenError("You do not have access to this post")
	}
	return nil
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, models.Pagination, error) {
	params := repository.ListPostsParams{
		ViewerID: in.ViewerID,
		AuthorID: in.AuthorID,
		Tag:      strings.ToLower(strings.TrimSpace(in.Tag)),
		Search:   strings.TrimSpace(in.Search),
		Sort:     in.Sort,
		Limit:    in.Limit,
		Offset:   (in.Page - 1) * in.Limit,
	}
	posts, total, err := s.postRepo.List(ctx, params)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return posts, models.NewPagination(in.Page, in.Limit, total), nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if content == "" {
			return nil, models.NewValidationError("Content cannot be empty")
		}
		if len(content) > maxPostContentLen {
			return nil, models.NewValidationError(fmt.Sprintf("Content too long (max %d characters)", maxPostContentLen))
		}
		post.Content = content
	}
	if in.Visibility != nil {
		visibility := models.Visibility(*in.Visibility)
		if !visibility.Valid() {
			return nil, models.NewValidationError("Invalid visibility value")
		}
		post.Visibility = visibility
	}
	if in.Tags != nil {
		tags, err := NormalizeTags(*in.Tags)
		if err != nil {
			return nil, err
		}
		post.Tags = tags
	}
	if in.Location != nil {
		location, err := ParseLocation(*in.Location)
		if err != nil {
			return nil, err
		}
		post.Location = location
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// DeletePost removes the post, then its stored images. Object deletion is
// best effort: the DB row is already gone, a leaked object only wastes space.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}

	for _, img := range post.Images {
		if key, ok := s.store.KeyFromURL(img.URL); ok {
			if err := s.store.Delete(ctx, key); err != nil {
				middleware.Logger.WarnContext(ctx, "post image cleanup failed",
					slog.String("key", key), slog.String("error", err.Error()))
			}
		}
	}
	return nil
}

// LikePost records the like. Liking twice is a conflict, not a no-op, so the
// client can tell a stale UI from success.
func (s *PostService) LikePost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(post, userID); err != nil {
		return nil, err
	}
	if err := s.postRepo.Like(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID, userID)
}

func (s *PostService) UnlikePost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		return nil, err
	}
	if err := s.postRepo.Unlike(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID, userID)
}

func (s *PostService) BookmarkPost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(post, userID); err != nil {
		return nil, err
	}
	if err := s.postRepo.Bookmark(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID, userID)
}

func (s *PostService) UnbookmarkPost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		return nil, err
	}
	if err := s.postRepo.Unbookmark(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID, userID)
}

func (s *PostService) ListBookmarkedPosts(ctx context.Context, userID uint, page, limit int) ([]*models.Post, models.Pagination, error) {
	posts, total, err := s.postRepo.ListBookmarked(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return posts, models.NewPagination(page, limit, total), nil
}

// MapQueryInput is a map viewport query: center coordinates plus the zoom
// level that determines the search radius.
type MapQueryInput struct {
	ViewerID  uint
	Latitude  float64
	Longitude float64
	ZoomLevel int
	Tag       string
	Limit     int
}

// GetMapItems flattens the posts in the viewport into one item per located
// image. A post whose author cannot be resolved is skipped rather than shown
// anonymous.
func (s *PostService) GetMapItems(ctx context.Context, in MapQueryInput) ([]models.MapItem, error) {
	if in.Latitude < -90 || in.Latitude > 90 || in.Longitude < -180 || in.Longitude > 180 {
		return nil, models.NewValidationError("Coordinates out of range")
	}

	box := geo.NewBoundingBox(in.Latitude, in.Longitude, geo.RadiusKmForZoom(in.ZoomLevel))
	posts, err := s.postRepo.ListForMap(ctx, box, repository.MapListParams{
		ViewerID: in.ViewerID,
		Tag:      strings.ToLower(strings.TrimSpace(in.Tag)),
		Limit:    in.Limit,
	})
	if err != nil {
		return nil, err
	}

	items := make([]models.MapItem, 0, len(posts))
	for _, post := range posts {
		if post.Author.ID == 0 {
			continue
		}
		author := post.Author.Summary()
		for _, img := range post.Images {
			if !img.Location.HasCoordinates() {
				continue
			}
			if !box.Contains(*img.Location.Latitude, *img.Location.Longitude) {
				continue
			}
			items = append(items, models.MapItem{
				PostID: post.ID,
				Photo: models.MapPhoto{
					URL:         img.URL,
					Thumbnail:   img.Thumbnail,
					Location:    img.Location,
					CapturedAt:  img.CapturedAt,
					Description: img.Description,
				},
				Author:    author,
				CreatedAt: post.CreatedAt,
			})
		}
	}
	return items, nil
}

// NormalizeTags accepts the tags field in either of its two wire shapes, a
// JSON array ("[\"a\",\"b\"]") or a comma-separated string ("a, b"), and
// returns deduplicated lowercase tag rows.
func NormalizeTags(raw string) ([]models.PostTag, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var names []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			return nil, models.NewValidationError("tags must be a JSON array or comma-separated string")
		}
	} else {
		names = strings.Split(raw, ",")
	}

	seen := make(map[string]struct{}, len(names))
	var tags []models.PostTag
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, models.PostTag{Name: name})
	}
	if len(tags) > maxPostTags {
		return nil, models.NewValidationError(fmt.Sprintf("Too many tags (max %d)", maxPostTags))
	}
	return tags, nil
}

// ParseLocation accepts the location field as either a JSON object or a plain
// place name.
func ParseLocation(raw string) (models.GeoPoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.GeoPoint{}, nil
	}

	if strings.HasPrefix(raw, "{") {
		var point models.GeoPoint
		if err := json.Unmarshal([]byte(raw), &point); err != nil {
			return models.GeoPoint{}, models.NewValidationError("location must be a JSON object or place name")
		}
		if (point.Latitude == nil) != (point.Longitude == nil) {
			return models.GeoPoint{}, models.NewValidationError("location requires both latitude and longitude or neither")
		}
		if point.HasCoordinates() {
			if *point.Latitude < -90 || *point.Latitude > 90 || *point.Longitude < -180 || *point.Longitude > 180 {
				return models.GeoPoint{}, models.NewValidationError("location coordinates out of range")
			}
		}
		return point, nil
	}
	return models.GeoPoint{Name: raw}, nil
}
