package server

import (
	"encoding/json"
	"mime/multipart"
	"strconv"
	"time"

	"triplog/internal/models"
	"triplog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// imageMeta is the optional sidecar metadata for uploaded images, sent as a
// JSON array aligned with the file order.
type imageMeta struct {
	Location    models.GeoPoint `json:"location"`
	CapturedAt  *time.Time      `json:"captured_at"`
	Description string          `json:"description"`
}

// CreatePost handles POST /api/posts (multipart form)
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := currentUserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Expected multipart form body"))
	}

	content, _ := formValue(form.Value, "content")
	visibility, _ := formValue(form.Value, "visibility")
	tags, _ := formValue(form.Value, "tags")
	location, _ := formValue(form.Value, "location")

	in := service.CreatePostInput{
		AuthorID:   userID,
		Content:    content,
		Visibility: visibility,
		Tags:       tags,
		Location:   location,
	}
	if v, ok := formValue(form.Value, "related_trip_id"); ok {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid related_trip_id"))
		}
		tripID := uint(id)
		in.RelatedTripID = &tripID
	}
	if v, ok := formValue(form.Value, "related_place_id"); ok {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid related_place_id"))
		}
		placeID := uint(id)
		in.RelatedPlaceID = &placeID
	}

	var metas []imageMeta
	if raw, ok := formValue(form.Value, "image_meta"); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &metas); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("image_meta must be a JSON array"))
		}
	}

	files := form.File["images"]
	opened := make([]multipart.File, 0, len(files))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unreadable image file"))
		}
		opened = append(opened, f)

		upload := service.ImageUpload{
			Body:        f,
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
		}
		if i < len(metas) {
			upload.Location = metas[i].Location
			upload.CapturedAt = metas[i].CapturedAt
			upload.Description = metas[i].Description
		}
		in.Images = append(in.Images, upload)
	}

	post, err := s.postService.CreatePost(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePageQuery(c, 10)

	in := service.ListPostsInput{
		ViewerID: viewerID(c),
		AuthorID: uint(c.QueryInt("author_id", 0)),
		Tag:      c.Query("tag"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
		Page:     page.Page,
		Limit:    page.Limit,
	}

	posts, pagination, err := s.postService.ListPosts(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.PagedResponse{Data: posts, Pagination: pagination})
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.Context(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// GetPostsForMap handles GET /api/posts/map?latitude=..&longitude=..&zoomLevel=..
// All three location parameters are required; a missing zoom level must not
// silently widen the viewport to the fallback radius.
func (s *Server) GetPostsForMap(c *fiber.Ctx) error {
	lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("longitude"), 64)
	zoom, zoomErr := strconv.Atoi(c.Query("zoomLevel"))
	if latErr != nil || lonErr != nil || zoomErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("latitude, longitude and zoomLevel query parameters are required"))
	}

	items, err := s.postService.GetMapItems(c.Context(), service.MapQueryInput{
		ViewerID:  viewerID(c),
		Latitude:  lat,
		Longitude: lon,
		ZoomLevel: zoom,
		Tag:       c.Query("tag"),
		Limit:     c.QueryInt("limit", 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content    *string `json:"content"`
		Visibility *string `json:"visibility"`
		Tags       *string `json:"tags"`
		Location   *string `json:"location"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.Context(), service.UpdatePostInput{
		UserID:     userID,
		PostID:     postID,
		Content:    req.Content,
		Visibility: req.Visibility,
		Tags:       req.Tags,
		Location:   req.Location,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.Context(), userID, postID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.LikePost(c.Context(), userID, postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.UnlikePost(c.Context(), userID, postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// BookmarkPost handles POST /api/posts/:id/bookmark
func (s *Server) BookmarkPost(c *fiber.Ctx) error {
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.BookmarkPost(c.Context(), userID, postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// UnbookmarkPost handles DELETE /api/posts/:id/bookmark
func (s *Server) UnbookmarkPost(c *fiber.Ctx) error {
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.UnbookmarkPost(c.Context(), userID, postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}
