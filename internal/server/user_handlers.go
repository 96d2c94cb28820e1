package server

import (
	"triplog/internal/models"
	"triplog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := currentUserID(c)

	user, err := s.userService.GetUser(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me. Accepts JSON for text fields or
// multipart when a new profile image is attached.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := currentUserID(c)
	in := service.UpdateProfileInput{UserID: userID}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		if v, ok := formValue(form.Value, "name"); ok {
			in.Name = &v
		}
		if v, ok := formValue(form.Value, "nickname"); ok {
			in.Nickname = &v
		}
		if files := form.File["profile_image"]; len(files) > 0 {
			f, err := files[0].Open()
			if err != nil {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("Unreadable profile image"))
			}
			defer f.Close()
			in.ProfileImage = &service.ImageUpload{
				Body:        f,
				Filename:    files[0].Filename,
				ContentType: files[0].Header.Get("Content-Type"),
			}
		}
	} else {
		var req struct {
			Name     *string `json:"name"`
			Nickname *string `json:"nickname"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in.Name = req.Name
		in.Nickname = req.Nickname
	}

	user, err := s.userService.UpdateProfile(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetMySettings handles GET /api/users/me/settings
func (s *Server) GetMySettings(c *fiber.Ctx) error {
	userID := currentUserID(c)

	settings, err := s.settingsService.GetSettings(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(settings)
}

// UpdateMySettings handles PUT /api/users/me/settings
func (s *Server) UpdateMySettings(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		NotifyPush  *bool   `json:"notify_push"`
		NotifyEmail *bool   `json:"notify_email"`
		Theme       *string `json:"theme"`
		Language    *string `json:"language"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	settings, err := s.settingsService.UpdateSettings(c.Context(), service.UpdateSettingsInput{
		UserID:      userID,
		NotifyPush:  req.NotifyPush,
		NotifyEmail: req.NotifyEmail,
		Theme:       req.Theme,
		Language:    req.Language,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(settings)
}

// GetMyBookmarkedPosts handles GET /api/users/me/bookmarks
func (s *Server) GetMyBookmarkedPosts(c *fiber.Ctx) error {
	userID := currentUserID(c)
	page := parsePageQuery(c, 20)

	posts, pagination, err := s.postService.ListBookmarkedPosts(c.Context(), userID, page.Page, page.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.PagedResponse{Data: posts, Pagination: pagination})
}

// GetMyRecommendationBookmarks handles GET /api/users/me/recommendation-bookmarks
func (s *Server) GetMyRecommendationBookmarks(c *fiber.Ctx) error {
	userID := currentUserID(c)

	bookmarks, err := s.recService.ListBookmarks(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bookmarks)
}

// formValue returns the first value for the key and whether it was present.
func formValue(values map[string][]string, key string) (string, bool) {
	if v, ok := values[key]; ok && len(v) > 0 {
		return v[0], true
	}
	return "", false
}
