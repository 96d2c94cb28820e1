package server

import (
	"triplog/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetRecommendations handles GET /api/recommendations
func (s *Server) GetRecommendations(c *fiber.Ctx) error {
	page := parsePageQuery(c, 20)

	recs, pagination, err := s.recService.ListRecommendations(c.Context(), c.Query("category"), page.Page, page.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.PagedResponse{Data: recs, Pagination: pagination})
}

// GetRecommendation handles GET /api/recommendations/:id
func (s *Server) GetRecommendation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	rec, err := s.recService.GetRecommendation(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rec)
}

// GetTourByArea handles GET /api/recommendations/tour/area
func (s *Server) GetTourByArea(c *fiber.Ctx) error {
	areaCode := c.Query("area_code")
	if areaCode == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("area_code query parameter is required"))
	}
	page := parsePageQuery(c, 20)

	result, err := s.recService.TourByArea(c.Context(), areaCode, c.Query("content_type_id"), page.Page, page.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// SearchTour handles GET /api/recommendations/tour/search
func (s *Server) SearchTour(c *fiber.Ctx) error {
	page := parsePageQuery(c, 20)

	result, err := s.recService.TourSearch(c.Context(), c.Query("keyword"), c.Query("content_type_id"), page.Page, page.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetTourDetail handles GET /api/recommendations/tour/:contentId
func (s *Server) GetTourDetail(c *fiber.Ctx) error {
	item, err := s.recService.TourDetail(c.Context(), c.Params("contentId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// ToggleRecommendationBookmark handles POST /api/recommendations/:refId/bookmark
func (s *Server) ToggleRecommendationBookmark(c *fiber.Ctx) error {
	userID := currentUserID(c)

	result, err := s.recService.ToggleBookmark(c.Context(), userID, c.Params("refId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// CheckRecommendationBookmark handles GET /api/recommendations/bookmarks/check/:refId
func (s *Server) CheckRecommendationBookmark(c *fiber.Ctx) error {
	userID := currentUserID(c)

	status, err := s.recService.CheckBookmark(c.Context(), userID, c.Params("refId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

// ClearRecommendationBookmarks handles DELETE /api/recommendations/bookmarks
func (s *Server) ClearRecommendationBookmarks(c *fiber.Ctx) error {
	userID := currentUserID(c)

	removed, err := s.recService.ClearBookmarks(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Bookmarks cleared", "removed": removed})
}
