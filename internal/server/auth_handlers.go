package server

import (
	"triplog/internal/models"
	"triplog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SocialLogin handles POST /api/auth/login
func (s *Server) SocialLogin(c *fiber.Ctx) error {
	var req service.SocialLoginInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.authService.SocialLogin(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// Refresh handles POST /api/auth/refresh
func (s *Server) Refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.authService.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// Logout handles POST /api/auth/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if err := s.authService.Logout(c.Context(), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Withdraw handles DELETE /api/auth/withdraw
func (s *Server) Withdraw(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if err := s.authService.Withdraw(c.Context(), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account deleted"})
}
