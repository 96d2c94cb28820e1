package server

import (
	"time"

	"triplog/internal/models"
	"triplog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateTrip handles POST /api/trips
func (s *Server) CreateTrip(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
		CoverImage  string     `json:"cover_image"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	trip, err := s.tripService.CreateTrip(c.Context(), service.CreateTripInput{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CoverImage:  req.CoverImage,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(trip)
}

// GetTrips handles GET /api/trips
func (s *Server) GetTrips(c *fiber.Ctx) error {
	userID := currentUserID(c)
	page := parsePageQuery(c, 20)

	trips, pagination, err := s.tripService.ListTrips(c.Context(), userID, page.Page, page.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.PagedResponse{Data: trips, Pagination: pagination})
}

// GetTrip handles GET /api/trips/:id
func (s *Server) GetTrip(c *fiber.Ctx) error {
	userID := currentUserID(c)
	tripID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	trip, err := s.tripService.GetTrip(c.Context(), userID, tripID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(trip)
}

// UpdateTrip handles PUT /api/trips/:id
func (s *Server) UpdateTrip(c *fiber.Ctx) error {
	userID := currentUserID(c)
	tripID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
		CoverImage  *string    `json:"cover_image"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	trip, err := s.tripService.UpdateTrip(c.Context(), service.UpdateTripInput{
		UserID:      userID,
		TripID:      tripID,
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CoverImage:  req.CoverImage,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(trip)
}

// DeleteTrip handles DELETE /api/trips/:id
func (s *Server) DeleteTrip(c *fiber.Ctx) error {
	userID := currentUserID(c)
	tripID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.tripService.DeleteTrip(c.Context(), userID, tripID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Trip deleted"})
}

// AddPlace handles POST /api/trips/:id/places
func (s *Server) AddPlace(c *fiber.Ctx) error {
	userID := currentUserID(c)
	tripID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Address     string          `json:"address"`
		Location    models.GeoPoint `json:"location"`
		VisitedAt   *time.Time      `json:"visited_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	place, err := s.tripService.AddPlace(c.Context(), service.CreatePlaceInput{
		UserID:      userID,
		TripID:      tripID,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Location:    req.Location,
		VisitedAt:   req.VisitedAt,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(place)
}

// GetPlaces handles GET /api/trips/:id/places
func (s *Server) GetPlaces(c *fiber.Ctx) error {
	userID := currentUserID(c)
	tripID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	places, err := s.tripService.ListPlaces(c.Context(), userID, tripID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(places)
}

// UpdatePlace handles PUT /api/places/:id
func (s *Server) UpdatePlace(c *fiber.Ctx) error {
	userID := currentUserID(c)
	placeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name        *string          `json:"name"`
		Description *string          `json:"description"`
		Address     *string          `json:"address"`
		Location    *models.GeoPoint `json:"location"`
		VisitedAt   *time.Time       `json:"visited_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	place, err := s.tripService.UpdatePlace(c.Context(), service.UpdatePlaceInput{
		UserID:      userID,
		PlaceID:     placeID,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Location:    req.Location,
		VisitedAt:   req.VisitedAt,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(place)
}

// DeletePlace handles DELETE /api/places/:id
func (s *Server) DeletePlace(c *fiber.Ctx) error {
	userID := currentUserID(c)
	placeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.tripService.DeletePlace(c.Context(), userID, placeID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Place deleted"})
}

// AddPhoto handles POST /api/places/:id/photos (multipart form)
func (s *Server) AddPhoto(c *fiber.Ctx) error {
	userID := currentUserID(c)
	placeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Expected multipart form body"))
	}

	files := form.File["photo"]
	if len(files) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Photo file is required"))
	}
	f, err := files[0].Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unreadable photo file"))
	}
	defer f.Close()

	in := service.AddPhotoInput{
		UserID:  userID,
		PlaceID: placeID,
		Upload: service.ImageUpload{
			Body:        f,
			Filename:    files[0].Filename,
			ContentType: files[0].Header.Get("Content-Type"),
		},
	}
	if v, ok := formValue(form.Value, "caption"); ok {
		in.Caption = v
	}
	if v, ok := formValue(form.Value, "taken_at"); ok && v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("taken_at must be RFC 3339"))
		}
		in.TakenAt = &t
	}

	photo, err := s.tripService.AddPhoto(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(photo)
}

// GetPhotos handles GET /api/places/:id/photos
func (s *Server) GetPhotos(c *fiber.Ctx) error {
	userID := currentUserID(c)
	placeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	photos, err := s.tripService.ListPhotos(c.Context(), userID, placeID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(photos)
}

// DeletePhoto handles DELETE /api/photos/:id
func (s *Server) DeletePhoto(c *fiber.Ctx) error {
	userID := currentUserID(c)
	photoID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.tripService.DeletePhoto(c.Context(), userID, photoID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Photo deleted"})
}
