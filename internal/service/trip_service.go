package service

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"triplog/internal/middleware"
	"triplog/internal/models"
	"triplog/internal/repository"
	"triplog/internal/storage"

	"github.com/google/uuid"
)

// TripService manages the private journal hierarchy. Every operation checks
// that the caller owns the trip the target hangs off; trips are never visible
// to other users.
type TripService struct {
	tripRepo repository.TripRepository
	store    storage.ObjectStore
}

type CreateTripInput struct {
	UserID      uint
	Title       string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	CoverImage  string
}

type UpdateTripInput struct {
	UserID      uint
	TripID      uint
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	CoverImage  *string
}

type CreatePlaceInput struct {
	UserID      uint
	TripID      uint
	Name        string
	Description string
	Address     string
	Location    models.GeoPoint
	VisitedAt   *time.Time
}

type UpdatePlaceInput struct {
	UserID      uint
	PlaceID     uint
	Name        *string
	Description *string
	Address     *string
	Location    *models.GeoPoint
	VisitedAt   *time.Time
}

type AddPhotoInput struct {
	UserID  uint
	PlaceID uint
	Upload  ImageUpload
	Caption string
	TakenAt *time.Time
}

func NewTripService(tripRepo repository.TripRepository, store storage.ObjectStore) *TripService {
	return &TripService{
		tripRepo: tripRepo,
		store:    store,
	}
}

func (s *TripService) CreateTrip(ctx context.Context, in CreateTripInput) (*models.Trip, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Trip title is required")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, models.NewValidationError("Trip end date cannot precede start date")
	}

	trip := &models.Trip{
		UserID:      in.UserID,
		Title:       title,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CoverImage:  in.CoverImage,
	}
	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

func (s *TripService) GetTrip(ctx context.Context, userID, tripID uint) (*models.Trip, error) {
	return s.ownedTrip(ctx, userID, tripID)
}

func (s *TripService) ListTrips(ctx context.Context, userID uint, page, limit int) ([]*models.Trip, models.Pagination, error) {
	trips, total, err := s.tripRepo.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return trips, models.NewPagination(page, limit, total), nil
}

func (s *TripService) UpdateTrip(ctx context.Context, in UpdateTripInput) (*models.Trip, error) {
	trip, err := s.ownedTrip(ctx, in.UserID, in.TripID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, models.NewValidationError("Trip title cannot be empty")
		}
		trip.Title = title
	}
	if in.Description != nil {
		trip.Description = *in.Description
	}
	if in.StartDate != nil {
		trip.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		trip.EndDate = in.EndDate
	}
	if trip.StartDate != nil && trip.EndDate != nil && trip.EndDate.Before(*trip.StartDate) {
		return nil, models.NewValidationError("Trip end date cannot precede start date")
	}
	if in.CoverImage != nil {
		trip.CoverImage = *in.CoverImage
	}

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// DeleteTrip removes the trip with its places and photos, then cleans up the
// stored photo objects best effort.
func (s *TripService) DeleteTrip(ctx context.Context, userID, tripID uint) error {
	if _, err := s.ownedTrip(ctx, userID, tripID); err != nil {
		return err
	}

	places, err := s.tripRepo.ListPlaces(ctx, tripID)
	if err != nil {
		return err
	}
	var urls []string
	for _, place := range places {
		photos, err := s.tripRepo.ListPhotos(ctx, place.ID)
		if err != nil {
			return err
		}
		for _, p := range photos {
			urls = append(urls, p.URL)
		}
	}

	if err := s.tripRepo.Delete(ctx, tripID); err != nil {
		return err
	}
	s.cleanupURLs(ctx, urls)
	return nil
}

func (s *TripService) AddPlace(ctx context.Context, in CreatePlaceInput) (*models.Place, error) {
	if _, err := s.ownedTrip(ctx, in.UserID, in.TripID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Place name is required")
	}

	place := &models.Place{
		TripID:      in.TripID,
		Name:        name,
		Description: in.Description,
		Address:     in.Address,
		Location:    in.Location,
		VisitedAt:   in.VisitedAt,
	}
	if err := s.tripRepo.CreatePlace(ctx, place); err != nil {
		return nil, err
	}
	return place, nil
}

func (s *TripService) ListPlaces(ctx context.Context, userID, tripID uint) ([]*models.Place, error) {
	if _, err := s.ownedTrip(ctx, userID, tripID); err != nil {
		return nil, err
	}
	return s.tripRepo.ListPlaces(ctx, tripID)
}

func (s *TripService) UpdatePlace(ctx context.Context, in UpdatePlaceInput) (*models.Place, error) {
	place, err := s.ownedPlace(ctx, in.UserID, in.PlaceID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, models.NewValidationError("Place name cannot be empty")
		}
		place.Name = name
	}
	if in.Description != nil {
		place.Description = *in.Description
	}
	if in.Address != nil {
		place.Address = *in.Address
	}
	if in.Location != nil {
		place.Location = *in.Location
	}
	if in.VisitedAt != nil {
		place.VisitedAt = in.VisitedAt
	}

	if err := s.tripRepo.UpdatePlace(ctx, place); err != nil {
		return nil, err
	}
	return place, nil
}

func (s *TripService) DeletePlace(ctx context.Context, userID, placeID uint) error {
	if _, err := s.ownedPlace(ctx, userID, placeID); err != nil {
		return err
	}

	photos, err := s.tripRepo.ListPhotos(ctx, placeID)
	if err != nil {
		return err
	}
	var urls []string
	for _, p := range photos {
		urls = append(urls, p.URL)
	}

	if err := s.tripRepo.DeletePlace(ctx, placeID); err != nil {
		return err
	}
	s.cleanupURLs(ctx, urls)
	return nil
}

func (s *TripService) AddPhoto(ctx context.Context, in AddPhotoInput) (*models.Photo, error) {
	if _, err := s.ownedPlace(ctx, in.UserID, in.PlaceID); err != nil {
		return nil, err
	}
	if in.Upload.Body == nil {
		return nil, models.NewValidationError("Photo file is required")
	}

	ext := strings.ToLower(path.Ext(in.Upload.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("journal/%s%s", uuid.New().String(), ext)
	url, err := s.store.Upload(ctx, key, in.Upload.ContentType, in.Upload.Body)
	if err != nil {
		return nil, models.NewUpstreamError("Photo upload failed", err)
	}

	photo := &models.Photo{
		PlaceID:      in.PlaceID,
		URL:          url,
		ThumbnailURL: url,
		Caption:      in.Caption,
		TakenAt:      in.TakenAt,
	}
	if err := s.tripRepo.CreatePhoto(ctx, photo); err != nil {
		s.cleanupURLs(ctx, []string{url})
		return nil, err
	}
	return photo, nil
}

func (s *TripService) ListPhotos(ctx context.Context, userID, placeID uint) ([]*models.Photo, error) {
	if _, err := s.ownedPlace(ctx, userID, placeID); err != nil {
		return nil, err
	}
	return s.tripRepo.ListPhotos(ctx, placeID)
}

func (s *TripService) DeletePhoto(ctx context.Context, userID, photoID uint) error {
	photo, err := s.tripRepo.GetPhotoByID(ctx, photoID)
	if err != nil {
		return err
	}
	if _, err := s.ownedPlace(ctx, userID, photo.PlaceID); err != nil {
		return err
	}

	if err := s.tripRepo.DeletePhoto(ctx, photoID); err != nil {
		return err
	}
	s.cleanupURLs(ctx, []string{photo.URL})
	return nil
}

// ownedTrip loads the trip and enforces ownership. Someone else's trip
// answers 403; the existence of the id is not sensitive inside a private
// journal feature.
func (s *TripService) ownedTrip(ctx context.Context, userID, tripID uint) (*models.Trip, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.UserID != userID {
		return nil, models.NewForbiddenError("You do not have access to this trip")
	}
	return trip, nil
}

func (s *TripService) ownedPlace(ctx context.Context, userID, placeID uint) (*models.Place, error) {
	place, err := s.tripRepo.GetPlaceByID(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedTrip(ctx, userID, place.TripID); err != nil {
		return nil, err
	}
	return place, nil
}

func (s *TripService) cleanupURLs(ctx context.Context, urls []string) {
	for _, url := range urls {
		key, ok := s.store.KeyFromURL(url)
		if !ok {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "journal photo cleanup failed",
				slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}
