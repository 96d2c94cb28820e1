package repository

import (
	"context"
	"errors"

	"triplog/internal/models"

	"gorm.io/gorm"
)

// TripRepository covers the private journal hierarchy: trips own places, and
// places own photos. Ownership checks live in the service layer; this layer
// only persists.
type TripRepository interface {
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, id uint) (*models.Trip, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Trip, int64, error)
	Update(ctx context.Context, trip *models.Trip) error
	Delete(ctx context.Context, id uint) error

	CreatePlace(ctx context.Context, place *models.Place) error
	GetPlaceByID(ctx context.Context, id uint) (*models.Place, error)
	ListPlaces(ctx context.Context, tripID uint) ([]*models.Place, error)
	UpdatePlace(ctx context.Context, place *models.Place) error
	DeletePlace(ctx context.Context, id uint) error

	CreatePhoto(ctx context.Context, photo *models.Photo) error
	GetPhotoByID(ctx context.Context, id uint) (*models.Photo, error)
	ListPhotos(ctx context.Context, placeID uint) ([]*models.Photo, error)
	UpdatePhoto(ctx context.Context, photo *models.Photo) error
	DeletePhoto(ctx context.Context, id uint) error
}

type tripRepository struct {
	db *gorm.DB
}

// NewTripRepository returns a new TripRepository implementation.
func NewTripRepository(db *gorm.DB) TripRepository {
	return &tripRepository{db: db}
}

func (r *tripRepository) Create(ctx context.Context, trip *models.Trip) error {
	if err := r.db.WithContext(ctx).Create(trip).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tripRepository) GetByID(ctx context.Context, id uint) (*models.Trip, error) {
	var trip models.Trip
	if err := r.db.WithContext(ctx).First(&trip, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Trip", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &trip, nil
}

func (r *tripRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Trip, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Trip{}).Where("user_id = ?", userID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var trips []*models.Trip
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&trips).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return trips, total, nil
}

func (r *tripRepository) Update(ctx context.Context, trip *models.Trip) error {
	if err := r.db.WithContext(ctx).Save(trip).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the trip with all its places and photos in one transaction.
func (r *tripRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"DELETE FROM photos WHERE place_id IN (SELECT id FROM places WHERE trip_id = ?)", id,
		).Error; err != nil {
			return err
		}
		if err := tx.Where("trip_id = ?", id).Delete(&models.Place{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Trip{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// CreatePlace appends the place at the end of its trip: order is
// max(order_index)+1 computed inside the insert transaction.
func (r *tripRepository) CreatePlace(ctx context.Context, place *models.Place) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrder *int
		if err := tx.Model(&models.Place{}).
			Where("trip_id = ?", place.TripID).
			Select("MAX(order_index)").
			Scan(&maxOrder).Error; err != nil {
			return err
		}
		if maxOrder != nil {
			place.OrderIndex = *maxOrder + 1
		}
		return tx.Create(place).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tripRepository) GetPlaceByID(ctx context.Context, id uint) (*models.Place, error) {
	var place models.Place
	if err := r.db.WithContext(ctx).First(&place, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Place", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &place, nil
}

func (r *tripRepository) ListPlaces(ctx context.Context, tripID uint) ([]*models.Place, error) {
	var places []*models.Place
	err := r.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("order_index ASC, created_at ASC").
		Find(&places).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return places, nil
}

func (r *tripRepository) UpdatePlace(ctx context.Context, place *models.Place) error {
	if err := r.db.WithContext(ctx).Save(place).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tripRepository) DeletePlace(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("place_id = ?", id).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Place{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tripRepository) CreatePhoto(ctx context.Context, photo *models.Photo) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrder *int
		if err := tx.Model(&models.Photo{}).
			Where("place_id = ?", photo.PlaceID).
			Select("MAX(order_index)").
			Scan(&maxOrder).Error; err != nil {
			return err
		}
		if maxOrder != nil {
			photo.OrderIndex = *maxOrder + 1
		}
		return tx.Create(photo).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tripRepository) GetPhotoByID(ctx context.Context, id uint) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.WithContext(ctx).First(&photo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Photo", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &photo, nil
}

func (r *tripRepository) ListPhotos(ctx context.Context, placeID uint) ([]*models.Photo, error) {
	var photos []*models.Photo
	err := r.db.WithContext(ctx).
		Where("place_id = ?", placeID).
		Order("order_index ASC, created_at ASC").
		Find(&photos).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return photos, nil
}

func (r *tripRepository) UpdatePhoto(ctx context.Context, photo *models.Photo) error {
	if err := r.db.WithContext(ctx).Save(photo).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tripRepository) DeletePhoto(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Photo{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
