package models

import "time"

// Trip is the root of a user's private travel journal: a trip contains
// ordered places, and each place contains ordered photos.
type Trip struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	User        User       `gorm:"foreignKey:UserID" json:"user"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CoverImage  string     `json:"cover_image,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Place belongs to exactly one trip. OrderIndex is append-only: a new place
// gets max(order)+1 within its trip.
type Place struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TripID      uint       `gorm:"not null;index:idx_place_trip" json:"trip_id"`
	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description,omitempty"`
	Address     string     `json:"address,omitempty"`
	Location    GeoPoint   `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	VisitedAt   *time.Time `json:"visited_at,omitempty"`
	OrderIndex  int        `gorm:"not null;default:0" json:"order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Photo belongs to exactly one place, same ordering rule as Place.
type Photo struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	PlaceID      uint       `gorm:"not null;index:idx_photo_place" json:"place_id"`
	URL          string     `gorm:"not null" json:"url"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	Caption      string     `json:"caption,omitempty"`
	TakenAt      *time.Time `json:"taken_at,omitempty"`
	OrderIndex   int        `gorm:"not null;default:0" json:"order"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
