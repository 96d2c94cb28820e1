package models

import "time"

// Recommendation is a curated travel suggestion stored locally. Items fetched
// live from the public tourism API are mapped into the same shape but never
// persisted; see the tourapi package.
type Recommendation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Category    string    `gorm:"not null;index:idx_rec_category" json:"category"`
	Region      string    `json:"region,omitempty"`
	Tags        []string  `gorm:"serializer:json" json:"tags"`
	CoverImage  string    `json:"cover_image,omitempty"`
	// No column default: GORM omits zero-valued fields that have one, which
	// would persist an unpublished draft as published.
	IsPublished bool      `gorm:"not null" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
