// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Auth providers accepted for social login.
const (
	ProviderApple  = "apple"
	ProviderGoogle = "google"
)

// User represents an account created through social login. The (provider,
// provider_id) pair identifies the account at the identity provider and is
// globally unique, as is the email address.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"unique;not null" json:"email"`
	Name         string    `json:"name"`
	Nickname     string    `gorm:"size:30" json:"nickname"`
	ProfileImage string    `json:"profile_image"`
	Provider     string    `gorm:"not null;uniqueIndex:idx_provider_identity" json:"provider"`
	ProviderID   string    `gorm:"not null;uniqueIndex:idx_provider_identity" json:"-"`
	RefreshToken *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AuthorSummary is the denormalized author projection attached to posts,
// comments and map items.
type AuthorSummary struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Nickname     string `json:"nickname,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// Summary projects the public fields of a user.
func (u *User) Summary() AuthorSummary {
	return AuthorSummary{
		ID:           u.ID,
		Name:         u.Name,
		Nickname:     u.Nickname,
		ProfileImage: u.ProfileImage,
	}
}

// RecommendationBookmark records that a user bookmarked a travel
// recommendation. RefID may be a local Recommendation id or a content id from
// the public tourism API, so it is stored as an opaque string.
type RecommendationBookmark struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_rec_bookmark" json:"-"`
	RefID     string    `gorm:"not null;uniqueIndex:idx_user_rec_bookmark" json:"ref_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Settings holds per-user preferences, created lazily with defaults on first
// read.
type Settings struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	UserID      uint      `gorm:"not null;unique" json:"-"`
	NotifyPush  bool      `gorm:"not null;default:true" json:"notify_push"`
	NotifyEmail bool      `gorm:"not null;default:false" json:"notify_email"`
	Theme       string    `gorm:"not null;default:light" json:"theme"`
	Language    string    `gorm:"not null;default:ko" json:"language"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings applied when a user has none stored.
func DefaultSettings(userID uint) *Settings {
	return &Settings{
		UserID:      userID,
		NotifyPush:  true,
		NotifyEmail: false,
		Theme:       "light",
		Language:    "ko",
	}
}
