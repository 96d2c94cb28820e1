package models

import (
	"encoding/json"
	"time"
)

// Visibility controls who may see a post.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is one of the accepted visibility values.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFriends, VisibilityPrivate:
		return true
	}
	return false
}

// GeoPoint is a named location with optional coordinates. Latitude and
// Longitude are pointers so that "no coordinates" is distinguishable from
// (0, 0).
type GeoPoint struct {
	Name      string   `json:"name,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
}

// HasCoordinates reports whether both coordinates are present.
func (g GeoPoint) HasCoordinates() bool {
	return g.Latitude != nil && g.Longitude != nil
}

// Post is a feed entry. Like/bookmark membership lives in post_likes and
// post_bookmarks rows which are never loaded onto this struct; the API only
// ever sees the denormalized counters plus the viewer-relative IsLiked and
// IsBookmarked booleans computed at query time.
type Post struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	AuthorID       uint        `gorm:"not null;index" json:"author_id"`
	Author         User        `gorm:"foreignKey:AuthorID" json:"author"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	Images         []PostImage `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"images"`
	Location       GeoPoint    `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	RelatedTripID  *uint       `gorm:"index" json:"related_trip_id,omitempty"`
	RelatedPlaceID *uint       `gorm:"index" json:"related_place_id,omitempty"`
	Tags           []PostTag   `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"tags"`
	Visibility     Visibility  `gorm:"not null;default:public" json:"visibility"`
	LikeCount      int         `gorm:"not null;default:0" json:"like_count"`
	CommentCount   int         `gorm:"not null;default:0" json:"comment_count"`
	BookmarkCount  int         `gorm:"not null;default:0" json:"bookmark_count"`
	ViewCount      int         `gorm:"not null;default:0" json:"view_count"`
	IsPublished    bool        `gorm:"not null;default:false" json:"is_published"`
	PublishedAt    *time.Time  `json:"published_at,omitempty"`
	// IsLiked and IsBookmarked are not persisted; computed per viewer at query time.
	IsLiked      bool      `gorm:"->" json:"is_liked"`
	IsBookmarked bool      `gorm:"->" json:"is_bookmarked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PostImage is one image attached to a post, ordered by OrderIndex. Each
// image may carry its own capture location, which drives the map view.
type PostImage struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	PostID      uint       `gorm:"not null;index" json:"-"`
	URL         string     `gorm:"not null" json:"url"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	OrderIndex  int        `gorm:"not null;default:0" json:"order"`
	Location    GeoPoint   `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	CapturedAt  *time.Time `json:"captured_at,omitempty"`
	Description string     `json:"description,omitempty"`
}

// PostTag is one lowercased tag on a post. It serializes as a bare string so
// clients see "tags": ["seoul", "food"].
type PostTag struct {
	ID     uint   `gorm:"primaryKey"`
	PostID uint   `gorm:"not null;uniqueIndex:idx_post_tag"`
	Name   string `gorm:"not null;uniqueIndex:idx_post_tag"`
}

func (t PostTag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Name)
}

func (t *PostTag) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &t.Name)
}

// PostLike is one user's like on a post; the unique index makes the
// precondition-and-insert a single atomic statement.
type PostLike struct {
	ID        uint `gorm:"primaryKey"`
	PostID    uint `gorm:"not null;uniqueIndex:idx_post_like"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_post_like"`
	CreatedAt time.Time
}

// PostBookmark is one user's bookmark of a post.
type PostBookmark struct {
	ID        uint `gorm:"primaryKey"`
	PostID    uint `gorm:"not null;uniqueIndex:idx_post_bookmark"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_post_bookmark"`
	CreatedAt time.Time
}

// MapPhoto is the per-image payload of a map item.
type MapPhoto struct {
	URL         string     `json:"url"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Location    GeoPoint   `json:"location"`
	CapturedAt  *time.Time `json:"captured_at,omitempty"`
	Description string     `json:"description,omitempty"`
}

// MapItem is one flattened entry of the map view: a single located image of a
// post together with its author summary. A post with three located images in
// the viewport yields three items.
type MapItem struct {
	PostID    uint          `json:"post_id"`
	Photo     MapPhoto      `json:"photo"`
	Author    AuthorSummary `json:"author"`
	CreatedAt time.Time     `json:"created_at"`
}
