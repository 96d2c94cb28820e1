package models

import "time"

// DeletedCommentContent replaces the content of a soft-deleted comment.
const DeletedCommentContent = "This comment has been deleted."

// Comment belongs to a post and may reply to one top-level comment (a single
// level of nesting). Comments are soft-deleted: the row stays, content is
// replaced with the tombstone and the comment becomes immutable.
type Comment struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	PostID    uint   `gorm:"not null;index:idx_comment_post" json:"post_id"`
	AuthorID  uint   `gorm:"not null;index" json:"author_id"`
	Author    User   `gorm:"foreignKey:AuthorID" json:"author"`
	Content   string `gorm:"size:1000;not null" json:"content"`
	ParentID  *uint  `gorm:"index" json:"parent_id,omitempty"`
	LikeCount int    `gorm:"not null;default:0" json:"like_count"`
	// IsLiked is not persisted; computed per viewer at query time.
	IsLiked   bool `gorm:"->" json:"is_liked"`
	IsDeleted bool `gorm:"not null;default:false" json:"is_deleted"`
	// Replies holds the direct replies of a top-level comment, oldest first.
	Replies   []*Comment `gorm:"-" json:"replies,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CommentLike is one user's like on a comment.
type CommentLike struct {
	ID        uint `gorm:"primaryKey"`
	CommentID uint `gorm:"not null;uniqueIndex:idx_comment_like"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_comment_like"`
	CreatedAt time.Time
}
