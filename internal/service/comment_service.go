package service

import (
	"context"
	"strings"

	"triplog/internal/models"
	"triplog/internal/repository"
)

const maxCommentLen = 1000

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

type CreateCommentInput struct {
	PostID   uint
	AuthorID uint
	Content  string
	ParentID *uint
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

// CreateComment adds a comment or a reply. Threads are one level deep: a
// reply must target a top-level comment of the same post.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 1000 characters)")
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID, in.AuthorID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.AuthorID && (post.Visibility != models.VisibilityPublic || !post.IsPublished) {
		return nil, models.NewForbiddenError("You do not have access to this post")
	}

	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID, in.AuthorID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
		if parent.ParentID != nil {
			return nil, models.NewValidationError("Replies cannot be nested further")
		}
	}

	comment := &models.Comment{
		PostID:   in.PostID,
		AuthorID: in.AuthorID,
		Content:  content,
		ParentID: in.ParentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID, in.AuthorID)
}

func (s *CommentService) ListComments(ctx context.Context, postID, viewerID uint, page, limit int) ([]*models.Comment, models.Pagination, error) {
	post, err := s.postRepo.GetByID(ctx, postID, viewerID)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	if post.AuthorID != viewerID && (post.Visibility != models.VisibilityPublic || !post.IsPublished) {
		return nil, models.Pagination{}, models.NewForbiddenError("You do not have access to this post")
	}

	comments, total, err := s.commentRepo.ListByPost(ctx, postID, viewerID, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return comments, models.NewPagination(page, limit, total), nil
}

func (s *CommentService) UpdateComment(ctx context.Context, userID, commentID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 1000 characters)")
	}

	comment, err := s.commentRepo.GetByID(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != userID {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}
	if comment.IsDeleted {
		return nil, models.NewConflictError("Deleted comments cannot be edited")
	}

	comment.Content = content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment tombstones the comment; replies keep their thread position.
func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID, userID)
	if err != nil {
		return err
	}
	if comment.AuthorID != userID {
		return models.NewForbiddenError("You can only delete your own comments")
	}
	return s.commentRepo.SoftDelete(ctx, commentID)
}

func (s *CommentService) LikeComment(ctx context.Context, userID, commentID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}
	if comment.IsDeleted {
		return nil, models.NewConflictError("Deleted comments cannot be liked")
	}
	if err := s.commentRepo.Like(ctx, userID, commentID); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, commentID, userID)
}

func (s *CommentService) UnlikeComment(ctx context.Context, userID, commentID uint) (*models.Comment, error) {
	if _, err := s.commentRepo.GetByID(ctx, commentID, userID); err != nil {
		return nil, err
	}
	if err := s.commentRepo.Unlike(ctx, userID, commentID); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, commentID, userID)
}
