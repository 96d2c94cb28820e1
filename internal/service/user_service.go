package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"triplog/internal/models"
	"triplog/internal/repository"
	"triplog/internal/storage"

	"github.com/google/uuid"
)

const maxNicknameLen = 30

type UserService struct {
	userRepo repository.UserRepository
	store    storage.ObjectStore
}

type UpdateProfileInput struct {
	UserID       uint
	Name         *string
	Nickname     *string
	ProfileImage *ImageUpload
}

func NewUserService(userRepo repository.UserRepository, store storage.ObjectStore) *UserService {
	return &UserService{
		userRepo: userRepo,
		store:    store,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Nickname != nil {
		nickname := strings.TrimSpace(*in.Nickname)
		if nickname == "" {
			return nil, models.NewValidationError("Nickname cannot be empty")
		}
		if len(nickname) > maxNicknameLen {
			return nil, models.NewValidationError(fmt.Sprintf("Nickname too long (max %d characters)", maxNicknameLen))
		}
		user.Nickname = nickname
	}
	if in.ProfileImage != nil {
		ext := strings.ToLower(path.Ext(in.ProfileImage.Filename))
		if ext == "" {
			ext = ".jpg"
		}
		key := fmt.Sprintf("profiles/%s%s", uuid.New().String(), ext)
		url, err := s.store.Upload(ctx, key, in.ProfileImage.ContentType, in.ProfileImage.Body)
		if err != nil {
			return nil, models.NewUpstreamError("Profile image upload failed", err)
		}
		user.ProfileImage = url
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
