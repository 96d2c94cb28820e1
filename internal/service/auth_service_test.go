package service

import (
	"context"
	"testing"

	"triplog/internal/identity"
	"triplog/internal/models"
	"triplog/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthService(db *gorm.DB, verifier identity.Verifier) *AuthService {
	registry := identity.NewRegistry(map[string]identity.Verifier{
		models.ProviderGoogle: verifier,
		models.ProviderApple:  verifier,
	})
	return NewAuthService(repository.NewUserRepository(db), registry, testConfig())
}

func TestAuthService_SocialLoginCreatesAccount(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db, &stubVerifier{identity: &identity.Identity{
		Provider:   models.ProviderGoogle,
		ProviderID: "google-123",
		Email:      "new@example.com",
		Name:       "New Traveler",
	}})
	ctx := context.Background()

	result, err := svc.SocialLogin(ctx, SocialLoginInput{Provider: models.ProviderGoogle, IDToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "new@example.com", result.User.Email)
	assert.Equal(t, "New Traveler", result.User.Nickname)

	// Second login with the same identity reuses the account.
	again, err := svc.SocialLogin(ctx, SocialLoginInput{Provider: models.ProviderGoogle, IDToken: "token"})
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, again.User.ID)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAuthService_SocialLoginDerivesNicknameFromEmail(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db, &stubVerifier{identity: &identity.Identity{
		Provider:   models.ProviderApple,
		ProviderID: "apple-123",
		Email:      "wanderer@example.com",
		// Apple ID tokens carry no name.
	}})

	result, err := svc.SocialLogin(context.Background(), SocialLoginInput{Provider: models.ProviderApple, IDToken: "token"})
	require.NoError(t, err)
	assert.Equal(t, "wanderer", result.User.Nickname)
}

func TestAuthService_SocialLoginBackfillsProfile(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db, &stubVerifier{identity: &identity.Identity{
		Provider:   models.ProviderApple,
		ProviderID: "apple-123",
		Email:      "wanderer@example.com",
		// First authorization: no name, no picture.
	}})
	ctx := context.Background()

	first, err := svc.SocialLogin(ctx, SocialLoginInput{Provider: models.ProviderApple, IDToken: "token"})
	require.NoError(t, err)
	assert.Empty(t, first.User.Name)

	// A later login carries the profile; the empty fields get filled in.
	richer := newAuthService(db, &stubVerifier{identity: &identity.Identity{
		Provider:   models.ProviderApple,
		ProviderID: "apple-123",
		Email:      "wanderer@example.com",
		Name:       "Wan Derer",
		Picture:    "https://img.example.com/w.jpg",
	}})
	again, err := richer.SocialLogin(ctx, SocialLoginInput{Provider: models.ProviderApple, IDToken: "token"})
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, again.User.ID)
	assert.Equal(t, "Wan Derer", again.User.Name)
	assert.Equal(t, "https://img.example.com/w.jpg", again.User.ProfileImage)

	var stored models.User
	require.NoError(t, db.First(&stored, first.User.ID).Error)
	assert.Equal(t, "Wan Derer", stored.Name)
}

func TestAuthService_WithdrawDeletesAccount(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db, &stubVerifier{identity: &identity.Identity{
		Provider:   models.ProviderGoogle,
		ProviderID: "google-123",
		Email:      "leaver@example.com",
	}})
	ctx := context.Background()

	session, err := svc.SocialLogin(ctx, SocialLoginInput{Provider: models.ProviderGoogle, IDToken: "token"})
	require.NoError(t, err)

	require.NoError(t, svc.Withdraw(ctx, session.User.ID))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// The old session's refresh token dies with the account.
	_, err = svc.Refresh(ctx, session.RefreshToken)
	require.Error(t, err)

	err = svc.Withdraw(ctx, session.User.ID)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestAuthService_SocialLoginRefusesCrossProviderLink(t *testing.T) {
	db := setupTestDB(t)
	existing := createTestUser(t, db, "taken@example.com") // google account

	svc := newAuthService(db, &stubVerifier{identity: &identity.Identity{
		Provider:   models.ProviderApple,
		ProviderID: "apple-999",
		Email:      existing.Email,
	}})

	_, err := svc.SocialLogin(context.Background(), SocialLoginInput{Provider: models.ProviderApple, IDToken: "token"})
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeConflict, appErr.Code)
	assert.Contains(t, appErr.Message, models.ProviderGoogle)
}

func TestAuthService_SocialLoginUnknownProvider(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db, &stubVerifier{})

	_, err := svc.SocialLogin(context.Background(), SocialLoginInput{Provider: "facebook", IDToken: "token"})
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestAuthService_RefreshRotatesToken(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db, &stubVerifier{identity: &identity.Identity{
		Provider:   models.ProviderGoogle,
		ProviderID: "google-123",
		Email:      "user@example.com",
	}})
	ctx := context.Background()

	session, err := svc.SocialLogin(ctx, SocialLoginInput{Provider: models.ProviderGoogle, IDToken: "token"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	// Even when both tokens are minted within the same second, the new pair
	// must differ from the old.
	assert.NotEqual(t, session.RefreshToken, refreshed.RefreshToken)

	// The old refresh token was rotated out and no longer works.
	_, err = svc.Refresh(ctx, session.RefreshToken)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeUnauthorized, appErr.Code)
}

func TestAuthService_RefreshRejectsAccessToken(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db, &stubVerifier{identity: &identity.Identity{
		Provider:   models.ProviderGoogle,
		ProviderID: "google-123",
		Email:      "user@example.com",
	}})
	ctx := context.Background()

	session, err := svc.SocialLogin(ctx, SocialLoginInput{Provider: models.ProviderGoogle, IDToken: "token"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, session.AccessToken)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeUnauthorized, appErr.Code)
}

func TestAuthService_LogoutRevokesRefreshToken(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db, &stubVerifier{identity: &identity.Identity{
		Provider:   models.ProviderGoogle,
		ProviderID: "google-123",
		Email:      "user@example.com",
	}})
	ctx := context.Background()

	session, err := svc.SocialLogin(ctx, SocialLoginInput{Provider: models.ProviderGoogle, IDToken: "token"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, session.User.ID))

	_, err = svc.Refresh(ctx, session.RefreshToken)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeUnauthorized, appErr.Code)
}
