package repository

import (
	"context"
	"testing"

	"triplog/internal/cache"
	"triplog/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByProviderIdentity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "user@example.com")

	got, err := repo.GetByProviderIdentity(ctx, user.Provider, user.ProviderID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)

	// Unknown identity is not an error; the caller decides whether to sign up.
	got, err = repo.GetByProviderIdentity(ctx, models.ProviderApple, "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createTestUser(t, db, "taken@example.com")

	err := repo.Create(ctx, &models.User{
		Email:      "taken@example.com",
		Provider:   models.ProviderApple,
		ProviderID: "apple-123",
	})
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeConflict, appErr.Code)
}

func TestUserRepository_UpdateRefreshToken(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "user@example.com")

	token := "refresh-token"
	require.NoError(t, repo.UpdateRefreshToken(ctx, user.ID, &token))

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, token, *got.RefreshToken)

	require.NoError(t, repo.UpdateRefreshToken(ctx, user.ID, nil))
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.Nil(t, got.RefreshToken)
}

// The user cache must round-trip the fields the JSON response hides;
// otherwise a cache hit hands back a user without a refresh token and every
// session refresh after a profile read fails.
func TestUserRepository_GetByIDCacheKeepsHiddenFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	user := createTestUser(t, db, "user@example.com")
	token := "refresh-token"
	require.NoError(t, repo.UpdateRefreshToken(ctx, user.ID, &token))

	// First read populates the cache, second read is served from it.
	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, token, *got.RefreshToken)
	assert.Equal(t, user.ProviderID, got.ProviderID)

	// Rotation invalidates the cached copy immediately.
	rotated := "rotated-token"
	require.NoError(t, repo.UpdateRefreshToken(ctx, user.ID, &rotated))

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, rotated, *got.RefreshToken)
}

func TestUserRepository_GetSummariesByIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")

	summaries, err := repo.GetSummariesByIDs(ctx, []uint{a.ID, b.ID, 9999})
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
	assert.Equal(t, a.Name, summaries[a.ID].Name)
	_, ok := summaries[9999]
	assert.False(t, ok)
}
