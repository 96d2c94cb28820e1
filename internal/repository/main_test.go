package repository

import (
	"testing"

	"triplog/internal/database"
	"triplog/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory sqlite database migrated with the full
// schema. Each test gets its own database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.AllModels()...))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:      email,
		Name:       "Test User",
		Nickname:   "tester",
		Provider:   models.ProviderGoogle,
		ProviderID: "google-" + email,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestPost(t *testing.T, db *gorm.DB, authorID uint, visibility models.Visibility, published bool) *models.Post {
	t.Helper()
	post := &models.Post{
		AuthorID:    authorID,
		Content:     "test content",
		Visibility:  visibility,
		IsPublished: published,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}
