package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"triplog/internal/config"
	"triplog/internal/database"
	"triplog/internal/identity"
	"triplog/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.AllModels()...))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret",
		JWTRefreshSecret: "test-refresh-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
	}
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

// fakeStore is an in-memory ObjectStore.
type fakeStore struct {
	mu         sync.Mutex
	objects    map[string]bool
	failUpload bool
}

const fakeStoreBaseURL = "https://cdn.test/"

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]bool)}
}

func (f *fakeStore) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if f.failUpload {
		return "", io.ErrUnexpectedEOF
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = true
	return fakeStoreBaseURL + key, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) KeyFromURL(url string) (string, bool) {
	if strings.HasPrefix(url, fakeStoreBaseURL) {
		return strings.TrimPrefix(url, fakeStoreBaseURL), true
	}
	return "", false
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// stubVerifier returns a fixed identity for any token.
type stubVerifier struct {
	identity *identity.Identity
	err      error
}

func (s *stubVerifier) Verify(ctx context.Context, idToken string) (*identity.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}
