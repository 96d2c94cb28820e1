package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"triplog/internal/cache"
	"triplog/internal/config"
	"triplog/internal/database"
	"triplog/internal/identity"
	"triplog/internal/middleware"
	"triplog/internal/models"
	"triplog/internal/tourapi"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeStore is an in-memory object store for handler tests.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]bool
}

const fakeStoreBaseURL = "https://cdn.test/"

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]bool)}
}

func (f *fakeStore) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
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

// mapVerifier resolves ID tokens through a fixed token -> identity table, so a
// test can log in as several distinct users.
type mapVerifier struct {
	identities map[string]*identity.Identity
}

func (m *mapVerifier) Verify(ctx context.Context, idToken string) (*identity.Identity, error) {
	if ident, ok := m.identities[idToken]; ok {
		return ident, nil
	}
	return nil, models.NewUnauthorizedError("Invalid ID token")
}

// stubTourClient serves a canned page for every tour endpoint.
type stubTourClient struct {
	page *tourapi.Page
}

func (s *stubTourClient) AreaBasedList(ctx context.Context, areaCode, contentTypeID string, pageNo, numOfRows int) (*tourapi.Page, error) {
	return s.page, nil
}

func (s *stubTourClient) SearchKeyword(ctx context.Context, keyword, contentTypeID string, pageNo, numOfRows int) (*tourapi.Page, error) {
	return s.page, nil
}

func (s *stubTourClient) Detail(ctx context.Context, contentID string) (*tourapi.Item, error) {
	if len(s.page.Items) == 0 {
		return nil, models.NewNotFoundError("Tour content", contentID)
	}
	return &s.page.Items[0], nil
}

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	store *fakeStore
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Port:             "0",
		JWTSecret:        "test-secret",
		JWTRefreshSecret: "test-refresh-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
	}
	middleware.InitMiddleware(cfg)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.AllModels()...))

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(redisClient)
	t.Cleanup(func() { cache.SetClient(nil) })

	store := newFakeStore()
	verifier := identity.NewRegistry(map[string]identity.Verifier{
		models.ProviderGoogle: &mapVerifier{identities: map[string]*identity.Identity{
			"alice-token": {Provider: models.ProviderGoogle, ProviderID: "g-alice", Email: "alice@example.com", Name: "Alice"},
			"bob-token":   {Provider: models.ProviderGoogle, ProviderID: "g-bob", Email: "bob@example.com", Name: "Bob"},
		}},
	})
	tour := &stubTourClient{page: &tourapi.Page{
		Items: []tourapi.Item{{
			ContentID:     "126508",
			ContentTypeID: "12",
			Category:      "attraction",
			Title:         "Gyeongbokgung",
		}},
		PageNo:     1,
		NumOfRows:  10,
		TotalCount: 1,
	}}

	srv, err := NewServerWithDeps(cfg, db, redisClient, store, verifier, tour)
	require.NoError(t, err)

	return &testEnv{app: srv.App(), db: db, store: store}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// login exchanges a stub ID token for an access token.
func (e *testEnv) login(t *testing.T, idToken string) (string, uint) {
	t.Helper()
	resp := e.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"provider": models.ProviderGoogle,
		"id_token": idToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		User        models.User `json:"user"`
		AccessToken string      `json:"access_token"`
	}
	decodeBody(t, resp, &result)
	require.NotEmpty(t, result.AccessToken)
	return result.AccessToken, result.User.ID
}

// createPost posts a multipart form with the given fields and one image file
// per name in imageNames.
func (e *testEnv) createPost(t *testing.T, token string, fields map[string]string, imageNames ...string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	for _, name := range imageNames {
		fw, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fmt.Fprint(fw, "fake image bytes")
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
