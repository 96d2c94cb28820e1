package service

import (
	"context"
	"testing"

	"triplog/internal/cache"
	"triplog/internal/models"
	"triplog/internal/repository"
	"triplog/internal/tourapi"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTourClient counts calls so tests can assert cache hits.
type stubTourClient struct {
	page  *tourapi.Page
	item  *tourapi.Item
	calls int
}

func (s *stubTourClient) AreaBasedList(ctx context.Context, areaCode, contentTypeID string, pageNo, numOfRows int) (*tourapi.Page, error) {
	s.calls++
	return s.page, nil
}

func (s *stubTourClient) SearchKeyword(ctx context.Context, keyword, contentTypeID string, pageNo, numOfRows int) (*tourapi.Page, error) {
	s.calls++
	return s.page, nil
}

func (s *stubTourClient) Detail(ctx context.Context, contentID string) (*tourapi.Item, error) {
	s.calls++
	return s.item, nil
}

func useMiniredis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })
}

func TestRecommendationService_TourByAreaCaches(t *testing.T) {
	useMiniredis(t)
	db := setupTestDB(t)

	stub := &stubTourClient{page: &tourapi.Page{
		Items:      []tourapi.Item{{ContentID: "126508", Title: "Gyeongbokgung", Category: "attraction"}},
		PageNo:     1,
		NumOfRows:  10,
		TotalCount: 1,
	}}
	svc := NewRecommendationService(repository.NewRecommendationRepository(db), stub)
	ctx := context.Background()

	page, err := svc.TourByArea(ctx, "1", "12", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, stub.calls)

	// Second identical request is served from the cache.
	page, err = svc.TourByArea(ctx, "1", "12", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, stub.calls)

	// A different page misses the cache.
	_, err = svc.TourByArea(ctx, "1", "12", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls)
}

func TestRecommendationService_TourSearchRequiresKeyword(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRecommendationService(repository.NewRecommendationRepository(db), &stubTourClient{})

	_, err := svc.TourSearch(context.Background(), "   ", "", 1, 10)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestRecommendationService_TourDetailCaches(t *testing.T) {
	useMiniredis(t)
	db := setupTestDB(t)

	stub := &stubTourClient{item: &tourapi.Item{ContentID: "126508", Title: "Gyeongbokgung"}}
	svc := NewRecommendationService(repository.NewRecommendationRepository(db), stub)
	ctx := context.Background()

	item, err := svc.TourDetail(ctx, "126508")
	require.NoError(t, err)
	assert.Equal(t, "Gyeongbokgung", item.Title)

	_, err = svc.TourDetail(ctx, "126508")
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
}

func TestRecommendationService_ToggleBookmark(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRecommendationService(repository.NewRecommendationRepository(db), &stubTourClient{})
	ctx := context.Background()

	user := createTestUser(t, db, "user@example.com")

	result, err := svc.ToggleBookmark(ctx, user.ID, "126508")
	require.NoError(t, err)
	assert.True(t, result.Bookmarked)
	assert.Equal(t, "126508", result.RefID)
	assert.Equal(t, int64(1), result.BookmarkCount)

	result, err = svc.ToggleBookmark(ctx, user.ID, "126508")
	require.NoError(t, err)
	assert.False(t, result.Bookmarked)
	assert.Equal(t, int64(0), result.BookmarkCount)

	_, err = svc.ToggleBookmark(ctx, user.ID, "  ")
	require.Error(t, err)
}

func TestRecommendationService_CheckAndClearBookmarks(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRecommendationService(repository.NewRecommendationRepository(db), &stubTourClient{})
	ctx := context.Background()

	user := createTestUser(t, db, "user@example.com")

	_, err := svc.ToggleBookmark(ctx, user.ID, "126508")
	require.NoError(t, err)
	_, err = svc.ToggleBookmark(ctx, user.ID, "264337")
	require.NoError(t, err)

	status, err := svc.CheckBookmark(ctx, user.ID, "126508")
	require.NoError(t, err)
	assert.True(t, status.Bookmarked)
	assert.Equal(t, "126508", status.RefID)

	status, err = svc.CheckBookmark(ctx, user.ID, "999999")
	require.NoError(t, err)
	assert.False(t, status.Bookmarked)

	_, err = svc.CheckBookmark(ctx, user.ID, "  ")
	require.Error(t, err)

	removed, err := svc.ClearBookmarks(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	status, err = svc.CheckBookmark(ctx, user.ID, "126508")
	require.NoError(t, err)
	assert.False(t, status.Bookmarked)
}

func TestRecommendationService_ListRecommendations(t *testing.T) {
	db := setupTestDB(t)
	recRepo := repository.NewRecommendationRepository(db)
	svc := NewRecommendationService(recRepo, &stubTourClient{})
	ctx := context.Background()

	require.NoError(t, recRepo.Create(ctx, &models.Recommendation{
		Title: "Gyeongbokgung", Category: "attraction", IsPublished: true,
	}))
	require.NoError(t, recRepo.Create(ctx, &models.Recommendation{
		Title: "Gwangjang Market", Category: "food", IsPublished: true,
	}))

	recs, pagination, err := svc.ListRecommendations(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, int64(2), pagination.Total)

	recs, _, err = svc.ListRecommendations(ctx, "food", 1, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Gwangjang Market", recs[0].Title)
}
