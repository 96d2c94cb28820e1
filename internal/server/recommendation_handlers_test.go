package server

import (
	"net/http"
	"testing"

	"triplog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tourPageBody struct {
	Items []struct {
		ContentID string `json:"content_id"`
		Category  string `json:"category"`
		Title     string `json:"title"`
	} `json:"items"`
	TotalCount int `json:"total_count"`
}

func TestTourEndpoints(t *testing.T) {
	env := setupTestServer(t)

	// Area listing requires an area code.
	resp := env.request(t, http.MethodGet, "/api/recommendations/tour/area", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/recommendations/tour/area?area_code=1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page tourPageBody
	decodeBody(t, resp, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Gyeongbokgung", page.Items[0].Title)
	assert.Equal(t, "attraction", page.Items[0].Category)

	// Keyword search requires a keyword.
	resp = env.request(t, http.MethodGet, "/api/recommendations/tour/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/recommendations/tour/search?keyword=palace", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &page)
	assert.Len(t, page.Items, 1)

	resp = env.request(t, http.MethodGet, "/api/recommendations/tour/126508", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var item struct {
		ContentID string `json:"content_id"`
		Title     string `json:"title"`
	}
	decodeBody(t, resp, &item)
	assert.Equal(t, "126508", item.ContentID)
}

func TestRecommendationBookmarkToggle(t *testing.T) {
	env := setupTestServer(t)
	token, _ := env.login(t, "alice-token")

	var result struct {
		RefID         string `json:"ref_id"`
		Bookmarked    bool   `json:"bookmarked"`
		BookmarkCount int64  `json:"bookmark_count"`
	}

	resp := env.request(t, http.MethodPost, "/api/recommendations/126508/bookmark", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &result)
	assert.Equal(t, "126508", result.RefID)
	assert.True(t, result.Bookmarked)
	assert.Equal(t, int64(1), result.BookmarkCount)

	// A second toggle removes the bookmark.
	resp = env.request(t, http.MethodPost, "/api/recommendations/126508/bookmark", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &result)
	assert.False(t, result.Bookmarked)
	assert.Equal(t, int64(0), result.BookmarkCount)
}

func TestRecommendationBookmarkCheckAndClear(t *testing.T) {
	env := setupTestServer(t)
	token, _ := env.login(t, "alice-token")

	resp := env.request(t, http.MethodPost, "/api/recommendations/126508/bookmark", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.request(t, http.MethodPost, "/api/recommendations/264337/bookmark", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		RefID      string `json:"ref_id"`
		Bookmarked bool   `json:"bookmarked"`
	}
	resp = env.request(t, http.MethodGet, "/api/recommendations/bookmarks/check/126508", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &status)
	assert.Equal(t, "126508", status.RefID)
	assert.True(t, status.Bookmarked)

	resp = env.request(t, http.MethodGet, "/api/recommendations/bookmarks/check/999999", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &status)
	assert.False(t, status.Bookmarked)

	var cleared struct {
		Removed int64 `json:"removed"`
	}
	resp = env.request(t, http.MethodDelete, "/api/recommendations/bookmarks", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &cleared)
	assert.Equal(t, int64(2), cleared.Removed)

	resp = env.request(t, http.MethodGet, "/api/recommendations/bookmarks/check/126508", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &status)
	assert.False(t, status.Bookmarked)
}

func TestCuratedRecommendations(t *testing.T) {
	env := setupTestServer(t)

	recs := []*models.Recommendation{
		{Title: "Bukchon Hanok Village", Category: "attraction", IsPublished: true},
		{Title: "Gwangjang Market", Category: "food", IsPublished: true},
		{Title: "Unfinished draft", Category: "food", IsPublished: false},
	}
	for _, rec := range recs {
		require.NoError(t, env.db.Create(rec).Error)
	}

	var page struct {
		Data []struct {
			Title    string `json:"title"`
			Category string `json:"category"`
		} `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}

	resp := env.request(t, http.MethodGet, "/api/recommendations", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &page)
	assert.Equal(t, int64(2), page.Pagination.Total)

	resp = env.request(t, http.MethodGet, "/api/recommendations?category=food", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Gwangjang Market", page.Data[0].Title)
}
