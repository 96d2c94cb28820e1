package tourapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"triplog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryForContentType(t *testing.T) {
	assert.Equal(t, "attraction", CategoryForContentType("12"))
	assert.Equal(t, "food", CategoryForContentType("39"))
	assert.Equal(t, "etc", CategoryForContentType("99"))
	assert.Equal(t, "etc", CategoryForContentType(""))
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key")
}

func envelopeJSON(body string) string {
	return fmt.Sprintf(`{"response":{"header":{"resultCode":"0000","resultMsg":"OK"},"body":%s}}`, body)
}

func TestClient_AreaBasedList(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/areaBasedList2", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("serviceKey"))
		assert.Equal(t, "json", q.Get("_type"))
		assert.Equal(t, "ETC", q.Get("MobileOS"))
		assert.Equal(t, "1", q.Get("areaCode"))
		assert.Equal(t, "12", q.Get("contentTypeId"))

		fmt.Fprint(w, envelopeJSON(`{
			"items":{"item":[
				{"contentid":"126508","contenttypeid":"12","title":"Gyeongbokgung","addr1":"Seoul","mapx":"126.977","mapy":"37.579"},
				{"contentid":"2733967","contenttypeid":"39","title":"Gwangjang Market"}
			]},
			"numOfRows":10,"pageNo":1,"totalCount":2
		}`))
	})

	page, err := client.AreaBasedList(context.Background(), "1", "12", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "126508", page.Items[0].ContentID)
	assert.Equal(t, "attraction", page.Items[0].Category)
	assert.Equal(t, "food", page.Items[1].Category)
}

func TestClient_SingleItemObject(t *testing.T) {
	// The upstream serializes a one-element result as a bare object.
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, envelopeJSON(`{
			"items":{"item":{"contentid":"126508","contenttypeid":"12","title":"Gyeongbokgung"}},
			"numOfRows":10,"pageNo":1,"totalCount":1
		}`))
	})

	page, err := client.SearchKeyword(context.Background(), "Gyeongbokgung", "", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Gyeongbokgung", page.Items[0].Title)
}

func TestClient_EmptyItemsString(t *testing.T) {
	// No results come back as "items": "".
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, envelopeJSON(`{"items":"","numOfRows":10,"pageNo":1,"totalCount":0}`))
	})

	page, err := client.SearchKeyword(context.Background(), "nowhere", "", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.TotalCount)
}

func TestClient_DecodesMislabeledContentType(t *testing.T) {
	// The upstream sometimes labels JSON bodies text/plain; the response must
	// decode anyway.
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, envelopeJSON(`{
			"items":{"item":[{"contentid":"126508","contenttypeid":"12","title":"Gyeongbokgung"}]},
			"numOfRows":10,"pageNo":1,"totalCount":1
		}`))
	})

	page, err := client.AreaBasedList(context.Background(), "1", "12", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Gyeongbokgung", page.Items[0].Title)
}

func TestClient_UpstreamErrorCode(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":{"header":{"resultCode":"0030","resultMsg":"SERVICE KEY IS NOT REGISTERED"},"body":""}}`)
	})

	_, err := client.AreaBasedList(context.Background(), "1", "", 1, 10)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeUpstream, appErr.Code)
}

func TestClient_DetailNotFound(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detailCommon2", r.URL.Path)
		fmt.Fprint(w, envelopeJSON(`{"items":"","numOfRows":10,"pageNo":1,"totalCount":0}`))
	})

	_, err := client.Detail(context.Background(), "999999")
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestClient_Detail(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "126508", r.URL.Query().Get("contentId"))
		fmt.Fprint(w, envelopeJSON(`{
			"items":{"item":[{"contentid":"126508","contenttypeid":"12","title":"Gyeongbokgung","overview":"The main royal palace of the Joseon dynasty."}]},
			"numOfRows":1,"pageNo":1,"totalCount":1
		}`))
	})

	item, err := client.Detail(context.Background(), "126508")
	require.NoError(t, err)
	assert.Equal(t, "Gyeongbokgung", item.Title)
	assert.Contains(t, item.Overview, "Joseon")
}
