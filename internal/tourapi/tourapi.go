// Package tourapi wraps the Korean national tourism open API (KorService2).
// It normalizes the API's quirky envelope into flat item lists the
// recommendation service can serve directly.
package tourapi

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"triplog/internal/models"
	"triplog/internal/observability"

	"github.com/go-resty/resty/v2"
)

// Category names derived from the API's content type codes.
var contentTypeCategories = map[string]string{
	"12": "attraction",
	"14": "culture",
	"15": "festival",
	"25": "course",
	"28": "leisure",
	"32": "lodging",
	"38": "shopping",
	"39": "food",
}

// CategoryForContentType maps a content type code to a stable category name.
// Unknown codes come back as "etc" rather than an error; the upstream adds
// codes without notice.
func CategoryForContentType(code string) string {
	if c, ok := contentTypeCategories[code]; ok {
		return c
	}
	return "etc"
}

// Item is one tourism entry in normalized form.
type Item struct {
	ContentID     string `json:"content_id"`
	ContentTypeID string `json:"content_type_id"`
	Category      string `json:"category"`
	Title         string `json:"title"`
	Address       string `json:"address,omitempty"`
	Image         string `json:"image,omitempty"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	MapX          string `json:"longitude,omitempty"`
	MapY          string `json:"latitude,omitempty"`
	Tel           string `json:"tel,omitempty"`
	Overview      string `json:"overview,omitempty"`
}

// Page is one page of tourism items with the upstream's own paging counters.
type Page struct {
	Items      []Item `json:"items"`
	PageNo     int    `json:"page_no"`
	NumOfRows  int    `json:"num_of_rows"`
	TotalCount int    `json:"total_count"`
}

// rawItem mirrors the upstream field names.
type rawItem struct {
	ContentID     string `json:"contentid"`
	ContentTypeID string `json:"contenttypeid"`
	Title         string `json:"title"`
	Addr1         string `json:"addr1"`
	FirstImage    string `json:"firstimage"`
	FirstImage2   string `json:"firstimage2"`
	MapX          string `json:"mapx"`
	MapY          string `json:"mapy"`
	Tel           string `json:"tel"`
	Overview      string `json:"overview"`
}

// rawItems tolerates the upstream's three encodings of "items": an object with
// an item array, an object with a single item object, or an empty string when
// there are no results.
type rawItems struct {
	Item []rawItem
}

func (ri *rawItems) UnmarshalJSON(data []byte) error {
	var empty string
	if err := json.Unmarshal(data, &empty); err == nil {
		return nil
	}

	var multi struct {
		Item []rawItem `json:"item"`
	}
	if err := json.Unmarshal(data, &multi); err == nil {
		ri.Item = multi.Item
		return nil
	}

	var single struct {
		Item rawItem `json:"item"`
	}
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	ri.Item = []rawItem{single.Item}
	return nil
}

type envelope struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			Items      rawItems `json:"items"`
			NumOfRows  int      `json:"numOfRows"`
			PageNo     int      `json:"pageNo"`
			TotalCount int      `json:"totalCount"`
		} `json:"body"`
	} `json:"response"`
}

// Client calls the KorService2 endpoints.
type Client struct {
	http *resty.Client
}

// NewClient builds a client against the given base URL with the common
// parameters every KorService2 call requires.
func NewClient(baseURL, serviceKey string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetQueryParams(map[string]string{
			"serviceKey": serviceKey,
			"MobileOS":   "ETC",
			"MobileApp":  "TripLogApp",
			"_type":      "json",
		})
	return &Client{http: http}
}

// AreaBasedList lists items for an area code, optionally narrowed by content
// type.
func (c *Client) AreaBasedList(ctx context.Context, areaCode, contentTypeID string, pageNo, numOfRows int) (*Page, error) {
	params := map[string]string{
		"pageNo":    strconv.Itoa(pageNo),
		"numOfRows": strconv.Itoa(numOfRows),
		"arrange":   "Q",
	}
	if areaCode != "" {
		params["areaCode"] = areaCode
	}
	if contentTypeID != "" {
		params["contentTypeId"] = contentTypeID
	}
	return c.fetchPage(ctx, "/areaBasedList2", params)
}

// SearchKeyword searches items by keyword, optionally narrowed by content
// type.
func (c *Client) SearchKeyword(ctx context.Context, keyword, contentTypeID string, pageNo, numOfRows int) (*Page, error) {
	params := map[string]string{
		"keyword":   keyword,
		"pageNo":    strconv.Itoa(pageNo),
		"numOfRows": strconv.Itoa(numOfRows),
		"arrange":   "Q",
	}
	if contentTypeID != "" {
		params["contentTypeId"] = contentTypeID
	}
	return c.fetchPage(ctx, "/searchKeyword2", params)
}

// Detail fetches the common detail record for one content ID.
func (c *Client) Detail(ctx context.Context, contentID string) (*Item, error) {
	page, err := c.fetchPage(ctx, "/detailCommon2", map[string]string{
		"contentId": contentID,
	})
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, models.NewNotFoundError("Tour content", contentID)
	}
	return &page.Items[0], nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, params map[string]string) (*Page, error) {
	var env envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&env).
		// The upstream labels JSON bodies text/plain now and then; decode
		// regardless of the advertised content type.
		ForceContentType("application/json").
		Get(endpoint)
	observability.RecordTourAPIRequest(endpoint, err)
	if err != nil {
		return nil, models.NewUpstreamError("Tourism API request failed", err)
	}
	if resp.IsError() {
		return nil, models.NewUpstreamError("Tourism API returned status "+resp.Status(), nil)
	}
	if code := env.Response.Header.ResultCode; code != "" && code != "0000" {
		return nil, models.NewUpstreamError("Tourism API error: "+env.Response.Header.ResultMsg, nil)
	}

	items := make([]Item, 0, len(env.Response.Body.Items.Item))
	for _, raw := range env.Response.Body.Items.Item {
		items = append(items, Item{
			ContentID:     raw.ContentID,
			ContentTypeID: raw.ContentTypeID,
			Category:      CategoryForContentType(raw.ContentTypeID),
			Title:         raw.Title,
			Address:       raw.Addr1,
			Image:         raw.FirstImage,
			Thumbnail:     raw.FirstImage2,
			MapX:          raw.MapX,
			MapY:          raw.MapY,
			Tel:           raw.Tel,
			Overview:      raw.Overview,
		})
	}

	return &Page{
		Items:      items,
		PageNo:     env.Response.Body.PageNo,
		NumOfRows:  env.Response.Body.NumOfRows,
		TotalCount: env.Response.Body.TotalCount,
	}, nil
}
