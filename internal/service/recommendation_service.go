package service

import (
	"context"
	"strings"

	"triplog/internal/cache"
	"triplog/internal/models"
	"triplog/internal/repository"
	"triplog/internal/tourapi"
)

// TourClient is the subset of the tourism API client the service uses; tests
// substitute a stub.
type TourClient interface {
	AreaBasedList(ctx context.Context, areaCode, contentTypeID string, pageNo, numOfRows int) (*tourapi.Page, error)
	SearchKeyword(ctx context.Context, keyword, contentTypeID string, pageNo, numOfRows int) (*tourapi.Page, error)
	Detail(ctx context.Context, contentID string) (*tourapi.Item, error)
}

// RecommendationService serves curated recommendations from the local store
// and live tourism data from the upstream API, both behind Redis caching.
type RecommendationService struct {
	recRepo repository.RecommendationRepository
	tour    TourClient
}

// BookmarkToggleResult reports whether the net effect of a toggle was an
// addition or a removal, plus the user's resulting bookmark count.
type BookmarkToggleResult struct {
	RefID         string `json:"ref_id"`
	Bookmarked    bool   `json:"bookmarked"`
	BookmarkCount int64  `json:"bookmark_count"`
}

// BookmarkStatus reports whether one reference is bookmarked.
type BookmarkStatus struct {
	RefID      string `json:"ref_id"`
	Bookmarked bool   `json:"bookmarked"`
}

func NewRecommendationService(recRepo repository.RecommendationRepository, tour TourClient) *RecommendationService {
	return &RecommendationService{
		recRepo: recRepo,
		tour:    tour,
	}
}

func (s *RecommendationService) ListRecommendations(ctx context.Context, category string, page, limit int) ([]*models.Recommendation, models.Pagination, error) {
	type cached struct {
		Recs       []*models.Recommendation `json:"recs"`
		Pagination models.Pagination        `json:"pagination"`
	}

	var result cached
	key := cache.RecommendationsListKey(category, page, limit)
	err := cache.CacheAside(ctx, key, &result, cache.RecommendationsTTL, func() error {
		recs, total, err := s.recRepo.List(ctx, category, limit, (page-1)*limit)
		if err != nil {
			return err
		}
		result = cached{Recs: recs, Pagination: models.NewPagination(page, limit, total)}
		return nil
	})
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return result.Recs, result.Pagination, nil
}

func (s *RecommendationService) GetRecommendation(ctx context.Context, id uint) (*models.Recommendation, error) {
	return s.recRepo.GetByID(ctx, id)
}

// TourByArea proxies the area listing. Pages are cached because the upstream
// is slow and rate-limited; staleness of a few minutes is acceptable for
// tourism data.
func (s *RecommendationService) TourByArea(ctx context.Context, areaCode, contentTypeID string, page, limit int) (*tourapi.Page, error) {
	var result tourapi.Page
	key := cache.TourAreaKey(areaCode, contentTypeID, page, limit)
	err := cache.CacheAside(ctx, key, &result, cache.TourListTTL, func() error {
		fetched, err := s.tour.AreaBasedList(ctx, areaCode, contentTypeID, page, limit)
		if err != nil {
			return err
		}
		result = *fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *RecommendationService) TourSearch(ctx context.Context, keyword, contentTypeID string, page, limit int) (*tourapi.Page, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, models.NewValidationError("Search keyword is required")
	}

	var result tourapi.Page
	key := cache.TourSearchKey(keyword, contentTypeID, page, limit)
	err := cache.CacheAside(ctx, key, &result, cache.TourListTTL, func() error {
		fetched, err := s.tour.SearchKeyword(ctx, keyword, contentTypeID, page, limit)
		if err != nil {
			return err
		}
		result = *fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *RecommendationService) TourDetail(ctx context.Context, contentID string) (*tourapi.Item, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return nil, models.NewValidationError("Content ID is required")
	}

	var result tourapi.Item
	key := cache.TourDetailKey(contentID)
	err := cache.CacheAside(ctx, key, &result, cache.TourDetailTTL, func() error {
		fetched, err := s.tour.Detail(ctx, contentID)
		if err != nil {
			return err
		}
		result = *fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ToggleBookmark flips the bookmark for a recommendation reference, which may
// be a local id or an upstream content id.
func (s *RecommendationService) ToggleBookmark(ctx context.Context, userID uint, refID string) (*BookmarkToggleResult, error) {
	refID = strings.TrimSpace(refID)
	if refID == "" {
		return nil, models.NewValidationError("Reference ID is required")
	}

	bookmarked, count, err := s.recRepo.ToggleBookmark(ctx, userID, refID)
	if err != nil {
		return nil, err
	}
	return &BookmarkToggleResult{RefID: refID, Bookmarked: bookmarked, BookmarkCount: count}, nil
}

// CheckBookmark reports whether the reference is bookmarked without changing
// anything.
func (s *RecommendationService) CheckBookmark(ctx context.Context, userID uint, refID string) (*BookmarkStatus, error) {
	refID = strings.TrimSpace(refID)
	if refID == "" {
		return nil, models.NewValidationError("Reference ID is required")
	}

	bookmarked, err := s.recRepo.IsBookmarked(ctx, userID, refID)
	if err != nil {
		return nil, err
	}
	return &BookmarkStatus{RefID: refID, Bookmarked: bookmarked}, nil
}

func (s *RecommendationService) ListBookmarks(ctx context.Context, userID uint) ([]models.RecommendationBookmark, error) {
	return s.recRepo.ListBookmarks(ctx, userID)
}

// ClearBookmarks removes all of the user's recommendation bookmarks and
// returns how many were removed.
func (s *RecommendationService) ClearBookmarks(ctx context.Context, userID uint) (int64, error) {
	return s.recRepo.ClearBookmarks(ctx, userID)
}
