package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix       = "user:%d"
	TourAreaKeyPrefix   = "tour:area:%s:%s:%d:%d"
	TourSearchKeyPrefix = "tour:search:%s:%s:%d:%d"
	TourDetailKeyPrefix = "tour:detail:%s"
	RecommendationsKey  = "recommendations:%s:%d:%d"
)

const (
	UserTTL            = 5 * time.Minute
	TourListTTL        = 10 * time.Minute
	TourDetailTTL      = 1 * time.Hour
	RecommendationsTTL = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func TourAreaKey(areaCode, contentTypeID string, page, limit int) string {
	return fmt.Sprintf(TourAreaKeyPrefix, areaCode, contentTypeID, page, limit)
}

func TourSearchKey(keyword, contentTypeID string, page, limit int) string {
	return fmt.Sprintf(TourSearchKeyPrefix, keyword, contentTypeID, page, limit)
}

func TourDetailKey(contentID string) string {
	return fmt.Sprintf(TourDetailKeyPrefix, contentID)
}

func RecommendationsListKey(category string, page, limit int) string {
	return fmt.Sprintf(RecommendationsKey, category, page, limit)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}
