package api

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pulsegram/feedengine/internal/api/objects"
	"github.com/pulsegram/feedengine/internal/cache"
	"github.com/pulsegram/feedengine/internal/feed"
	"github.com/pulsegram/feedengine/pkg/config"
	"github.com/pulsegram/feedengine/pkg/logging"
)

// FeedAPI provides feed-related API methods
type FeedAPI struct {
	engine *feed.Engine
	cache  *cache.Cache
	cfg    *config.FeedConfig
	logger *zap.Logger
}

// NewFeedAPI creates a new feed API
func NewFeedAPI(engine *feed.Engine, redisCache *cache.Cache, cfg *config.FeedConfig) *FeedAPI {
	return &FeedAPI{
		engine: engine,
		cache:  redisCache,
		cfg:    cfg,
		logger: logging.WithComponent("feed-api"),
	}
}

// GetPersonalizedFeed handles feed.get_personalized_feed
func (f *FeedAPI) GetPersonalizedFeed(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var pMap map[string]interface{}
	if err := json.Unmarshal(params, &pMap); err != nil {
		return nil, NewError(ErrInvalidParams, "invalid parameters format")
	}

	viewerID, ok := intParam(pMap, "viewer_id")
	if !ok || viewerID <= 0 {
		return nil, NewError(ErrInvalidParams, "missing required parameter: viewer_id")
	}
	cursorToken, _ := pMap["cursor"].(string)
	pageSize, _ := intParam(pMap, "page_size")

	page, err := f.engine.BuildPage(c.Request.Context(), viewerID, cursorToken, int(pageSize))
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"items":    objects.FromScoredList(page.Items),
		"cursor":   page.Cursor.Encode(),
		"has_more": page.HasMore,
	}, nil
}

// GetRecommendedReels handles feed.get_recommended_reels. Anonymous results
// carry no personalization, so they are shared and cached briefly in Redis.
func (f *FeedAPI) GetRecommendedReels(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var pMap map[string]interface{}
	if err := json.Unmarshal(params, &pMap); err != nil {
		return nil, NewError(ErrInvalidParams, "invalid parameters format")
	}

	viewerID, _ := intParam(pMap, "viewer_id")
	pageSize, _ := intParam(pMap, "page_size")

	anonymous := viewerID == 0
	cacheKey := cache.HashKey("feed_recommended_reels", fmt.Sprintf("%d", pageSize))

	if anonymous && f.cache != nil {
		var cached []objects.ContentItemView
		if err := f.cache.GetJSON(cacheKey, &cached); err == nil {
			return map[string]interface{}{"items": cached}, nil
		}
	}

	items, err := f.engine.RecommendedReels(c.Request.Context(), viewerID, int(pageSize))
	if err != nil {
		return nil, err
	}
	views := objects.FromScoredList(items)

	if anonymous && f.cache != nil {
		if err := f.cache.SetJSON(cacheKey, views, f.cfg.ReelsCacheTTL); err != nil {
			f.logger.Warn("failed to cache reels page", zap.Error(err))
		}
	}

	return map[string]interface{}{"items": views}, nil
}

// intParam reads a JSON number parameter as int64
func intParam(pMap map[string]interface{}, key string) (int64, bool) {
	v, ok := pMap[key].(float64)
	if !ok {
		return 0, false
	}
	return int64(v), true
}
