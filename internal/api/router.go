package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pulsegram/feedengine/internal/cache"
	"github.com/pulsegram/feedengine/internal/db"
	"github.com/pulsegram/feedengine/internal/feed"
	"github.com/pulsegram/feedengine/pkg/config"
	"github.com/pulsegram/feedengine/pkg/logging"
)

// Router sets up API routes
type Router struct {
	handler *JSONRPCHandler
	db      *db.DB
	cache   *cache.Cache
	logger  *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(database *db.DB, redisCache *cache.Cache, engine *feed.Engine, cfg *config.Config) *Router {
	handler := NewJSONRPCHandler()
	router := &Router{
		handler: handler,
		db:      database,
		cache:   redisCache,
		logger:  logging.WithComponent("api-router"),
	}

	// Register all API methods
	router.registerMethods(engine, cfg)

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// JSON-RPC endpoint
	engine.POST("/", r.handler.Handle)
}

// registerMethods registers all API methods
func (r *Router) registerMethods(engine *feed.Engine, cfg *config.Config) {
	repo := db.NewRepository(r.db.DB)

	feedAPI := NewFeedAPI(engine, r.cache, &cfg.Feed)
	followAPI := NewFollowAPI(
		db.NewFollowRepository(repo),
		db.NewInteractionRepository(repo),
		engine.Relationships(),
	)

	r.handler.RegisterMethod("feed.get_personalized_feed", feedAPI.GetPersonalizedFeed)
	r.handler.RegisterMethod("feed.get_recommended_reels", feedAPI.GetRecommendedReels)
	r.handler.RegisterMethod("feed.follow", followAPI.Follow)
	r.handler.RegisterMethod("feed.unfollow", followAPI.Unfollow)
	r.handler.RegisterMethod("feed.get_relationship", followAPI.GetRelationship)
	r.handler.RegisterMethod("feed.record_view", followAPI.RecordView)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "feedengine-api",
	})
}
