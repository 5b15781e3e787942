package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pulsegram/feedengine/internal/db"
	"github.com/pulsegram/feedengine/internal/feed"
	"github.com/pulsegram/feedengine/pkg/logging"
)

// FollowAPI provides follow mutation and lookup API methods. Mutations
// invalidate the relationship cache synchronously; skipping that would let
// stale visibility decisions outlive the cache TTL.
type FollowAPI struct {
	follows       *db.FollowRepository
	interactions  *db.InteractionRepository
	relationships *feed.RelationshipCache
	logger        *zap.Logger
}

// NewFollowAPI creates a new follow API
func NewFollowAPI(follows *db.FollowRepository, interactions *db.InteractionRepository, relationships *feed.RelationshipCache) *FollowAPI {
	return &FollowAPI{
		follows:       follows,
		interactions:  interactions,
		relationships: relationships,
		logger:        logging.WithComponent("follow-api"),
	}
}

// Follow handles feed.follow
func (f *FollowAPI) Follow(c *gin.Context, params json.RawMessage) (interface{}, error) {
	followerID, followingID, err := f.edgeParams(params)
	if err != nil {
		return nil, err
	}

	if err := f.follows.Create(c.Request.Context(), followerID, followingID); err != nil {
		return nil, err
	}
	f.relationships.Invalidate(followerID, followingID)

	f.logger.Info("follow created",
		zap.Int64("follower_id", followerID),
		zap.Int64("following_id", followingID))
	return map[string]interface{}{"success": true}, nil
}

// Unfollow handles feed.unfollow
func (f *FollowAPI) Unfollow(c *gin.Context, params json.RawMessage) (interface{}, error) {
	followerID, followingID, err := f.edgeParams(params)
	if err != nil {
		return nil, err
	}

	if err := f.follows.Delete(c.Request.Context(), followerID, followingID); err != nil {
		return nil, err
	}
	f.relationships.Invalidate(followerID, followingID)

	f.logger.Info("follow removed",
		zap.Int64("follower_id", followerID),
		zap.Int64("following_id", followingID))
	return map[string]interface{}{"success": true}, nil
}

// GetRelationship handles feed.get_relationship
func (f *FollowAPI) GetRelationship(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var pMap map[string]interface{}
	if err := json.Unmarshal(params, &pMap); err != nil {
		return nil, NewError(ErrInvalidParams, "invalid parameters format")
	}
	viewerID, ok := intParam(pMap, "viewer_id")
	if !ok {
		return nil, NewError(ErrInvalidParams, "missing required parameter: viewer_id")
	}
	ownerID, ok := intParam(pMap, "owner_id")
	if !ok {
		return nil, NewError(ErrInvalidParams, "missing required parameter: owner_id")
	}

	rel, err := f.relationships.Get(c.Request.Context(), viewerID, ownerID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"is_following":   rel.IsFollowing,
		"is_followed_by": rel.IsFollowedBy,
		"is_mutual":      rel.IsMutual,
	}, nil
}

// RecordView handles feed.record_view. The engine never writes interaction
// state itself; the view side effect is delegated here.
func (f *FollowAPI) RecordView(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var pMap map[string]interface{}
	if err := json.Unmarshal(params, &pMap); err != nil {
		return nil, NewError(ErrInvalidParams, "invalid parameters format")
	}
	viewerID, ok := intParam(pMap, "viewer_id")
	if !ok {
		return nil, NewError(ErrInvalidParams, "missing required parameter: viewer_id")
	}
	itemID, ok := intParam(pMap, "item_id")
	if !ok {
		return nil, NewError(ErrInvalidParams, "missing required parameter: item_id")
	}

	if err := f.interactions.RecordView(c.Request.Context(), viewerID, itemID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true}, nil
}

func (f *FollowAPI) edgeParams(params json.RawMessage) (int64, int64, error) {
	var pMap map[string]interface{}
	if err := json.Unmarshal(params, &pMap); err != nil {
		return 0, 0, NewError(ErrInvalidParams, "invalid parameters format")
	}
	followerID, ok := intParam(pMap, "follower_id")
	if !ok {
		return 0, 0, NewError(ErrInvalidParams, "missing required parameter: follower_id")
	}
	followingID, ok := intParam(pMap, "following_id")
	if !ok {
		return 0, 0, NewError(ErrInvalidParams, "missing required parameter: following_id")
	}
	if followerID == followingID {
		return 0, 0, NewError(ErrInvalidParams, "cannot follow yourself")
	}
	return followerID, followingID, nil
}
