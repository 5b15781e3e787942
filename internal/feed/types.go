package feed

import (
	"context"
	"errors"

	"github.com/pulsegram/feedengine/internal/models"
)

// Source identifies which candidate pool an item came from. Used only for
// dedup tie-breaking, never serialized back to storage.
type Source string

const (
	SourceAffinity  Source = "affinity"
	SourceDiscovery Source = "discovery"
)

// ScoredItem wraps a ContentItem with its transient ranking score.
type ScoredItem struct {
	Item   *models.ContentItem
	Score  float64
	Source Source
}

// Relationship is the cached follow state between a viewer and an owner.
// Invariant: IsMutual == IsFollowing && IsFollowedBy.
type Relationship struct {
	IsFollowing  bool // viewer follows owner
	IsFollowedBy bool // owner follows viewer
	IsMutual     bool
}

// Page is one assembled feed page plus continuation state.
type Page struct {
	Items   []*ScoredItem
	Cursor  PageCursor
	HasMore bool
}

var (
	// ErrFeedUnavailable is returned when both candidate pools fail.
	// Distinct from an empty feed so callers can render the right state.
	ErrFeedUnavailable = errors.New("feed unavailable: all candidate pools failed")

	// ErrCursorPoolMismatch is returned when a cursor minted for one pool is
	// used to paginate the other.
	ErrCursorPoolMismatch = errors.New("cursor does not belong to this pool")

	// ErrBadCursor is returned for tokens that cannot be decoded.
	ErrBadCursor = errors.New("malformed cursor")
)

// ContentSource fetches candidate content pages. Both methods paginate by
// keyset position, newest first, and may return fewer items than limit.
type ContentSource interface {
	// AffinityPage returns items owned by any of ownerIDs older than pos.
	AffinityPage(ctx context.Context, ownerIDs []int64, pos Position, limit int) ([]*models.ContentItem, error)
	// DiscoveryPage returns globally recent items older than pos. An empty
	// kind matches all content kinds.
	DiscoveryPage(ctx context.Context, kind string, pos Position, limit int) ([]*models.ContentItem, error)
}

// FollowSource answers follow-graph queries.
type FollowSource interface {
	Exists(ctx context.Context, followerID, followingID int64) (bool, error)
	FollowSet(ctx context.Context, viewerID int64) ([]int64, error)
}

// InteractionSource answers anti-repeat signal queries. ViewedItemIDs may
// legitimately return an empty set when view tracking is absent upstream.
type InteractionSource interface {
	LikedItemIDs(ctx context.Context, viewerID int64) (map[int64]struct{}, error)
	ViewedItemIDs(ctx context.Context, viewerID int64) (map[int64]struct{}, error)
}

// ProfileSource answers account-level privacy queries.
type ProfileSource interface {
	IsPrivate(ctx context.Context, ownerID int64) (bool, error)
}
