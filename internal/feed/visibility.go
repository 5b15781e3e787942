package feed

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pulsegram/feedengine/internal/models"
	"github.com/pulsegram/feedengine/pkg/logging"
	"github.com/pulsegram/feedengine/pkg/telemetry"
)

// Visibility decides whether a viewer may see a content item.
//
// Rules, in order:
//  1. owners always see their own items
//  2. public item on a public account is visible to everyone
//  3. a private item requires a mutual follow
//  4. a public item on a private account requires that the viewer follows
//     the owner (one direction is enough)
//
// A failed relationship lookup yields the zero Relationship, so private
// items fail closed while fully public items are never blocked.
type Visibility struct {
	relationships *RelationshipCache
	profiles      ProfileSource
	fanout        int
	lookupTimeout time.Duration
	logger        *zap.Logger
}

// NewVisibility creates a visibility filter.
func NewVisibility(relationships *RelationshipCache, profiles ProfileSource, fanout int, lookupTimeout time.Duration) *Visibility {
	if fanout <= 0 {
		fanout = 16
	}
	return &Visibility{
		relationships: relationships,
		profiles:      profiles,
		fanout:        fanout,
		lookupTimeout: lookupTimeout,
		logger:        logging.WithComponent("visibility"),
	}
}

// CanView reports whether viewerID may see item.
func (v *Visibility) CanView(ctx context.Context, viewerID int64, item *models.ContentItem) bool {
	if viewerID == item.OwnerID {
		return true
	}

	ownerPrivate := v.ownerPrivate(ctx, item)
	if !item.IsPrivate && !ownerPrivate {
		return true
	}

	rel := v.relationship(ctx, viewerID, item.OwnerID)
	if item.IsPrivate {
		// Item-level privacy demands reciprocity
		return rel.IsMutual
	}
	// Public item on a private account: ordinary follow gating
	return rel.IsFollowing
}

// FilterList drops invisible items, preserving input order. Relationship
// lookups for distinct owners are prefetched with bounded concurrency before
// the sequential pass.
func (v *Visibility) FilterList(ctx context.Context, viewerID int64, items []*models.ContentItem) []*models.ContentItem {
	ctx, span := telemetry.StartSpan(ctx, "feed.visibility_filter")
	defer span.End()

	v.prefetch(ctx, viewerID, items)

	visible := make([]*models.ContentItem, 0, len(items))
	for _, item := range items {
		if v.CanView(ctx, viewerID, item) {
			visible = append(visible, item)
		}
	}
	return visible
}

// prefetch warms the relationship cache for every owner whose items need a
// relationship decision. Each lookup is an independent round trip, so they
// run concurrently with a cap to avoid overwhelming the follow store.
func (v *Visibility) prefetch(ctx context.Context, viewerID int64, items []*models.ContentItem) {
	owners := make(map[int64]struct{})
	for _, item := range items {
		if item.OwnerID == viewerID {
			continue
		}
		if item.IsPrivate || v.ownerPrivate(ctx, item) {
			owners[item.OwnerID] = struct{}{}
		}
	}
	if len(owners) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.fanout)
	for ownerID := range owners {
		ownerID := ownerID
		g.Go(func() error {
			// Errors surface again in CanView and fail safe there
			_ = v.relationship(gctx, viewerID, ownerID)
			return nil
		})
	}
	_ = g.Wait()
}

// relationship resolves the viewer/owner relationship, failing to the zero
// value (not following, not mutual) on error or timeout.
func (v *Visibility) relationship(ctx context.Context, viewerID, ownerID int64) Relationship {
	ctx, cancel := context.WithTimeout(ctx, v.lookupTimeout)
	defer cancel()
	rel, err := v.relationships.Get(ctx, viewerID, ownerID)
	if err != nil {
		v.logger.Warn("relationship lookup failed, treating as stranger",
			zap.Int64("viewer_id", viewerID),
			zap.Int64("owner_id", ownerID),
			zap.Error(err))
		return Relationship{}
	}
	return rel
}

// ownerPrivate resolves the owner's account-level privacy flag, preferring
// the denormalized snapshot on the item. Items without a snapshot fall back
// to the profile collaborator; a failed lookup treats the account as private,
// which gates the item on a follow rather than hiding it outright.
func (v *Visibility) ownerPrivate(ctx context.Context, item *models.ContentItem) bool {
	if item.OwnerUsername != "" {
		return item.OwnerIsPrivate
	}
	if v.profiles == nil {
		return item.OwnerIsPrivate
	}
	lctx, cancel := context.WithTimeout(ctx, v.lookupTimeout)
	defer cancel()
	private, err := v.profiles.IsPrivate(lctx, item.OwnerID)
	if err != nil {
		v.logger.Warn("owner privacy lookup failed, assuming private",
			zap.Int64("owner_id", item.OwnerID), zap.Error(err))
		return true
	}
	return private
}
