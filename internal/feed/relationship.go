package feed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pulsegram/feedengine/pkg/logging"
)

const relationshipShards = 32

// pairKey identifies an unordered account pair. lo < hi always.
type pairKey struct {
	lo, hi int64
}

func makePairKey(a, b int64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// pairState stores both directions for a pair so one entry serves lookups
// from either side.
type pairState struct {
	loFollowsHi bool
	hiFollowsLo bool
	expiresAt   time.Time
}

type relationshipShard struct {
	mu      sync.RWMutex
	entries map[pairKey]pairState
}

// RelationshipCache memoizes directional follow relationships per account
// pair. It is a per-process latency optimization only: correctness relies on
// the follow mutation path calling Invalidate synchronously, with the TTL as
// a hedge against missed invalidations.
type RelationshipCache struct {
	follows FollowSource
	ttl     time.Duration
	shards  [relationshipShards]relationshipShard
	now     func() time.Time
	logger  *zap.Logger
}

// NewRelationshipCache creates a relationship cache over the given follow
// source with the given TTL hedge.
func NewRelationshipCache(follows FollowSource, ttl time.Duration) *RelationshipCache {
	c := &RelationshipCache{
		follows: follows,
		ttl:     ttl,
		now:     time.Now,
		logger:  logging.WithComponent("relationship-cache"),
	}
	for i := range c.shards {
		c.shards[i].entries = make(map[pairKey]pairState)
	}
	return c
}

func (c *RelationshipCache) shard(key pairKey) *relationshipShard {
	return &c.shards[uint64(key.lo^key.hi)%relationshipShards]
}

// Get returns the relationship between viewer and owner, fetching both edge
// directions on a miss. The result is always oriented from the viewer's side.
func (c *RelationshipCache) Get(ctx context.Context, viewerID, ownerID int64) (Relationship, error) {
	key := makePairKey(viewerID, ownerID)
	shard := c.shard(key)

	shard.mu.RLock()
	state, ok := shard.entries[key]
	shard.mu.RUnlock()

	if !ok || c.now().After(state.expiresAt) {
		var err error
		state, err = c.lookup(ctx, key)
		if err != nil {
			return Relationship{}, err
		}
		shard.mu.Lock()
		shard.entries[key] = state
		shard.mu.Unlock()
	}

	return orient(key, state, viewerID), nil
}

// lookup issues the two directional existence checks concurrently.
func (c *RelationshipCache) lookup(ctx context.Context, key pairKey) (pairState, error) {
	var loFollowsHi, hiFollowsLo bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		loFollowsHi, err = c.follows.Exists(gctx, key.lo, key.hi)
		return err
	})
	g.Go(func() error {
		var err error
		hiFollowsLo, err = c.follows.Exists(gctx, key.hi, key.lo)
		return err
	})
	if err := g.Wait(); err != nil {
		return pairState{}, err
	}

	return pairState{
		loFollowsHi: loFollowsHi,
		hiFollowsLo: hiFollowsLo,
		expiresAt:   c.now().Add(c.ttl),
	}, nil
}

// Invalidate drops the cached entry for the pair. The follow/unfollow
// mutation path must call this synchronously on every state change.
func (c *RelationshipCache) Invalidate(a, b int64) {
	key := makePairKey(a, b)
	shard := c.shard(key)
	shard.mu.Lock()
	delete(shard.entries, key)
	shard.mu.Unlock()
	c.logger.Debug("relationship invalidated", zap.Int64("a", a), zap.Int64("b", b))
}

// Len returns the number of cached pairs, for observability.
func (c *RelationshipCache) Len() int {
	total := 0
	for i := range c.shards {
		c.shards[i].mu.RLock()
		total += len(c.shards[i].entries)
		c.shards[i].mu.RUnlock()
	}
	return total
}

func orient(key pairKey, state pairState, viewerID int64) Relationship {
	var rel Relationship
	if viewerID == key.lo {
		rel.IsFollowing = state.loFollowsHi
		rel.IsFollowedBy = state.hiFollowsLo
	} else {
		rel.IsFollowing = state.hiFollowsLo
		rel.IsFollowedBy = state.loFollowsHi
	}
	rel.IsMutual = rel.IsFollowing && rel.IsFollowedBy
	return rel
}
