package feed

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pulsegram/feedengine/internal/models"
	"github.com/pulsegram/feedengine/pkg/config"
	"github.com/pulsegram/feedengine/pkg/logging"
	"github.com/pulsegram/feedengine/pkg/telemetry"
)

// Engine assembles personalized feed pages: candidate retrieval from both
// pools, scoring, visibility filtering, merge/dedup and pagination. It holds
// no per-request state; the relationship cache is the only thing shared
// across requests.
type Engine struct {
	cfg           config.FeedConfig
	content       ContentSource
	follows       FollowSource
	interactions  InteractionSource
	relationships *RelationshipCache
	visibility    *Visibility
	scorer        *Scorer
	affinity      *affinityStream
	discovery     *discoveryStream
	reels         *discoveryStream
	logger        *zap.Logger
}

// NewEngine wires the feed engine. A nil jitter selects the production
// random source; tests pass ZeroJitter or a seeded one.
func NewEngine(
	cfg config.FeedConfig,
	scoring config.ScoringConfig,
	content ContentSource,
	follows FollowSource,
	interactions InteractionSource,
	profiles ProfileSource,
	jitter Jitter,
) *Engine {
	relationships := NewRelationshipCache(follows, cfg.RelationshipTTL)
	return &Engine{
		cfg:           cfg,
		content:       content,
		follows:       follows,
		interactions:  interactions,
		relationships: relationships,
		visibility:    NewVisibility(relationships, profiles, cfg.RelationshipFanout, cfg.LookupTimeout),
		scorer:        NewScorer(scoring, jitter),
		affinity:      newAffinityStream(content, cfg.OwnerBatchLimit),
		discovery:     newDiscoveryStream(content, ""),
		reels:         newDiscoveryStream(content, models.KindReel),
		logger:        logging.WithComponent("feed-engine"),
	}
}

// Relationships exposes the cache so the follow mutation path can invalidate
// entries synchronously.
func (e *Engine) Relationships() *RelationshipCache {
	return e.relationships
}

// Visibility exposes the per-item visibility filter.
func (e *Engine) Visibility() *Visibility {
	return e.visibility
}

// BuildPage assembles one personalized feed page for the viewer.
//
// Invisible and duplicate candidates do not count toward pageSize; the pool
// cursors advance past every candidate consumed, so a later page never
// re-returns an item from an earlier one. Transient pool failures degrade to
// an empty pool; only both pools failing surfaces ErrFeedUnavailable.
func (e *Engine) BuildPage(ctx context.Context, viewerID int64, cursorToken string, pageSize int) (*Page, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.build_page")
	defer span.End()

	pageSize = e.clampPageSize(pageSize)

	state, err := DecodePageCursor(cursorToken)
	if err != nil {
		return nil, err
	}
	affCursor, err := decodeCursor(state.Affinity, poolAffinity)
	if err != nil {
		return nil, err
	}
	disCursor, err := decodeCursor(state.Discovery, poolDiscovery)
	if err != nil {
		return nil, err
	}

	sc, followSet := e.buildScoringContext(ctx, viewerID)

	// 70/30 composition target with a modest over-fetch so visibility
	// filtering rarely starves the page.
	affWant := chunkSize(pageSize, e.cfg.AffinityRatio, e.cfg.OverFetchFactor)
	disWant := chunkSize(pageSize, 1-e.cfg.AffinityRatio, e.cfg.OverFetchFactor)

	var collected []*ScoredItem
	affAlive := len(followSet) > 0
	disAlive := true
	affFailed, disFailed := false, false
	affMore, disMore := false, false

	for round := 0; round < e.cfg.MaxFilterRounds; round++ {
		if !affAlive && !disAlive {
			break
		}

		affFetched, disFetched := affAlive, disAlive
		var affPage, disPage streamPage
		var affErr, disErr error

		// The two pool fetches are independent round trips; issue them
		// concurrently and join before scoring.
		g := new(errgroup.Group)
		if affFetched {
			g.Go(func() error {
				fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
				defer cancel()
				affPage, affErr = e.affinity.fetch(fctx, followSet, affCursor, affWant)
				return nil
			})
		}
		if disFetched {
			g.Go(func() error {
				fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
				defer cancel()
				disPage, disErr = e.discovery.fetch(fctx, disCursor, disWant)
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if affFetched {
			if affErr != nil {
				e.logger.Warn("affinity pool fetch failed, treating as empty",
					zap.Int64("viewer_id", viewerID), zap.Error(affErr))
				affFailed = true
				affAlive = false
				affMore = false
			} else {
				affCursor = affPage.next
				affAlive = !affPage.exhausted
				affMore = !affPage.exhausted
				collected = append(collected, e.scoreAndFilter(ctx, viewerID, affPage.items, SourceAffinity, sc)...)
			}
		}
		if disFetched {
			if disErr != nil {
				e.logger.Warn("discovery pool fetch failed, treating as empty",
					zap.Int64("viewer_id", viewerID), zap.Error(disErr))
				disFailed = true
				disAlive = false
				disMore = false
			} else {
				disCursor = disPage.next
				disAlive = !disPage.exhausted
				disMore = !disPage.exhausted
				candidates := disPage.items
				if !sc.Fallback {
					// Followed-owner content is the affinity pool's job.
					// Skipping it here keeps the pools disjoint, so a later
					// page can never re-surface an item the affinity cursor
					// already consumed.
					candidates = dropFollowedOwners(candidates, sc)
				}
				collected = append(collected, e.scoreAndFilter(ctx, viewerID, candidates, SourceDiscovery, sc)...)
			}
		}

		// A fallback page has no affinity pool to lean on, so a discovery
		// failure there is a total failure too
		if disFailed && (affFailed || sc.Fallback) {
			return nil, ErrFeedUnavailable
		}

		if len(collected) >= pageSize {
			break
		}
	}

	merged := dedupe(collected)
	if sc.Fallback {
		// Degraded mode: deterministic engagement order instead of the
		// personalized score sort
		sortScoredByEngagement(merged)
	} else {
		sortByScore(merged)
	}

	if len(merged) > pageSize {
		merged = merged[:pageSize]
	}

	return &Page{
		Items: merged,
		Cursor: PageCursor{
			Affinity:  affCursor.Encode(),
			Discovery: disCursor.Encode(),
		},
		HasMore: affMore || disMore,
	}, nil
}

// buildScoringContext gathers the viewer's personalization signals
// concurrently. A failed follow-set lookup switches the page to fallback
// scoring; failed anti-repeat lookups just lose their penalty.
func (e *Engine) buildScoringContext(ctx context.Context, viewerID int64) (*ScoringContext, []int64) {
	sc := &ScoringContext{Now: time.Now().UTC()}
	var followSet []int64

	g := new(errgroup.Group)
	g.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, e.cfg.LookupTimeout)
		defer cancel()
		ids, err := e.follows.FollowSet(lctx, viewerID)
		if err != nil {
			e.logger.Warn("follow set lookup failed, falling back to engagement sort",
				zap.Int64("viewer_id", viewerID), zap.Error(err))
			sc.Fallback = true
			return nil
		}
		followSet = ids
		set := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		sc.FollowSet = set
		return nil
	})
	g.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, e.cfg.LookupTimeout)
		defer cancel()
		liked, err := e.interactions.LikedItemIDs(lctx, viewerID)
		if err != nil {
			e.logger.Warn("liked set lookup failed",
				zap.Int64("viewer_id", viewerID), zap.Error(err))
			return nil
		}
		sc.Liked = liked
		return nil
	})
	g.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, e.cfg.LookupTimeout)
		defer cancel()
		// An empty viewed set is normal: view tracking may be absent upstream
		viewed, err := e.interactions.ViewedItemIDs(lctx, viewerID)
		if err != nil {
			e.logger.Warn("viewed set lookup failed",
				zap.Int64("viewer_id", viewerID), zap.Error(err))
			return nil
		}
		sc.Viewed = viewed
		return nil
	})
	_ = g.Wait()

	return sc, followSet
}

// scoreAndFilter scores one pool's candidates and drops invisible ones.
func (e *Engine) scoreAndFilter(ctx context.Context, viewerID int64, items []*models.ContentItem, source Source, sc *ScoringContext) []*ScoredItem {
	if len(items) == 0 {
		return nil
	}
	scored := e.scorer.ScoreAll(items, source, sc)
	visible := make([]*ScoredItem, 0, len(scored))
	raw := make([]*models.ContentItem, len(scored))
	for i, s := range scored {
		raw[i] = s.Item
	}
	allowed := make(map[int64]struct{})
	for _, item := range e.visibility.FilterList(ctx, viewerID, raw) {
		allowed[item.ID] = struct{}{}
	}
	for _, s := range scored {
		if _, ok := allowed[s.Item.ID]; ok {
			visible = append(visible, s)
		}
	}
	return visible
}

// dropFollowedOwners removes discovery candidates owned by accounts the
// viewer follows.
func dropFollowedOwners(items []*models.ContentItem, sc *ScoringContext) []*models.ContentItem {
	if len(sc.FollowSet) == 0 {
		return items
	}
	kept := make([]*models.ContentItem, 0, len(items))
	for _, item := range items {
		if !sc.Follows(item.OwnerID) {
			kept = append(kept, item)
		}
	}
	return kept
}

// dedupe collapses duplicate item identities across pools, keeping the
// higher-scored instance; ties keep the affinity-sourced one. First-seen
// order of surviving ids is preserved for the stable sort that follows.
func dedupe(items []*ScoredItem) []*ScoredItem {
	best := make(map[int64]*ScoredItem, len(items))
	order := make([]int64, 0, len(items))
	for _, it := range items {
		cur, seen := best[it.Item.ID]
		if !seen {
			best[it.Item.ID] = it
			order = append(order, it.Item.ID)
			continue
		}
		if it.Score > cur.Score ||
			(it.Score == cur.Score && it.Source == SourceAffinity && cur.Source != SourceAffinity) {
			best[it.Item.ID] = it
		}
	}
	out := make([]*ScoredItem, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}

// sortScoredByEngagement applies the fallback order to already-wrapped items.
func sortScoredByEngagement(items []*ScoredItem) {
	raw := make([]*models.ContentItem, len(items))
	byID := make(map[int64]*ScoredItem, len(items))
	for i, it := range items {
		raw[i] = it.Item
		byID[it.Item.ID] = it
	}
	SortByEngagement(raw)
	for i, item := range raw {
		items[i] = byID[item.ID]
	}
}

func (e *Engine) clampPageSize(pageSize int) int {
	if pageSize <= 0 {
		return e.cfg.DefaultPageSize
	}
	if pageSize > e.cfg.MaxPageSize {
		return e.cfg.MaxPageSize
	}
	return pageSize
}

// chunkSize computes the per-pool fetch size for a composition share.
func chunkSize(pageSize int, share, overFetch float64) int {
	n := int(math.Ceil(float64(pageSize) * share * overFetch))
	if n < 1 {
		n = 1
	}
	return n
}
