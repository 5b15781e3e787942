package feed

import (
	"context"

	"go.uber.org/zap"

	"github.com/pulsegram/feedengine/internal/models"
	"github.com/pulsegram/feedengine/pkg/telemetry"
)

// RecommendedReels returns a ranked list of reel candidates. With a viewer
// (viewerID > 0) the full personalized scoring and visibility rules apply;
// anonymous requests (viewerID == 0) get a pure engagement ranking over
// fully public reels, with no relationship lookups at all.
func (e *Engine) RecommendedReels(ctx context.Context, viewerID int64, pageSize int) ([]*ScoredItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.recommended_reels")
	defer span.End()

	pageSize = e.clampPageSize(pageSize)
	want := chunkSize(pageSize, 1, e.cfg.OverFetchFactor)

	fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()
	page, err := e.reels.fetch(fctx, Cursor{pool: poolDiscovery}, want)
	if err != nil {
		e.logger.Warn("reels fetch failed", zap.Error(err))
		return nil, ErrFeedUnavailable
	}

	if viewerID == 0 {
		return anonymousReels(page.items, pageSize), nil
	}

	sc, _ := e.buildScoringContext(ctx, viewerID)
	ranked := e.scoreAndFilter(ctx, viewerID, page.items, SourceDiscovery, sc)
	if sc.Fallback {
		sortScoredByEngagement(ranked)
	} else {
		sortByScore(ranked)
	}
	if len(ranked) > pageSize {
		ranked = ranked[:pageSize]
	}
	return ranked, nil
}

// anonymousReels keeps only reels that are public on public accounts and
// orders them by raw engagement.
func anonymousReels(items []*models.ContentItem, pageSize int) []*ScoredItem {
	public := make([]*models.ContentItem, 0, len(items))
	for _, item := range items {
		if !item.IsPrivate && !item.OwnerIsPrivate {
			public = append(public, item)
		}
	}
	SortByEngagement(public)
	if len(public) > pageSize {
		public = public[:pageSize]
	}
	ranked := make([]*ScoredItem, 0, len(public))
	for _, item := range public {
		ranked = append(ranked, &ScoredItem{
			Item:   item,
			Score:  EngagementScore(item),
			Source: SourceDiscovery,
		})
	}
	return ranked
}
