package feed

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/pulsegram/feedengine/internal/models"
	"github.com/pulsegram/feedengine/pkg/logging"
)

// streamPage is one fetched chunk of a candidate pool.
type streamPage struct {
	items []*models.ContentItem
	// next resumes the pool just past the last returned item
	next Cursor
	// exhausted is true when the pool yielded fewer items than requested.
	// It signals exhaustion for this round only; new content can appear.
	exhausted bool
}

// affinityStream pages through content from accounts the viewer follows,
// newest first. The content store caps membership queries at a fixed owner
// batch size, so the follow set is chunked and per-chunk results are merged
// by recency before a page is cut.
type affinityStream struct {
	content    ContentSource
	batchLimit int
	logger     *zap.Logger
}

func newAffinityStream(content ContentSource, batchLimit int) *affinityStream {
	if batchLimit <= 0 {
		batchLimit = 100
	}
	return &affinityStream{
		content:    content,
		batchLimit: batchLimit,
		logger:     logging.WithComponent("affinity-stream"),
	}
}

// fetch returns up to limit items older than the cursor position across the
// whole follow set. An empty follow set is a permanently exhausted stream.
func (s *affinityStream) fetch(ctx context.Context, followSet []int64, cursor Cursor, limit int) (streamPage, error) {
	if len(followSet) == 0 {
		return streamPage{next: cursor, exhausted: true}, nil
	}
	if cursor.pool != "" && cursor.pool != poolAffinity {
		return streamPage{}, ErrCursorPoolMismatch
	}

	pos := cursor.Position()
	var merged []*models.ContentItem
	for start := 0; start < len(followSet); start += s.batchLimit {
		end := start + s.batchLimit
		if end > len(followSet) {
			end = len(followSet)
		}
		chunk, err := s.content.AffinityPage(ctx, followSet[start:end], pos, limit)
		if err != nil {
			return streamPage{}, fmt.Errorf("affinity chunk fetch: %w", err)
		}
		merged = append(merged, dropMalformed(chunk, s.logger)...)
	}

	sortByRecency(merged)

	// The pool is exhausted for this round only if no chunk could have
	// filled a page on its own.
	exhausted := len(merged) < limit
	if len(merged) > limit {
		merged = merged[:limit]
	}

	next := cursor
	if len(merged) > 0 {
		next = cursorAfter(poolAffinity, merged[len(merged)-1])
	}
	return streamPage{items: merged, next: next, exhausted: exhausted}, nil
}

// discoveryStream pages through globally recent content, newest first.
type discoveryStream struct {
	content ContentSource
	kind    string
	logger  *zap.Logger
}

func newDiscoveryStream(content ContentSource, kind string) *discoveryStream {
	return &discoveryStream{
		content: content,
		kind:    kind,
		logger:  logging.WithComponent("discovery-stream"),
	}
}

func (s *discoveryStream) fetch(ctx context.Context, cursor Cursor, limit int) (streamPage, error) {
	if cursor.pool != "" && cursor.pool != poolDiscovery {
		return streamPage{}, ErrCursorPoolMismatch
	}

	items, err := s.content.DiscoveryPage(ctx, s.kind, cursor.Position(), limit)
	if err != nil {
		return streamPage{}, fmt.Errorf("discovery fetch: %w", err)
	}
	exhausted := len(items) < limit
	items = dropMalformed(items, s.logger)

	next := cursor
	if len(items) > 0 {
		next = cursorAfter(poolDiscovery, items[len(items)-1])
	}
	return streamPage{items: items, next: next, exhausted: exhausted}, nil
}

// dropMalformed excludes items missing the fields ranking depends on.
func dropMalformed(items []*models.ContentItem, logger *zap.Logger) []*models.ContentItem {
	valid := items[:0]
	for _, item := range items {
		if item.Valid() {
			valid = append(valid, item)
			continue
		}
		logger.Warn("dropping malformed content item",
			zap.Int64("item_id", item.ID),
			zap.Int64("owner_id", item.OwnerID))
	}
	return valid
}

// sortByRecency orders newest first, id descending as the tie-break so the
// order matches the keyset cursor comparison.
func sortByRecency(items []*models.ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
}
