package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pulsegram/feedengine/internal/models"
	"github.com/pulsegram/feedengine/pkg/config"
)

// Shared test fixtures: in-memory collaborator fakes and engine wiring.

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testFeedConfig() config.FeedConfig {
	return config.FeedConfig{
		MaxPageSize:        100,
		DefaultPageSize:    20,
		AffinityRatio:      0.7,
		OverFetchFactor:    1.5,
		MaxFilterRounds:    3,
		OwnerBatchLimit:    2,
		RelationshipFanout: 4,
		RelationshipTTL:    time.Minute,
		FetchTimeout:       time.Second,
		LookupTimeout:      time.Second,
		ReelsCacheTTL:      time.Second,
	}
}

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		AffinityBoost: 50,
		DayBoost:      30,
		WeekBoost:     15,
		TagWeight:     2,
		ViewedPenalty: 0.3,
		LikedPenalty:  0.5,
		JitterMax:     20,
	}
}

// newItem builds a content item created ageHours before testNow.
func newItem(id, ownerID int64, ageHours int, likes int64) *models.ContentItem {
	return &models.ContentItem{
		ID:            id,
		OwnerID:       ownerID,
		Kind:          models.KindPost,
		CreatedAt:     testNow.Add(-time.Duration(ageHours) * time.Hour),
		Likes:         likes,
		OwnerUsername: fmt.Sprintf("user%d", ownerID),
	}
}

type fakeContent struct {
	mu           sync.Mutex
	items        []*models.ContentItem
	affinityErr  error
	discoveryErr error

	affinityCalls  int
	discoveryCalls int
	batchSizes     []int
}

func (f *fakeContent) AffinityPage(ctx context.Context, ownerIDs []int64, pos Position, limit int) ([]*models.ContentItem, error) {
	f.mu.Lock()
	f.affinityCalls++
	f.batchSizes = append(f.batchSizes, len(ownerIDs))
	f.mu.Unlock()
	if f.affinityErr != nil {
		return nil, f.affinityErr
	}
	owners := make(map[int64]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = struct{}{}
	}
	return f.page(pos, limit, func(item *models.ContentItem) bool {
		_, ok := owners[item.OwnerID]
		return ok
	}), nil
}

func (f *fakeContent) DiscoveryPage(ctx context.Context, kind string, pos Position, limit int) ([]*models.ContentItem, error) {
	f.mu.Lock()
	f.discoveryCalls++
	f.mu.Unlock()
	if f.discoveryErr != nil {
		return nil, f.discoveryErr
	}
	return f.page(pos, limit, func(item *models.ContentItem) bool {
		return kind == "" || item.Kind == kind
	}), nil
}

func (f *fakeContent) page(pos Position, limit int, match func(*models.ContentItem) bool) []*models.ContentItem {
	var out []*models.ContentItem
	for _, item := range f.items {
		if !match(item) {
			continue
		}
		if !pos.IsZero() {
			older := item.CreatedAt.Before(pos.Before) ||
				(item.CreatedAt.Equal(pos.Before) && item.ID < pos.LastID)
			if !older {
				continue
			}
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

type fakeFollows struct {
	mu          sync.Mutex
	edges       map[[2]int64]bool
	followSets  map[int64][]int64
	existsErr   error
	setErr      error
	existsCalls int
}

func newFakeFollows() *fakeFollows {
	return &fakeFollows{
		edges:      make(map[[2]int64]bool),
		followSets: make(map[int64][]int64),
	}
}

func (f *fakeFollows) follow(a, b int64) {
	f.edges[[2]int64{a, b}] = true
	f.followSets[a] = append(f.followSets[a], b)
}

func (f *fakeFollows) Exists(ctx context.Context, followerID, followingID int64) (bool, error) {
	f.mu.Lock()
	f.existsCalls++
	f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.edges[[2]int64{followerID, followingID}], nil
}

func (f *fakeFollows) FollowSet(ctx context.Context, viewerID int64) ([]int64, error) {
	if f.setErr != nil {
		return nil, f.setErr
	}
	return f.followSets[viewerID], nil
}

type fakeInteractions struct {
	liked     map[int64]struct{}
	viewed    map[int64]struct{}
	likedErr  error
	viewedErr error
}

func (f *fakeInteractions) LikedItemIDs(ctx context.Context, viewerID int64) (map[int64]struct{}, error) {
	if f.likedErr != nil {
		return nil, f.likedErr
	}
	return f.liked, nil
}

func (f *fakeInteractions) ViewedItemIDs(ctx context.Context, viewerID int64) (map[int64]struct{}, error) {
	if f.viewedErr != nil {
		return nil, f.viewedErr
	}
	return f.viewed, nil
}

type fakeProfiles struct {
	private map[int64]bool
	err     error
}

func (f *fakeProfiles) IsPrivate(ctx context.Context, ownerID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.private[ownerID], nil
}

var errBoom = errors.New("boom")

func newTestEngine(content *fakeContent, follows *fakeFollows, interactions *fakeInteractions, jitter Jitter) *Engine {
	if interactions == nil {
		interactions = &fakeInteractions{}
	}
	if jitter == nil {
		jitter = ZeroJitter{}
	}
	return NewEngine(
		testFeedConfig(),
		testScoringConfig(),
		content,
		follows,
		interactions,
		&fakeProfiles{private: map[int64]bool{}},
		jitter,
	)
}
