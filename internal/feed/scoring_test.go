package feed

import (
	"math"
	"testing"
	"time"

	"github.com/pulsegram/feedengine/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScorer_Score(t *testing.T) {
	scorer := NewScorer(testScoringConfig(), ZeroJitter{})
	base := func(likes, comments, shares, views int64) float64 {
		engagement := float64(likes) + 2*float64(comments) + 3*float64(shares) + 0.1*float64(views)
		return math.Log(engagement+1) * 10
	}

	tests := []struct {
		name string
		item *models.ContentItem
		sc   ScoringContext
		want float64
	}{
		{
			name: "fresh post from stranger",
			item: &models.ContentItem{ID: 1, OwnerID: 9, Likes: 10, CreatedAt: testNow.Add(-2 * time.Hour)},
			sc:   ScoringContext{Now: testNow},
			want: base(10, 0, 0, 0) + 30,
		},
		{
			name: "followed account gets affinity boost",
			item: &models.ContentItem{ID: 2, OwnerID: 5, Likes: 10, CreatedAt: testNow.Add(-2 * time.Hour)},
			sc:   ScoringContext{Now: testNow, FollowSet: map[int64]struct{}{5: {}}},
			want: base(10, 0, 0, 0) + 50 + 30,
		},
		{
			name: "three day old post gets week boost",
			item: &models.ContentItem{ID: 3, OwnerID: 9, Likes: 10, CreatedAt: testNow.Add(-72 * time.Hour)},
			sc:   ScoringContext{Now: testNow},
			want: base(10, 0, 0, 0) + 15,
		},
		{
			name: "stale post gets no recency boost",
			item: &models.ContentItem{ID: 4, OwnerID: 9, Likes: 10, CreatedAt: testNow.Add(-10 * 24 * time.Hour)},
			sc:   ScoringContext{Now: testNow},
			want: base(10, 0, 0, 0),
		},
		{
			name: "tags add linear weight",
			item: &models.ContentItem{ID: 5, OwnerID: 9, Likes: 10, Tags: "go,feeds,ranking", CreatedAt: testNow.Add(-10 * 24 * time.Hour)},
			sc:   ScoringContext{Now: testNow},
			want: base(10, 0, 0, 0) + 3*2,
		},
		{
			name: "comments shares and views weighted in engagement",
			item: &models.ContentItem{ID: 6, OwnerID: 9, Likes: 4, Comments: 3, Shares: 2, Views: 100, CreatedAt: testNow.Add(-10 * 24 * time.Hour)},
			sc:   ScoringContext{Now: testNow},
			want: base(4, 3, 2, 100),
		},
		{
			name: "viewed penalty applies after boosts",
			item: &models.ContentItem{ID: 7, OwnerID: 5, Likes: 10, CreatedAt: testNow.Add(-2 * time.Hour)},
			sc: ScoringContext{
				Now:       testNow,
				FollowSet: map[int64]struct{}{5: {}},
				Viewed:    map[int64]struct{}{7: {}},
			},
			want: (base(10, 0, 0, 0) + 50 + 30) * 0.3,
		},
		{
			name: "liked penalty stacks with viewed penalty",
			item: &models.ContentItem{ID: 8, OwnerID: 9, Likes: 10, CreatedAt: testNow.Add(-2 * time.Hour)},
			sc: ScoringContext{
				Now:    testNow,
				Viewed: map[int64]struct{}{8: {}},
				Liked:  map[int64]struct{}{8: {}},
			},
			want: (base(10, 0, 0, 0) + 30) * 0.3 * 0.5,
		},
		{
			name: "fallback ignores personalization entirely",
			item: &models.ContentItem{ID: 9, OwnerID: 5, Likes: 10, Comments: 5, Views: 50, CreatedAt: testNow.Add(-2 * time.Hour)},
			sc: ScoringContext{
				Now:       testNow,
				FollowSet: map[int64]struct{}{5: {}},
				Fallback:  true,
			},
			want: 10 + 2*5 + 0.1*50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.item, &tt.sc)
			if !almostEqual(got, tt.want) {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScorer_ViewedNeverOutranksUnviewedTwin(t *testing.T) {
	scorer := NewScorer(testScoringConfig(), ZeroJitter{})
	viewed := &models.ContentItem{ID: 1, OwnerID: 9, Likes: 100, CreatedAt: testNow.Add(-time.Hour)}
	fresh := &models.ContentItem{ID: 2, OwnerID: 9, Likes: 100, CreatedAt: testNow.Add(-time.Hour)}
	sc := &ScoringContext{Now: testNow, Viewed: map[int64]struct{}{1: {}}}

	if scorer.Score(viewed, sc) >= scorer.Score(fresh, sc) {
		t.Error("previously viewed item should score strictly below its unviewed twin")
	}
}

func TestScorer_ScoreAll(t *testing.T) {
	scorer := NewScorer(testScoringConfig(), ZeroJitter{})
	items := []*models.ContentItem{
		newItem(1, 5, 2, 10),
		newItem(2, 6, 2, 20),
	}
	scored := scorer.ScoreAll(items, SourceAffinity, &ScoringContext{Now: testNow})
	if len(scored) != 2 {
		t.Fatalf("expected 2 scored items, got %d", len(scored))
	}
	for i, s := range scored {
		if s.Item != items[i] {
			t.Errorf("scored[%d] wraps wrong item", i)
		}
		if s.Source != SourceAffinity {
			t.Errorf("scored[%d] source = %s, want affinity", i, s.Source)
		}
	}
	if scored[1].Score <= scored[0].Score {
		t.Error("higher engagement should score higher with equal age")
	}
}

func TestEngagementScore(t *testing.T) {
	item := &models.ContentItem{Likes: 10, Comments: 5, Shares: 3, Views: 100}
	// Shares intentionally excluded from the fallback signal
	want := 10.0 + 2*5 + 0.1*100
	if got := EngagementScore(item); !almostEqual(got, want) {
		t.Errorf("EngagementScore() = %v, want %v", got, want)
	}
}

func TestSortByEngagement_StableOnTies(t *testing.T) {
	a := &models.ContentItem{ID: 1, Likes: 10}
	b := &models.ContentItem{ID: 2, Likes: 10}
	c := &models.ContentItem{ID: 3, Likes: 50}
	items := []*models.ContentItem{a, b, c}

	SortByEngagement(items)

	if items[0].ID != 3 {
		t.Errorf("expected highest engagement first, got id %d", items[0].ID)
	}
	if items[1].ID != 1 || items[2].ID != 2 {
		t.Error("equal engagement should preserve retrieval order")
	}
}

func TestSeededJitter_Deterministic(t *testing.T) {
	a := NewSeededJitter(42, 20)
	b := NewSeededJitter(42, 20)
	for i := 0; i < 100; i++ {
		va, vb := a.Jitter(), b.Jitter()
		if va != vb {
			t.Fatalf("draw %d diverged: %v vs %v", i, va, vb)
		}
		if va < 0 || va >= 20 {
			t.Fatalf("draw %d = %v outside [0, 20)", i, va)
		}
	}
}

func TestZeroJitter(t *testing.T) {
	if got := (ZeroJitter{}).Jitter(); got != 0 {
		t.Errorf("ZeroJitter returned %v", got)
	}
}
