package feed

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/pulsegram/feedengine/internal/models"
	"github.com/pulsegram/feedengine/pkg/config"
)

// ScoringContext carries the viewer signals one page scores against. It is
// built once per request and read-only afterwards.
type ScoringContext struct {
	FollowSet map[int64]struct{}
	Liked     map[int64]struct{}
	Viewed    map[int64]struct{}
	Now       time.Time

	// Fallback switches the scorer to the pure engagement sort when a
	// required signal lookup failed.
	Fallback bool
}

// Follows reports whether the viewer follows ownerID.
func (c *ScoringContext) Follows(ownerID int64) bool {
	_, ok := c.FollowSet[ownerID]
	return ok
}

// Jitter produces the exploration noise added to every score. Injectable so
// tests can pin ranking down; production uses a seeded uniform source.
type Jitter interface {
	Jitter() float64
}

// randJitter draws uniformly from [0, max). math/rand sources are not safe
// for concurrent use, hence the mutex.
type randJitter struct {
	mu  sync.Mutex
	rng *rand.Rand
	max float64
}

// NewRandJitter returns a uniform [0, max) jitter source.
func NewRandJitter(max float64) Jitter {
	return &randJitter{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		max: max,
	}
}

// NewSeededJitter returns a deterministic jitter source for tests.
func NewSeededJitter(seed int64, max float64) Jitter {
	return &randJitter{
		rng: rand.New(rand.NewSource(seed)),
		max: max,
	}
}

func (j *randJitter) Jitter() float64 {
	if j.max <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rng.Float64() * j.max
}

// ZeroJitter disables exploration noise, making scoring deterministic.
type ZeroJitter struct{}

func (ZeroJitter) Jitter() float64 { return 0 }

// Scorer assigns ranking scores to candidate items.
//
// The score is additive boosts over a log-damped engagement base, with
// multiplicative anti-repeat penalties applied last. Penalties after boosts
// means a previously-viewed item from a followed account can still outrank a
// never-seen low-engagement discovery item.
type Scorer struct {
	weights config.ScoringConfig
	jitter  Jitter
}

// NewScorer creates a scorer with the given weights and jitter source.
func NewScorer(weights config.ScoringConfig, jitter Jitter) *Scorer {
	if jitter == nil {
		jitter = NewRandJitter(weights.JitterMax)
	}
	return &Scorer{weights: weights, jitter: jitter}
}

// Score computes the ranking score of item for the viewer described by sc.
func (s *Scorer) Score(item *models.ContentItem, sc *ScoringContext) float64 {
	if sc.Fallback {
		return EngagementScore(item)
	}

	engagement := float64(item.Likes) +
		2*float64(item.Comments) +
		3*float64(item.Shares) +
		0.1*float64(item.Views)
	score := math.Log(engagement+1) * 10

	if sc.Follows(item.OwnerID) {
		score += s.weights.AffinityBoost
	}

	age := sc.Now.Sub(item.CreatedAt)
	switch {
	case age < 24*time.Hour:
		score += s.weights.DayBoost
	case age < 7*24*time.Hour:
		score += s.weights.WeekBoost
	}

	score += float64(len(item.TagList())) * s.weights.TagWeight

	if _, viewed := sc.Viewed[item.ID]; viewed {
		score *= s.weights.ViewedPenalty
	}
	if _, liked := sc.Liked[item.ID]; liked {
		score *= s.weights.LikedPenalty
	}

	return score + s.jitter.Jitter()
}

// ScoreAll scores a batch of candidates from one pool.
func (s *Scorer) ScoreAll(items []*models.ContentItem, source Source, sc *ScoringContext) []*ScoredItem {
	scored := make([]*ScoredItem, 0, len(items))
	for _, item := range items {
		scored = append(scored, &ScoredItem{
			Item:   item,
			Score:  s.Score(item, sc),
			Source: source,
		})
	}
	return scored
}

// EngagementScore is the fallback ranking signal used when personalization
// inputs are unavailable.
func EngagementScore(item *models.ContentItem) float64 {
	return float64(item.Likes) + 2*float64(item.Comments) + 0.1*float64(item.Views)
}

// SortByEngagement orders items by raw engagement, descending, preserving
// retrieval order between equals.
func SortByEngagement(items []*models.ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return EngagementScore(items[i]) > EngagementScore(items[j])
	})
}

// sortByScore orders scored items by score descending. Stable so equal
// scores keep their retrieval order.
func sortByScore(items []*ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
}
