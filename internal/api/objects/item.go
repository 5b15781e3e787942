// Package objects shapes engine results into API response payloads.
package objects

import (
	"time"

	"github.com/pulsegram/feedengine/internal/feed"
)

// ContentItemView is the wire form of one feed entry.
type ContentItemView struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`

	Owner OwnerView `json:"owner"`

	Likes    int64    `json:"likes"`
	Comments int64    `json:"comments"`
	Shares   int64    `json:"shares"`
	Views    int64    `json:"views"`
	Tags     []string `json:"tags,omitempty"`

	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// OwnerView is the denormalized owner profile snapshot.
type OwnerView struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// FromScored converts one scored engine item to its wire form.
func FromScored(s *feed.ScoredItem) ContentItemView {
	item := s.Item
	return ContentItemView{
		ID:        item.ID,
		Kind:      item.Kind,
		CreatedAt: item.CreatedAt,
		Owner: OwnerView{
			ID:          item.OwnerID,
			Username:    item.OwnerUsername,
			DisplayName: item.OwnerDisplayName,
			AvatarURL:   item.OwnerAvatarURL,
		},
		Likes:    item.Likes,
		Comments: item.Comments,
		Shares:   item.Shares,
		Views:    item.Views,
		Tags:     item.TagList(),
		Score:    s.Score,
		Source:   string(s.Source),
	}
}

// FromScoredList converts a ranked result list to wire form.
func FromScoredList(items []*feed.ScoredItem) []ContentItemView {
	views := make([]ContentItemView, 0, len(items))
	for _, s := range items {
		views = append(views, FromScored(s))
	}
	return views
}
