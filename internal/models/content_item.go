package models

import (
	"strings"
	"time"
)

// Content kinds. A reel is ranked with the same formula as a post; the kind
// only matters for reel-specific surfaces.
const (
	KindPost = "post"
	KindReel = "reel"
)

// ContentItem represents a post or reel together with its engagement counters
// and a denormalized snapshot of the owner profile.
type ContentItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	OwnerID   int64     `gorm:"not null;index;column:owner_id"`
	Kind      string    `gorm:"type:varchar(8);not null;default:'post';column:kind"`
	CreatedAt time.Time `gorm:"not null;index;column:created_at"`

	Likes    int64 `gorm:"not null;default:0;column:likes"`
	Comments int64 `gorm:"not null;default:0;column:comments"`
	Shares   int64 `gorm:"not null;default:0;column:shares"`
	Views    int64 `gorm:"not null;default:0;column:views"`

	IsPrivate bool   `gorm:"not null;default:false;column:is_private"`
	Tags      string `gorm:"type:varchar(255);column:tags"`

	// Owner profile snapshot, denormalized at write time
	OwnerUsername    string `gorm:"type:varchar(64);column:owner_username"`
	OwnerDisplayName string `gorm:"type:varchar(128);column:owner_display_name"`
	OwnerAvatarURL   string `gorm:"type:varchar(255);column:owner_avatar_url"`
	OwnerIsPrivate   bool   `gorm:"not null;default:false;column:owner_is_private"`
}

// TableName specifies the table name for ContentItem
func (ContentItem) TableName() string {
	return "content_items"
}

// TagList splits the comma-joined tags column into individual tags.
func (c *ContentItem) TagList() []string {
	if c.Tags == "" {
		return nil
	}
	parts := strings.Split(c.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Valid reports whether the item carries the fields ranking depends on.
// Items failing this check are dropped from candidate sets.
func (c *ContentItem) Valid() bool {
	return c.OwnerID != 0 && !c.CreatedAt.IsZero()
}
