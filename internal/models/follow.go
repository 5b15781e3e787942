package models

import (
	"time"
)

// FollowEdge represents a directional follow relationship. Existence is
// boolean-queried; rows are inserted on follow and deleted on unfollow,
// never updated in place.
type FollowEdge struct {
	FollowerID  int64     `gorm:"primaryKey;column:follower_id"`
	FollowingID int64     `gorm:"primaryKey;column:following_id"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Follower  *Account `gorm:"foreignKey:FollowerID;references:ID"`
	Following *Account `gorm:"foreignKey:FollowingID;references:ID"`
}

// TableName specifies the table name for FollowEdge
func (FollowEdge) TableName() string {
	return "follow_edges"
}
