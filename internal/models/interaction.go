package models

import (
	"time"
)

// Interaction kinds
const (
	InteractionLike = "like"
	InteractionView = "view"
)

// Interaction records a like or view of a content item by a user. The feed
// engine reads these as anti-repeat signals and records views on behalf of
// the presentation layer.
type Interaction struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    int64     `gorm:"not null;index:idx_interactions_user_kind;column:user_id"`
	ItemID    int64     `gorm:"not null;column:item_id"`
	Kind      string    `gorm:"type:varchar(8);not null;index:idx_interactions_user_kind;column:kind"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Interaction
func (Interaction) TableName() string {
	return "interactions"
}
