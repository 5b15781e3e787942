package models

import (
	"time"
)

// Account represents a user account
type Account struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Username    string    `gorm:"type:varchar(64);not null;uniqueIndex;column:username"`
	DisplayName string    `gorm:"type:varchar(128);column:display_name"`
	AvatarURL   string    `gorm:"type:varchar(255);column:avatar_url"`
	IsPrivate   bool      `gorm:"not null;default:false;column:is_private"`
	Followers   int64     `gorm:"not null;default:0;column:followers"`
	Following   int64     `gorm:"not null;default:0;column:following"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}
