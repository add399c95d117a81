package model

import (
	"time"
)

// ShareEvent 单次分享行为，点击/转化计数只增不减
type ShareEvent struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	ContentID       uint64    `gorm:"not null;index:idx_content_share" json:"content_id"`
	ContentType     string    `gorm:"type:varchar(32);not null;index:idx_content_share" json:"content_type"`
	Platform        string    `gorm:"type:varchar(32);not null;index:idx_platform" json:"platform"`
	UserID          *uint64   `gorm:"index:idx_user_share" json:"user_id"` // NULL 表示匿名分享
	ShareTime       time.Time `gorm:"not null;index:idx_share_time" json:"share_time"`
	ClickCount      int       `gorm:"not null;default:0" json:"click_count"`
	ConversionCount int       `gorm:"not null;default:0" json:"conversion_count"`
	ConversionValue float64   `gorm:"not null;default:0" json:"conversion_value"`
	Metadata        string    `gorm:"type:json" json:"metadata"`
	CreatedAt       time.Time `json:"created_at"`
}

func (ShareEvent) TableName() string {
	return "share_events"
}
