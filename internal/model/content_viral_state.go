package model

import (
	"time"
)

// ContentViralState 内容维度聚合，计数在系数任务中整体重算而非增量修正
type ContentViralState struct {
	ID                uint64    `gorm:"primaryKey" json:"id"`
	ContentID         uint64    `gorm:"not null;index:idx_content_state,unique" json:"content_id"`
	ContentType       string    `gorm:"type:varchar(32);not null;index:idx_content_state,unique" json:"content_type"`
	ShareCount        int       `gorm:"not null;default:0" json:"share_count"`
	ClickCount        int       `gorm:"not null;default:0" json:"click_count"`
	ConversionCount   int       `gorm:"not null;default:0" json:"conversion_count"`
	ViralCoefficient  float64   `gorm:"not null;default:0" json:"viral_coefficient"`
	EngagementRate    float64   `gorm:"not null;default:0" json:"engagement_rate"`
	TrendingScore     float64   `gorm:"not null;default:0;index:idx_trending" json:"trending_score"`
	LastViralActivity time.Time `gorm:"index:idx_last_activity" json:"last_viral_activity"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (ContentViralState) TableName() string {
	return "content_viral_states"
}
