package model

import (
	"time"
)

// UserInfluence 用户影响力快照，influence_score 上限 1000
type UserInfluence struct {
	ID                uint64    `gorm:"primaryKey" json:"id"`
	UserID            uint64    `gorm:"not null;uniqueIndex:idx_influence_user" json:"user_id"`
	InfluenceScore    float64   `gorm:"not null;default:0" json:"influence_score"`
	AvgClicksPerShare float64   `gorm:"not null;default:0" json:"avg_clicks_per_share"`
	ConversionRate    float64   `gorm:"not null;default:0" json:"conversion_rate"`
	TotalShares       int       `gorm:"not null;default:0" json:"total_shares"`
	TotalClicks       int       `gorm:"not null;default:0" json:"total_clicks"`
	TotalConversions  int       `gorm:"not null;default:0" json:"total_conversions"`
	CalculatedAt      time.Time `gorm:"not null" json:"calculated_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (UserInfluence) TableName() string {
	return "user_influences"
}
