package model

import (
	"time"
)

// ReferrerStats 推荐人累计统计，achieved_milestones 存已触发的里程碑阈值集合
type ReferrerStats struct {
	ID                   uint64    `gorm:"primaryKey" json:"id"`
	UserID               uint64    `gorm:"not null;uniqueIndex:idx_stats_user" json:"user_id"`
	TotalReferrals       int       `gorm:"not null;default:0" json:"total_referrals"`
	SuccessfulReferrals  int       `gorm:"not null;default:0" json:"successful_referrals"`
	ConversionRate       float64   `gorm:"not null;default:0" json:"conversion_rate"`
	TotalConversionValue float64   `gorm:"not null;default:0" json:"total_conversion_value"`
	AchievedMilestones   string    `gorm:"type:json" json:"achieved_milestones"`
	Title                string    `gorm:"type:varchar(64)" json:"title"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (ReferrerStats) TableName() string {
	return "referrer_stats"
}
