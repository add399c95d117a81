package model

import (
	"time"
)

// ReferralReward 奖励记录，reference 承载动作标识保证同一动作只发一次
type ReferralReward struct {
	ID           uint64     `gorm:"primaryKey" json:"id"`
	ReferralID   *uint64    `gorm:"index:idx_reward_referral" json:"referral_id"`
	UserID       uint64     `gorm:"not null;index:idx_reward_user" json:"user_id"`
	RewardType   string     `gorm:"type:varchar(32);not null" json:"reward_type"`
	RewardAmount float64    `gorm:"not null;default:0" json:"reward_amount"`
	Currency     string     `gorm:"type:varchar(16);not null;default:points" json:"currency"`
	Status       string     `gorm:"type:varchar(16);not null;default:pending;index:idx_reward_status" json:"status"`
	Reference    string     `gorm:"type:varchar(128);not null;uniqueIndex:idx_reward_ref" json:"reference"`
	ProcessedAt  *time.Time `json:"processed_at"`
	ExpiresAt    *time.Time `json:"expires_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (ReferralReward) TableName() string {
	return "referral_rewards"
}
