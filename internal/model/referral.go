package model

import (
	"time"
)

// Referral 推荐生命周期，visited → converted 对每组 (推荐人, 被推荐人, 转化类型) 至多发生一次
type Referral struct {
	ID              uint64     `gorm:"primaryKey" json:"id"`
	ReferrerID      uint64     `gorm:"not null;index:idx_referrer" json:"referrer_id"`
	RefereeID       *uint64    `gorm:"index:idx_referee" json:"referee_id"`
	ReferralCode    string     `gorm:"type:varchar(16);not null;index:idx_code_ip" json:"referral_code"`
	Status          string     `gorm:"type:varchar(16);not null;default:visited" json:"status"`
	ConversionType  string     `gorm:"type:varchar(32)" json:"conversion_type"`
	ConversionValue float64    `gorm:"not null;default:0" json:"conversion_value"`
	VisitCount      int        `gorm:"not null;default:1" json:"visit_count"`
	ClientIP        string     `gorm:"type:varchar(45);index:idx_code_ip" json:"client_ip"`
	SourceURL       string     `gorm:"type:varchar(512)" json:"source_url"`
	LandingPage     string     `gorm:"type:varchar(512)" json:"landing_page"`
	FirstVisitAt    time.Time  `gorm:"not null" json:"first_visit_at"`
	ConversionAt    *time.Time `json:"conversion_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Referral) TableName() string {
	return "referrals"
}
