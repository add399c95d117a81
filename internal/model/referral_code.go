package model

import (
	"time"
)

// ReferralCode 每用户一码，分配后不可变
type ReferralCode struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_code_user" json:"user_id"`
	Code      string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_code" json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

func (ReferralCode) TableName() string {
	return "referral_codes"
}
