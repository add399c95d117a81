package model

import (
	"time"
)

// CreditEntry 积分之外的 credit 流水，追加式账本
type CreditEntry struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID    uint64    `gorm:"not null;index:idx_credit_user" json:"user_id"`
	Amount    float64   `gorm:"not null" json:"amount"`
	Currency  string    `gorm:"type:varchar(16);not null" json:"currency"`
	Reason    string    `gorm:"type:varchar(128)" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (CreditEntry) TableName() string {
	return "credit_entries"
}
