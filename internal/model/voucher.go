package model

import (
	"time"
)

// Voucher 代金券发放记录，RewardSink 的 voucher 变体写入
type Voucher struct {
	ID         uint64     `gorm:"primaryKey" json:"id"`
	UserID     uint64     `gorm:"not null;index:idx_voucher_user" json:"user_id"`
	VoucherNo  string     `gorm:"type:varchar(32);not null;uniqueIndex:idx_voucher_no" json:"voucher_no"`
	Amount     float64    `gorm:"not null" json:"amount"`
	Currency   string     `gorm:"type:varchar(16);not null" json:"currency"`
	Reason     string     `gorm:"type:varchar(128)" json:"reason"`
	RedeemedAt *time.Time `json:"redeemed_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Voucher) TableName() string {
	return "vouchers"
}
