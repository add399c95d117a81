package model

import (
	"time"
)

// User 平台用户的本地投影，引擎只关心积分余额
type User struct {
	ID            uint64    `gorm:"primaryKey" json:"id"`
	Nickname      string    `gorm:"type:varchar(64)" json:"nickname"`
	PointsBalance float64   `gorm:"not null;default:0" json:"points_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
