package model

import (
	"time"
)

// Content 内容登记表，record_share 的存在性校验依赖此表
type Content struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	ContentID   uint64    `gorm:"not null;index:idx_content_reg,unique" json:"content_id"`
	ContentType string    `gorm:"type:varchar(32);not null;index:idx_content_reg,unique" json:"content_type"`
	Title       string    `gorm:"type:varchar(255)" json:"title"`
	Status      int8      `gorm:"not null;default:1" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Content) TableName() string {
	return "contents"
}
