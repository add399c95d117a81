package model

import (
	"time"
)

// ViralCoefficient 系数时间序列，(subject, platform, type, period) 维度上后算覆盖先算
// coefficient_type 为 user/platform 时 subject_id 存用户 ID / 0
type ViralCoefficient struct {
	ID                uint64    `gorm:"primaryKey" json:"id"`
	SubjectID         uint64    `gorm:"not null;index:idx_coef_key,unique" json:"subject_id"`
	ContentType       string    `gorm:"type:varchar(32);not null;index:idx_coef_key,unique" json:"content_type"`
	Platform          string    `gorm:"type:varchar(32);not null;index:idx_coef_key,unique" json:"platform"`
	CoefficientType   string    `gorm:"type:varchar(16);not null;index:idx_coef_key,unique" json:"coefficient_type"`
	CalculationPeriod string    `gorm:"type:varchar(16);not null;index:idx_coef_key,unique" json:"calculation_period"`
	CoefficientValue  float64   `gorm:"not null;default:0" json:"coefficient_value"`
	SampleSize        int       `gorm:"not null;default:0" json:"sample_size"`
	ConfidenceLevel   float64   `gorm:"not null;default:0" json:"confidence_level"`
	FactorBreakdown   string    `gorm:"type:json" json:"factor_breakdown"`
	CalculationDate   time.Time `gorm:"not null" json:"calculation_date"`
	CreatedAt         time.Time `json:"created_at"`
}

func (ViralCoefficient) TableName() string {
	return "viral_coefficients"
}
