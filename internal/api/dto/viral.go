package dto

// PlatformStatsDTO 单平台分享表现
type PlatformStatsDTO struct {
	Platform    string `json:"platform"`
	Shares      int64  `json:"shares"`
	Clicks      int64  `json:"clicks"`
	Conversions int64  `json:"conversions"`
}

// CoefficientDTO 单条系数快照
type CoefficientDTO struct {
	CoefficientType   string  `json:"coefficient_type"`
	Platform          string  `json:"platform"`
	CalculationPeriod string  `json:"calculation_period"`
	CoefficientValue  float64 `json:"coefficient_value"`
	SampleSize        int     `json:"sample_size"`
	ConfidenceLevel   float64 `json:"confidence_level"`
	FactorBreakdown   string  `json:"factor_breakdown,omitempty"`
	CalculationDate   string  `json:"calculation_date"`
}

// ViralStatsDTO 内容维度的传播统计
type ViralStatsDTO struct {
	ContentID         uint64              `json:"content_id"`
	ContentType       string              `json:"content_type"`
	Period            string              `json:"period,omitempty"`
	ShareCount        int                 `json:"share_count"`
	ClickCount        int                 `json:"click_count"`
	ConversionCount   int                 `json:"conversion_count"`
	ViralCoefficient  float64             `json:"viral_coefficient"`
	EngagementRate    float64             `json:"engagement_rate"`
	TrendingScore     float64             `json:"trending_score"`
	ViralGrade        string              `json:"viral_grade"`
	LastViralActivity string              `json:"last_viral_activity"`
	PlatformBreakdown []*PlatformStatsDTO `json:"platform_breakdown"`
	Coefficients      []*CoefficientDTO   `json:"coefficients"`
}

// RecalculateDTO 管理端手动重算请求
type RecalculateDTO struct {
	ContentID   uint64 `json:"content_id" binding:"required"`
	ContentType string `json:"content_type" binding:"required,oneof=post page article custom"`
}

// ContentRegisterDTO 管理端内容登记请求
type ContentRegisterDTO struct {
	ContentID   uint64 `json:"content_id" binding:"required"`
	ContentType string `json:"content_type" binding:"required,oneof=post page article custom"`
	Title       string `json:"title" binding:"max=256"`
}

// InfluencerDTO 影响力榜单条目
type InfluencerDTO struct {
	UserID            uint64  `json:"user_id"`
	InfluenceScore    float64 `json:"influence_score"`
	AvgClicksPerShare float64 `json:"avg_clicks_per_share"`
	ConversionRate    float64 `json:"conversion_rate"`
	TotalShares       int     `json:"total_shares"`
}
