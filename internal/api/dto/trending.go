package dto

// TrendingItemDTO 热度榜单条目
type TrendingItemDTO struct {
	ContentID        uint64  `json:"content_id"`
	ContentType      string  `json:"content_type"`
	TrendingScore    float64 `json:"trending_score"`
	ViralCoefficient float64 `json:"viral_coefficient"`
	ShareCount       int     `json:"share_count"`
	ClickCount       int     `json:"click_count"`
}
