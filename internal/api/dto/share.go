package dto

// ShareCreateDTO 记录分享请求
type ShareCreateDTO struct {
	ContentID   uint64                 `json:"content_id" binding:"required"`
	ContentType string                 `json:"content_type" binding:"required,oneof=post page article custom"`
	Platform    string                 `json:"platform" binding:"required,oneof=facebook twitter linkedin whatsapp telegram email"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// ShareCreatedDTO 分享落库后返回的标识
type ShareCreatedDTO struct {
	ShareID     uint64 `json:"share_id"`
	ContentID   uint64 `json:"content_id"`
	ContentType string `json:"content_type"`
	Platform    string `json:"platform"`
}

// ShareConversionDTO 分享链路的转化上报
type ShareConversionDTO struct {
	ConversionType  string  `json:"conversion_type" binding:"required,oneof=registration purchase donation engagement"`
	ConversionValue float64 `json:"conversion_value" binding:"gte=0"`
}
