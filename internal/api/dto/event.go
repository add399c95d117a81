package dto

// ShareEventMessage 分享事件流消息体
type ShareEventMessage struct {
	EventType       string                 `json:"event_type"` // share / click / conversion
	ContentID       uint64                 `json:"content_id"`
	ContentType     string                 `json:"content_type"`
	Platform        string                 `json:"platform"`
	UserID          *uint64                `json:"user_id,omitempty"`
	ShareID         uint64                 `json:"share_id,omitempty"`
	ConversionType  string                 `json:"conversion_type,omitempty"`
	ConversionValue float64                `json:"conversion_value,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}
