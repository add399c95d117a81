package api

import "Evergreen/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	ShareHandler    *handler.ShareHandler
	ReferralHandler *handler.ReferralHandler
	ViralHandler    *handler.ViralHandler
	TrendingHandler *handler.TrendingHandler
}
