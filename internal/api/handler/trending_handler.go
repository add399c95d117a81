package handler

import (
	"Evergreen/internal/pkg/consts"
	"Evergreen/internal/pkg/response"
	"Evergreen/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type TrendingHandler struct {
	trendingSvc service.TrendingService
}

func NewTrendingHandler(trendingSvc service.TrendingService) *TrendingHandler {
	return &TrendingHandler{trendingSvc: trendingSvc}
}

// GetTrending 热度榜单，content_type 为空时返回全局榜
func (s *TrendingHandler) GetTrending(c *gin.Context) {
	contentType := c.Query("content_type")
	if contentType != "" && !consts.ValidContentType(contentType) {
		response.Error(c, service.ErrInvalidContentType)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	items, err := s.trendingSvc.GetTrendingContent(c.Request.Context(), limit, contentType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}
