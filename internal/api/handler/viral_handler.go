package handler

import (
	"Evergreen/internal/api/dto"
	"Evergreen/internal/pkg/consts"
	"Evergreen/internal/pkg/response"
	"Evergreen/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ViralHandler struct {
	viralSvc service.ViralService
}

func NewViralHandler(viralSvc service.ViralService) *ViralHandler {
	return &ViralHandler{viralSvc: viralSvc}
}

// GetViralStats 内容传播统计
func (s *ViralHandler) GetViralStats(c *gin.Context) {
	contentType := c.Param("content_type")
	if !consts.ValidContentType(contentType) {
		response.Error(c, service.ErrInvalidContentType)
		return
	}
	contentID, err := strconv.ParseUint(c.Param("content_id"), 10, 64)
	if err != nil || contentID == 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	period := c.Query("period")
	if period != "" && !consts.ValidPeriod(period) {
		response.Error(c, service.ErrInvalidPeriod)
		return
	}

	stats, err := s.viralSvc.GetContentViralStats(c.Request.Context(), contentID, contentType, period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// GetInfluencers 影响力榜单
func (s *ViralHandler) GetInfluencers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	items, err := s.viralSvc.ListTopInfluencers(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}

// Recalculate 管理端手动触发单内容系数重算
func (s *ViralHandler) Recalculate(c *gin.Context) {
	var req dto.RecalculateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := s.viralSvc.CalculateContentCoefficients(c.Request.Context(), req.ContentID, req.ContentType); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RegisterContent 管理端登记可分享内容
func (s *ViralHandler) RegisterContent(c *gin.Context) {
	var req dto.ContentRegisterDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := s.viralSvc.RegisterContent(c.Request.Context(), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
