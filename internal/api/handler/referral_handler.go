package handler

import (
	"Evergreen/internal/api/dto"
	"Evergreen/internal/pkg/consts"
	"Evergreen/internal/pkg/response"
	"Evergreen/internal/service"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ReferralHandler struct {
	referralSvc service.ReferralService
}

func NewReferralHandler(referralSvc service.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralSvc: referralSvc}
}

// TrackVisit 推荐链接落地访问上报，无需登录
func (s *ReferralHandler) TrackVisit(c *gin.Context) {
	var req dto.ReferralVisitDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	result, err := s.referralSvc.TrackVisit(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ProcessConversion 推荐转化上报，被推荐人为当前登录用户
func (s *ReferralHandler) ProcessConversion(c *gin.Context) {
	refereeID := c.GetUint64("user_id")
	if refereeID == 0 {
		response.Error(c, service.UnauthorizedError)
		return
	}
	var req dto.ReferralConversionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := s.referralSvc.ProcessConversion(c.Request.Context(), refereeID, &req, c.ClientIP()); err != nil {
		// 重复上报按幂等空操作返回成功，保证客户端重试安全
		if errors.Is(err, service.ErrDuplicateConversion) {
			response.Success(c, &dto.ConversionResultDTO{Success: false, Duplicate: true})
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.ConversionResultDTO{Success: true})
}

// GetReferralCode 获取（必要时生成）当前用户的推荐码
func (s *ReferralHandler) GetReferralCode(c *gin.Context) {
	userID := c.GetUint64("user_id")

	code, err := s.referralSvc.GenerateReferralCode(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, code)
}

// GetLeaderboard 推荐转化榜单
func (s *ReferralHandler) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	entries, err := s.referralSvc.GetLeaderboard(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, entries)
}

// GetDashboard 当前用户的推荐看板，period 缺省为月窗口
func (s *ReferralHandler) GetDashboard(c *gin.Context) {
	userID := c.GetUint64("user_id")
	period := c.Query("period")
	if period != "" && !consts.ValidPeriod(period) {
		response.Error(c, service.ErrInvalidPeriod)
		return
	}

	dashboard, err := s.referralSvc.GetDashboard(c.Request.Context(), userID, period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dashboard)
}
