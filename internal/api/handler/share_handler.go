package handler

import (
	"Evergreen/internal/api/dto"
	"Evergreen/internal/pkg/response"
	"Evergreen/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ShareHandler struct {
	eventSvc service.EventService
}

func NewShareHandler(eventSvc service.EventService) *ShareHandler {
	return &ShareHandler{eventSvc: eventSvc}
}

// RecordShare 记录一次分享，匿名用户也可上报
func (s *ShareHandler) RecordShare(c *gin.Context) {
	var req dto.ShareCreateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	var userID *uint64
	if uid := c.GetUint64("user_id"); uid != 0 {
		userID = &uid
	}

	created, err := s.eventSvc.RecordShare(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, created)
}

// RecordClick 记录分享链接被点击
func (s *ShareHandler) RecordClick(c *gin.Context) {
	shareID, err := strconv.ParseUint(c.Param("share_id"), 10, 64)
	if err != nil || shareID == 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	counted, err := s.eventSvc.RecordClick(c.Request.Context(), shareID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"counted": counted})
}

// RecordConversion 记录分享链路上的转化
func (s *ShareHandler) RecordConversion(c *gin.Context) {
	shareID, err := strconv.ParseUint(c.Param("share_id"), 10, 64)
	if err != nil || shareID == 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	var req dto.ShareConversionDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err = s.eventSvc.RecordConversion(c.Request.Context(), shareID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
