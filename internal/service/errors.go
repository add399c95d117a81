package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid         = errors.New("参数错误")
	ErrContentNotFound      = errors.New("内容不存在")
	ErrShareNotFound        = errors.New("分享记录不存在")
	ErrReferralCodeNotFound = errors.New("推荐码不存在")
	ErrUserNotFound         = errors.New("用户不存在")
	ErrSelfReferral         = errors.New("不能推荐自己")
	ErrNegativeValue        = errors.New("转化金额不能为负")
	ErrDuplicateConversion  = errors.New("重复转化")
	ErrDuplicateReward      = errors.New("奖励已发放")
	ErrInvalidPlatform      = errors.New("不支持的分享平台")
	ErrInvalidContentType   = errors.New("不支持的内容类型")
	ErrInvalidPeriod        = errors.New("不支持的统计周期")
	UnauthorizedError       = errors.New("权限不足")
	UnExpectedError         = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:         BadRequest,
	ErrContentNotFound:      NotFound,
	ErrShareNotFound:        NotFound,
	ErrReferralCodeNotFound: NotFound,
	ErrUserNotFound:         NotFound,
	ErrSelfReferral:         BadRequest,
	ErrNegativeValue:        BadRequest,
	ErrDuplicateConversion:  BadRequest,
	ErrDuplicateReward:      BadRequest,
	ErrInvalidPlatform:      BadRequest,
	ErrInvalidContentType:   BadRequest,
	ErrInvalidPeriod:        BadRequest,
	UnauthorizedError:       Unauthorized,
	UnExpectedError:         InternalServerError,
}
