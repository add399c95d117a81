package service

import (
	"Evergreen/internal/api/dto"
	"Evergreen/internal/model"
	"Evergreen/internal/pkg/consts"
	"Evergreen/internal/pkg/redis"
	"Evergreen/internal/pkg/util"
	"Evergreen/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
)

// clickBucketExpiration 日级点击桶保留两天，热度计算取今昨两桶近似 24 小时窗口
const clickBucketExpiration = 48 * time.Hour

type EventService interface {
	RecordShare(ctx context.Context, userID *uint64, req *dto.ShareCreateDTO) (*dto.ShareCreatedDTO, error)
	// RecordClick 返回是否命中有效分享，分享已被清理时为 false 且不报错
	RecordClick(ctx context.Context, shareID uint64) (bool, error)
	RecordConversion(ctx context.Context, shareID uint64, req *dto.ShareConversionDTO) error
	// PurgeExpiredShares 删除留存期外的分享事件，返回删除行数
	PurgeExpiredShares(ctx context.Context, cutoff time.Time) (int64, error)
}

type eventServiceImpl struct {
	contentRepo    repository.ContentRepo
	shareEventRepo repository.ShareEventRepo
	viralStateRepo repository.ViralStateRepo
	rewardSvc      RewardService
}

func NewEventService(
	contentRepo repository.ContentRepo,
	shareEventRepo repository.ShareEventRepo,
	viralStateRepo repository.ViralStateRepo,
	rewardSvc RewardService,
) EventService {
	return &eventServiceImpl{
		contentRepo:    contentRepo,
		shareEventRepo: shareEventRepo,
		viralStateRepo: viralStateRepo,
		rewardSvc:      rewardSvc,
	}
}

func (s *eventServiceImpl) RecordShare(ctx context.Context, userID *uint64, req *dto.ShareCreateDTO) (*dto.ShareCreatedDTO, error) {
	// Kafka 通道没有参数绑定校验，白名单检查在服务层兜底
	if !consts.ValidContentType(req.ContentType) {
		return nil, ErrInvalidContentType
	}
	if !consts.ValidPlatform(req.Platform) {
		return nil, ErrInvalidPlatform
	}
	exists, err := s.contentRepo.Exists(ctx, req.ContentID, req.ContentType)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrContentNotFound
	}

	metadata := ""
	if len(req.Metadata) > 0 {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, ErrParamInvalid
		}
		metadata = string(raw)
	}

	now := time.Now()
	event := &model.ShareEvent{
		ContentID:   req.ContentID,
		ContentType: req.ContentType,
		Platform:    req.Platform,
		UserID:      userID,
		ShareTime:   now,
		Metadata:    metadata,
	}
	if err = s.shareEventRepo.Create(ctx, event); err != nil {
		return nil, err
	}
	if err = s.viralStateRepo.UpsertOnShare(ctx, req.ContentID, req.ContentType, now); err != nil {
		return nil, err
	}

	s.markDirty(ctx, req.ContentID, req.ContentType, userID)
	contentKey := util.ContentKey(req.ContentType, req.ContentID)
	if err = redis.Incr(ctx, consts.ContentShareCountKey+contentKey); err != nil {
		log.WarnContext(ctx, "分享计数缓存自增失败", "content", contentKey, "error", err)
	}

	// 分享奖励失败不阻断事件记录
	if err = s.rewardSvc.AwardContentShare(ctx, event); err != nil && !errors.Is(err, ErrDuplicateReward) {
		log.ErrorContext(ctx, "分享奖励发放失败", "share_id", event.ID, "error", err)
	}

	return &dto.ShareCreatedDTO{
		ShareID:     event.ID,
		ContentID:   event.ContentID,
		ContentType: event.ContentType,
		Platform:    event.Platform,
	}, nil
}

func (s *eventServiceImpl) RecordClick(ctx context.Context, shareID uint64) (bool, error) {
	share, err := s.shareEventRepo.GetByID(ctx, shareID)
	if err != nil {
		return false, err
	}
	if share == nil {
		// 留存清理后的旧链接仍可能被点击，按空操作处理
		log.InfoContext(ctx, "点击指向不存在的分享，忽略", "share_id", shareID)
		return false, nil
	}

	rows, err := s.shareEventRepo.IncrementClick(ctx, shareID)
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	now := time.Now()
	if err = s.viralStateRepo.IncrementClick(ctx, share.ContentID, share.ContentType, now); err != nil {
		return false, err
	}

	s.markDirty(ctx, share.ContentID, share.ContentType, share.UserID)
	contentKey := util.ContentKey(share.ContentType, share.ContentID)
	if err = redis.Incr(ctx, consts.ContentClickCountKey+contentKey); err != nil {
		log.WarnContext(ctx, "点击计数缓存自增失败", "content", contentKey, "error", err)
	}
	dailyKey := consts.ClickDailyKey + contentKey + ":" + now.Format("20060102")
	if err = redis.IncrWithExpire(ctx, dailyKey, clickBucketExpiration); err != nil {
		log.WarnContext(ctx, "日级点击桶自增失败", "content", contentKey, "error", err)
	}

	// 首次点击给分享人发奖，reference 幂等保证后续点击不重复入账
	if err = s.rewardSvc.AwardShareClick(ctx, share); err != nil && !errors.Is(err, ErrDuplicateReward) {
		log.ErrorContext(ctx, "点击奖励发放失败", "share_id", shareID, "error", err)
	}
	return true, nil
}

func (s *eventServiceImpl) RecordConversion(ctx context.Context, shareID uint64, req *dto.ShareConversionDTO) error {
	if req.ConversionValue < 0 {
		return ErrNegativeValue
	}
	share, err := s.shareEventRepo.GetByID(ctx, shareID)
	if err != nil {
		return err
	}
	if share == nil {
		return ErrShareNotFound
	}

	rows, err := s.shareEventRepo.IncrementConversion(ctx, shareID, req.ConversionValue)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrShareNotFound
	}

	now := time.Now()
	if err = s.viralStateRepo.IncrementConversion(ctx, share.ContentID, share.ContentType, now); err != nil {
		return err
	}

	s.markDirty(ctx, share.ContentID, share.ContentType, share.UserID)
	contentKey := util.ContentKey(share.ContentType, share.ContentID)
	if err = redis.Incr(ctx, consts.ContentConversionCountKey+contentKey); err != nil {
		log.WarnContext(ctx, "转化计数缓存自增失败", "content", contentKey, "error", err)
	}

	// 分享人奖励失败不阻断转化记录
	if err = s.rewardSvc.AwardShareConversion(ctx, share, req.ConversionType, req.ConversionValue); err != nil {
		if !errors.Is(err, ErrDuplicateReward) {
			log.ErrorContext(ctx, "分享转化奖励发放失败", "share_id", shareID, "error", err)
		}
	}
	return nil
}

func (s *eventServiceImpl) PurgeExpiredShares(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.shareEventRepo.DeleteOlderThan(ctx, cutoff)
}

// markDirty 标记待重算的内容与用户维度
func (s *eventServiceImpl) markDirty(ctx context.Context, contentID uint64, contentType string, userID *uint64) {
	if err := redis.SAdd(ctx, consts.ContentDirtyKey, util.ContentKey(contentType, contentID)); err != nil {
		log.WarnContext(ctx, "内容脏集合写入失败", "content_id", contentID, "error", err)
	}
	if userID != nil {
		if err := redis.SAdd(ctx, consts.UserDirtyKey, *userID); err != nil {
			log.WarnContext(ctx, "用户脏集合写入失败", "user_id", *userID, "error", err)
		}
	}
}
