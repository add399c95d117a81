package job

import (
	"Evergreen/internal/api/config"
	"Evergreen/internal/pkg/consts"
	"Evergreen/internal/pkg/logger"
	"Evergreen/internal/pkg/redis"
	"Evergreen/internal/pkg/util"
	"Evergreen/internal/service"
	"context"
	log "log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const calcLockExpiration = 2 * time.Minute

// ViralCoefficientJob 清洗内容脏集合并重算系数，同时覆盖活跃回看窗口内的内容
type ViralCoefficientJob struct {
	viralSvc service.ViralService
}

func NewViralCoefficientJob(viralSvc service.ViralService) *ViralCoefficientJob {
	return &ViralCoefficientJob{viralSvc: viralSvc}
}

func (s *ViralCoefficientJob) Run() {
	traceID := "job-coef-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	contentKeys := s.collectDirtyContent(ctx)
	failures := 0
	for key := range contentKeys {
		contentType, contentID, err := splitContentKey(key)
		if err != nil {
			log.WarnContext(ctx, "脏集合成员格式异常", "member", key, "err", err)
			continue
		}
		if err = s.recalculateOne(ctx, contentID, contentType); err != nil {
			log.ErrorContext(ctx, "内容系数重算失败", "content_id", contentID, "content_type", contentType, "err", err)
			failures++
		}
	}

	for _, platform := range []string{
		consts.PlatformFacebook, consts.PlatformTwitter, consts.PlatformLinkedin,
		consts.PlatformWhatsapp, consts.PlatformTelegram, consts.PlatformEmail,
	} {
		if err := s.viralSvc.CalculatePlatformCoefficients(ctx, platform); err != nil {
			log.ErrorContext(ctx, "平台系数重算失败", "platform", platform, "err", err)
		}
	}

	userCount := s.drainDirtyUsers(ctx)

	log.InfoContext(ctx, "系数重算完成",
		"content_count", len(contentKeys),
		"content_failures", failures,
		"user_count", userCount)
}

// collectDirtyContent 取脏集合与回看窗口内活跃内容的并集
func (s *ViralCoefficientJob) collectDirtyContent(ctx context.Context) map[string]struct{} {
	contentKeys := make(map[string]struct{})

	processingKey := consts.ContentDirtyKey + ":processing"
	if err := redis.Rename(ctx, consts.ContentDirtyKey, processingKey); err == nil {
		members, err := redis.GetSet(ctx, processingKey)
		if err != nil {
			log.ErrorContext(ctx, "获取内容脏集合失败", "err", err)
		} else {
			for _, m := range members {
				contentKeys[m] = struct{}{}
			}
			if err = redis.DeleteKey(ctx, processingKey); err != nil {
				log.ErrorContext(ctx, "删除内容处理集合失败", "err", err)
			}
		}
	}

	since := time.Now().AddDate(0, 0, -config.Cfg.Viral.LookbackDays)
	refs, err := s.viralSvc.ListActiveContent(ctx, since)
	if err != nil {
		log.ErrorContext(ctx, "获取活跃内容失败", "err", err)
		return contentKeys
	}
	for _, ref := range refs {
		contentKeys[util.ContentKey(ref.ContentType, ref.ContentID)] = struct{}{}
	}
	return contentKeys
}

func (s *ViralCoefficientJob) recalculateOne(ctx context.Context, contentID uint64, contentType string) error {
	lockKey := consts.ContentCalcLock + util.ContentKey(contentType, contentID)
	locked, err := redis.TryLock(ctx, lockKey, contentID, calcLockExpiration, 0)
	if err != nil {
		return err
	}
	if !locked {
		return nil
	}
	defer redis.UnLock(ctx, lockKey, contentID)
	return s.viralSvc.CalculateContentCoefficients(ctx, contentID, contentType)
}

func (s *ViralCoefficientJob) drainDirtyUsers(ctx context.Context) int {
	processingKey := consts.UserDirtyKey + ":processing"
	if err := redis.Rename(ctx, consts.UserDirtyKey, processingKey); err != nil {
		return 0
	}
	members, err := redis.GetSet(ctx, processingKey)
	if err != nil {
		log.ErrorContext(ctx, "获取用户脏集合失败", "err", err)
		return 0
	}
	userIDs, err := util.StrSliceToUInt64Slice(members)
	if err != nil {
		log.ErrorContext(ctx, "用户脏集合转换失败", "err", err)
		return 0
	}
	for _, uid := range userIDs {
		if err = s.viralSvc.CalculateUserInfluence(ctx, uid); err != nil {
			log.ErrorContext(ctx, "用户影响力重算失败", "uid", uid, "err", err)
		}
	}
	if err = redis.DeleteKey(ctx, processingKey); err != nil {
		log.ErrorContext(ctx, "删除用户处理集合失败", "err", err)
	}
	return len(userIDs)
}

// splitContentKey 解析形如 post:42 的内容键
func splitContentKey(key string) (string, uint64, error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return "", 0, service.ErrParamInvalid
	}
	contentID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return "", 0, err
	}
	return parts[0], contentID, nil
}
