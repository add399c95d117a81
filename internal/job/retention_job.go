package job

import (
	"Evergreen/internal/api/config"
	"Evergreen/internal/pkg/logger"
	"Evergreen/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// RetentionJob 按保留期清理分享事件与未转化的访问记录
type RetentionJob struct {
	eventSvc    service.EventService
	referralSvc service.ReferralService
}

func NewRetentionJob(eventSvc service.EventService, referralSvc service.ReferralService) *RetentionJob {
	return &RetentionJob{eventSvc: eventSvc, referralSvc: referralSvc}
}

func (s *RetentionJob) Run() {
	traceID := "job-retention-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)
	now := time.Now()

	if days := config.Cfg.Viral.RetentionDays; days > 0 {
		deleted, err := s.eventSvc.PurgeExpiredShares(ctx, now.AddDate(0, 0, -days))
		if err != nil {
			log.ErrorContext(ctx, "分享事件清理失败", "err", err)
		} else if deleted > 0 {
			log.InfoContext(ctx, "分享事件清理完成", "deleted", deleted)
		}
	}

	if days := config.Cfg.Referral.VisitTTLDays; days > 0 {
		deleted, err := s.referralSvc.PurgeStaleVisits(ctx, now.AddDate(0, 0, -days))
		if err != nil {
			log.ErrorContext(ctx, "访问记录清理失败", "err", err)
		} else if deleted > 0 {
			log.InfoContext(ctx, "访问记录清理完成", "deleted", deleted)
		}
	}
}
