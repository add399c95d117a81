package job

import (
	"Evergreen/internal/pkg/logger"
	"Evergreen/internal/service"
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

// RewardExpiryJob 过期长时间未处理的 pending 奖励
type RewardExpiryJob struct {
	rewardSvc service.RewardService
}

func NewRewardExpiryJob(rewardSvc service.RewardService) *RewardExpiryJob {
	return &RewardExpiryJob{rewardSvc: rewardSvc}
}

func (s *RewardExpiryJob) Run() {
	traceID := "job-reward-expiry-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	expired, err := s.rewardSvc.ExpirePending(ctx)
	if err != nil {
		log.ErrorContext(ctx, "奖励过期处理失败", "err", err)
		return
	}
	if expired > 0 {
		log.InfoContext(ctx, "奖励过期处理完成", "expired", expired)
	}
}
