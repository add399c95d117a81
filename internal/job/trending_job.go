package job

import (
	"Evergreen/internal/pkg/logger"
	"Evergreen/internal/service"
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

// TrendingJob 周期性重算热度榜单
type TrendingJob struct {
	trendingSvc service.TrendingService
}

func NewTrendingJob(trendingSvc service.TrendingService) *TrendingJob {
	return &TrendingJob{trendingSvc: trendingSvc}
}

func (s *TrendingJob) Run() {
	traceID := "job-trending-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	if err := s.trendingSvc.RecomputeTrending(ctx); err != nil {
		log.ErrorContext(ctx, "热度重算失败", "err", err)
		return
	}
	log.InfoContext(ctx, "热度重算完成")
}
