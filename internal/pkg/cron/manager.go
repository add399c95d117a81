package cron

import (
	"Evergreen/internal/api/config"
	"Evergreen/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine          *cron.Cron
	coefficientJob  *job.ViralCoefficientJob
	trendingJob     *job.TrendingJob
	retentionJob    *job.RetentionJob
	rewardExpiryJob *job.RewardExpiryJob
}

func NewCronManager(
	coefficientJob *job.ViralCoefficientJob,
	trendingJob *job.TrendingJob,
	retentionJob *job.RetentionJob,
	rewardExpiryJob *job.RewardExpiryJob,
) *Manager {
	return &Manager{
		engine:          cron.New(cron.WithSeconds()),
		coefficientJob:  coefficientJob,
		trendingJob:     trendingJob,
		retentionJob:    retentionJob,
		rewardExpiryJob: rewardExpiryJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	cfg := config.Cfg.Viral
	if _, err := s.engine.AddJob(cfg.CalcSpec, s.coefficientJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob(cfg.TrendingSpec, s.trendingJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("@daily", s.retentionJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("@daily", s.rewardExpiryJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
