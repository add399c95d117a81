package wire

import (
	"Evergreen/internal/api"
	"Evergreen/internal/api/config"
	"Evergreen/internal/api/handler"
	"Evergreen/internal/job"
	"Evergreen/internal/pkg/cron"
	"Evergreen/internal/pkg/kafka"
	"Evergreen/internal/repository"
	"Evergreen/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	KafkaManager *kafka.ConsumerManager
	CronMgr      *cron.Manager
}

func BuildApplication(db *gorm.DB, cfg *config.Config) (*ApplicationContainer, error) {
	contentRepo := repository.NewContentRepo(db)
	shareEventRepo := repository.NewShareEventRepo(db)
	viralStateRepo := repository.NewViralStateRepo(db)
	coefficientRepo := repository.NewViralCoefficientRepo(db)
	referralRepo := repository.NewReferralRepo(db)
	referralCodeRepo := repository.NewReferralCodeRepo(db)
	rewardRepo := repository.NewRewardRepo(db)
	referrerStatsRepo := repository.NewReferrerStatsRepo(db)
	userInfluenceRepo := repository.NewUserInfluenceRepo(db)

	rewardSink := service.NewRewardSink(cfg.Reward)
	rewardService := service.NewRewardService(rewardRepo, rewardSink, cfg.Reward)
	eventService := service.NewEventService(contentRepo, shareEventRepo, viralStateRepo, rewardService)
	referralService := service.NewReferralService(referralRepo, referralCodeRepo, referrerStatsRepo,
		rewardService, cfg.Referral, cfg.Reward)
	viralService := service.NewViralService(contentRepo, shareEventRepo, viralStateRepo,
		coefficientRepo, userInfluenceRepo, cfg.Viral)
	trendingService := service.NewTrendingService(viralStateRepo, shareEventRepo, cfg.Viral)

	handlers := &api.HandlersGroup{
		ShareHandler:    handler.NewShareHandler(eventService),
		ReferralHandler: handler.NewReferralHandler(referralService),
		ViralHandler:    handler.NewViralHandler(viralService),
		TrendingHandler: handler.NewTrendingHandler(trendingService),
	}

	router := api.SetupRouter(handlers)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, eventService)
	if err != nil {
		return nil, err
	}

	cronMgr := cron.NewCronManager(
		job.NewViralCoefficientJob(viralService),
		job.NewTrendingJob(trendingService),
		job.NewRetentionJob(eventService, referralService),
		job.NewRewardExpiryJob(rewardService),
	)

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		KafkaManager: kafkaMgr,
		CronMgr:      cronMgr,
	}, nil
}
