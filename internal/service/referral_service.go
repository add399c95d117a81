package service

import (
	"Evergreen/internal/api/config"
	"Evergreen/internal/api/dto"
	"Evergreen/internal/model"
	"Evergreen/internal/pkg/consts"
	"Evergreen/internal/pkg/redis"
	"Evergreen/internal/pkg/util"
	"Evergreen/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/goccy/go-json"
	"github.com/jinzhu/copier"
)

const (
	codeGenerateRetries      = 5
	conversionLockExpiration = 10 * time.Second
	dashboardCacheExpiration = 5 * time.Minute
)

type ReferralService interface {
	// GenerateReferralCode 幂等取码，用户已有推荐码时直接返回
	GenerateReferralCode(ctx context.Context, userID uint64) (*dto.ReferralCodeDTO, error)
	TrackVisit(ctx context.Context, req *dto.ReferralVisitDTO, clientIP string) (*dto.ReferralVisitResultDTO, error)
	ProcessConversion(ctx context.Context, refereeID uint64, req *dto.ReferralConversionDTO, clientIP string) error
	// GetDashboard 推荐看板，period 为空时回落到月窗口
	GetDashboard(ctx context.Context, userID uint64, period string) (*dto.ReferralDashboardDTO, error)
	GetLeaderboard(ctx context.Context, limit int) ([]*dto.LeaderboardEntryDTO, error)
	// PurgeStaleVisits 删除保留期外仍未转化的访问记录，返回删除行数
	PurgeStaleVisits(ctx context.Context, cutoff time.Time) (int64, error)
}

type referralServiceImpl struct {
	referralRepo repository.ReferralRepo
	codeRepo     repository.ReferralCodeRepo
	statsRepo    repository.ReferrerStatsRepo
	rewardSvc    RewardService
	cfg          config.ReferralConfig
	rewardCfg    config.RewardConfig
}

func NewReferralService(
	referralRepo repository.ReferralRepo,
	codeRepo repository.ReferralCodeRepo,
	statsRepo repository.ReferrerStatsRepo,
	rewardSvc RewardService,
	cfg config.ReferralConfig,
	rewardCfg config.RewardConfig,
) ReferralService {
	return &referralServiceImpl{
		referralRepo: referralRepo,
		codeRepo:     codeRepo,
		statsRepo:    statsRepo,
		rewardSvc:    rewardSvc,
		cfg:          cfg,
		rewardCfg:    rewardCfg,
	}
}

func (s *referralServiceImpl) GenerateReferralCode(ctx context.Context, userID uint64) (*dto.ReferralCodeDTO, error) {
	existing, err := s.codeRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &dto.ReferralCodeDTO{UserID: userID, Code: existing.Code}, nil
	}

	for i := 0; i < codeGenerateRetries; i++ {
		code, err := util.GenerateReferralCode(s.cfg.CodeLength)
		if err != nil {
			return nil, err
		}
		err = s.codeRepo.Create(ctx, &model.ReferralCode{UserID: userID, Code: code})
		if err == nil {
			return &dto.ReferralCodeDTO{UserID: userID, Code: code}, nil
		}
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			// 码冲突重试，用户维度冲突说明并发分配已完成
			existing, gerr := s.codeRepo.GetByUserID(ctx, userID)
			if gerr == nil && existing != nil {
				return &dto.ReferralCodeDTO{UserID: userID, Code: existing.Code}, nil
			}
			continue
		}
		return nil, err
	}
	return nil, UnExpectedError
}

// resolveCode 推荐码到推荐人的映射带缓存，访问热路径免打数据库
func (s *referralServiceImpl) resolveCode(ctx context.Context, code string) (*model.ReferralCode, error) {
	cacheKey := consts.ReferralCodeCacheKey + code
	if cached, err := redis.GetValue(ctx, cacheKey); err == nil && cached != "" {
		if userID, perr := strconv.ParseUint(cached, 10, 64); perr == nil {
			return &model.ReferralCode{UserID: userID, Code: code}, nil
		}
	}
	codeRow, err := s.codeRepo.GetByCode(ctx, code)
	if err != nil || codeRow == nil {
		return codeRow, err
	}
	if err = redis.SetWithExpiration(ctx, cacheKey, codeRow.UserID, time.Hour); err != nil {
		log.WarnContext(ctx, "推荐码缓存写入失败", "code", code, "error", err)
	}
	return codeRow, nil
}

func (s *referralServiceImpl) TrackVisit(ctx context.Context, req *dto.ReferralVisitDTO, clientIP string) (*dto.ReferralVisitResultDTO, error) {
	codeRow, err := s.resolveCode(ctx, req.ReferralCode)
	if err != nil {
		return nil, err
	}
	if codeRow == nil {
		return nil, ErrReferralCodeNotFound
	}

	now := time.Now()
	since := now.Add(-time.Duration(s.cfg.VisitDedupHours) * time.Hour)
	existing, err := s.referralRepo.FindVisitedByCodeIP(ctx, req.ReferralCode, clientIP, since)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err = s.referralRepo.IncrementVisit(ctx, existing.ID); err != nil {
			return nil, err
		}
		return &dto.ReferralVisitResultDTO{
			ReferralID: existing.ID,
			NewVisit:   false,
			VisitCount: existing.VisitCount + 1,
		}, nil
	}

	referral := &model.Referral{
		ReferrerID:   codeRow.UserID,
		ReferralCode: req.ReferralCode,
		Status:       consts.ReferralStatusVisited,
		VisitCount:   1,
		ClientIP:     clientIP,
		SourceURL:    req.SourceURL,
		LandingPage:  req.LandingPage,
		FirstVisitAt: now,
	}
	if err = s.referralRepo.Create(ctx, referral); err != nil {
		return nil, err
	}

	// 访问奖励只在新建访问记录时发放，失败不阻断访问跟踪
	if err = s.rewardSvc.AwardVisit(ctx, referral); err != nil && !errors.Is(err, ErrDuplicateReward) {
		log.ErrorContext(ctx, "访问奖励发放失败", "referral_id", referral.ID, "error", err)
	}
	s.invalidateDashboard(ctx, codeRow.UserID)

	return &dto.ReferralVisitResultDTO{
		ReferralID: referral.ID,
		NewVisit:   true,
		VisitCount: 1,
	}, nil
}

func (s *referralServiceImpl) ProcessConversion(ctx context.Context, refereeID uint64, req *dto.ReferralConversionDTO, clientIP string) error {
	if req.ConversionValue < 0 {
		return ErrNegativeValue
	}
	codeRow, err := s.resolveCode(ctx, req.ReferralCode)
	if err != nil {
		return err
	}
	if codeRow == nil {
		return ErrReferralCodeNotFound
	}
	referrerID := codeRow.UserID
	if referrerID == refereeID {
		return ErrSelfReferral
	}

	lockKey := consts.ConversionLock + fmt.Sprintf("%d:%d:%s", referrerID, refereeID, req.ConversionType)
	locked, err := redis.TryLock(ctx, lockKey, refereeID, conversionLockExpiration, 3)
	if err != nil {
		return err
	}
	if !locked {
		return ErrDuplicateConversion
	}
	defer redis.UnLock(ctx, lockKey, refereeID)

	duplicated, err := s.referralRepo.ExistsConversion(ctx, referrerID, refereeID, req.ConversionType)
	if err != nil {
		return err
	}
	if duplicated {
		return ErrDuplicateConversion
	}

	now := time.Now()
	referral, err := s.promoteOrCreate(ctx, referrerID, refereeID, req, clientIP, now)
	if err != nil {
		return err
	}

	// 奖励发放失败不回滚转化记录，依赖 reference 幂等补发
	if err = s.rewardSvc.AwardConversion(ctx, referral, req.ConversionType, req.ConversionValue); err != nil && !errors.Is(err, ErrDuplicateReward) {
		log.ErrorContext(ctx, "转化奖励发放失败", "referral_id", referral.ID, "error", err)
	}
	if req.ConversionType == consts.ConversionTypeRegistration {
		if err = s.rewardSvc.AwardSignupBonus(ctx, refereeID, referral.ID); err != nil && !errors.Is(err, ErrDuplicateReward) {
			log.ErrorContext(ctx, "注册奖励发放失败", "referee_id", refereeID, "error", err)
		}
		// 新用户顺带分配推荐码，方便二级传播
		if _, err = s.GenerateReferralCode(ctx, refereeID); err != nil {
			log.WarnContext(ctx, "新用户推荐码分配失败", "referee_id", refereeID, "error", err)
		}
	}

	if err = s.refreshReferrerStats(ctx, referrerID); err != nil {
		log.ErrorContext(ctx, "推荐人统计刷新失败", "referrer_id", referrerID, "error", err)
	}
	s.invalidateDashboard(ctx, referrerID)
	return nil
}

// promoteOrCreate 优先把既有 visited 记录推进为 converted，没有可归因的
// 访问记录时直接落一条 converted
func (s *referralServiceImpl) promoteOrCreate(ctx context.Context, referrerID, refereeID uint64, req *dto.ReferralConversionDTO, clientIP string, now time.Time) (*model.Referral, error) {
	since := now.Add(-time.Duration(s.cfg.VisitDedupHours) * time.Hour)
	candidate, err := s.referralRepo.FindVisitedByCodeIP(ctx, req.ReferralCode, clientIP, since)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		candidate, err = s.referralRepo.FindVisitedByCode(ctx, req.ReferralCode)
		if err != nil {
			return nil, err
		}
	}
	if candidate != nil {
		rows, err := s.referralRepo.Promote(ctx, candidate.ID, refereeID, req.ConversionType, req.ConversionValue, now)
		if err != nil {
			return nil, err
		}
		if rows > 0 {
			return s.referralRepo.GetByID(ctx, candidate.ID)
		}
	}

	referral := &model.Referral{
		ReferrerID:      referrerID,
		RefereeID:       &refereeID,
		ReferralCode:    req.ReferralCode,
		Status:          consts.ReferralStatusConverted,
		ConversionType:  req.ConversionType,
		ConversionValue: req.ConversionValue,
		VisitCount:      1,
		ClientIP:        clientIP,
		FirstVisitAt:    now,
		ConversionAt:    &now,
	}
	if err = s.referralRepo.Create(ctx, referral); err != nil {
		return nil, err
	}
	return referral, nil
}

// refreshReferrerStats 从明细重算推荐人统计并检查里程碑
func (s *referralServiceImpl) refreshReferrerStats(ctx context.Context, referrerID uint64) error {
	agg, err := s.referralRepo.AggregateReferrer(ctx, referrerID)
	if err != nil {
		return err
	}
	stats, err := s.statsRepo.GetByUserID(ctx, referrerID)
	if err != nil {
		return err
	}
	if stats == nil {
		stats = &model.ReferrerStats{UserID: referrerID}
	}
	stats.TotalReferrals = int(agg.TotalReferrals)
	stats.SuccessfulReferrals = int(agg.SuccessfulReferrals)
	stats.TotalConversionValue = agg.TotalValue
	if agg.TotalReferrals > 0 {
		stats.ConversionRate = float64(agg.SuccessfulReferrals) / float64(agg.TotalReferrals)
	} else {
		stats.ConversionRate = 0
	}

	if _, err = s.rewardSvc.CheckMilestones(ctx, stats); err != nil {
		log.ErrorContext(ctx, "里程碑检查失败", "referrer_id", referrerID, "error", err)
	}
	return s.statsRepo.Upsert(ctx, stats)
}

// periodDays 统计周期对应的窗口天数，未知值回落到月窗口
func periodDays(period string) int {
	switch period {
	case consts.PeriodDaily:
		return 1
	case consts.PeriodWeekly:
		return 7
	default:
		return 30
	}
}

func (s *referralServiceImpl) GetDashboard(ctx context.Context, userID uint64, period string) (*dto.ReferralDashboardDTO, error) {
	if period == "" {
		period = consts.PeriodMonthly
	}
	cacheKey := consts.ReferralDashboardKey + fmt.Sprintf("%d:%s", userID, period)
	if cached, err := redis.GetValue(ctx, cacheKey); err == nil && cached != "" {
		var dashboard dto.ReferralDashboardDTO
		if err = json.Unmarshal([]byte(cached), &dashboard); err == nil {
			return &dashboard, nil
		}
	}

	dashboard := &dto.ReferralDashboardDTO{
		UserID:             userID,
		Period:             period,
		AchievedMilestones: make([]int, 0),
		RecentReferrals:    make([]*dto.ReferralBriefDTO, 0),
		RecentRewards:      make([]*dto.RewardBriefDTO, 0),
	}
	since := time.Now().AddDate(0, 0, -periodDays(period))

	codeRow, err := s.codeRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if codeRow != nil {
		dashboard.ReferralCode = codeRow.Code
	}

	stats, err := s.statsRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stats != nil {
		dashboard.TotalReferrals = stats.TotalReferrals
		dashboard.SuccessfulReferrals = stats.SuccessfulReferrals
		dashboard.ConversionRate = stats.ConversionRate
		dashboard.TotalConversionValue = stats.TotalConversionValue
		dashboard.Title = stats.Title
		if stats.AchievedMilestones != "" {
			if err = json.Unmarshal([]byte(stats.AchievedMilestones), &dashboard.AchievedMilestones); err != nil {
				log.WarnContext(ctx, "已达成里程碑集合解析失败", "user_id", userID, "error", err)
			}
		}
	}
	dashboard.NextMilestone = s.nextMilestone(dashboard.SuccessfulReferrals)

	if dashboard.TotalRewards, err = s.rewardSvc.TotalEarned(ctx, userID); err != nil {
		return nil, err
	}

	// 周期口径的推荐聚合与终身口径并列展示
	periodAgg, err := s.referralRepo.AggregateReferrerSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	dashboard.PeriodReferrals = int(periodAgg.TotalReferrals)
	dashboard.PeriodSuccessfulReferrals = int(periodAgg.SuccessfulReferrals)
	dashboard.PeriodConversionValue = periodAgg.TotalValue

	referrals, err := s.referralRepo.ListRecentByReferrer(ctx, userID, since, 10)
	if err != nil {
		return nil, err
	}
	for _, referral := range referrals {
		brief := &dto.ReferralBriefDTO{}
		if err = copier.Copy(brief, referral); err != nil {
			return nil, err
		}
		brief.FirstVisitAt = referral.FirstVisitAt.Format(time.DateTime)
		if referral.ConversionAt != nil {
			brief.ConversionAt = referral.ConversionAt.Format(time.DateTime)
		}
		dashboard.RecentReferrals = append(dashboard.RecentReferrals, brief)
	}

	rewards, err := s.rewardSvc.ListRewards(ctx, userID, since, 10)
	if err != nil {
		return nil, err
	}
	for _, reward := range rewards {
		brief := &dto.RewardBriefDTO{}
		if err = copier.Copy(brief, reward); err != nil {
			return nil, err
		}
		brief.CreatedAt = reward.CreatedAt.Format(time.DateTime)
		dashboard.RecentRewards = append(dashboard.RecentRewards, brief)
	}

	if raw, err := json.Marshal(dashboard); err == nil {
		_ = redis.SetWithExpiration(ctx, cacheKey, string(raw), dashboardCacheExpiration)
	}
	return dashboard, nil
}

func (s *referralServiceImpl) GetLeaderboard(ctx context.Context, limit int) ([]*dto.LeaderboardEntryDTO, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.statsRepo.ListTopByConversions(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]*dto.LeaderboardEntryDTO, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &dto.LeaderboardEntryDTO{
			UserID:               row.UserID,
			SuccessfulReferrals:  row.SuccessfulReferrals,
			TotalReferrals:       row.TotalReferrals,
			TotalConversionValue: row.TotalConversionValue,
			Title:                row.Title,
		})
	}
	return entries, nil
}

func (s *referralServiceImpl) PurgeStaleVisits(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.referralRepo.DeleteVisitedBefore(ctx, cutoff)
}

func (s *referralServiceImpl) nextMilestone(successful int) *dto.NextMilestoneDTO {
	for i, threshold := range s.rewardCfg.MilestoneThresholds {
		if successful < threshold {
			bonus := 0.0
			if i < len(s.rewardCfg.MilestoneBonuses) {
				bonus = s.rewardCfg.MilestoneBonuses[i]
			}
			return &dto.NextMilestoneDTO{
				Threshold: threshold,
				Bonus:     bonus,
				Remaining: threshold - successful,
			}
		}
	}
	return nil
}

func (s *referralServiceImpl) invalidateDashboard(ctx context.Context, userID uint64) {
	for _, period := range []string{consts.PeriodDaily, consts.PeriodWeekly, consts.PeriodMonthly} {
		key := consts.ReferralDashboardKey + fmt.Sprintf("%d:%s", userID, period)
		if err := redis.DeleteKey(ctx, key); err != nil {
			log.WarnContext(ctx, "看板缓存失效失败", "user_id", userID, "period", period, "error", err)
		}
	}
}
