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
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
)

const (
	maxCoefficient       = 10.0
	maxInfluenceScore    = 1000.0
	statsCacheExpiration = 2 * time.Minute
)

// periodWindow 计算周期与对应的时间衰减因子
type periodWindow struct {
	period string
	days   int
	decay  float64
}

var periodWindows = []periodWindow{
	{consts.PeriodDaily, 1, 1.0},
	{consts.PeriodWeekly, 7, 0.8},
	{consts.PeriodMonthly, 30, 0.6},
}

// coefficientFactors 系数分解，随系数行落库供审计
type coefficientFactors struct {
	AvgSharesPerUser   float64 `json:"avg_shares_per_user"`
	ConversionRate     float64 `json:"conversion_rate"`
	SecondaryShares    int64   `json:"secondary_shares"`
	ViralAmplification float64 `json:"viral_amplification"`
	BaseCoefficient    float64 `json:"base_coefficient"`
	PlatformFactor     float64 `json:"platform_factor"`
	EngagementRate     float64 `json:"engagement_rate"`
	EngagementFactor   float64 `json:"engagement_factor"`
	DecayFactor        float64 `json:"decay_factor"`
	FinalCoefficient   float64 `json:"final_coefficient"`
}

type ViralService interface {
	// CalculateContentCoefficients 对单个内容重算三个周期的系数并纠正聚合计数
	CalculateContentCoefficients(ctx context.Context, contentID uint64, contentType string) error
	CalculatePlatformCoefficients(ctx context.Context, platform string) error
	// CalculateUserInfluence 重算用户影响力快照
	CalculateUserInfluence(ctx context.Context, userID uint64) error
	// ListActiveContent 回看窗口内产生过分享的内容集合
	ListActiveContent(ctx context.Context, since time.Time) ([]*repository.ContentRef, error)
	ListTopInfluencers(ctx context.Context, limit int) ([]*dto.InfluencerDTO, error)
	// GetContentViralStats 内容病毒传播统计，period 为空时返回全部周期的系数
	GetContentViralStats(ctx context.Context, contentID uint64, contentType string, period string) (*dto.ViralStatsDTO, error)
	RegisterContent(ctx context.Context, req *dto.ContentRegisterDTO) error
}

type viralServiceImpl struct {
	contentRepo     repository.ContentRepo
	shareEventRepo  repository.ShareEventRepo
	viralStateRepo  repository.ViralStateRepo
	coefficientRepo repository.ViralCoefficientRepo
	influenceRepo   repository.UserInfluenceRepo
	cfg             config.ViralConfig
}

func NewViralService(
	contentRepo repository.ContentRepo,
	shareEventRepo repository.ShareEventRepo,
	viralStateRepo repository.ViralStateRepo,
	coefficientRepo repository.ViralCoefficientRepo,
	influenceRepo repository.UserInfluenceRepo,
	cfg config.ViralConfig,
) ViralService {
	return &viralServiceImpl{
		contentRepo:     contentRepo,
		shareEventRepo:  shareEventRepo,
		viralStateRepo:  viralStateRepo,
		coefficientRepo: coefficientRepo,
		influenceRepo:   influenceRepo,
		cfg:             cfg,
	}
}

func (s *viralServiceImpl) CalculateContentCoefficients(ctx context.Context, contentID uint64, contentType string) error {
	now := time.Now()
	freshest := -1.0
	freshestEngagement := 0.0

	for _, window := range periodWindows {
		since := now.AddDate(0, 0, -window.days)
		agg, err := s.shareEventRepo.AggregateContent(ctx, contentID, contentType, since)
		if err != nil {
			return err
		}
		// 周期内无分享则跳过该周期
		if agg.TotalShares == 0 {
			continue
		}

		breakdown, err := s.shareEventRepo.PlatformBreakdown(ctx, contentID, contentType, since)
		if err != nil {
			return err
		}
		shareTimes, err := s.shareEventRepo.ListUserShareTimes(ctx, contentID, contentType, since)
		if err != nil {
			return err
		}
		secondary := countSecondaryShares(shareTimes, time.Duration(s.cfg.SecondaryShareDays)*24*time.Hour)

		value, factors := computeCoefficient(agg, breakdown, secondary, s.cfg.PlatformWeights, window.decay)
		confidence := confidenceLevel(agg.TotalShares)
		factorJSON, err := json.Marshal(factors)
		if err != nil {
			return err
		}

		platforms := make([]string, 0, len(breakdown))
		for _, p := range breakdown {
			platforms = append(platforms, p.Platform)
		}
		if len(platforms) == 0 {
			platforms = append(platforms, consts.PlatformOverall)
		}
		for _, platform := range platforms {
			coefficient := &model.ViralCoefficient{
				SubjectID:         contentID,
				ContentType:       contentType,
				Platform:          platform,
				CoefficientType:   consts.CoefficientTypeContent,
				CalculationPeriod: window.period,
				CoefficientValue:  value,
				SampleSize:        int(agg.TotalShares),
				ConfidenceLevel:   confidence,
				FactorBreakdown:   string(factorJSON),
				CalculationDate:   now,
			}
			if err = s.coefficientRepo.Upsert(ctx, coefficient); err != nil {
				return err
			}
		}

		if freshest < 0 {
			freshest = value
			freshestEngagement = factors.EngagementRate
		}
	}

	if freshest < 0 {
		return nil
	}

	// 计数以事件明细为准整体覆盖，修正增量更新期间的漂移
	lifetime, err := s.shareEventRepo.LifetimeSums(ctx, contentID, contentType)
	if err != nil {
		return err
	}
	if err = s.viralStateRepo.ReplaceAggregates(ctx, contentID, contentType,
		int(lifetime.TotalShares), int(lifetime.TotalClicks), int(lifetime.TotalConversions),
		freshest, freshestEngagement); err != nil {
		return err
	}
	s.syncRollupCounters(ctx, contentID, contentType, lifetime)
	return nil
}

// syncRollupCounters 重算后把快路径计数缓存校准到事件明细口径
func (s *viralServiceImpl) syncRollupCounters(ctx context.Context, contentID uint64, contentType string, lifetime *repository.SharingAggregate) {
	contentKey := util.ContentKey(contentType, contentID)
	counters := map[string]int64{
		consts.ContentShareCountKey + contentKey:      lifetime.TotalShares,
		consts.ContentClickCountKey + contentKey:      lifetime.TotalClicks,
		consts.ContentConversionCountKey + contentKey: lifetime.TotalConversions,
	}
	for key, value := range counters {
		if err := redis.SetValue(ctx, key, value); err != nil {
			log.WarnContext(ctx, "计数缓存校准失败", "key", key, "error", err)
		}
	}
}

func (s *viralServiceImpl) CalculatePlatformCoefficients(ctx context.Context, platform string) error {
	now := time.Now()
	weight := 1.0
	if w, ok := s.cfg.PlatformWeights[platform]; ok {
		weight = w
	}

	for _, window := range periodWindows {
		since := now.AddDate(0, 0, -window.days)
		agg, err := s.shareEventRepo.AggregatePlatform(ctx, platform, since)
		if err != nil {
			return err
		}
		if agg.TotalShares == 0 {
			continue
		}

		factors := baseFactors(agg, 0)
		avgClicks := float64(agg.TotalClicks) / float64(agg.TotalShares)
		avgConversions := float64(agg.TotalConversions) / float64(agg.TotalShares)
		factors.PlatformFactor = weight * (avgClicks + avgConversions + 1)
		value := clampCoefficient(factors.BaseCoefficient * factors.PlatformFactor * factors.EngagementFactor * window.decay)
		factors.DecayFactor = window.decay
		factors.FinalCoefficient = value

		factorJSON, err := json.Marshal(factors)
		if err != nil {
			return err
		}
		coefficient := &model.ViralCoefficient{
			SubjectID:         0,
			ContentType:       consts.PlatformOverall,
			Platform:          platform,
			CoefficientType:   consts.CoefficientTypePlatform,
			CalculationPeriod: window.period,
			CoefficientValue:  value,
			SampleSize:        int(agg.TotalShares),
			ConfidenceLevel:   confidenceLevel(agg.TotalShares),
			FactorBreakdown:   string(factorJSON),
			CalculationDate:   now,
		}
		if err = s.coefficientRepo.Upsert(ctx, coefficient); err != nil {
			return err
		}
	}
	return nil
}

func (s *viralServiceImpl) CalculateUserInfluence(ctx context.Context, userID uint64) error {
	agg, err := s.shareEventRepo.AggregateUser(ctx, userID)
	if err != nil {
		return err
	}
	if agg.TotalShares == 0 {
		return nil
	}

	avgClicksPerShare := float64(agg.TotalClicks) / float64(agg.TotalShares)
	conversionRate := 0.0
	if agg.TotalClicks > 0 {
		conversionRate = float64(agg.TotalConversions) / float64(agg.TotalClicks)
	}
	score := float64(agg.TotalClicks)*1 + float64(agg.TotalConversions)*5 + float64(agg.TotalShares)*0.5
	if score > maxInfluenceScore {
		score = maxInfluenceScore
	}

	return s.influenceRepo.Upsert(ctx, &model.UserInfluence{
		UserID:            userID,
		InfluenceScore:    score,
		AvgClicksPerShare: avgClicksPerShare,
		ConversionRate:    conversionRate,
		TotalShares:       int(agg.TotalShares),
		TotalClicks:       int(agg.TotalClicks),
		TotalConversions:  int(agg.TotalConversions),
		CalculatedAt:      time.Now(),
	})
}

func (s *viralServiceImpl) ListActiveContent(ctx context.Context, since time.Time) ([]*repository.ContentRef, error) {
	return s.shareEventRepo.ActiveContentSince(ctx, since)
}

func (s *viralServiceImpl) ListTopInfluencers(ctx context.Context, limit int) ([]*dto.InfluencerDTO, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.influenceRepo.ListTop(ctx, limit)
	if err != nil {
		return nil, err
	}
	items := make([]*dto.InfluencerDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, &dto.InfluencerDTO{
			UserID:            row.UserID,
			InfluenceScore:    row.InfluenceScore,
			AvgClicksPerShare: row.AvgClicksPerShare,
			ConversionRate:    row.ConversionRate,
			TotalShares:       row.TotalShares,
		})
	}
	return items, nil
}

func (s *viralServiceImpl) GetContentViralStats(ctx context.Context, contentID uint64, contentType string, period string) (*dto.ViralStatsDTO, error) {
	contentKey := util.ContentKey(contentType, contentID)
	cacheKey := consts.ContentStatsCacheKey + contentKey
	if period != "" {
		cacheKey += ":" + period
	}
	if cached, err := redis.GetValue(ctx, cacheKey); err == nil && cached != "" {
		var stats dto.ViralStatsDTO
		if err = json.Unmarshal([]byte(cached), &stats); err == nil {
			return &stats, nil
		}
	}

	exists, err := s.contentRepo.Exists(ctx, contentID, contentType)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrContentNotFound
	}

	stats := &dto.ViralStatsDTO{
		ContentID:         contentID,
		ContentType:       contentType,
		Period:            period,
		ViralGrade:        viralGrade(0),
		PlatformBreakdown: make([]*dto.PlatformStatsDTO, 0),
		Coefficients:      make([]*dto.CoefficientDTO, 0),
	}

	state, err := s.viralStateRepo.GetByKey(ctx, contentID, contentType)
	if err != nil {
		return nil, err
	}
	if state != nil {
		stats.ShareCount = state.ShareCount
		stats.ClickCount = state.ClickCount
		stats.ConversionCount = state.ConversionCount
		stats.ViralCoefficient = state.ViralCoefficient
		stats.EngagementRate = state.EngagementRate
		stats.TrendingScore = state.TrendingScore
		stats.ViralGrade = viralGrade(state.ViralCoefficient)
		stats.LastViralActivity = state.LastViralActivity.Format(time.DateTime)
	}

	// 快路径计数缓存吸收了上次重算后的增量，取两者较大者
	if n, err := redis.GetInt64(ctx, consts.ContentShareCountKey+contentKey); err == nil && int(n) > stats.ShareCount {
		stats.ShareCount = int(n)
	}
	if n, err := redis.GetInt64(ctx, consts.ContentClickCountKey+contentKey); err == nil && int(n) > stats.ClickCount {
		stats.ClickCount = int(n)
	}
	if n, err := redis.GetInt64(ctx, consts.ContentConversionCountKey+contentKey); err == nil && int(n) > stats.ConversionCount {
		stats.ConversionCount = int(n)
	}

	breakdown, err := s.shareEventRepo.PlatformBreakdown(ctx, contentID, contentType, time.Unix(0, 0))
	if err != nil {
		return nil, err
	}
	for _, p := range breakdown {
		stats.PlatformBreakdown = append(stats.PlatformBreakdown, &dto.PlatformStatsDTO{
			Platform:    p.Platform,
			Shares:      p.TotalShares,
			Clicks:      p.TotalClicks,
			Conversions: p.TotalConversions,
		})
	}

	coefficients, err := s.coefficientRepo.ListForSubject(ctx, contentID, contentType, consts.CoefficientTypeContent)
	if err != nil {
		return nil, err
	}
	for _, c := range coefficients {
		if period != "" && c.CalculationPeriod != period {
			continue
		}
		stats.Coefficients = append(stats.Coefficients, &dto.CoefficientDTO{
			CoefficientType:   c.CoefficientType,
			Platform:          c.Platform,
			CalculationPeriod: c.CalculationPeriod,
			CoefficientValue:  c.CoefficientValue,
			SampleSize:        c.SampleSize,
			ConfidenceLevel:   c.ConfidenceLevel,
			FactorBreakdown:   c.FactorBreakdown,
			CalculationDate:   c.CalculationDate.Format(time.DateTime),
		})
	}

	if raw, err := json.Marshal(stats); err == nil {
		_ = redis.SetWithExpiration(ctx, cacheKey, string(raw), statsCacheExpiration)
	}
	return stats, nil
}

func (s *viralServiceImpl) RegisterContent(ctx context.Context, req *dto.ContentRegisterDTO) error {
	exists, err := s.contentRepo.Exists(ctx, req.ContentID, req.ContentType)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = s.contentRepo.Create(ctx, &model.Content{
		ContentID:   req.ContentID,
		ContentType: req.ContentType,
		Title:       req.Title,
		Status:      consts.ContentStatusNormal,
	})
	if err != nil {
		log.WarnContext(ctx, "内容登记失败", "content_id", req.ContentID, "error", err)
	}
	return err
}

// baseFactors 计算基础系数与参与度因子，secondary 传 0 表示不做二次分享放大
func baseFactors(agg *repository.SharingAggregate, secondary int64) *coefficientFactors {
	factors := &coefficientFactors{SecondaryShares: secondary, ViralAmplification: 1, DecayFactor: 1}
	if agg.TotalShares == 0 {
		return factors
	}
	if agg.UniqueSharers > 0 {
		factors.AvgSharesPerUser = float64(agg.TotalShares) / float64(agg.UniqueSharers)
	}
	if agg.TotalClicks > 0 {
		factors.ConversionRate = float64(agg.TotalConversions) / float64(agg.TotalClicks)
	}
	if secondary > 0 {
		factors.ViralAmplification = 1 + float64(secondary)/float64(agg.TotalShares)
	}
	factors.BaseCoefficient = clampCoefficient(factors.AvgSharesPerUser * factors.ConversionRate * factors.ViralAmplification)
	factors.EngagementRate = float64(agg.TotalClicks) / float64(agg.TotalShares)
	factors.EngagementFactor = 1 + 0.5*factors.EngagementRate + 1.0*factors.ConversionRate
	factors.PlatformFactor = 1
	return factors
}

// computeCoefficient 依序应用平台加权、参与度加权与时间衰减
func computeCoefficient(agg *repository.SharingAggregate, breakdown []*repository.PlatformAggregate, secondary int64, weights map[string]float64, decay float64) (float64, *coefficientFactors) {
	factors := baseFactors(agg, secondary)
	if agg.TotalShares == 0 {
		return 0, factors
	}

	if len(breakdown) > 0 {
		weightedSum := 0.0
		for _, p := range breakdown {
			if p.TotalShares == 0 {
				continue
			}
			weight := 1.0
			if w, ok := weights[p.Platform]; ok {
				weight = w
			}
			avgClicks := float64(p.TotalClicks) / float64(p.TotalShares)
			avgConversions := float64(p.TotalConversions) / float64(p.TotalShares)
			weightedSum += weight * (avgClicks + avgConversions + 1) * float64(p.TotalShares)
		}
		factors.PlatformFactor = weightedSum / float64(agg.TotalShares)
	}

	factors.DecayFactor = decay
	value := clampCoefficient(factors.BaseCoefficient * factors.PlatformFactor * factors.EngagementFactor * decay)
	factors.FinalCoefficient = value
	return value, factors
}

// countSecondaryShares 统计同一用户在窗口内再次分享的次数，作为传播链条的近似
func countSecondaryShares(shareTimes []*repository.UserShareTime, window time.Duration) int64 {
	lastSeen := make(map[uint64]time.Time)
	var secondary int64
	for _, st := range shareTimes {
		if prev, ok := lastSeen[st.UserID]; ok && st.ShareTime.Sub(prev) <= window {
			secondary++
		}
		lastSeen[st.UserID] = st.ShareTime
	}
	return secondary
}

// confidenceLevel 样本量阶梯置信度
func confidenceLevel(sampleSize int64) float64 {
	switch {
	case sampleSize >= 100:
		return 0.95
	case sampleSize >= 50:
		return 0.90
	case sampleSize >= 25:
		return 0.85
	case sampleSize >= 10:
		return 0.75
	default:
		return 0.60
	}
}

func clampCoefficient(value float64) float64 {
	if value > maxCoefficient {
		return maxCoefficient
	}
	if value < 0 {
		return 0
	}
	return value
}

// viralGrade 系数阶梯分级
func viralGrade(coefficient float64) string {
	switch {
	case coefficient >= 5:
		return "A+"
	case coefficient >= 3:
		return "A"
	case coefficient >= 2:
		return "B+"
	case coefficient >= 1:
		return "B"
	case coefficient >= 0.5:
		return "C+"
	case coefficient >= 0.1:
		return "C"
	default:
		return "D"
	}
}
