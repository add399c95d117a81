package service

import (
	"Evergreen/internal/api/config"
	"Evergreen/internal/model"
	"Evergreen/internal/pkg/consts"
	"Evergreen/internal/pkg/redis"
	"Evergreen/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

const rewardLockExpiration = 10 * time.Second

type RewardService interface {
	// Award 按 reference 发放一笔奖励，同一 reference 至多入账一次
	Award(ctx context.Context, userID uint64, rewardType string, amount float64, reference string, referralID *uint64) error
	AwardVisit(ctx context.Context, referral *model.Referral) error
	AwardConversion(ctx context.Context, referral *model.Referral, conversionType string, value float64) error
	AwardSignupBonus(ctx context.Context, refereeID uint64, referralID uint64) error
	AwardShareConversion(ctx context.Context, share *model.ShareEvent, conversionType string, value float64) error
	AwardContentShare(ctx context.Context, share *model.ShareEvent) error
	AwardShareClick(ctx context.Context, share *model.ShareEvent) error
	// CheckMilestones 检查并发放新跨越的里程碑奖励，就地更新 stats 的
	// achieved_milestones 与 title，返回是否有变更
	CheckMilestones(ctx context.Context, stats *model.ReferrerStats) (bool, error)
	ListRewards(ctx context.Context, userID uint64, since time.Time, limit int) ([]*model.ReferralReward, error)
	TotalEarned(ctx context.Context, userID uint64) (float64, error)
	ExpirePending(ctx context.Context) (int64, error)
}

type rewardServiceImpl struct {
	rewardRepo repository.RewardRepo
	sink       RewardSink
	cfg        config.RewardConfig
}

func NewRewardService(rewardRepo repository.RewardRepo, sink RewardSink, cfg config.RewardConfig) RewardService {
	return &rewardServiceImpl{
		rewardRepo: rewardRepo,
		sink:       sink,
		cfg:        cfg,
	}
}

func (s *rewardServiceImpl) Award(ctx context.Context, userID uint64, rewardType string, amount float64, reference string, referralID *uint64) error {
	if amount <= 0 {
		return nil
	}
	lockKey := consts.RewardLock + reference
	locked, err := redis.TryLock(ctx, lockKey, userID, rewardLockExpiration, 3)
	if err != nil {
		return err
	}
	if !locked {
		return ErrDuplicateReward
	}
	defer redis.UnLock(ctx, lockKey, userID)

	reward, err := s.rewardRepo.GetByReference(ctx, reference)
	if err != nil {
		return err
	}
	if reward == nil {
		var expiresAt *time.Time
		if s.cfg.ExpiryDays > 0 {
			t := time.Now().AddDate(0, 0, s.cfg.ExpiryDays)
			expiresAt = &t
		}
		reward = &model.ReferralReward{
			ReferralID:   referralID,
			UserID:       userID,
			RewardType:   rewardType,
			RewardAmount: amount,
			Currency:     s.cfg.Currency,
			Status:       consts.RewardStatusPending,
			Reference:    reference,
			ExpiresAt:    expiresAt,
		}
		if err = s.rewardRepo.Create(ctx, reward); err != nil {
			return err
		}
	} else if reward.Status != consts.RewardStatusPending {
		return ErrDuplicateReward
	}

	err = s.rewardRepo.ProcessAtomic(ctx, reward.ID, func(tx *gorm.DB) error {
		return s.sink.Credit(ctx, tx, reward.UserID, reward.RewardAmount, reward.Currency,
			fmt.Sprintf("%s:%s", reward.RewardType, reward.Reference))
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 状态守卫未命中说明奖励已被并发处理
		return ErrDuplicateReward
	}
	return err
}

func (s *rewardServiceImpl) AwardVisit(ctx context.Context, referral *model.Referral) error {
	amount := s.cfg.BaseAmounts[consts.RewardTypeVisit]
	reference := fmt.Sprintf("visit:%d", referral.ID)
	return s.Award(ctx, referral.ReferrerID, consts.RewardTypeVisit, amount, reference, &referral.ID)
}

func (s *rewardServiceImpl) AwardConversion(ctx context.Context, referral *model.Referral, conversionType string, value float64) error {
	base, ok := s.cfg.BaseAmounts[conversionType]
	if !ok {
		// 未配置基础分值的转化类型不发奖
		return nil
	}
	amount := base
	if monetaryConversion(conversionType) {
		amount *= monetaryMultiplier(value)
	}
	reference := fmt.Sprintf("conversion:%d:%s", referral.ID, conversionType)
	return s.Award(ctx, referral.ReferrerID, conversionType, amount, reference, &referral.ID)
}

func (s *rewardServiceImpl) AwardSignupBonus(ctx context.Context, refereeID uint64, referralID uint64) error {
	amount := s.cfg.BaseAmounts[consts.RewardTypeSignupBonus]
	reference := fmt.Sprintf("signup:%d", refereeID)
	return s.Award(ctx, refereeID, consts.RewardTypeSignupBonus, amount, reference, &referralID)
}

func (s *rewardServiceImpl) AwardShareConversion(ctx context.Context, share *model.ShareEvent, conversionType string, value float64) error {
	if share.UserID == nil {
		return nil
	}
	amount := s.cfg.BaseAmounts[consts.RewardTypeShareConversion]
	if monetaryConversion(conversionType) {
		amount *= monetaryMultiplier(value)
	}
	if m, ok := s.cfg.PlatformMultipliers[share.Platform]; ok {
		amount *= m
	}
	if m, ok := s.cfg.ConversionMultipliers[conversionType]; ok {
		amount *= m
	}
	reference := fmt.Sprintf("share_conversion:%d:%s", share.ID, conversionType)
	return s.Award(ctx, *share.UserID, consts.RewardTypeShareConversion, amount, reference, nil)
}

// AwardContentShare 分享动作本身的奖励，匿名分享无从入账
func (s *rewardServiceImpl) AwardContentShare(ctx context.Context, share *model.ShareEvent) error {
	if share.UserID == nil {
		return nil
	}
	amount := s.cfg.BaseAmounts[consts.RewardTypeContentShare]
	reference := fmt.Sprintf("content_share:%d", share.ID)
	return s.Award(ctx, *share.UserID, consts.RewardTypeContentShare, amount, reference, nil)
}

// AwardShareClick 分享首次被点击的奖励，reference 按分享维度只发一次
func (s *rewardServiceImpl) AwardShareClick(ctx context.Context, share *model.ShareEvent) error {
	if share.UserID == nil {
		return nil
	}
	amount := s.cfg.BaseAmounts[consts.RewardTypeShareClick]
	reference := fmt.Sprintf("share_click:%d", share.ID)
	return s.Award(ctx, *share.UserID, consts.RewardTypeShareClick, amount, reference, nil)
}

func (s *rewardServiceImpl) CheckMilestones(ctx context.Context, stats *model.ReferrerStats) (bool, error) {
	lockKey := consts.MilestoneLock + fmt.Sprint(stats.UserID)
	locked, err := redis.TryLock(ctx, lockKey, stats.UserID, rewardLockExpiration, 3)
	if err != nil {
		return false, err
	}
	if !locked {
		return false, nil
	}
	defer redis.UnLock(ctx, lockKey, stats.UserID)

	achieved := make([]int, 0)
	if stats.AchievedMilestones != "" {
		if err = json.Unmarshal([]byte(stats.AchievedMilestones), &achieved); err != nil {
			log.WarnContext(ctx, "已达成里程碑集合解析失败，按空集处理", "user_id", stats.UserID, "error", err)
			achieved = achieved[:0]
		}
	}
	achievedSet := make(map[int]struct{}, len(achieved))
	for _, t := range achieved {
		achievedSet[t] = struct{}{}
	}

	changed := false
	for i, threshold := range s.cfg.MilestoneThresholds {
		if stats.SuccessfulReferrals < threshold {
			break
		}
		if _, ok := achievedSet[threshold]; ok {
			continue
		}
		reference := fmt.Sprintf("milestone:%d:%d", stats.UserID, threshold)
		bonus := 0.0
		if i < len(s.cfg.MilestoneBonuses) {
			bonus = s.cfg.MilestoneBonuses[i]
		}
		if err = s.Award(ctx, stats.UserID, consts.RewardTypeMilestone, bonus, reference, nil); err != nil {
			if errors.Is(err, ErrDuplicateReward) {
				continue
			}
			return changed, err
		}
		achieved = append(achieved, threshold)
		achievedSet[threshold] = struct{}{}
		if i < len(s.cfg.MilestoneTitles) {
			stats.Title = s.cfg.MilestoneTitles[i]
		}
		changed = true
	}

	if changed {
		raw, err := json.Marshal(achieved)
		if err != nil {
			return changed, err
		}
		stats.AchievedMilestones = string(raw)
	}
	return changed, nil
}

func (s *rewardServiceImpl) ListRewards(ctx context.Context, userID uint64, since time.Time, limit int) ([]*model.ReferralReward, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.rewardRepo.ListByUser(ctx, userID, since, limit)
}

func (s *rewardServiceImpl) TotalEarned(ctx context.Context, userID uint64) (float64, error) {
	return s.rewardRepo.SumProcessedByUser(ctx, userID)
}

func (s *rewardServiceImpl) ExpirePending(ctx context.Context) (int64, error) {
	return s.rewardRepo.ExpirePending(ctx, time.Now())
}

// monetaryConversion 金额加成只对真实带金额的转化类型生效
func monetaryConversion(conversionType string) bool {
	return conversionType == consts.ConversionTypePurchase || conversionType == consts.ConversionTypeDonation
}

// monetaryMultiplier 转化金额加成，封顶 3 倍
func monetaryMultiplier(value float64) float64 {
	if value <= 0 {
		return 1
	}
	bonus := value / 100
	if bonus > 2 {
		bonus = 2
	}
	return 1 + bonus
}
