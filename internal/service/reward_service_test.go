package service

import (
	"Evergreen/internal/model"
	"Evergreen/internal/pkg/consts"
	"Evergreen/internal/repository"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"gorm.io/gorm"
)

func newRewardService(t *testing.T, db *gorm.DB) RewardService {
	t.Helper()
	cfg := newTestConfig()
	return NewRewardService(repository.NewRewardRepo(db), NewRewardSink(cfg.Reward), cfg.Reward)
}

func seedUser(t *testing.T, db *gorm.DB, id uint64) {
	t.Helper()
	if err := db.Create(&model.User{ID: id, Nickname: "tester"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func userBalance(t *testing.T, db *gorm.DB, id uint64) float64 {
	t.Helper()
	var user model.User
	if err := db.First(&user, id).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	return user.PointsBalance
}

func TestAward_CreditsOnce(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedUser(t, db, 1)
	svc := newRewardService(t, db)
	ctx := context.Background()

	if err := svc.Award(ctx, 1, consts.RewardTypeVisit, 10, "visit:42", nil); err != nil {
		t.Fatalf("first award: %v", err)
	}
	if got := userBalance(t, db, 1); got != 10 {
		t.Fatalf("expected balance 10, got %v", got)
	}

	var reward model.ReferralReward
	if err := db.Where("reference = ?", "visit:42").First(&reward).Error; err != nil {
		t.Fatalf("load reward: %v", err)
	}
	if reward.Status != consts.RewardStatusProcessed {
		t.Fatalf("expected processed, got %s", reward.Status)
	}
	if reward.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set")
	}

	// 同一 reference 重复发放只入账一次
	err := svc.Award(ctx, 1, consts.RewardTypeVisit, 10, "visit:42", nil)
	if !errors.Is(err, ErrDuplicateReward) {
		t.Fatalf("expected ErrDuplicateReward, got %v", err)
	}
	if got := userBalance(t, db, 1); got != 10 {
		t.Fatalf("balance changed on duplicate award: %v", got)
	}

	var count int64
	db.Model(&model.ReferralReward{}).Where("reference = ?", "visit:42").Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 reward row, got %d", count)
	}
}

func TestAward_ZeroAmountNoop(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedUser(t, db, 1)
	svc := newRewardService(t, db)

	if err := svc.Award(context.Background(), 1, consts.RewardTypeVisit, 0, "visit:0", nil); err != nil {
		t.Fatalf("zero amount award: %v", err)
	}
	var count int64
	db.Model(&model.ReferralReward{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no reward rows, got %d", count)
	}
}

func TestAward_ResumesPendingReward(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedUser(t, db, 7)
	svc := newRewardService(t, db)

	// 模拟上一次发放在入账前失败留下的 pending 记录
	pending := &model.ReferralReward{
		UserID:       7,
		RewardType:   consts.RewardTypeVisit,
		RewardAmount: 5,
		Currency:     "points",
		Status:       consts.RewardStatusPending,
		Reference:    "visit:7",
	}
	if err := db.Create(pending).Error; err != nil {
		t.Fatalf("seed pending reward: %v", err)
	}

	if err := svc.Award(context.Background(), 7, consts.RewardTypeVisit, 5, "visit:7", nil); err != nil {
		t.Fatalf("resume pending: %v", err)
	}
	if got := userBalance(t, db, 7); got != 5 {
		t.Fatalf("expected balance 5, got %v", got)
	}
}

func TestAward_UnknownUserKeepsPending(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newRewardService(t, db)

	err := svc.Award(context.Background(), 999, consts.RewardTypeVisit, 5, "visit:999", nil)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	// 入账失败必须回滚状态，奖励保持 pending 可补发
	var reward model.ReferralReward
	if err := db.Where("reference = ?", "visit:999").First(&reward).Error; err != nil {
		t.Fatalf("load reward: %v", err)
	}
	if reward.Status != consts.RewardStatusPending {
		t.Fatalf("expected pending after rollback, got %s", reward.Status)
	}
}

func TestAwardConversion_MonetaryMultiplier(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedUser(t, db, 3)
	svc := newRewardService(t, db)
	referral := &model.Referral{ID: 11, ReferrerID: 3}

	// donation 基础 100，金额 50 → 1.5 倍
	if err := svc.AwardConversion(context.Background(), referral, consts.ConversionTypeDonation, 50); err != nil {
		t.Fatalf("award conversion: %v", err)
	}
	if got := userBalance(t, db, 3); got != 150 {
		t.Fatalf("expected balance 150, got %v", got)
	}
}

func TestAwardConversion_UnconfiguredTypeSkipped(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedUser(t, db, 3)
	svc := newRewardService(t, db)
	referral := &model.Referral{ID: 11, ReferrerID: 3}

	if err := svc.AwardConversion(context.Background(), referral, "engagement", 0); err != nil {
		t.Fatalf("award conversion: %v", err)
	}
	var count int64
	db.Model(&model.ReferralReward{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no reward for unconfigured type, got %d rows", count)
	}
}

func TestAwardConversion_NonMonetaryIgnoresValue(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedUser(t, db, 3)
	svc := newRewardService(t, db)
	referral := &model.Referral{ID: 12, ReferrerID: 3}

	// registration 不是金额类转化，带金额也不做金额加成
	if err := svc.AwardConversion(context.Background(), referral, consts.ConversionTypeRegistration, 500); err != nil {
		t.Fatalf("award conversion: %v", err)
	}
	if got := userBalance(t, db, 3); got != 50 {
		t.Fatalf("expected balance 50, got %v", got)
	}
}

func TestMonetaryMultiplier_Caps(t *testing.T) {
	cases := []struct {
		value float64
		want  float64
	}{
		{0, 1},
		{-10, 1},
		{50, 1.5},
		{100, 2},
		{200, 3},
		{100000, 3}, // 封顶 3 倍
	}
	for _, tc := range cases {
		if got := monetaryMultiplier(tc.value); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("monetaryMultiplier(%v) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestAwardShareConversion(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedUser(t, db, 5)
	svc := newRewardService(t, db)
	uid := uint64(5)
	share := &model.ShareEvent{ID: 21, UserID: &uid, Platform: consts.PlatformEmail}

	// 基础 20 × 金额 1.5 × email 1.5 × purchase 3.0 = 135
	if err := svc.AwardShareConversion(context.Background(), share, consts.ConversionTypePurchase, 50); err != nil {
		t.Fatalf("award share conversion: %v", err)
	}
	if got := userBalance(t, db, 5); math.Abs(got-135) > 1e-9 {
		t.Fatalf("expected balance 135, got %v", got)
	}
}

func TestAwardShareConversion_NonMonetaryIgnoresValue(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedUser(t, db, 5)
	svc := newRewardService(t, db)
	uid := uint64(5)
	share := &model.ShareEvent{ID: 23, UserID: &uid, Platform: consts.PlatformFacebook}

	// engagement 带金额也不做金额加成：基础 20 × facebook 1.0 × engagement 1.0 = 20
	if err := svc.AwardShareConversion(context.Background(), share, consts.ConversionTypeEngagement, 200); err != nil {
		t.Fatalf("award share conversion: %v", err)
	}
	if got := userBalance(t, db, 5); math.Abs(got-20) > 1e-9 {
		t.Fatalf("expected balance 20, got %v", got)
	}
}

func TestAwardShareConversion_AnonymousShareSkipped(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newRewardService(t, db)
	share := &model.ShareEvent{ID: 22, Platform: consts.PlatformTwitter}

	if err := svc.AwardShareConversion(context.Background(), share, consts.ConversionTypePurchase, 50); err != nil {
		t.Fatalf("anonymous share conversion: %v", err)
	}
	var count int64
	db.Model(&model.ReferralReward{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no reward for anonymous share, got %d rows", count)
	}
}

func TestCheckMilestones_ExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedUser(t, db, 9)
	svc := newRewardService(t, db)
	ctx := context.Background()

	stats := &model.ReferrerStats{UserID: 9, SuccessfulReferrals: 12}
	changed, err := svc.CheckMilestones(ctx, stats)
	if err != nil {
		t.Fatalf("check milestones: %v", err)
	}
	if !changed {
		t.Fatal("expected milestones change")
	}
	// 跨越 5 与 10 两档：50 + 120
	if got := userBalance(t, db, 9); got != 170 {
		t.Fatalf("expected balance 170, got %v", got)
	}
	if stats.Title != "森林向导" {
		t.Fatalf("unexpected title %q", stats.Title)
	}
	if stats.AchievedMilestones != "[5,10]" {
		t.Fatalf("unexpected achieved set %q", stats.AchievedMilestones)
	}

	// 重复检查不重复发放
	changed, err = svc.CheckMilestones(ctx, stats)
	if err != nil {
		t.Fatalf("recheck milestones: %v", err)
	}
	if changed {
		t.Fatal("expected no change on recheck")
	}
	if got := userBalance(t, db, 9); got != 170 {
		t.Fatalf("balance changed on recheck: %v", got)
	}
}

func TestExpirePending(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newRewardService(t, db)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	rewards := []*model.ReferralReward{
		{UserID: 1, RewardType: "visit", RewardAmount: 1, Currency: "points", Status: consts.RewardStatusPending, Reference: "a", ExpiresAt: &past},
		{UserID: 1, RewardType: "visit", RewardAmount: 1, Currency: "points", Status: consts.RewardStatusPending, Reference: "b", ExpiresAt: &future},
		{UserID: 1, RewardType: "visit", RewardAmount: 1, Currency: "points", Status: consts.RewardStatusProcessed, Reference: "c", ExpiresAt: &past},
	}
	for _, reward := range rewards {
		if err := db.Create(reward).Error; err != nil {
			t.Fatalf("seed reward: %v", err)
		}
	}

	expired, err := svc.ExpirePending(context.Background())
	if err != nil {
		t.Fatalf("expire pending: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired, got %d", expired)
	}

	var reward model.ReferralReward
	db.Where("reference = ?", "a").First(&reward)
	if reward.Status != consts.RewardStatusExpired {
		t.Fatalf("expected expired, got %s", reward.Status)
	}
	var processed model.ReferralReward
	db.Where("reference = ?", "c").First(&processed)
	if processed.Status != consts.RewardStatusProcessed {
		t.Fatalf("processed reward must not expire, got %s", processed.Status)
	}
}
