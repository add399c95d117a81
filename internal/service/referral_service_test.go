package service

import (
	"Evergreen/internal/api/dto"
	"Evergreen/internal/model"
	"Evergreen/internal/pkg/consts"
	"Evergreen/internal/repository"
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func newReferralService(t *testing.T, db *gorm.DB) ReferralService {
	t.Helper()
	cfg := newTestConfig()
	rewardSvc := NewRewardService(repository.NewRewardRepo(db), NewRewardSink(cfg.Reward), cfg.Reward)
	return NewReferralService(
		repository.NewReferralRepo(db),
		repository.NewReferralCodeRepo(db),
		repository.NewReferrerStatsRepo(db),
		rewardSvc,
		cfg.Referral,
		cfg.Reward,
	)
}

func seedCode(t *testing.T, db *gorm.DB, userID uint64, code string) {
	t.Helper()
	seedUser(t, db, userID)
	if err := db.Create(&model.ReferralCode{UserID: userID, Code: code}).Error; err != nil {
		t.Fatalf("seed referral code: %v", err)
	}
}

func TestGenerateReferralCode_Idempotent(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newReferralService(t, db)
	ctx := context.Background()

	first, err := svc.GenerateReferralCode(ctx, 1)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if len(first.Code) != 8 {
		t.Fatalf("expected 8-char code, got %q", first.Code)
	}

	second, err := svc.GenerateReferralCode(ctx, 1)
	if err != nil {
		t.Fatalf("regenerate code: %v", err)
	}
	if second.Code != first.Code {
		t.Fatalf("expected stable code, got %q then %q", first.Code, second.Code)
	}
}

func TestTrackVisit_UnknownCode(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newReferralService(t, db)

	_, err := svc.TrackVisit(context.Background(), &dto.ReferralVisitDTO{ReferralCode: "MISSING1"}, "10.0.0.1")
	if !errors.Is(err, ErrReferralCodeNotFound) {
		t.Fatalf("expected ErrReferralCodeNotFound, got %v", err)
	}
}

func TestTrackVisit_DedupWindow(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedCode(t, db, 1, "GREEN123")
	svc := newReferralService(t, db)
	ctx := context.Background()
	req := &dto.ReferralVisitDTO{ReferralCode: "GREEN123"}

	first, err := svc.TrackVisit(ctx, req, "10.0.0.1")
	if err != nil {
		t.Fatalf("first visit: %v", err)
	}
	if !first.NewVisit || first.VisitCount != 1 {
		t.Fatalf("expected new visit, got %+v", first)
	}

	second, err := svc.TrackVisit(ctx, req, "10.0.0.1")
	if err != nil {
		t.Fatalf("second visit: %v", err)
	}
	if second.NewVisit {
		t.Fatal("expected dedup hit on same code+ip")
	}
	if second.ReferralID != first.ReferralID || second.VisitCount != 2 {
		t.Fatalf("expected same row with count 2, got %+v", second)
	}

	var count int64
	db.Model(&model.Referral{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 referral row, got %d", count)
	}

	// 访问奖励只在首次访问发放
	if got := userBalance(t, db, 1); got != 2 {
		t.Fatalf("expected visit reward 2, got %v", got)
	}

	// 不同 IP 是新的访问记录
	third, err := svc.TrackVisit(ctx, req, "10.0.0.2")
	if err != nil {
		t.Fatalf("third visit: %v", err)
	}
	if !third.NewVisit {
		t.Fatal("expected new row for different ip")
	}
}

func TestTrackVisit_WindowExpiry(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedCode(t, db, 1, "GREEN123")
	svc := newReferralService(t, db)
	ctx := context.Background()
	req := &dto.ReferralVisitDTO{ReferralCode: "GREEN123"}

	first, err := svc.TrackVisit(ctx, req, "10.0.0.1")
	if err != nil {
		t.Fatalf("first visit: %v", err)
	}
	// 把首访时间推出去重窗口
	db.Model(&model.Referral{}).Where("id = ?", first.ReferralID).
		UpdateColumn("first_visit_at", time.Now().Add(-25*time.Hour))

	second, err := svc.TrackVisit(ctx, req, "10.0.0.1")
	if err != nil {
		t.Fatalf("second visit: %v", err)
	}
	if !second.NewVisit || second.ReferralID == first.ReferralID {
		t.Fatalf("expected fresh row past dedup window, got %+v", second)
	}
}

func TestProcessConversion_SelfReferral(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedCode(t, db, 1, "GREEN123")
	svc := newReferralService(t, db)

	err := svc.ProcessConversion(context.Background(), 1, &dto.ReferralConversionDTO{
		ReferralCode:   "GREEN123",
		ConversionType: consts.ConversionTypeRegistration,
	}, "10.0.0.1")
	if !errors.Is(err, ErrSelfReferral) {
		t.Fatalf("expected ErrSelfReferral, got %v", err)
	}
}

func TestProcessConversion_NegativeValue(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedCode(t, db, 1, "GREEN123")
	svc := newReferralService(t, db)

	err := svc.ProcessConversion(context.Background(), 2, &dto.ReferralConversionDTO{
		ReferralCode:    "GREEN123",
		ConversionType:  consts.ConversionTypeDonation,
		ConversionValue: -5,
	}, "10.0.0.1")
	if !errors.Is(err, ErrNegativeValue) {
		t.Fatalf("expected ErrNegativeValue, got %v", err)
	}
}

func TestProcessConversion_PromotesVisit(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedCode(t, db, 1, "GREEN123")
	seedUser(t, db, 2)
	svc := newReferralService(t, db)
	ctx := context.Background()

	visit, err := svc.TrackVisit(ctx, &dto.ReferralVisitDTO{ReferralCode: "GREEN123"}, "10.0.0.1")
	if err != nil {
		t.Fatalf("track visit: %v", err)
	}

	err = svc.ProcessConversion(ctx, 2, &dto.ReferralConversionDTO{
		ReferralCode:   "GREEN123",
		ConversionType: consts.ConversionTypeRegistration,
	}, "10.0.0.1")
	if err != nil {
		t.Fatalf("process conversion: %v", err)
	}

	// 既有访问记录被推进为 converted，而不是另起新行
	var referral model.Referral
	if err := db.First(&referral, visit.ReferralID).Error; err != nil {
		t.Fatalf("load referral: %v", err)
	}
	if referral.Status != consts.ReferralStatusConverted {
		t.Fatalf("expected converted, got %s", referral.Status)
	}
	if referral.RefereeID == nil || *referral.RefereeID != 2 {
		t.Fatalf("expected referee 2, got %v", referral.RefereeID)
	}
	if referral.ConversionAt == nil {
		t.Fatal("expected conversion_at to be set")
	}

	var count int64
	db.Model(&model.Referral{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected single referral row, got %d", count)
	}

	// 注册转化顺带给新用户发注册奖励并分配推荐码
	var signup model.ReferralReward
	if err := db.Where("user_id = ? AND reward_type = ?", 2, consts.RewardTypeSignupBonus).First(&signup).Error; err != nil {
		t.Fatalf("expected signup bonus for referee: %v", err)
	}
	var refereeCode model.ReferralCode
	if err := db.Where("user_id = ?", 2).First(&refereeCode).Error; err != nil {
		t.Fatalf("expected referral code for referee: %v", err)
	}

	// 推荐人统计被刷新
	var stats model.ReferrerStats
	if err := db.Where("user_id = ?", 1).First(&stats).Error; err != nil {
		t.Fatalf("load referrer stats: %v", err)
	}
	if stats.SuccessfulReferrals != 1 || stats.TotalReferrals != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.ConversionRate != 1 {
		t.Fatalf("expected conversion rate 1, got %v", stats.ConversionRate)
	}
}

func TestProcessConversion_Duplicate(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedCode(t, db, 1, "GREEN123")
	seedUser(t, db, 2)
	svc := newReferralService(t, db)
	ctx := context.Background()
	req := &dto.ReferralConversionDTO{
		ReferralCode:    "GREEN123",
		ConversionType:  consts.ConversionTypePurchase,
		ConversionValue: 30,
	}

	if err := svc.ProcessConversion(ctx, 2, req, "10.0.0.1"); err != nil {
		t.Fatalf("first conversion: %v", err)
	}
	err := svc.ProcessConversion(ctx, 2, req, "10.0.0.1")
	if !errors.Is(err, ErrDuplicateConversion) {
		t.Fatalf("expected ErrDuplicateConversion, got %v", err)
	}

	// 同一被推荐人的不同转化类型仍可记录
	if err := svc.ProcessConversion(ctx, 2, &dto.ReferralConversionDTO{
		ReferralCode:    "GREEN123",
		ConversionType:  consts.ConversionTypeDonation,
		ConversionValue: 30,
	}, "10.0.0.1"); err != nil {
		t.Fatalf("different conversion type: %v", err)
	}
}

func TestGetDashboard(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedCode(t, db, 1, "GREEN123")
	seedUser(t, db, 2)
	svc := newReferralService(t, db)
	ctx := context.Background()

	if err := svc.ProcessConversion(ctx, 2, &dto.ReferralConversionDTO{
		ReferralCode:    "GREEN123",
		ConversionType:  consts.ConversionTypePurchase,
		ConversionValue: 80,
	}, "10.0.0.1"); err != nil {
		t.Fatalf("seed conversion: %v", err)
	}

	dashboard, err := svc.GetDashboard(ctx, 1, "")
	if err != nil {
		t.Fatalf("get dashboard: %v", err)
	}
	if dashboard.ReferralCode != "GREEN123" {
		t.Fatalf("unexpected code %q", dashboard.ReferralCode)
	}
	// period 缺省回落到月窗口
	if dashboard.Period != consts.PeriodMonthly {
		t.Fatalf("expected monthly period, got %q", dashboard.Period)
	}
	if dashboard.PeriodReferrals != 1 || dashboard.PeriodSuccessfulReferrals != 1 {
		t.Fatalf("unexpected period stats %+v", dashboard)
	}
	if dashboard.SuccessfulReferrals != 1 {
		t.Fatalf("expected 1 successful referral, got %d", dashboard.SuccessfulReferrals)
	}
	// purchase 基础 100 × 金额 1.8 倍
	if dashboard.TotalRewards != 180 {
		t.Fatalf("expected total rewards 180, got %v", dashboard.TotalRewards)
	}
	if len(dashboard.RecentReferrals) != 1 || len(dashboard.RecentRewards) != 1 {
		t.Fatalf("unexpected recents %+v", dashboard)
	}
	if dashboard.NextMilestone == nil || dashboard.NextMilestone.Threshold != 5 || dashboard.NextMilestone.Remaining != 4 {
		t.Fatalf("unexpected next milestone %+v", dashboard.NextMilestone)
	}

	// 第二次读取命中缓存，结果一致
	cached, err := svc.GetDashboard(ctx, 1, "")
	if err != nil {
		t.Fatalf("cached dashboard: %v", err)
	}
	if cached.TotalRewards != dashboard.TotalRewards || cached.ReferralCode != dashboard.ReferralCode {
		t.Fatalf("cache mismatch: %+v vs %+v", cached, dashboard)
	}
}

func TestGetDashboard_PeriodScoping(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedCode(t, db, 1, "GREEN123")
	seedUser(t, db, 2)
	svc := newReferralService(t, db)
	ctx := context.Background()

	if err := svc.ProcessConversion(ctx, 2, &dto.ReferralConversionDTO{
		ReferralCode:    "GREEN123",
		ConversionType:  consts.ConversionTypePurchase,
		ConversionValue: 80,
	}, "10.0.0.1"); err != nil {
		t.Fatalf("seed conversion: %v", err)
	}
	// 转化发生在月窗口之外
	if err := db.Model(&model.Referral{}).Where("referral_code = ?", "GREEN123").
		UpdateColumn("first_visit_at", time.Now().AddDate(0, 0, -40)).Error; err != nil {
		t.Fatalf("backdate referral: %v", err)
	}

	dashboard, err := svc.GetDashboard(ctx, 1, consts.PeriodMonthly)
	if err != nil {
		t.Fatalf("get dashboard: %v", err)
	}
	// 终身口径保留，周期口径归零
	if dashboard.TotalReferrals != 1 || dashboard.SuccessfulReferrals != 1 {
		t.Fatalf("unexpected lifetime stats %+v", dashboard)
	}
	if dashboard.PeriodReferrals != 0 || dashboard.PeriodSuccessfulReferrals != 0 {
		t.Fatalf("expected empty period stats, got %+v", dashboard)
	}
	if len(dashboard.RecentReferrals) != 0 {
		t.Fatalf("expected no recent referrals in window, got %d", len(dashboard.RecentReferrals))
	}

	// 周窗口与月窗口缓存互不串读
	weekly, err := svc.GetDashboard(ctx, 1, consts.PeriodWeekly)
	if err != nil {
		t.Fatalf("weekly dashboard: %v", err)
	}
	if weekly.Period != consts.PeriodWeekly {
		t.Fatalf("expected weekly period, got %q", weekly.Period)
	}
}

func TestGetLeaderboard(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newReferralService(t, db)

	stats := []*model.ReferrerStats{
		{UserID: 1, TotalReferrals: 3, SuccessfulReferrals: 1, TotalConversionValue: 10},
		{UserID: 2, TotalReferrals: 20, SuccessfulReferrals: 8, TotalConversionValue: 500, Title: "绿芽推广员"},
	}
	for _, row := range stats {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed stats: %v", err)
		}
	}

	entries, err := svc.GetLeaderboard(context.Background(), 10)
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].UserID != 2 || entries[0].SuccessfulReferrals != 8 {
		t.Fatalf("unexpected top entry %+v", entries[0])
	}
}

func TestPurgeStaleVisits(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	seedCode(t, db, 1, "GREEN123")
	svc := newReferralService(t, db)
	ctx := context.Background()

	if _, err := svc.TrackVisit(ctx, &dto.ReferralVisitDTO{ReferralCode: "GREEN123"}, "10.0.0.1"); err != nil {
		t.Fatalf("track visit: %v", err)
	}
	db.Model(&model.Referral{}).Where("referral_code = ?", "GREEN123").
		UpdateColumn("first_visit_at", time.Now().AddDate(0, 0, -120))

	purged, err := svc.PurgeStaleVisits(ctx, time.Now().AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("purge stale visits: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged visit, got %d", purged)
	}
}
