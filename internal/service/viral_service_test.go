package service

import (
	"Evergreen/internal/api/dto"
	"Evergreen/internal/model"
	"Evergreen/internal/pkg/consts"
	"Evergreen/internal/pkg/util"
	"Evergreen/internal/repository"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newViralService(t *testing.T, db *gorm.DB) ViralService {
	t.Helper()
	cfg := newTestConfig()
	return NewViralService(
		repository.NewContentRepo(db),
		repository.NewShareEventRepo(db),
		repository.NewViralStateRepo(db),
		repository.NewViralCoefficientRepo(db),
		repository.NewUserInfluenceRepo(db),
		cfg.Viral,
	)
}

func seedShare(t *testing.T, db *gorm.DB, contentID uint64, contentType, platform string, userID *uint64, clicks, conversions int, at time.Time) {
	t.Helper()
	if err := db.Create(&model.ShareEvent{
		ContentID:       contentID,
		ContentType:     contentType,
		Platform:        platform,
		UserID:          userID,
		ShareTime:       at,
		ClickCount:      clicks,
		ConversionCount: conversions,
	}).Error; err != nil {
		t.Fatalf("seed share event: %v", err)
	}
}

// 10 个用户 20 次分享、5 次点击、1 次转化，单平台权重 1.0：
// 基础系数 (20/10) × (1/5) × 1 = 0.4，
// 平台因子 1.0 × (0.25 + 0.05 + 1) = 1.3，
// 参与度因子 1 + 0.5×0.25 + 1.0×0.2 = 1.325
func TestComputeCoefficient_WorkedExample(t *testing.T) {
	agg := &repository.SharingAggregate{
		UniqueSharers:    10,
		TotalShares:      20,
		TotalClicks:      5,
		TotalConversions: 1,
	}
	breakdown := []*repository.PlatformAggregate{
		{Platform: consts.PlatformLinkedin, TotalShares: 20, TotalClicks: 5, TotalConversions: 1},
	}
	weights := map[string]float64{consts.PlatformLinkedin: 1.0}

	value, factors := computeCoefficient(agg, breakdown, 0, weights, 1.0)

	require.InDelta(t, 0.4, factors.BaseCoefficient, 1e-9)
	require.InDelta(t, 1.3, factors.PlatformFactor, 1e-9)
	require.InDelta(t, 1.325, factors.EngagementFactor, 1e-9)
	require.InDelta(t, 0.4*1.3*1.325, value, 1e-9)
	require.Equal(t, value, factors.FinalCoefficient)

	// 时间衰减在最后一步生效
	decayed, _ := computeCoefficient(agg, breakdown, 0, weights, 0.8)
	require.InDelta(t, value*0.8, decayed, 1e-9)
}

func TestComputeCoefficient_SecondaryAmplification(t *testing.T) {
	agg := &repository.SharingAggregate{
		UniqueSharers:    10,
		TotalShares:      20,
		TotalClicks:      5,
		TotalConversions: 1,
	}
	plain, _ := computeCoefficient(agg, nil, 0, nil, 1.0)
	amplified, factors := computeCoefficient(agg, nil, 10, nil, 1.0)

	require.InDelta(t, 1.5, factors.ViralAmplification, 1e-9)
	require.Greater(t, amplified, plain)
}

func TestComputeCoefficient_Clamped(t *testing.T) {
	agg := &repository.SharingAggregate{
		UniqueSharers:    1,
		TotalShares:      1000,
		TotalClicks:      1000,
		TotalConversions: 1000,
	}
	value, _ := computeCoefficient(agg, nil, 0, nil, 1.0)
	require.Equal(t, 10.0, value)

	empty, _ := computeCoefficient(&repository.SharingAggregate{}, nil, 0, nil, 1.0)
	require.Equal(t, 0.0, empty)
}

func TestConfidenceLevel(t *testing.T) {
	cases := []struct {
		samples int64
		want    float64
	}{
		{0, 0.60}, {9, 0.60}, {10, 0.75}, {24, 0.75},
		{25, 0.85}, {49, 0.85}, {50, 0.90}, {99, 0.90}, {100, 0.95},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, confidenceLevel(tc.samples), "samples=%d", tc.samples)
	}
}

func TestCountSecondaryShares(t *testing.T) {
	base := time.Now()
	window := 7 * 24 * time.Hour
	shareTimes := []*repository.UserShareTime{
		{UserID: 1, ShareTime: base},
		{UserID: 1, ShareTime: base.Add(24 * time.Hour)},  // 窗口内，计入
		{UserID: 1, ShareTime: base.Add(20 * 24 * time.Hour)}, // 距上次超窗，不计
		{UserID: 2, ShareTime: base},
		{UserID: 2, ShareTime: base.Add(6 * 24 * time.Hour)}, // 窗口内，计入
		{UserID: 3, ShareTime: base},                         // 单次分享不计
	}
	require.Equal(t, int64(2), countSecondaryShares(shareTimes, window))
	require.Equal(t, int64(0), countSecondaryShares(nil, window))
}

func TestViralGrade(t *testing.T) {
	cases := []struct {
		coefficient float64
		want        string
	}{
		{6, "A+"}, {5, "A+"}, {3.5, "A"}, {2, "B+"}, {1, "B"}, {0.5, "C+"}, {0.1, "C"}, {0.05, "D"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, viralGrade(tc.coefficient), "coefficient=%v", tc.coefficient)
	}
}

func TestCalculateContentCoefficients_SkipsWithoutShares(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newViralService(t, db)

	if err := svc.CalculateContentCoefficients(context.Background(), 42, consts.ContentTypePost); err != nil {
		t.Fatalf("calculate without shares: %v", err)
	}
	var count int64
	db.Model(&model.ViralCoefficient{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no coefficient rows, got %d", count)
	}
}

func TestCalculateContentCoefficients_PersistsPerPeriod(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newViralService(t, db)
	ctx := context.Background()

	u1, u2 := uint64(1), uint64(2)
	recent := time.Now().Add(-time.Hour)
	seedShare(t, db, 42, consts.ContentTypePost, consts.PlatformWhatsapp, &u1, 3, 1, recent)
	seedShare(t, db, 42, consts.ContentTypePost, consts.PlatformWhatsapp, &u1, 2, 0, recent)
	seedShare(t, db, 42, consts.ContentTypePost, consts.PlatformWhatsapp, &u2, 3, 1, recent)
	// 10 天前的分享只落在月窗口
	seedShare(t, db, 42, consts.ContentTypePost, consts.PlatformTwitter, &u2, 1, 0, time.Now().AddDate(0, 0, -10))

	if err := svc.CalculateContentCoefficients(ctx, 42, consts.ContentTypePost); err != nil {
		t.Fatalf("calculate coefficients: %v", err)
	}

	var rows []*model.ViralCoefficient
	if err := db.Where("subject_id = ? AND coefficient_type = ?", 42, consts.CoefficientTypeContent).
		Find(&rows).Error; err != nil {
		t.Fatalf("load coefficient rows: %v", err)
	}
	// 日/周窗口各 1 个平台，月窗口 2 个平台
	require.Len(t, rows, 4)

	byKey := make(map[string]*model.ViralCoefficient)
	for _, row := range rows {
		require.GreaterOrEqual(t, row.CoefficientValue, 0.0)
		require.LessOrEqual(t, row.CoefficientValue, 10.0)
		require.NotEmpty(t, row.FactorBreakdown)
		byKey[row.CalculationPeriod+"/"+row.Platform] = row
	}
	require.Equal(t, 3, byKey[consts.PeriodDaily+"/"+consts.PlatformWhatsapp].SampleSize)
	require.Equal(t, 4, byKey[consts.PeriodMonthly+"/"+consts.PlatformWhatsapp].SampleSize)
	require.Equal(t, 0.60, byKey[consts.PeriodDaily+"/"+consts.PlatformWhatsapp].ConfidenceLevel)

	// 状态行以事件明细整体覆盖，系数取最新周期
	var state model.ContentViralState
	if err := db.Where("content_id = ? AND content_type = ?", 42, consts.ContentTypePost).First(&state).Error; err != nil {
		t.Fatalf("load viral state: %v", err)
	}
	require.Equal(t, 4, state.ShareCount)
	require.Equal(t, 9, state.ClickCount)
	require.Equal(t, 2, state.ConversionCount)
	require.InDelta(t, byKey[consts.PeriodDaily+"/"+consts.PlatformWhatsapp].CoefficientValue, state.ViralCoefficient, 1e-9)

	// 重算幂等，不产生新行
	if err := svc.CalculateContentCoefficients(ctx, 42, consts.ContentTypePost); err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	var count int64
	db.Model(&model.ViralCoefficient{}).Count(&count)
	require.Equal(t, int64(4), count)
}

func TestCalculatePlatformCoefficients(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newViralService(t, db)
	ctx := context.Background()

	u1 := uint64(1)
	recent := time.Now().Add(-time.Hour)
	seedShare(t, db, 42, consts.ContentTypePost, consts.PlatformWhatsapp, &u1, 2, 1, recent)
	seedShare(t, db, 43, consts.ContentTypeArticle, consts.PlatformWhatsapp, &u1, 1, 0, recent)

	if err := svc.CalculatePlatformCoefficients(ctx, consts.PlatformWhatsapp); err != nil {
		t.Fatalf("calculate platform coefficients: %v", err)
	}

	var rows []*model.ViralCoefficient
	if err := db.Where("coefficient_type = ? AND platform = ?", consts.CoefficientTypePlatform, consts.PlatformWhatsapp).
		Find(&rows).Error; err != nil {
		t.Fatalf("load platform rows: %v", err)
	}
	require.Len(t, rows, 3)
	for _, row := range rows {
		require.Equal(t, uint64(0), row.SubjectID)
		require.Equal(t, consts.PlatformOverall, row.ContentType)
		require.Equal(t, 2, row.SampleSize)
	}
}

func TestCalculateUserInfluence(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newViralService(t, db)
	ctx := context.Background()

	u7 := uint64(7)
	recent := time.Now().Add(-time.Hour)
	seedShare(t, db, 42, consts.ContentTypePost, consts.PlatformTwitter, &u7, 6, 1, recent)
	seedShare(t, db, 43, consts.ContentTypePost, consts.PlatformEmail, &u7, 4, 0, recent)

	if err := svc.CalculateUserInfluence(ctx, 7); err != nil {
		t.Fatalf("calculate influence: %v", err)
	}

	var influence model.UserInfluence
	if err := db.Where("user_id = ?", 7).First(&influence).Error; err != nil {
		t.Fatalf("load influence: %v", err)
	}
	// 10 点击 + 1 转化×5 + 2 分享×0.5 = 16
	require.InDelta(t, 16, influence.InfluenceScore, 1e-9)
	require.InDelta(t, 5, influence.AvgClicksPerShare, 1e-9)
	require.InDelta(t, 0.1, influence.ConversionRate, 1e-9)
	require.Equal(t, 2, influence.TotalShares)
}

func TestCalculateUserInfluence_Capped(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newViralService(t, db)

	u8 := uint64(8)
	seedShare(t, db, 42, consts.ContentTypePost, consts.PlatformTwitter, &u8, 5000, 0, time.Now())

	if err := svc.CalculateUserInfluence(context.Background(), 8); err != nil {
		t.Fatalf("calculate influence: %v", err)
	}
	var influence model.UserInfluence
	db.Where("user_id = ?", 8).First(&influence)
	require.Equal(t, 1000.0, influence.InfluenceScore)
}

func TestCalculateUserInfluence_NoShares(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newViralService(t, db)

	if err := svc.CalculateUserInfluence(context.Background(), 99); err != nil {
		t.Fatalf("influence without shares: %v", err)
	}
	var count int64
	db.Model(&model.UserInfluence{}).Count(&count)
	require.Equal(t, int64(0), count)
}

func TestGetContentViralStats(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newViralService(t, db)
	ctx := context.Background()

	_, err := svc.GetContentViralStats(ctx, 42, consts.ContentTypePost, "")
	if !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}

	seedContent(t, db, 42, consts.ContentTypePost)
	u1 := uint64(1)
	seedShare(t, db, 42, consts.ContentTypePost, consts.PlatformWhatsapp, &u1, 3, 1, time.Now().Add(-time.Hour))
	if err := svc.CalculateContentCoefficients(ctx, 42, consts.ContentTypePost); err != nil {
		t.Fatalf("calculate coefficients: %v", err)
	}

	stats, err := svc.GetContentViralStats(ctx, 42, consts.ContentTypePost, "")
	if err != nil {
		t.Fatalf("get viral stats: %v", err)
	}
	require.Equal(t, uint64(42), stats.ContentID)
	require.Equal(t, 1, stats.ShareCount)
	require.Equal(t, viralGrade(stats.ViralCoefficient), stats.ViralGrade)
	require.Len(t, stats.PlatformBreakdown, 1)
	require.Equal(t, consts.PlatformWhatsapp, stats.PlatformBreakdown[0].Platform)
	require.NotEmpty(t, stats.Coefficients)
}

func TestGetContentViralStats_PeriodFilter(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newViralService(t, db)
	ctx := context.Background()

	seedContent(t, db, 42, consts.ContentTypePost)
	u1 := uint64(1)
	seedShare(t, db, 42, consts.ContentTypePost, consts.PlatformWhatsapp, &u1, 3, 1, time.Now().Add(-time.Hour))
	if err := svc.CalculateContentCoefficients(ctx, 42, consts.ContentTypePost); err != nil {
		t.Fatalf("calculate coefficients: %v", err)
	}

	all, err := svc.GetContentViralStats(ctx, 42, consts.ContentTypePost, "")
	if err != nil {
		t.Fatalf("get all periods: %v", err)
	}
	require.Greater(t, len(all.Coefficients), 1)

	// 指定周期只返回该周期的系数行
	weekly, err := svc.GetContentViralStats(ctx, 42, consts.ContentTypePost, consts.PeriodWeekly)
	if err != nil {
		t.Fatalf("get weekly stats: %v", err)
	}
	require.Equal(t, consts.PeriodWeekly, weekly.Period)
	require.NotEmpty(t, weekly.Coefficients)
	for _, c := range weekly.Coefficients {
		require.Equal(t, consts.PeriodWeekly, c.CalculationPeriod)
	}
}

func TestGetContentViralStats_CounterOverlay(t *testing.T) {
	db := newTestDB(t)
	mr := newTestRedis(t)
	svc := newViralService(t, db)
	ctx := context.Background()

	seedContent(t, db, 42, consts.ContentTypePost)
	u1 := uint64(1)
	seedShare(t, db, 42, consts.ContentTypePost, consts.PlatformWhatsapp, &u1, 2, 0, time.Now().Add(-time.Hour))
	if err := svc.CalculateContentCoefficients(ctx, 42, consts.ContentTypePost); err != nil {
		t.Fatalf("calculate coefficients: %v", err)
	}

	// 重算把快路径计数校准到事件明细口径
	contentKey := util.ContentKey(consts.ContentTypePost, 42)
	shareKey := consts.ContentShareCountKey + contentKey
	if got, err := mr.Get(shareKey); err != nil || got != "1" {
		t.Fatalf("expected synced share counter 1, got %q (%v)", got, err)
	}

	// 两次重算之间计数缓存领先于状态行时取较大者
	mr.Set(shareKey, "3")
	stats, err := svc.GetContentViralStats(ctx, 42, consts.ContentTypePost, "")
	if err != nil {
		t.Fatalf("get viral stats: %v", err)
	}
	require.Equal(t, 3, stats.ShareCount)
	require.Equal(t, 2, stats.ClickCount)
}

func TestListTopInfluencers(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newViralService(t, db)
	ctx := context.Background()

	u1, u2 := uint64(1), uint64(2)
	recent := time.Now().Add(-time.Hour)
	seedShare(t, db, 42, consts.ContentTypePost, consts.PlatformTwitter, &u1, 2, 0, recent)
	seedShare(t, db, 42, consts.ContentTypePost, consts.PlatformTwitter, &u2, 50, 3, recent)
	for _, uid := range []uint64{1, 2} {
		if err := svc.CalculateUserInfluence(ctx, uid); err != nil {
			t.Fatalf("calculate influence %d: %v", uid, err)
		}
	}

	items, err := svc.ListTopInfluencers(ctx, 10)
	if err != nil {
		t.Fatalf("list influencers: %v", err)
	}
	require.Len(t, items, 2)
	require.Equal(t, uint64(2), items[0].UserID)
	require.GreaterOrEqual(t, items[0].InfluenceScore, items[1].InfluenceScore)
}

func TestRegisterContent_Idempotent(t *testing.T) {
	db := newTestDB(t)
	newTestRedis(t)
	svc := newViralService(t, db)
	ctx := context.Background()
	req := &dto.ContentRegisterDTO{ContentID: 42, ContentType: consts.ContentTypePost, Title: "环保专题"}

	if err := svc.RegisterContent(ctx, req); err != nil {
		t.Fatalf("register content: %v", err)
	}
	if err := svc.RegisterContent(ctx, req); err != nil {
		t.Fatalf("re-register content: %v", err)
	}
	var count int64
	db.Model(&model.Content{}).Count(&count)
	require.Equal(t, int64(1), count)
}
