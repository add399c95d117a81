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
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	maxTrendingScore = 1000.0
	trendingKeepTop  = 100
)

type TrendingService interface {
	// RecomputeTrending 对近期活跃内容重算热度并刷新榜单
	RecomputeTrending(ctx context.Context) error
	GetTrendingContent(ctx context.Context, limit int, contentType string) ([]*dto.TrendingItemDTO, error)
}

type trendingServiceImpl struct {
	viralStateRepo repository.ViralStateRepo
	shareEventRepo repository.ShareEventRepo
	cfg            config.ViralConfig
}

func NewTrendingService(
	viralStateRepo repository.ViralStateRepo,
	shareEventRepo repository.ShareEventRepo,
	cfg config.ViralConfig,
) TrendingService {
	return &trendingServiceImpl{
		viralStateRepo: viralStateRepo,
		shareEventRepo: shareEventRepo,
		cfg:            cfg,
	}
}

func (s *trendingServiceImpl) RecomputeTrending(ctx context.Context) error {
	now := time.Now()
	states, err := s.viralStateRepo.ActiveSince(ctx, now.AddDate(0, 0, -s.cfg.LookbackDays))
	if err != nil {
		return err
	}

	touchedTypes := make(map[string]struct{})
	for _, state := range states {
		score, err := s.computeTrendingScore(ctx, state, now)
		if err != nil {
			log.ErrorContext(ctx, "热度计算失败", "content_id", state.ContentID, "content_type", state.ContentType, "error", err)
			continue
		}
		if err = s.viralStateRepo.UpdateTrendingScore(ctx, state.ContentID, state.ContentType, score); err != nil {
			log.ErrorContext(ctx, "热度持久化失败", "content_id", state.ContentID, "error", err)
			continue
		}

		member := util.ContentKey(state.ContentType, state.ContentID)
		if err = redis.ZAdd(ctx, consts.TrendingZSetKey+state.ContentType, score, member); err != nil {
			log.WarnContext(ctx, "热度榜单写入失败", "member", member, "error", err)
		}
		if err = redis.ZAdd(ctx, consts.TrendingOverallKey, score, member); err != nil {
			log.WarnContext(ctx, "全局热度榜单写入失败", "member", member, "error", err)
		}
		touchedTypes[state.ContentType] = struct{}{}
	}

	// 榜单只保留前 trendingKeepTop 名
	for contentType := range touchedTypes {
		if err = redis.ZRemRangeByRank(ctx, consts.TrendingZSetKey+contentType, 0, -(trendingKeepTop + 1)); err != nil {
			log.WarnContext(ctx, "榜单裁剪失败", "content_type", contentType, "error", err)
		}
	}
	if err = redis.ZRemRangeByRank(ctx, consts.TrendingOverallKey, 0, -(trendingKeepTop + 1)); err != nil {
		log.WarnContext(ctx, "全局榜单裁剪失败", "error", err)
	}
	return nil
}

// computeTrendingScore 生命周期对数项压平历史体量，近 24 小时项保留当下势能
func (s *trendingServiceImpl) computeTrendingScore(ctx context.Context, state *model.ContentViralState, now time.Time) (float64, error) {
	recentShares, err := s.shareEventRepo.CountSharesSince(ctx, state.ContentID, state.ContentType, now.Add(-24*time.Hour))
	if err != nil {
		return 0, err
	}
	recentClicks := s.recentClicks(ctx, state.ContentID, state.ContentType, now)

	score := 0.4*(state.ViralCoefficient*10) +
		0.4*(float64(recentShares)*2+float64(recentClicks)) +
		0.2*(math.Log(float64(state.ShareCount)+1)+math.Log(float64(state.ClickCount)+1))
	if score > maxTrendingScore {
		score = maxTrendingScore
	}
	return score, nil
}

// recentClicks 今昨两个日级点击桶之和，近似 24 小时窗口
func (s *trendingServiceImpl) recentClicks(ctx context.Context, contentID uint64, contentType string, now time.Time) int64 {
	contentKey := util.ContentKey(contentType, contentID)
	var total int64
	for _, day := range []string{now.Format("20060102"), now.AddDate(0, 0, -1).Format("20060102")} {
		count, err := redis.GetInt64(ctx, consts.ClickDailyKey+contentKey+":"+day)
		if err != nil {
			continue
		}
		total += count
	}
	return total
}

func (s *trendingServiceImpl) GetTrendingContent(ctx context.Context, limit int, contentType string) ([]*dto.TrendingItemDTO, error) {
	if limit <= 0 || limit > trendingKeepTop {
		limit = 10
	}
	key := consts.TrendingOverallKey
	if contentType != "" {
		key = consts.TrendingZSetKey + contentType
	}

	entries, err := redis.ZRevRangeWithScores(ctx, key, 0, int64(limit-1))
	if err != nil {
		return nil, err
	}

	refs := make([]*repository.ContentRef, 0, len(entries))
	for _, entry := range entries {
		member, ok := entry.Member.(string)
		if !ok {
			continue
		}
		ref, err := parseContentMember(member)
		if err != nil {
			log.WarnContext(ctx, "榜单成员格式异常", "member", member, "error", err)
			continue
		}
		refs = append(refs, ref)
	}

	states, err := s.viralStateRepo.GetByKeys(ctx, refs)
	if err != nil {
		return nil, err
	}
	stateByKey := make(map[string]*model.ContentViralState, len(states))
	for _, state := range states {
		stateByKey[util.ContentKey(state.ContentType, state.ContentID)] = state
	}

	items := make([]*dto.TrendingItemDTO, 0, len(entries))
	for _, entry := range entries {
		member, ok := entry.Member.(string)
		if !ok {
			continue
		}
		ref, err := parseContentMember(member)
		if err != nil {
			continue
		}
		item := &dto.TrendingItemDTO{
			ContentID:     ref.ContentID,
			ContentType:   ref.ContentType,
			TrendingScore: entry.Score,
		}
		if state, ok := stateByKey[member]; ok {
			item.ViralCoefficient = state.ViralCoefficient
			item.ShareCount = state.ShareCount
			item.ClickCount = state.ClickCount
		}
		items = append(items, item)
	}
	return items, nil
}

// parseContentMember 解析形如 post:42 的榜单成员
func parseContentMember(member string) (*repository.ContentRef, error) {
	parts := strings.SplitN(member, ":", 2)
	if len(parts) != 2 {
		return nil, ErrParamInvalid
	}
	contentID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return nil, err
	}
	return &repository.ContentRef{ContentID: contentID, ContentType: parts[0]}, nil
}
