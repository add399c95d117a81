package repository

import (
	"Evergreen/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ViralStateRepo interface {
	GetByKey(ctx context.Context, contentID uint64, contentType string) (*model.ContentViralState, error)
	UpsertOnShare(ctx context.Context, contentID uint64, contentType string, now time.Time) error
	IncrementClick(ctx context.Context, contentID uint64, contentType string, now time.Time) error
	IncrementConversion(ctx context.Context, contentID uint64, contentType string, now time.Time) error
	ReplaceAggregates(ctx context.Context, contentID uint64, contentType string, shares, clicks, conversions int, coefficient, engagementRate float64) error
	UpdateTrendingScore(ctx context.Context, contentID uint64, contentType string, score float64) error
	ActiveSince(ctx context.Context, since time.Time) ([]*model.ContentViralState, error)
	GetByKeys(ctx context.Context, refs []*ContentRef) ([]*model.ContentViralState, error)
}

type viralStateRepoImpl struct {
	db *gorm.DB
}

func NewViralStateRepo(db *gorm.DB) ViralStateRepo {
	return &viralStateRepoImpl{db: db}
}

func (r *viralStateRepoImpl) GetByKey(ctx context.Context, contentID uint64, contentType string) (*model.ContentViralState, error) {
	var state model.ContentViralState
	err := r.db.WithContext(ctx).
		Where("content_id = ? AND content_type = ?", contentID, contentType).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

// UpsertOnShare 首次分享时建行，已存在则自增分享数并刷新活跃时间
func (r *viralStateRepoImpl) UpsertOnShare(ctx context.Context, contentID uint64, contentType string, now time.Time) error {
	state := &model.ContentViralState{
		ContentID:         contentID,
		ContentType:       contentType,
		ShareCount:        1,
		LastViralActivity: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "content_id"}, {Name: "content_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"share_count":         gorm.Expr("share_count + 1"),
			"last_viral_activity": now,
		}),
	}).Create(state).Error
}

func (r *viralStateRepoImpl) IncrementClick(ctx context.Context, contentID uint64, contentType string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&model.ContentViralState{}).
		Where("content_id = ? AND content_type = ?", contentID, contentType).
		UpdateColumns(map[string]interface{}{
			"click_count":         gorm.Expr("click_count + 1"),
			"last_viral_activity": now,
		}).Error
}

func (r *viralStateRepoImpl) IncrementConversion(ctx context.Context, contentID uint64, contentType string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&model.ContentViralState{}).
		Where("content_id = ? AND content_type = ?", contentID, contentType).
		UpdateColumns(map[string]interface{}{
			"conversion_count":    gorm.Expr("conversion_count + 1"),
			"last_viral_activity": now,
		}).Error
}

// ReplaceAggregates 系数任务整体覆盖计数与派生值，纠正增量漂移
func (r *viralStateRepoImpl) ReplaceAggregates(ctx context.Context, contentID uint64, contentType string, shares, clicks, conversions int, coefficient, engagementRate float64) error {
	return r.db.WithContext(ctx).Model(&model.ContentViralState{}).
		Where("content_id = ? AND content_type = ?", contentID, contentType).
		Updates(map[string]interface{}{
			"share_count":       shares,
			"click_count":       clicks,
			"conversion_count":  conversions,
			"viral_coefficient": coefficient,
			"engagement_rate":   engagementRate,
		}).Error
}

func (r *viralStateRepoImpl) UpdateTrendingScore(ctx context.Context, contentID uint64, contentType string, score float64) error {
	return r.db.WithContext(ctx).Model(&model.ContentViralState{}).
		Where("content_id = ? AND content_type = ?", contentID, contentType).
		UpdateColumn("trending_score", score).Error
}

func (r *viralStateRepoImpl) ActiveSince(ctx context.Context, since time.Time) ([]*model.ContentViralState, error) {
	states := make([]*model.ContentViralState, 0)
	err := r.db.WithContext(ctx).
		Where("last_viral_activity >= ?", since).
		Find(&states).Error
	if err != nil {
		return nil, err
	}
	return states, nil
}

func (r *viralStateRepoImpl) GetByKeys(ctx context.Context, refs []*ContentRef) ([]*model.ContentViralState, error) {
	states := make([]*model.ContentViralState, 0)
	if len(refs) == 0 {
		return states, nil
	}
	query := r.db.WithContext(ctx)
	for i, ref := range refs {
		if i == 0 {
			query = query.Where("content_id = ? AND content_type = ?", ref.ContentID, ref.ContentType)
		} else {
			query = query.Or("content_id = ? AND content_type = ?", ref.ContentID, ref.ContentType)
		}
	}
	err := query.Find(&states).Error
	if err != nil {
		return nil, err
	}
	return states, nil
}
