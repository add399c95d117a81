package repository

import (
	"Evergreen/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReferrerStatsRepo interface {
	GetByUserID(ctx context.Context, userID uint64) (*model.ReferrerStats, error)
	Upsert(ctx context.Context, stats *model.ReferrerStats) error
	ListTopByConversions(ctx context.Context, limit int) ([]*model.ReferrerStats, error)
}

type referrerStatsRepoImpl struct {
	db *gorm.DB
}

func NewReferrerStatsRepo(db *gorm.DB) ReferrerStatsRepo {
	return &referrerStatsRepoImpl{db: db}
}

func (r *referrerStatsRepoImpl) GetByUserID(ctx context.Context, userID uint64) (*model.ReferrerStats, error) {
	var stats model.ReferrerStats
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stats, nil
}

func (r *referrerStatsRepoImpl) Upsert(ctx context.Context, stats *model.ReferrerStats) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_referrals", "successful_referrals", "conversion_rate",
			"total_conversion_value", "achieved_milestones", "title", "updated_at",
		}),
	}).Create(stats).Error
}

func (r *referrerStatsRepoImpl) ListTopByConversions(ctx context.Context, limit int) ([]*model.ReferrerStats, error) {
	list := make([]*model.ReferrerStats, 0)
	err := r.db.WithContext(ctx).
		Order("successful_referrals DESC, total_conversion_value DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
