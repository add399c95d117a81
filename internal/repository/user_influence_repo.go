package repository

import (
	"Evergreen/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserInfluenceRepo interface {
	GetByUserID(ctx context.Context, userID uint64) (*model.UserInfluence, error)
	Upsert(ctx context.Context, influence *model.UserInfluence) error
	ListTop(ctx context.Context, limit int) ([]*model.UserInfluence, error)
}

type userInfluenceRepoImpl struct {
	db *gorm.DB
}

func NewUserInfluenceRepo(db *gorm.DB) UserInfluenceRepo {
	return &userInfluenceRepoImpl{db: db}
}

func (r *userInfluenceRepoImpl) GetByUserID(ctx context.Context, userID uint64) (*model.UserInfluence, error) {
	var influence model.UserInfluence
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&influence).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &influence, nil
}

func (r *userInfluenceRepoImpl) Upsert(ctx context.Context, influence *model.UserInfluence) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"influence_score", "avg_clicks_per_share", "conversion_rate",
			"total_shares", "total_clicks", "total_conversions", "calculated_at", "updated_at",
		}),
	}).Create(influence).Error
}

func (r *userInfluenceRepoImpl) ListTop(ctx context.Context, limit int) ([]*model.UserInfluence, error) {
	list := make([]*model.UserInfluence, 0)
	err := r.db.WithContext(ctx).
		Order("influence_score DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
