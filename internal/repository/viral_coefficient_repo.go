package repository

import (
	"Evergreen/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ViralCoefficientRepo interface {
	Upsert(ctx context.Context, coefficient *model.ViralCoefficient) error
	GetByKey(ctx context.Context, subjectID uint64, contentType, platform, coefficientType, period string) (*model.ViralCoefficient, error)
	ListForSubject(ctx context.Context, subjectID uint64, contentType, coefficientType string) ([]*model.ViralCoefficient, error)
}

type viralCoefficientRepoImpl struct {
	db *gorm.DB
}

func NewViralCoefficientRepo(db *gorm.DB) ViralCoefficientRepo {
	return &viralCoefficientRepoImpl{db: db}
}

// Upsert 同键覆盖写，后算的系数替代先算的
func (r *viralCoefficientRepoImpl) Upsert(ctx context.Context, coefficient *model.ViralCoefficient) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "subject_id"}, {Name: "content_type"}, {Name: "platform"},
			{Name: "coefficient_type"}, {Name: "calculation_period"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"coefficient_value",
			"sample_size",
			"confidence_level",
			"factor_breakdown",
			"calculation_date",
		}),
	}).Create(coefficient).Error
}

func (r *viralCoefficientRepoImpl) GetByKey(ctx context.Context, subjectID uint64, contentType, platform, coefficientType, period string) (*model.ViralCoefficient, error) {
	var coefficient model.ViralCoefficient
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND content_type = ? AND platform = ? AND coefficient_type = ? AND calculation_period = ?",
			subjectID, contentType, platform, coefficientType, period).
		First(&coefficient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coefficient, nil
}

func (r *viralCoefficientRepoImpl) ListForSubject(ctx context.Context, subjectID uint64, contentType, coefficientType string) ([]*model.ViralCoefficient, error) {
	coefficients := make([]*model.ViralCoefficient, 0)
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND content_type = ? AND coefficient_type = ?", subjectID, contentType, coefficientType).
		Order("calculation_period ASC, platform ASC").
		Find(&coefficients).Error
	if err != nil {
		return nil, err
	}
	return coefficients, nil
}
