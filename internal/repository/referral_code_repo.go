package repository

import (
	"Evergreen/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type ReferralCodeRepo interface {
	Create(ctx context.Context, code *model.ReferralCode) error
	GetByUserID(ctx context.Context, userID uint64) (*model.ReferralCode, error)
	GetByCode(ctx context.Context, code string) (*model.ReferralCode, error)
}

type referralCodeRepoImpl struct {
	db *gorm.DB
}

func NewReferralCodeRepo(db *gorm.DB) ReferralCodeRepo {
	return &referralCodeRepoImpl{db: db}
}

func (r *referralCodeRepoImpl) Create(ctx context.Context, code *model.ReferralCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *referralCodeRepoImpl) GetByUserID(ctx context.Context, userID uint64) (*model.ReferralCode, error) {
	var code model.ReferralCode
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

func (r *referralCodeRepoImpl) GetByCode(ctx context.Context, codeStr string) (*model.ReferralCode, error) {
	var code model.ReferralCode
	err := r.db.WithContext(ctx).Where("code = ?", codeStr).First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}
