package repository

import (
	"Evergreen/internal/model"
	"Evergreen/internal/pkg/consts"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ReferrerAggregate 推荐人维度聚合
type ReferrerAggregate struct {
	TotalReferrals      int64
	SuccessfulReferrals int64
	TotalValue          float64
}

type ReferralRepo interface {
	Create(ctx context.Context, referral *model.Referral) error
	GetByID(ctx context.Context, id uint64) (*model.Referral, error)
	FindVisitedByCodeIP(ctx context.Context, code, clientIP string, since time.Time) (*model.Referral, error)
	FindVisitedByCode(ctx context.Context, code string) (*model.Referral, error)
	IncrementVisit(ctx context.Context, id uint64) error
	ExistsConversion(ctx context.Context, referrerID, refereeID uint64, conversionType string) (bool, error)
	Promote(ctx context.Context, id uint64, refereeID uint64, conversionType string, value float64, at time.Time) (int64, error)
	AggregateReferrer(ctx context.Context, referrerID uint64) (*ReferrerAggregate, error)
	AggregateReferrerSince(ctx context.Context, referrerID uint64, since time.Time) (*ReferrerAggregate, error)
	ListRecentByReferrer(ctx context.Context, referrerID uint64, since time.Time, limit int) ([]*model.Referral, error)
	DeleteVisitedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type referralRepoImpl struct {
	db *gorm.DB
}

func NewReferralRepo(db *gorm.DB) ReferralRepo {
	return &referralRepoImpl{db: db}
}

func (r *referralRepoImpl) Create(ctx context.Context, referral *model.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *referralRepoImpl) GetByID(ctx context.Context, id uint64) (*model.Referral, error) {
	var referral model.Referral
	err := r.db.WithContext(ctx).First(&referral, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// FindVisitedByCodeIP 同 (code, ip) 去重窗口内的 visited 记录
func (r *referralRepoImpl) FindVisitedByCodeIP(ctx context.Context, code, clientIP string, since time.Time) (*model.Referral, error) {
	var referral model.Referral
	err := r.db.WithContext(ctx).
		Where("referral_code = ? AND client_ip = ? AND status = ? AND first_visit_at >= ?",
			code, clientIP, consts.ReferralStatusVisited, since).
		Order("first_visit_at DESC").
		First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

func (r *referralRepoImpl) FindVisitedByCode(ctx context.Context, code string) (*model.Referral, error) {
	var referral model.Referral
	err := r.db.WithContext(ctx).
		Where("referral_code = ? AND status = ?", code, consts.ReferralStatusVisited).
		Order("first_visit_at DESC").
		First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

func (r *referralRepoImpl) IncrementVisit(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&model.Referral{}).
		Where("id = ?", id).
		UpdateColumn("visit_count", gorm.Expr("visit_count + 1")).Error
}

func (r *referralRepoImpl) ExistsConversion(ctx context.Context, referrerID, refereeID uint64, conversionType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Referral{}).
		Where("referrer_id = ? AND referee_id = ? AND conversion_type = ? AND status = ?",
			referrerID, refereeID, conversionType, consts.ReferralStatusConverted).
		Count(&count).Error
	return count > 0, err
}

// Promote visited → converted 单向迁移，Where 带状态守卫保证至多一次
func (r *referralRepoImpl) Promote(ctx context.Context, id uint64, refereeID uint64, conversionType string, value float64, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Referral{}).
		Where("id = ? AND status = ?", id, consts.ReferralStatusVisited).
		Updates(map[string]interface{}{
			"status":           consts.ReferralStatusConverted,
			"referee_id":       refereeID,
			"conversion_type":  conversionType,
			"conversion_value": value,
			"conversion_at":    at,
		})
	return result.RowsAffected, result.Error
}

const referrerAggregateSelect = "COUNT(*) AS total_referrals, " +
	"COALESCE(SUM(CASE WHEN status = 'converted' THEN 1 ELSE 0 END), 0) AS successful_referrals, " +
	"COALESCE(SUM(CASE WHEN status = 'converted' THEN conversion_value ELSE 0 END), 0) AS total_value"

func (r *referralRepoImpl) AggregateReferrer(ctx context.Context, referrerID uint64) (*ReferrerAggregate, error) {
	var agg ReferrerAggregate
	err := r.db.WithContext(ctx).Model(&model.Referral{}).
		Select(referrerAggregateSelect).
		Where("referrer_id = ?", referrerID).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// AggregateReferrerSince 周期窗口内的推荐聚合，窗口按首次访问时间切
func (r *referralRepoImpl) AggregateReferrerSince(ctx context.Context, referrerID uint64, since time.Time) (*ReferrerAggregate, error) {
	var agg ReferrerAggregate
	err := r.db.WithContext(ctx).Model(&model.Referral{}).
		Select(referrerAggregateSelect).
		Where("referrer_id = ? AND first_visit_at >= ?", referrerID, since).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *referralRepoImpl) ListRecentByReferrer(ctx context.Context, referrerID uint64, since time.Time, limit int) ([]*model.Referral, error) {
	referrals := make([]*model.Referral, 0)
	err := r.db.WithContext(ctx).
		Where("referrer_id = ? AND first_visit_at >= ?", referrerID, since).
		Order("updated_at DESC").
		Limit(limit).
		Find(&referrals).Error
	if err != nil {
		return nil, err
	}
	return referrals, nil
}

// DeleteVisitedBefore 清理长期未转化的 visited 记录，保留策略由配置 TTL 决定
func (r *referralRepoImpl) DeleteVisitedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND first_visit_at < ?", consts.ReferralStatusVisited, cutoff).
		Delete(&model.Referral{})
	return result.RowsAffected, result.Error
}
