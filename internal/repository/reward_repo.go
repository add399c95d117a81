package repository

import (
	"Evergreen/internal/model"
	"Evergreen/internal/pkg/consts"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type RewardRepo interface {
	Create(ctx context.Context, reward *model.ReferralReward) error
	GetByID(ctx context.Context, id uint64) (*model.ReferralReward, error)
	GetByReference(ctx context.Context, reference string) (*model.ReferralReward, error)
	// ProcessAtomic 在单事务内将 pending 奖励置为 processed 并执行入账回调，
	// 任一步失败整体回滚，奖励保持 pending 可重试
	ProcessAtomic(ctx context.Context, rewardID uint64, credit func(tx *gorm.DB) error) error
	ListByUser(ctx context.Context, userID uint64, since time.Time, limit int) ([]*model.ReferralReward, error)
	SumProcessedByUser(ctx context.Context, userID uint64) (float64, error)
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

type rewardRepoImpl struct {
	db *gorm.DB
}

func NewRewardRepo(db *gorm.DB) RewardRepo {
	return &rewardRepoImpl{db: db}
}

func (r *rewardRepoImpl) Create(ctx context.Context, reward *model.ReferralReward) error {
	return r.db.WithContext(ctx).Create(reward).Error
}

func (r *rewardRepoImpl) GetByID(ctx context.Context, id uint64) (*model.ReferralReward, error) {
	var reward model.ReferralReward
	err := r.db.WithContext(ctx).First(&reward, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

func (r *rewardRepoImpl) GetByReference(ctx context.Context, reference string) (*model.ReferralReward, error) {
	var reward model.ReferralReward
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&reward).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

func (r *rewardRepoImpl) ProcessAtomic(ctx context.Context, rewardID uint64, credit func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&model.ReferralReward{}).
			Where("id = ? AND status = ?", rewardID, consts.RewardStatusPending).
			Updates(map[string]interface{}{
				"status":       consts.RewardStatusProcessed,
				"processed_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		// 状态守卫未命中说明已被并发处理，跳过入账避免重复记账
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return credit(tx)
	})
}

func (r *rewardRepoImpl) ListByUser(ctx context.Context, userID uint64, since time.Time, limit int) ([]*model.ReferralReward, error) {
	rewards := make([]*model.ReferralReward, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&rewards).Error
	if err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *rewardRepoImpl) SumProcessedByUser(ctx context.Context, userID uint64) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&model.ReferralReward{}).
		Select("COALESCE(SUM(reward_amount), 0)").
		Where("user_id = ? AND status = ?", userID, consts.RewardStatusProcessed).
		Scan(&total).Error
	return total, err
}

// ExpirePending 过期未处理的奖励，按天级任务批量执行
func (r *rewardRepoImpl) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.ReferralReward{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", consts.RewardStatusPending, now).
		Update("status", consts.RewardStatusExpired)
	return result.RowsAffected, result.Error
}
