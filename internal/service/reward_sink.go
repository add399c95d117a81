package service

import (
	"Evergreen/internal/api/config"
	"Evergreen/internal/model"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RewardSink 奖励入账载体，Credit 必须在调用方传入的事务内执行
type RewardSink interface {
	Credit(ctx context.Context, tx *gorm.DB, userID uint64, amount float64, currency string, reason string) error
}

// NewRewardSink 按配置选择入账载体，未识别的取值回落到积分
func NewRewardSink(cfg config.RewardConfig) RewardSink {
	switch cfg.Sink {
	case "credits":
		return &creditSink{}
	case "voucher":
		return &voucherSink{}
	default:
		return &pointsSink{}
	}
}

// pointsSink 直接累加用户积分余额
type pointsSink struct{}

func (s *pointsSink) Credit(ctx context.Context, tx *gorm.DB, userID uint64, amount float64, currency string, reason string) error {
	result := tx.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("points_balance", gorm.Expr("points_balance + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// creditSink 追加式流水账，不维护余额
type creditSink struct{}

func (s *creditSink) Credit(ctx context.Context, tx *gorm.DB, userID uint64, amount float64, currency string, reason string) error {
	return tx.WithContext(ctx).Create(&model.CreditEntry{
		UserID:   userID,
		Amount:   amount,
		Currency: currency,
		Reason:   reason,
	}).Error
}

// voucherSink 为每笔奖励签发一张代金券
type voucherSink struct{}

func (s *voucherSink) Credit(ctx context.Context, tx *gorm.DB, userID uint64, amount float64, currency string, reason string) error {
	no := fmt.Sprintf("V%s%s", time.Now().Format("20060102"),
		strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16]))
	return tx.WithContext(ctx).Create(&model.Voucher{
		UserID:    userID,
		VoucherNo: no,
		Amount:    amount,
		Currency:  currency,
		Reason:    reason,
	}).Error
}
