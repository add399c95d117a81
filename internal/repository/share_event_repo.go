package repository

import (
	"Evergreen/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// SharingAggregate 周期内的分享聚合数据
type SharingAggregate struct {
	UniqueSharers    int64
	TotalShares      int64
	TotalClicks      int64
	TotalConversions int64
	TotalValue       float64
	PlatformCount    int64
}

// PlatformAggregate 单平台的分享聚合数据
type PlatformAggregate struct {
	Platform         string
	TotalShares      int64
	TotalClicks      int64
	TotalConversions int64
}

// UserShareTime 二次分享统计用的 (用户, 分享时间) 投影
type UserShareTime struct {
	UserID    uint64
	ShareTime time.Time
}

// ContentRef 内容维度键
type ContentRef struct {
	ContentID   uint64
	ContentType string
}

type ShareEventRepo interface {
	Create(ctx context.Context, event *model.ShareEvent) error
	GetByID(ctx context.Context, id uint64) (*model.ShareEvent, error)
	IncrementClick(ctx context.Context, id uint64) (int64, error)
	IncrementConversion(ctx context.Context, id uint64, value float64) (int64, error)

	AggregateContent(ctx context.Context, contentID uint64, contentType string, since time.Time) (*SharingAggregate, error)
	AggregatePlatform(ctx context.Context, platform string, since time.Time) (*SharingAggregate, error)
	AggregateUser(ctx context.Context, userID uint64) (*SharingAggregate, error)
	PlatformBreakdown(ctx context.Context, contentID uint64, contentType string, since time.Time) ([]*PlatformAggregate, error)
	ListUserShareTimes(ctx context.Context, contentID uint64, contentType string, since time.Time) ([]*UserShareTime, error)
	LifetimeSums(ctx context.Context, contentID uint64, contentType string) (*SharingAggregate, error)
	CountSharesSince(ctx context.Context, contentID uint64, contentType string, since time.Time) (int64, error)
	ActiveContentSince(ctx context.Context, since time.Time) ([]*ContentRef, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type shareEventRepoImpl struct {
	db *gorm.DB
}

func NewShareEventRepo(db *gorm.DB) ShareEventRepo {
	return &shareEventRepoImpl{db: db}
}

func (r *shareEventRepoImpl) Create(ctx context.Context, event *model.ShareEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *shareEventRepoImpl) GetByID(ctx context.Context, id uint64) (*model.ShareEvent, error) {
	var event model.ShareEvent
	err := r.db.WithContext(ctx).First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// IncrementClick 原子自增点击数，返回影响行数。计数只增不减
func (r *shareEventRepoImpl) IncrementClick(ctx context.Context, id uint64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.ShareEvent{}).
		Where("id = ?", id).
		UpdateColumn("click_count", gorm.Expr("click_count + 1"))
	return result.RowsAffected, result.Error
}

// IncrementConversion 原子自增转化数并累加转化金额
func (r *shareEventRepoImpl) IncrementConversion(ctx context.Context, id uint64, value float64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.ShareEvent{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"conversion_count": gorm.Expr("conversion_count + 1"),
			"conversion_value": gorm.Expr("conversion_value + ?", value),
		})
	return result.RowsAffected, result.Error
}

const sharingAggregateSelect = "COUNT(DISTINCT user_id) AS unique_sharers, " +
	"COUNT(*) AS total_shares, " +
	"COALESCE(SUM(click_count), 0) AS total_clicks, " +
	"COALESCE(SUM(conversion_count), 0) AS total_conversions, " +
	"COALESCE(SUM(conversion_value), 0) AS total_value, " +
	"COUNT(DISTINCT platform) AS platform_count"

func (r *shareEventRepoImpl) AggregateContent(ctx context.Context, contentID uint64, contentType string, since time.Time) (*SharingAggregate, error) {
	var agg SharingAggregate
	err := r.db.WithContext(ctx).Model(&model.ShareEvent{}).
		Select(sharingAggregateSelect).
		Where("content_id = ? AND content_type = ? AND share_time >= ?", contentID, contentType, since).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *shareEventRepoImpl) AggregatePlatform(ctx context.Context, platform string, since time.Time) (*SharingAggregate, error) {
	var agg SharingAggregate
	err := r.db.WithContext(ctx).Model(&model.ShareEvent{}).
		Select(sharingAggregateSelect).
		Where("platform = ? AND share_time >= ?", platform, since).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *shareEventRepoImpl) AggregateUser(ctx context.Context, userID uint64) (*SharingAggregate, error) {
	var agg SharingAggregate
	err := r.db.WithContext(ctx).Model(&model.ShareEvent{}).
		Select(sharingAggregateSelect).
		Where("user_id = ?", userID).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *shareEventRepoImpl) PlatformBreakdown(ctx context.Context, contentID uint64, contentType string, since time.Time) ([]*PlatformAggregate, error) {
	breakdown := make([]*PlatformAggregate, 0)
	err := r.db.WithContext(ctx).Model(&model.ShareEvent{}).
		Select("platform, COUNT(*) AS total_shares, "+
			"COALESCE(SUM(click_count), 0) AS total_clicks, "+
			"COALESCE(SUM(conversion_count), 0) AS total_conversions").
		Where("content_id = ? AND content_type = ? AND share_time >= ?", contentID, contentType, since).
		Group("platform").
		Scan(&breakdown).Error
	if err != nil {
		return nil, err
	}
	return breakdown, nil
}

// ListUserShareTimes 取周期内非匿名分享的 (用户, 时间) 投影，用于二次分享近似
func (r *shareEventRepoImpl) ListUserShareTimes(ctx context.Context, contentID uint64, contentType string, since time.Time) ([]*UserShareTime, error) {
	rows := make([]*UserShareTime, 0)
	err := r.db.WithContext(ctx).Model(&model.ShareEvent{}).
		Select("user_id, share_time").
		Where("content_id = ? AND content_type = ? AND share_time >= ? AND user_id IS NOT NULL", contentID, contentType, since).
		Order("share_time ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *shareEventRepoImpl) LifetimeSums(ctx context.Context, contentID uint64, contentType string) (*SharingAggregate, error) {
	var agg SharingAggregate
	err := r.db.WithContext(ctx).Model(&model.ShareEvent{}).
		Select(sharingAggregateSelect).
		Where("content_id = ? AND content_type = ?", contentID, contentType).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *shareEventRepoImpl) CountSharesSince(ctx context.Context, contentID uint64, contentType string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ShareEvent{}).
		Where("content_id = ? AND content_type = ? AND share_time >= ?", contentID, contentType, since).
		Count(&count).Error
	return count, err
}

func (r *shareEventRepoImpl) ActiveContentSince(ctx context.Context, since time.Time) ([]*ContentRef, error) {
	refs := make([]*ContentRef, 0)
	err := r.db.WithContext(ctx).Model(&model.ShareEvent{}).
		Select("DISTINCT content_id, content_type").
		Where("share_time >= ?", since).
		Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// DeleteOlderThan 留存清理，过期分享被删除后其点击/转化回报为非致命空操作
func (r *shareEventRepoImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("share_time < ?", cutoff).
		Delete(&model.ShareEvent{})
	return result.RowsAffected, result.Error
}
