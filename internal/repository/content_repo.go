package repository

import (
	"Evergreen/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type ContentRepo interface {
	Create(ctx context.Context, content *model.Content) error
	Exists(ctx context.Context, contentID uint64, contentType string) (bool, error)
	GetByKey(ctx context.Context, contentID uint64, contentType string) (*model.Content, error)
}

type contentRepoImpl struct {
	db *gorm.DB
}

func NewContentRepo(db *gorm.DB) ContentRepo {
	return &contentRepoImpl{db: db}
}

func (r *contentRepoImpl) Create(ctx context.Context, content *model.Content) error {
	return r.db.WithContext(ctx).Create(content).Error
}

func (r *contentRepoImpl) Exists(ctx context.Context, contentID uint64, contentType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Content{}).
		Where("content_id = ? AND content_type = ?", contentID, contentType).
		Count(&count).Error
	return count > 0, err
}

func (r *contentRepoImpl) GetByKey(ctx context.Context, contentID uint64, contentType string) (*model.Content, error) {
	var content model.Content
	err := r.db.WithContext(ctx).
		Where("content_id = ? AND content_type = ?", contentID, contentType).
		First(&content).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &content, nil
}
