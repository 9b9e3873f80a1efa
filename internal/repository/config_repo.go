package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"carhub_dev_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// ConfigRepository 站点配置仓储接口 (单行表)
type ConfigRepository interface {
	// Get 获取配置行，不存在时返回 nil (不报错)
	Get(ctx context.Context) (*model.SiteConfig, error)
	// Save 不存在则创建，存在则整行更新
	Save(ctx context.Context, cfg *model.SiteConfig) error
}

// ==================== 仓储实现 ====================

type configRepo struct {
	db *gorm.DB
}

// NewConfigRepository 创建配置仓储
func NewConfigRepository(db *gorm.DB) ConfigRepository {
	return &configRepo{db: db}
}

func (r *configRepo) Get(ctx context.Context) (*model.SiteConfig, error) {
	var cfg model.SiteConfig
	err := r.db.WithContext(ctx).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *configRepo) Save(ctx context.Context, cfg *model.SiteConfig) error {
	existing, err := r.Get(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
	}
	return r.db.WithContext(ctx).Save(cfg).Error
}
