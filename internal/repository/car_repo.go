package repository

import (
	"context"

	"gorm.io/gorm"

	"carhub_dev_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// CarRepository 车辆广告仓储接口
type CarRepository interface {
	// 基础 CRUD
	Create(ctx context.Context, car *model.Car) error
	GetByID(ctx context.Context, id int64) (*model.Car, error)
	GetBySlug(ctx context.Context, slug string) (*model.Car, error)
	Update(ctx context.Context, car *model.Car) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error

	// 列表查询
	List(ctx context.Context, filter CarFilter) ([]model.Car, int64, error)
	ListAll(ctx context.Context) ([]model.Car, error)

	// 统计
	DistinctMarca(ctx context.Context) ([]string, error)
	CountByMarca(ctx context.Context, marca string) (int64, error)

	// 图片 URL 全量列表 (孤儿清理用)
	AllImageURLs(ctx context.Context) ([]string, error)

	// 事务
	WithTx(tx *gorm.DB) CarRepository
}

// ==================== 过滤条件 ====================

// CarFilter 车辆列表过滤条件
type CarFilter struct {
	Marca    string // 品牌模糊匹配
	PretMin  int64
	PretMax  int64
	SortBy   string // price-asc | price-desc | 默认 createdAt desc
	Page     int
	PageSize int
}

// ==================== 仓储实现 ====================

type carRepo struct {
	db *gorm.DB
}

// NewCarRepository 创建车辆仓储
func NewCarRepository(db *gorm.DB) CarRepository {
	return &carRepo{db: db}
}

func (r *carRepo) Create(ctx context.Context, car *model.Car) error {
	return r.db.WithContext(ctx).Create(car).Error
}

func (r *carRepo) GetByID(ctx context.Context, id int64) (*model.Car, error) {
	var car model.Car
	err := r.db.WithContext(ctx).First(&car, id).Error
	if err != nil {
		return nil, err
	}
	return &car, nil
}

func (r *carRepo) GetBySlug(ctx context.Context, slug string) (*model.Car, error) {
	var car model.Car
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&car).Error
	if err != nil {
		return nil, err
	}
	return &car, nil
}

func (r *carRepo) Update(ctx context.Context, car *model.Car) error {
	return r.db.WithContext(ctx).Save(car).Error
}

func (r *carRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Car{}).Where("id = ?", id).Updates(fields).Error
}

func (r *carRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Car{}, id).Error
}

func (r *carRepo) List(ctx context.Context, filter CarFilter) ([]model.Car, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Car{})

	if filter.Marca != "" {
		query = query.Where("marca LIKE ?", "%"+filter.Marca+"%")
	}
	if filter.PretMin > 0 {
		query = query.Where("pret >= ?", filter.PretMin)
	}
	if filter.PretMax > 0 {
		query = query.Where("pret <= ?", filter.PretMax)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.SortBy {
	case "price-asc":
		query = query.Order("pret asc")
	case "price-desc":
		query = query.Order("pret desc")
	default:
		query = query.Order("created_at desc")
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var cars []model.Car
	if err := query.Find(&cars).Error; err != nil {
		return nil, 0, err
	}
	return cars, total, nil
}

func (r *carRepo) ListAll(ctx context.Context) ([]model.Car, error) {
	var cars []model.Car
	err := r.db.WithContext(ctx).Order("created_at desc").Find(&cars).Error
	return cars, err
}

func (r *carRepo) DistinctMarca(ctx context.Context) ([]string, error) {
	var marci []string
	err := r.db.WithContext(ctx).Model(&model.Car{}).
		Distinct("marca").
		Where("marca <> ''").
		Order("marca asc").
		Pluck("marca", &marci).Error
	return marci, err
}

func (r *carRepo) CountByMarca(ctx context.Context, marca string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Car{}).
		Where("marca = ?", marca).
		Count(&count).Error
	return count, err
}

func (r *carRepo) AllImageURLs(ctx context.Context) ([]string, error) {
	cars, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(cars)*4)
	for _, car := range cars {
		urls = append(urls, car.Images...)
	}
	return urls, nil
}

func (r *carRepo) WithTx(tx *gorm.DB) CarRepository {
	return &carRepo{db: tx}
}
