package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"carhub_dev_v1_202608/internal/api/dto"
	"carhub_dev_v1_202608/internal/model"
	"carhub_dev_v1_202608/internal/repository"
)

// ErrBrandExists 品牌名已占用 (大小写不敏感)
var ErrBrandExists = errors.New("该品牌已存在")

// ==================== BrandService 品牌服务 ====================

// BrandService 品牌字典维护
type BrandService struct {
	brandRepo repository.BrandRepository
	carRepo   repository.CarRepository
}

// NewBrandService 创建品牌服务
func NewBrandService(brandRepo repository.BrandRepository, carRepo repository.CarRepository) *BrandService {
	return &BrandService{
		brandRepo: brandRepo,
		carRepo:   carRepo,
	}
}

// ListBrands 按名称排序的全部品牌
func (s *BrandService) ListBrands(ctx context.Context) ([]model.Brand, error) {
	return s.brandRepo.ListAll(ctx)
}

// AddBrand 新增品牌，名称去首尾空白后做大小写不敏感查重
func (s *BrandService) AddBrand(ctx context.Context, name string) (*model.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("品牌名不能为空")
	}

	exists, err := s.BrandExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrBrandExists
	}

	brand := &model.Brand{Name: name}
	if err := s.brandRepo.Create(ctx, brand); err != nil {
		return nil, fmt.Errorf("添加品牌失败: %w", err)
	}
	return brand, nil
}

// UpdateBrand 重命名品牌，新名称同样查重
func (s *BrandService) UpdateBrand(ctx context.Context, id int64, newName string) (*model.Brand, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, fmt.Errorf("品牌名不能为空")
	}

	brand, err := s.brandRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("品牌不存在: %w", err)
	}

	if !strings.EqualFold(brand.Name, newName) {
		exists, err := s.BrandExists(ctx, newName)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrBrandExists
		}
	}

	brand.Name = newName
	if err := s.brandRepo.Update(ctx, brand); err != nil {
		return nil, fmt.Errorf("更新品牌失败: %w", err)
	}
	return brand, nil
}

// DeleteBrand 删除品牌 (不级联修改已有广告的 marca 文本)
func (s *BrandService) DeleteBrand(ctx context.Context, id int64) error {
	return s.brandRepo.Delete(ctx, id)
}

// BrandExists 大小写不敏感的存在检查
func (s *BrandService) BrandExists(ctx context.Context, name string) (bool, error) {
	_, err := s.brandRepo.FindByName(ctx, strings.TrimSpace(name))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("查询品牌失败: %w", err)
	}
	return true, nil
}

// BrandUsage 使用该品牌的广告数
func (s *BrandService) BrandUsage(ctx context.Context, name string) (int64, error) {
	return s.carRepo.CountByMarca(ctx, strings.TrimSpace(name))
}

// MigrateExistingBrands 把历史广告里的 marca 扫进品牌字典
// 已存在的跳过，失败的逐条记入 Errors，不中止整体迁移
func (s *BrandService) MigrateExistingBrands(ctx context.Context) (*dto.MigrationResult, error) {
	cars, err := s.carRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取广告失败: %w", err)
	}

	seen := make(map[string]bool)
	unique := make([]string, 0)
	for _, car := range cars {
		marca := strings.TrimSpace(car.Marca)
		if marca == "" {
			continue
		}
		key := strings.ToLower(marca)
		if !seen[key] {
			seen[key] = true
			unique = append(unique, marca)
		}
	}

	result := &dto.MigrationResult{
		TotalCars:    len(cars),
		UniqueBrands: unique,
		Errors:       []string{},
	}

	for _, name := range unique {
		_, err := s.AddBrand(ctx, name)
		switch {
		case err == nil:
			result.BrandsAdded++
		case errors.Is(err, ErrBrandExists):
			result.BrandsSkipped++
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", name, err))
		}
	}
	return result, nil
}
