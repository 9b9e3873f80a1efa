package dto

import "time"

// ==================== 请求 DTO ====================

// BrandCreateReq 新增品牌请求
type BrandCreateReq struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// BrandUpdateReq 重命名品牌请求
type BrandUpdateReq struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// ==================== 响应 DTO ====================

// BrandResp 品牌响应
type BrandResp struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// BrandUsageResp 品牌使用统计
type BrandUsageResp struct {
	Name  string `json:"name"`
	Count int64  `json:"count"` // 使用该品牌的广告数
}

// ==================== 品牌迁移 ====================

// MigrationResult 历史品牌迁移结果
type MigrationResult struct {
	TotalCars     int      `json:"total_cars"`
	UniqueBrands  []string `json:"unique_brands"`
	BrandsAdded   int      `json:"brands_added"`
	BrandsSkipped int      `json:"brands_skipped"`
	Errors        []string `json:"errors"`
}
