package controller

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"carhub_dev_v1_202608/internal/api/dto"
	"carhub_dev_v1_202608/internal/middleware"
	"carhub_dev_v1_202608/internal/service"
)

type BrandController struct {
	brandService *service.BrandService
}

func NewBrandController(brandService *service.BrandService) *BrandController {
	return &BrandController{brandService: brandService}
}

// ==================== 查询接口 ====================

// GetBrands 获取品牌列表
// @Summary 按名称排序的全部品牌
// @Tags Brand
// @Success 200 {object} map[string]interface{}
// @Router /api/brands [get]
func (ctrl *BrandController) GetBrands(c *gin.Context) {
	brands, err := ctrl.brandService.ListBrands(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	respList := make([]dto.BrandResp, 0, len(brands))
	for _, b := range brands {
		respList = append(respList, dto.BrandResp{
			ID:        b.ID,
			Name:      b.Name,
			CreatedAt: b.CreatedAt,
		})
	}

	c.JSON(200, gin.H{"code": 0, "message": "success", "data": respList})
}

// GetBrandUsage 品牌使用统计
// @Summary 使用该品牌的广告数 (删除前的确认提示用)
// @Tags Brand
// @Security BearerAuth
// @Param name query string true "品牌名"
// @Success 200 {object} dto.BrandUsageResp
// @Router /api/admin/brands/usage [get]
func (ctrl *BrandController) GetBrandUsage(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(400, gin.H{"code": 400, "message": "缺少品牌名"})
		return
	}

	count, err := ctrl.brandService.BrandUsage(c.Request.Context(), name)
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.BrandUsageResp{Name: name, Count: count},
	})
}

// ==================== 管理接口 ====================

// CreateBrand 新增品牌
// @Summary 新增品牌 (大小写不敏感查重)
// @Tags Brand
// @Security BearerAuth
// @Param request body dto.BrandCreateReq true "品牌"
// @Success 200 {object} dto.BrandResp
// @Router /api/admin/brands [post]
func (ctrl *BrandController) CreateBrand(c *gin.Context) {
	var req dto.BrandCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	brand, err := ctrl.brandService.AddBrand(c.Request.Context(), req.Name)
	if err != nil {
		if errors.Is(err, service.ErrBrandExists) {
			c.JSON(409, gin.H{"code": 409, "message": err.Error()})
			return
		}
		c.JSON(500, gin.H{"code": 500, "message": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "添加成功",
		"data":    dto.BrandResp{ID: brand.ID, Name: brand.Name, CreatedAt: brand.CreatedAt},
	})
}

// UpdateBrand 重命名品牌
// @Summary 重命名品牌
// @Tags Brand
// @Security BearerAuth
// @Param id path int true "品牌ID"
// @Param request body dto.BrandUpdateReq true "新名称"
// @Success 200 {object} dto.BrandResp
// @Router /api/admin/brands/{id} [put]
func (ctrl *BrandController) UpdateBrand(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(400, gin.H{"code": 400, "message": "无效的品牌ID"})
		return
	}

	var req dto.BrandUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	brand, err := ctrl.brandService.UpdateBrand(c.Request.Context(), id, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrBrandExists) {
			c.JSON(409, gin.H{"code": 409, "message": err.Error()})
			return
		}
		c.JSON(500, gin.H{"code": 500, "message": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "更新成功",
		"data":    dto.BrandResp{ID: brand.ID, Name: brand.Name, CreatedAt: brand.CreatedAt},
	})
}

// DeleteBrand 删除品牌
// @Summary 删除品牌 (不影响已有广告的 marca 文本)
// @Tags Brand
// @Security BearerAuth
// @Param id path int true "品牌ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/brands/{id} [delete]
func (ctrl *BrandController) DeleteBrand(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(400, gin.H{"code": 400, "message": "无效的品牌ID"})
		return
	}

	if err := ctrl.brandService.DeleteBrand(c.Request.Context(), id); err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "删除失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{"code": 0, "message": "已删除"})
}

// MigrateBrands 历史品牌迁移
// @Summary 把历史广告的 marca 扫进品牌字典
// @Tags Brand
// @Security BearerAuth
// @Success 200 {object} dto.MigrationResult
// @Router /api/admin/brands/migrate [post]
func (ctrl *BrandController) MigrateBrands(c *gin.Context) {
	// 迁移是全表扫描，加冷却防止重复点击
	if check := middleware.GetLimiter().Check("migration:brands", time.Minute); !check.Allowed {
		c.JSON(429, gin.H{
			"code":    429,
			"message": "操作过于频繁，请稍后再试",
		})
		return
	}

	result, err := ctrl.brandService.MigrateExistingBrands(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "迁移失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{"code": 0, "message": "迁移完成", "data": result})
}
