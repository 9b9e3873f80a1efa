package controller

import (
	"time"

	"github.com/gin-gonic/gin"

	"carhub_dev_v1_202608/internal/middleware"
	"carhub_dev_v1_202608/internal/service"
)

type MigrationController struct {
	migrationService *service.MigrationService
}

func NewMigrationController(migrationService *service.MigrationService) *MigrationController {
	return &MigrationController{migrationService: migrationService}
}

// ImportLegacyReq 旧站导入参数
type ImportLegacyReq struct {
	ExportURL string `json:"export_url" binding:"required,url"`
}

// ImportLegacy 从旧站导出 JSON 批量导入广告
// @Summary 旧站广告迁移
// @Tags Migration
// @Accept json
// @Security BearerAuth
// @Param body body ImportLegacyReq true "导入参数"
// @Success 200 {object} service.ImportResult
// @Router /api/admin/migration/listings [post]
func (ctrl *MigrationController) ImportLegacy(c *gin.Context) {
	var req ImportLegacyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	// 整站迁移是重操作，5 分钟内只允许触发一次
	if result := middleware.GetLimiter().Check("migration:listings", 5*time.Minute); !result.Allowed {
		c.JSON(429, gin.H{
			"code":        429,
			"message":     "迁移正在冷却中，请稍后再试",
			"retry_after": result.RetryAfter.Seconds(),
		})
		return
	}

	userID := middleware.GetUserID(c)
	res, err := ctrl.migrationService.ImportLegacyListings(c.Request.Context(), req.ExportURL, userID)
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "导入失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "导入完成",
		"data":    res,
	})
}
