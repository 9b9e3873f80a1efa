package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carhub_dev_v1_202608/internal/api/dto"
	"carhub_dev_v1_202608/internal/service"
)

type ConfigController struct {
	configService *service.ConfigService
}

func NewConfigController(configService *service.ConfigService) *ConfigController {
	return &ConfigController{configService: configService}
}

// GetConfig 获取公共配置
// @Summary 前台公共配置 (站点名/联系方式/SEO)
// @Tags Config
// @Success 200 {object} dto.ConfigResp
// @Router /api/config [get]
func (ctrl *ConfigController) GetConfig(c *gin.Context) {
	cfg, err := ctrl.configService.GetPublicConfig(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.ToConfigResp(cfg),
	})
}

// SaveConfig 保存站点配置 (multipart: 字段 + 可选 logo/banner 文件)
// @Summary 保存站点配置
// @Tags Config
// @Accept mpfd
// @Security BearerAuth
// @Success 200 {object} dto.ConfigResp
// @Router /api/admin/config [put]
func (ctrl *ConfigController) SaveConfig(c *gin.Context) {
	var req dto.ConfigSaveReq
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	logo, err := readSingleImage(c, "logo")
	if err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "读取 logo 失败: " + err.Error()})
		return
	}
	banner, err := readSingleImage(c, "banner")
	if err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "读取 banner 失败: " + err.Error()})
		return
	}

	cfg, rej := ctrl.configService.SaveConfig(c.Request.Context(), &req, logo, banner)
	if rej != nil {
		status := rejectionStatus(rej)
		c.JSON(status, gin.H{
			"code":    status,
			"message": rej.Message,
			"reason":  rej.Reason,
		})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "保存成功",
		"data":    dto.ToConfigResp(cfg),
	})
}

// readSingleImage 读取单个可选文件字段
func readSingleImage(c *gin.Context, field string) (*service.ImageCandidate, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		// multipart 表单里没有该字段同样按缺省处理
		return nil, nil
	}

	data, err := readFileHeader(fh)
	if err != nil {
		return nil, err
	}

	return &service.ImageCandidate{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
