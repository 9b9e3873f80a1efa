package dto

import "carhub_dev_v1_202608/internal/model"

// ==================== 请求 DTO ====================

// ConfigSaveReq 保存站点配置请求 (multipart 表单的字段部分)
// logo/banner 文件由控制器单独提取，上传成功后覆盖对应 URL
type ConfigSaveReq struct {
	Nume   string `form:"nume" binding:"required,max=100"`
	Slogan string `form:"slogan" binding:"max=255"`

	Locatie      string `form:"locatie" binding:"max=255"`
	Whatsapp     string `form:"whatsapp" binding:"max=50"`
	Facebook     string `form:"facebook" binding:"omitempty,url,max=255"`
	ContactEmail string `form:"contact_email" binding:"omitempty,email,max=100"`

	SiteTitle       string `form:"site_title" binding:"max=255"`
	SiteDescription string `form:"site_description" binding:"max=500"`
}

// ==================== 响应 DTO ====================

// ConfigResp 公共配置响应 (前台无需登录即可读取)
type ConfigResp struct {
	Nume      string `json:"nume"`
	Slogan    string `json:"slogan"`
	LogoURL   string `json:"logo_url"`
	BannerImg string `json:"banner_img"`

	Locatie      string `json:"locatie"`
	Whatsapp     string `json:"whatsapp"`
	Facebook     string `json:"facebook"`
	ContactEmail string `json:"contact_email"`

	SiteTitle       string `json:"site_title"`
	SiteDescription string `json:"site_description"`
}

// ToConfigResp 模型转响应
func ToConfigResp(cfg *model.SiteConfig) ConfigResp {
	if cfg == nil {
		return ConfigResp{}
	}
	return ConfigResp{
		Nume:            cfg.Nume,
		Slogan:          cfg.Slogan,
		LogoURL:         cfg.LogoURL,
		BannerImg:       cfg.BannerImg,
		Locatie:         cfg.Locatie,
		Whatsapp:        cfg.Whatsapp,
		Facebook:        cfg.Facebook,
		ContactEmail:    cfg.ContactEmail,
		SiteTitle:       cfg.SiteTitle,
		SiteDescription: cfg.SiteDescription,
	}
}
