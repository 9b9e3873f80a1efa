package model

// SiteConfig 站点公共配置 (单行表)
// 对应前台的品牌展示、联系方式与 SEO 元数据
type SiteConfig struct {
	BaseModel
	AuditMixin

	// --- 品牌展示 ---
	Nume      string `gorm:"size:100"` // 站点名称
	Slogan    string `gorm:"size:255"`
	LogoURL   string `gorm:"size:500"`
	BannerImg string `gorm:"size:500"`

	// --- 联系方式 ---
	Locatie      string `gorm:"size:255"`
	Whatsapp     string `gorm:"size:50"`
	Facebook     string `gorm:"size:255"`
	ContactEmail string `gorm:"size:100"`

	// --- SEO ---
	SiteTitle       string `gorm:"size:255"`
	SiteDescription string `gorm:"size:500"`
}

func (SiteConfig) TableName() string {
	return "site_configs"
}
