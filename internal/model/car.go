package model

import (
	"gorm.io/datatypes"
)

// Car 车辆广告
// 字段命名沿用前端表单 (罗马尼亚语市场)
type Car struct {
	BaseModel
	AuditMixin

	// --- 归属 ---
	UserID int64 `gorm:"index;not null"` // 发布人的 SysUserID

	// --- 基本信息 ---
	Title string `gorm:"size:255;not null"` // 广告标题
	Slug  string `gorm:"size:255;index"`    // 详情页路径: marca-model-an-id
	Marca string `gorm:"size:100;index"`    // 品牌
	Model string `gorm:"size:100;index"`    // 车型
	An    int    `gorm:"index"`             // 出厂年份
	Pret  int64  `gorm:"index;default:0"`   // 价格 (EUR)
	Km    int64  `gorm:"default:0"`         // 里程数

	// --- 技术参数 ---
	Caroserie   string `gorm:"size:50"`   // 车身类型: SUV, Berlina, Coupe...
	Transmisie  string `gorm:"size:50"`   // 变速箱
	Combustibil string `gorm:"size:50"`   // 燃料
	Capacitate  int    `gorm:"default:0"` // 排量 (cm3)
	Putere      int    `gorm:"default:0"` // 功率 (CP)
	Tractiune   string `gorm:"size:50"`   // 驱动方式

	// --- 描述与联系 ---
	Descriere  string `gorm:"type:text"`
	Dotari     string `gorm:"type:text"` // 配置清单
	Contact    string `gorm:"size:100"`
	Locatie    string `gorm:"size:255"`
	LinkExtern string `gorm:"size:500"` // 外部平台链接 (autovit 等)

	// --- 图片集 ---
	// Images 为展示顺序排列的公开 URL 列表
	// CoverImage 必须是 Images 的成员 (Images 非空时)
	Images     datatypes.JSONSlice[string] `gorm:"type:json"`
	CoverImage string                      `gorm:"size:500"`
}

func (Car) TableName() string {
	return "cars"
}
