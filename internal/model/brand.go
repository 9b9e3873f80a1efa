package model

// Brand 品牌字典表
// 从车辆广告的 marca 字段规范化而来，后台单独维护
type Brand struct {
	BaseModel
	AuditMixin
	Name string `gorm:"size:100;uniqueIndex;not null"`
}

func (Brand) TableName() string {
	return "brands"
}
