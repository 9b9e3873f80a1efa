package model

// SysUser 后台管理员账号
type SysUser struct {
	BaseModel
	AuditMixin
	Username string `gorm:"size:100;uniqueIndex;not null"`
	Password string `gorm:"size:255;not null"` // bcrypt 哈希密码
	Email    string `gorm:"size:100"`

	// 系统级角色: super_admin (超管), admin (管理员)
	Role string `gorm:"size:20;default:'admin'"`

	// 不能带列默认值: gorm 会跳过零值 false，停用账号就写不进去
	IsActive bool
}

func (SysUser) TableName() string {
	return "sys_users"
}
