package models

import (
	"time"

	"gorm.io/gorm"
)

// 用户角色
const (
	RoleMember = "member" // 普通会员
	RoleAdmin  = "admin"  // 管理员
)

// User 用户模型
type User struct {
	ID         string         `gorm:"type:varchar(36);primaryKey;comment:用户ID (UUID)" json:"id"`
	Username   string         `gorm:"type:varchar(50);uniqueIndex;not null;comment:用户名" json:"username"`
	Email      string         `gorm:"type:varchar(100);uniqueIndex;not null;comment:邮箱" json:"email"`
	Password   string         `gorm:"type:varchar(255);not null;comment:密码" json:"-"` // 不返回给前端
	Role       string         `gorm:"type:varchar(20);default:member;comment:member,admin" json:"role"`
	Points     int            `gorm:"default:0;comment:积分余额,非负" json:"points"`
	Avatar     string         `gorm:"type:varchar(255);comment:头像" json:"avatar,omitempty"`
	Bio        string         `gorm:"type:text;comment:个人简介" json:"bio,omitempty"`
	LastLogin  *time.Time     `gorm:"comment:最后登录时间" json:"last_login,omitempty"`
	LoginCount int            `gorm:"default:0;comment:登录次数" json:"login_count"`
	CreatedAt  time.Time      `gorm:"comment:创建时间" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"comment:更新时间" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index;comment:删除时间" json:"-"` // 软删除

	// 关联关系
	Items        []Item        `gorm:"foreignKey:UploaderID" json:"items,omitempty"`
	SwapRequests []SwapRequest `gorm:"foreignKey:RequesterID" json:"swap_requests,omitempty"`
	Ledgers      []PointLedger `gorm:"foreignKey:UserID" json:"ledgers,omitempty"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate 创建前钩子
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	if u.Role == "" {
		u.Role = RoleMember
	}
	return nil
}

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
