package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// UserStatusLocked 锁定：不可登录
	UserStatusLocked = "locked"
	// UserStatusActive 正常：可登录
	UserStatusActive = "active"
)

// User 用户模型，账号与登录由外部身份服务负责，这里只保存归属关系
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Email        string         `json:"email" gorm:"size:100;uniqueIndex"`
	Name         string         `json:"name" gorm:"size:100"`
	CompanyID    *uint          `json:"company_id" gorm:"index"`
	DepartmentID *uint          `json:"department_id" gorm:"index"`
	Department   *Department    `json:"-" gorm:"foreignKey:DepartmentID;constraint:OnDelete:RESTRICT"`
	RoleID       *uint          `json:"role_id" gorm:"index"`
	Status       string         `json:"status" gorm:"size:20;default:active;index"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}

// Company 租户公司
type Company struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	Code      string        `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name      LocalizedText `json:"name" gorm:"serializer:json;type:json"`
	IsActive  bool          `json:"is_active" gorm:"not null"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TableName 设置表名
func (Company) TableName() string {
	return "companies"
}
