package models

import (
	"time"
)

// 权限作用域
const (
	ScopeAll        = "ALL"
	ScopeCompany    = "COMPANY"
	ScopeDepartment = "DEPARTMENT"
	ScopeOwn        = "OWN"
)

// Permission 权限目录项，Code 形如 resource.action
// IsSystem=true 的权限不可修改或删除
type Permission struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	Code        string        `json:"code" gorm:"size:100;not null;uniqueIndex"`
	Resource    string        `json:"resource" gorm:"size:50;not null;index"`
	Action      string        `json:"action" gorm:"size:50;not null"`
	Name        LocalizedText `json:"name" gorm:"serializer:json;type:json"`
	Description LocalizedText `json:"description" gorm:"serializer:json;type:json"`
	Scope       string        `json:"scope" gorm:"size:20;not null;default:COMPANY"`
	Category    string        `json:"category" gorm:"size:50;index"`
	IsSystem    bool          `json:"is_system" gorm:"not null"`
	IsActive    bool          `json:"is_active" gorm:"not null;index"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TableName 设置表名
func (Permission) TableName() string {
	return "permissions"
}

// RolePermission 角色授权，(role_id, permission_id) 唯一
// IsGranted=false 表示显式撤销，行保留用于审计追溯
type RolePermission struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	RoleID       uint      `json:"role_id" gorm:"not null;uniqueIndex:idx_role_permissions_pair"`
	PermissionID uint      `json:"permission_id" gorm:"not null;uniqueIndex:idx_role_permissions_pair;index"`
	IsGranted    bool      `json:"is_granted" gorm:"not null"`
	GrantedBy    uint      `json:"granted_by"`
	GrantedAt    time.Time `json:"granted_at"`
}

// TableName 设置表名
func (RolePermission) TableName() string {
	return "role_permissions"
}

// UserPermission 用户级覆盖，ExpiresAt 过期后不再生效，回落到角色授权
type UserPermission struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	UserID       uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_user_permissions_pair"`
	PermissionID uint       `json:"permission_id" gorm:"not null;uniqueIndex:idx_user_permissions_pair;index"`
	IsGranted    bool       `json:"is_granted" gorm:"not null"`
	ExpiresAt    *time.Time `json:"expires_at"`
	Reason       string     `json:"reason" gorm:"size:500"`
	GrantedBy    uint       `json:"granted_by"`
	GrantedAt    time.Time  `json:"granted_at"`
}

// TableName 设置表名
func (UserPermission) TableName() string {
	return "user_permissions"
}

// ActiveAt 覆盖在 now 时刻是否仍然生效
func (u *UserPermission) ActiveAt(now time.Time) bool {
	return u.ExpiresAt == nil || u.ExpiresAt.After(now)
}
