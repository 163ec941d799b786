package models

import (
	"time"
)

// 权限审计动作
const (
	AuditActionCreated = "created"
	AuditActionUpdated = "updated"
	AuditActionDeleted = "deleted"
	AuditActionGranted = "granted"
	AuditActionRevoked = "revoked"
	AuditActionRemoved = "removed"
)

// 变更审计动作
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// PermissionAudit 权限变更审计，只追加
// OldValue/NewValue 为变更前后的 JSON 快照
type PermissionAudit struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	EntityType   string    `json:"entity_type" gorm:"size:30;not null;index"` // permission | role_permission | user_permission
	EntityID     uint      `json:"entity_id" gorm:"index"`
	Action       string    `json:"action" gorm:"size:20;not null;index"`
	PermissionID *uint     `json:"permission_id" gorm:"index"`
	RoleID       *uint     `json:"role_id" gorm:"index"`
	UserID       *uint     `json:"user_id" gorm:"index"`
	ChangedBy    uint      `json:"changed_by" gorm:"index"`
	OldValue     string    `json:"old_value" gorm:"type:text"`
	NewValue     string    `json:"new_value" gorm:"type:text"`
	Reason       string    `json:"reason" gorm:"size:500"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
}

// TableName 设置表名
func (PermissionAudit) TableName() string {
	return "permission_audit"
}

// AuditLog 菜单与部门的行级变更审计，只追加
type AuditLog struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	TargetTable string    `json:"table_name" gorm:"column:table_name;size:50;not null;index"`
	RecordID    uint      `json:"record_id" gorm:"index"`
	Action      string    `json:"action" gorm:"size:10;not null"`
	OldData     string    `json:"old_data" gorm:"type:text"`
	NewData     string    `json:"new_data" gorm:"type:text"`
	ChangedBy   uint      `json:"changed_by"`
	ChangedAt   time.Time `json:"changed_at" gorm:"index"`
	IPAddress   string    `json:"ip_address" gorm:"size:64"`
}

// TableName 设置表名
func (AuditLog) TableName() string {
	return "audit_logs"
}
