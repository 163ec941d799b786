package models

import (
	"strconv"
	"strings"
	"time"
)

// Department 部门，邻接表 + 物化路径
// AncestorIDs 为从根到父级的 ID 序列，Path 与 Level 均由其推导：
// Path = "/" + join(AncestorIDs..., ID)，Level = len(AncestorIDs)
type Department struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	CompanyID   uint          `json:"company_id" gorm:"not null;uniqueIndex:idx_departments_company_code"`
	ParentID    *uint         `json:"parent_id" gorm:"index"`
	Parent      *Department   `json:"-" gorm:"foreignKey:ParentID;constraint:OnDelete:RESTRICT"`
	Code        string        `json:"code" gorm:"size:50;not null;uniqueIndex:idx_departments_company_code"`
	Name        LocalizedText `json:"name" gorm:"serializer:json;type:json"`
	Description LocalizedText `json:"description" gorm:"serializer:json;type:json"`
	Level       int           `json:"level" gorm:"not null;default:0"`
	Path        string        `json:"path" gorm:"size:500;index"`
	AncestorIDs []uint        `json:"ancestor_ids" gorm:"serializer:json;type:json"`
	ManagerID   *uint         `json:"manager_id"`
	IsActive    bool          `json:"is_active" gorm:"not null"`
	CreatedBy   uint          `json:"created_by"`
	UpdatedBy   uint          `json:"updated_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TableName 设置表名
func (Department) TableName() string {
	return "departments"
}

// Lineage 返回包含自身的祖先链
func (d *Department) Lineage() []uint {
	chain := make([]uint, 0, len(d.AncestorIDs)+1)
	chain = append(chain, d.AncestorIDs...)
	return append(chain, d.ID)
}

// SetAncestors 重设祖先链并同步 Path 与 Level，ID 必须已分配
func (d *Department) SetAncestors(ancestors []uint) {
	d.AncestorIDs = append([]uint{}, ancestors...)
	d.Level = len(d.AncestorIDs)
	d.Path = BuildDepartmentPath(d.Lineage())
}

// BuildDepartmentPath 按 ID 序列生成物化路径，如 /1/4/9
func BuildDepartmentPath(ids []uint) string {
	var b strings.Builder
	for _, id := range ids {
		b.WriteByte('/')
		b.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return b.String()
}
