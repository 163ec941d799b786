package models

import (
	"time"
)

// 菜单节点类型，供应商与供应商页面也存放在同一棵树中
const (
	MenuKindItem       = "item"
	MenuKindVendor     = "vendor"
	MenuKindVendorPage = "vendor_page"
)

// MenuCategory 菜单分类，Name 创建后不可修改
type MenuCategory struct {
	ID         uint          `json:"id" gorm:"primaryKey"`
	Name       string        `json:"name" gorm:"size:50;not null;uniqueIndex"`
	Label      LocalizedText `json:"label" gorm:"serializer:json;type:json"`
	Icon       string        `json:"icon" gorm:"size:50"`
	Color      string        `json:"color" gorm:"size:30"`
	OrderIndex int           `json:"order_index" gorm:"default:0;index"`
	IsActive   bool          `json:"is_active" gorm:"index"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// TableName 设置表名
func (MenuCategory) TableName() string {
	return "menu_categories"
}

// MenuBadge 菜单角标，Show=false 时不展示
type MenuBadge struct {
	Text    string `json:"text"`
	Variant string `json:"variant,omitempty"`
	Show    bool   `json:"show"`
}

// MenuItem 菜单项
// ParentID 为空表示顶级；PermissionCode 为空表示所有已知身份可见
type MenuItem struct {
	ID             uint          `json:"id" gorm:"primaryKey"`
	Kind           string        `json:"kind" gorm:"size:20;not null;default:item;index"`
	CategoryID     *uint         `json:"category_id" gorm:"index"`
	ParentID       *uint         `json:"parent_id" gorm:"index"`
	Name           string        `json:"name" gorm:"size:100;not null;index"` // 稳定名称，供应商为 vendor_id
	Label          LocalizedText `json:"label" gorm:"serializer:json;type:json"`
	Description    LocalizedText `json:"description" gorm:"serializer:json;type:json"`
	Href           string        `json:"href" gorm:"size:255"`
	Icon           string        `json:"icon" gorm:"size:50"`
	Color          string        `json:"color" gorm:"size:30"`
	OrderIndex     int           `json:"order_index" gorm:"default:0;index"`
	IsActive       bool          `json:"is_active" gorm:"index"`
	Badge          *MenuBadge    `json:"badge" gorm:"serializer:json;type:json"`
	PermissionCode string        `json:"permission_code" gorm:"size:100;index"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName 设置表名
func (MenuItem) TableName() string {
	return "menu_items"
}
