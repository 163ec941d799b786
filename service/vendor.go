package service

import (
	"context"
	"errors"

	"siemadmin/models"

	"gorm.io/gorm"
)

// VendorInput 供应商写入参数，VendorID 为稳定标识
type VendorInput struct {
	VendorID       string               `json:"vendor_id" binding:"required,max=100"`
	Name           models.LocalizedText `json:"name" binding:"required"`
	Description    models.LocalizedText `json:"description"`
	Href           string               `json:"href" binding:"max=255"`
	Icon           string               `json:"icon" binding:"max=50"`
	Color          string               `json:"color" binding:"max=30"`
	OrderIndex     int                  `json:"order_index"`
	IsActive       *bool                `json:"is_active"`
	Badge          *models.MenuBadge    `json:"badge"`
	PermissionCode string               `json:"permission_code" binding:"omitempty,permcode"`
}

// VendorView 供应商及其页面
type VendorView struct {
	ID             uint                 `json:"id"`
	VendorID       string               `json:"vendor_id"`
	Name           models.LocalizedText `json:"name"`
	Description    models.LocalizedText `json:"description"`
	Href           string               `json:"href"`
	Icon           string               `json:"icon"`
	Color          string               `json:"color"`
	OrderIndex     int                  `json:"order_index"`
	IsActive       bool                 `json:"is_active"`
	Badge          *models.MenuBadge    `json:"badge"`
	PermissionCode string               `json:"permission_code"`
	Pages          []models.MenuItem    `json:"pages"`
}

func vendorView(n *MenuNode) VendorView {
	pages := append(make([]models.MenuItem, 0, len(n.Children)), FlattenMenuTree(n.Children)...)
	return VendorView{
		ID:             n.Item.ID,
		VendorID:       n.Item.Name,
		Name:           n.Item.Label,
		Description:    n.Item.Description,
		Href:           n.Item.Href,
		Icon:           n.Item.Icon,
		Color:          n.Item.Color,
		OrderIndex:     n.Item.OrderIndex,
		IsActive:       n.Item.IsActive,
		Badge:          n.Item.Badge,
		PermissionCode: n.Item.PermissionCode,
		Pages:          pages,
	}
}

// ListVendors 供应商列表（含页面）；供应商存放在菜单树中，kind=vendor
func (s *MenuService) ListVendors(ctx context.Context, activeOnly bool) ([]VendorView, error) {
	items, err := loadMenuItems(ctx, s.db, activeOnly, models.MenuKindVendor, models.MenuKindVendorPage)
	if err != nil {
		return nil, err
	}
	out := make([]VendorView, 0)
	for _, n := range AssembleMenuTree(items) {
		if n.Item.Kind == models.MenuKindVendor {
			out = append(out, vendorView(n))
		}
	}
	return out, nil
}

// CreateVendor 新建供应商
func (s *MenuService) CreateVendor(ctx context.Context, in VendorInput, actor Actor) (*VendorView, error) {
	item, err := s.CreateItem(ctx, MenuItemInput{
		Kind:           models.MenuKindVendor,
		Name:           in.VendorID,
		Label:          in.Name,
		Description:    in.Description,
		Href:           in.Href,
		Icon:           in.Icon,
		Color:          in.Color,
		OrderIndex:     in.OrderIndex,
		IsActive:       in.IsActive,
		Badge:          in.Badge,
		PermissionCode: in.PermissionCode,
	}, actor)
	if err != nil {
		return nil, err
	}
	view := vendorView(&MenuNode{Item: *item})
	return &view, nil
}

// UpdateVendor 更新供应商
func (s *MenuService) UpdateVendor(ctx context.Context, id uint, in VendorInput, actor Actor) (*VendorView, error) {
	if err := s.ensureVendor(ctx, id); err != nil {
		return nil, err
	}
	item, err := s.UpdateItem(ctx, id, MenuItemUpdate{
		Name:           &in.VendorID,
		Label:          in.Name,
		Description:    in.Description,
		Href:           &in.Href,
		Icon:           &in.Icon,
		Color:          &in.Color,
		OrderIndex:     &in.OrderIndex,
		IsActive:       in.IsActive,
		Badge:          in.Badge,
		PermissionCode: &in.PermissionCode,
	}, actor)
	if err != nil {
		return nil, err
	}
	view := vendorView(&MenuNode{Item: *item})
	return &view, nil
}

// DeactivateVendor 供应商删除为软删除，仅置为停用
func (s *MenuService) DeactivateVendor(ctx context.Context, id uint, actor Actor) error {
	if err := s.ensureVendor(ctx, id); err != nil {
		return err
	}
	inactive := false
	_, err := s.UpdateItem(ctx, id, MenuItemUpdate{IsActive: &inactive}, actor)
	return err
}

func (s *MenuService) ensureVendor(ctx context.Context, id uint) error {
	var item models.MenuItem
	err := s.db.WithContext(ctx).Select("id", "kind").First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && item.Kind != models.MenuKindVendor) {
		return models.NewNotFoundError("供应商不存在")
	}
	return storeError(err)
}
