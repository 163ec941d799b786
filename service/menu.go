package service

import (
	"context"
	"strings"

	"siemadmin/cache"
	"siemadmin/logger"
	"siemadmin/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MenuService 菜单、分类与供应商的写操作
// 每次写入与审计记录在同一事务内，提交后整体失效导航缓存
type MenuService struct {
	db    *gorm.DB
	cache *cache.NavigationCache
	audit *AuditRecorder
}

// NewMenuService 创建菜单服务
func NewMenuService(db *gorm.DB, navCache *cache.NavigationCache, audit *AuditRecorder) *MenuService {
	return &MenuService{db: db, cache: navCache, audit: audit}
}

// MenuItemInput 新建菜单项
type MenuItemInput struct {
	Kind           string               `json:"kind" binding:"omitempty,oneof=item vendor vendor_page"`
	CategoryID     *uint                `json:"category_id"`
	ParentID       *uint                `json:"parent_id"`
	Name           string               `json:"name" binding:"required,max=100"`
	Label          models.LocalizedText `json:"label" binding:"required"`
	Description    models.LocalizedText `json:"description"`
	Href           string               `json:"href" binding:"max=255"`
	Icon           string               `json:"icon" binding:"max=50"`
	Color          string               `json:"color" binding:"max=30"`
	OrderIndex     int                  `json:"order_index"`
	IsActive       *bool                `json:"is_active"`
	Badge          *models.MenuBadge    `json:"badge"`
	PermissionCode string               `json:"permission_code" binding:"omitempty,permcode"`
}

// MenuItemUpdate 更新菜单项，nil 字段保持不变
// CategoryID/ParentID 传 0 表示清空
type MenuItemUpdate struct {
	CategoryID     *uint                `json:"category_id"`
	ParentID       *uint                `json:"parent_id"`
	Name           *string              `json:"name" binding:"omitempty,max=100"`
	Label          models.LocalizedText `json:"label"`
	Description    models.LocalizedText `json:"description"`
	Href           *string              `json:"href" binding:"omitempty,max=255"`
	Icon           *string              `json:"icon" binding:"omitempty,max=50"`
	Color          *string              `json:"color" binding:"omitempty,max=30"`
	OrderIndex     *int                 `json:"order_index"`
	IsActive       *bool                `json:"is_active"`
	Badge          *models.MenuBadge    `json:"badge"`
	PermissionCode *string              `json:"permission_code" binding:"omitempty,permcode"`
}

// ReorderEntry 批量排序中的一项，ParentID 非空时同时调整父级（0 表示顶级）
type ReorderEntry struct {
	ID         uint  `json:"id" binding:"required"`
	OrderIndex int   `json:"order_index"`
	ParentID   *uint `json:"parent_id"`
}

// CategoryInput 新建分类
type CategoryInput struct {
	Name       string               `json:"name" binding:"required,max=50"`
	Label      models.LocalizedText `json:"label" binding:"required"`
	Icon       string               `json:"icon" binding:"max=50"`
	Color      string               `json:"color" binding:"max=30"`
	OrderIndex int                  `json:"order_index"`
	IsActive   *bool                `json:"is_active"`
}

// CategoryUpdate 更新分类，Name 不可修改
type CategoryUpdate struct {
	Name       *string              `json:"name"`
	Label      models.LocalizedText `json:"label"`
	Icon       *string              `json:"icon" binding:"omitempty,max=50"`
	Color      *string              `json:"color" binding:"omitempty,max=30"`
	OrderIndex *int                 `json:"order_index"`
	IsActive   *bool                `json:"is_active"`
}

// ListItems 菜单编辑视图：全部菜单项（含停用）组装成树
func (s *MenuService) ListItems(ctx context.Context, kinds ...string) ([]*MenuNode, error) {
	items, err := loadMenuItems(ctx, s.db, false, kinds...)
	if err != nil {
		return nil, err
	}
	return AssembleMenuTree(items), nil
}

// GetItem 按 ID 查询菜单项
func (s *MenuService) GetItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, notFoundOr(err, "菜单不存在")
	}
	return &item, nil
}

// CreateItem 新建菜单项
func (s *MenuService) CreateItem(ctx context.Context, in MenuItemInput, actor Actor) (*models.MenuItem, error) {
	item := models.MenuItem{
		Kind:           in.Kind,
		CategoryID:     normalizeRef(in.CategoryID),
		ParentID:       normalizeRef(in.ParentID),
		Name:           strings.TrimSpace(in.Name),
		Label:          in.Label,
		Description:    in.Description,
		Href:           strings.TrimSpace(in.Href),
		Icon:           in.Icon,
		Color:          in.Color,
		OrderIndex:     in.OrderIndex,
		IsActive:       in.IsActive == nil || *in.IsActive,
		Badge:          in.Badge,
		PermissionCode: in.PermissionCode,
	}
	if item.Kind == "" {
		item.Kind = models.MenuKindItem
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.validateItem(tx, &item); err != nil {
			return err
		}
		if err := tx.Create(&item).Error; err != nil {
			return storeError(err)
		}
		return s.audit.RecordChange(tx, "menu_items", item.ID, models.ChangeInsert, nil, item, actor)
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, "menu.create", actor, item.ID)
	return &item, nil
}

// UpdateItem 更新菜单项
func (s *MenuService) UpdateItem(ctx context.Context, id uint, in MenuItemUpdate, actor Actor) (*models.MenuItem, error) {
	var item models.MenuItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, id).Error; err != nil {
			return notFoundOr(err, "菜单不存在")
		}
		before := item

		applyItemUpdate(&item, in)
		// 换了父级且未指定分类时跟随新父级
		if in.CategoryID == nil && item.ParentID != nil && !sameRef(before.ParentID, item.ParentID) {
			item.CategoryID = nil
		}
		if err := s.validateItem(tx, &item); err != nil {
			return err
		}
		if err := tx.Save(&item).Error; err != nil {
			return storeError(err)
		}
		if err := s.audit.RecordChange(tx, "menu_items", item.ID, models.ChangeUpdate, before, item, actor); err != nil {
			return err
		}
		if item.Kind == models.MenuKindItem && !sameRef(before.CategoryID, item.CategoryID) {
			return s.cascadeCategory(tx, item.ID, item.CategoryID, actor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, "menu.update", actor, item.ID)
	return &item, nil
}

// cascadeCategory 把分类同步到全部子孙菜单，每个变更的节点一条审计
func (s *MenuService) cascadeCategory(tx *gorm.DB, rootID uint, categoryID *uint, actor Actor) error {
	ids, err := collectMenuDescendantIDs(tx, rootID)
	if err != nil {
		return storeError(err)
	}
	if len(ids) == 0 {
		return nil
	}
	list := make([]uint, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	var descendants []models.MenuItem
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id IN ?", list).Order("id").Find(&descendants).Error; err != nil {
		return storeError(err)
	}
	for _, d := range descendants {
		if sameRef(d.CategoryID, categoryID) {
			continue
		}
		before := d
		d.CategoryID = categoryID
		if err := tx.Model(&models.MenuItem{}).Where("id = ?", d.ID).Update("category_id", categoryID).Error; err != nil {
			return storeError(err)
		}
		if err := s.audit.RecordChange(tx, "menu_items", d.ID, models.ChangeUpdate, before, d, actor); err != nil {
			return err
		}
	}
	return nil
}

func applyItemUpdate(item *models.MenuItem, in MenuItemUpdate) {
	if in.CategoryID != nil {
		item.CategoryID = normalizeRef(in.CategoryID)
	}
	if in.ParentID != nil {
		item.ParentID = normalizeRef(in.ParentID)
	}
	if in.Name != nil {
		item.Name = strings.TrimSpace(*in.Name)
	}
	if in.Label != nil {
		item.Label = in.Label
	}
	if in.Description != nil {
		item.Description = in.Description
	}
	if in.Href != nil {
		item.Href = strings.TrimSpace(*in.Href)
	}
	if in.Icon != nil {
		item.Icon = *in.Icon
	}
	if in.Color != nil {
		item.Color = *in.Color
	}
	if in.OrderIndex != nil {
		item.OrderIndex = *in.OrderIndex
	}
	if in.IsActive != nil {
		item.IsActive = *in.IsActive
	}
	if in.Badge != nil {
		item.Badge = in.Badge
	}
	if in.PermissionCode != nil {
		item.PermissionCode = *in.PermissionCode
	}
}

// DeleteItem 删除菜单项，存在子节点时拒绝
func (s *MenuService) DeleteItem(ctx context.Context, id uint, actor Actor) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.MenuItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, id).Error; err != nil {
			return notFoundOr(err, "菜单不存在")
		}

		var children int64
		if err := tx.Model(&models.MenuItem{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
			return storeError(err)
		}
		if children > 0 {
			return models.NewConflictError("存在 %d 个子菜单，请先删除或移动子菜单", children)
		}

		if err := tx.Delete(&item).Error; err != nil {
			return storeError(err)
		}
		return s.audit.RecordChange(tx, "menu_items", item.ID, models.ChangeDelete, item, nil, actor)
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, "menu.delete", actor, id)
	return nil
}

// Reorder 批量调整排序与父级，全部成功或全部回滚
func (s *MenuService) Reorder(ctx context.Context, entries []ReorderEntry, actor Actor) error {
	if len(entries) == 0 {
		return models.NewValidationError("排序列表不能为空")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			var item models.MenuItem
			if err := tx.First(&item, e.ID).Error; err != nil {
				return notFoundOr(err, "菜单 %d 不存在", e.ID)
			}
			before := item

			item.OrderIndex = e.OrderIndex
			if e.ParentID != nil {
				item.ParentID = normalizeRef(e.ParentID)
				if err := s.validateItem(tx, &item); err != nil {
					return err
				}
			}
			if before.OrderIndex == item.OrderIndex && sameRef(before.ParentID, item.ParentID) {
				continue
			}
			if err := tx.Save(&item).Error; err != nil {
				return storeError(err)
			}
			if err := s.audit.RecordChange(tx, "menu_items", item.ID, models.ChangeUpdate, before, item, actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, "menu.reorder", actor, 0)
	return nil
}

// validateItem 写入前校验：多语言标签、分类与父级存在、层级规则与无环
func (s *MenuService) validateItem(tx *gorm.DB, item *models.MenuItem) error {
	switch item.Kind {
	case models.MenuKindItem, models.MenuKindVendor, models.MenuKindVendorPage:
	default:
		return models.NewValidationError("无效的菜单类型: %s", item.Kind)
	}
	if item.Name == "" {
		return models.NewValidationError("名称不能为空")
	}
	if err := ValidateLocalizedText("label", item.Label); err != nil {
		return err
	}
	if item.Kind != models.MenuKindVendor && item.Href == "" {
		return models.NewValidationError("链接不能为空")
	}

	if item.CategoryID != nil {
		var count int64
		if err := tx.Model(&models.MenuCategory{}).Where("id = ?", *item.CategoryID).Count(&count).Error; err != nil {
			return storeError(err)
		}
		if count == 0 {
			return models.NewNotFoundError("菜单分类不存在")
		}
	}

	if err := s.validateParent(tx, item); err != nil {
		return err
	}

	if item.Kind == models.MenuKindVendor {
		var dup int64
		query := tx.Model(&models.MenuItem{}).Where("kind = ? AND name = ?", models.MenuKindVendor, item.Name)
		if item.ID != 0 {
			query = query.Where("id <> ?", item.ID)
		}
		if err := query.Count(&dup).Error; err != nil {
			return storeError(err)
		}
		if dup > 0 {
			return models.NewValidationError("供应商标识已存在: %s", item.Name)
		}
	}

	if item.PermissionCode != "" {
		var count int64
		if err := tx.Model(&models.Permission{}).Where("code = ?", item.PermissionCode).Count(&count).Error; err != nil {
			return storeError(err)
		}
		if count == 0 {
			return models.NewValidationError("权限编码不存在: %s", item.PermissionCode)
		}
	}
	return nil
}

func (s *MenuService) validateParent(tx *gorm.DB, item *models.MenuItem) error {
	if item.ParentID == nil {
		if item.Kind == models.MenuKindVendorPage {
			return models.NewValidationError("供应商页面必须指定所属供应商")
		}
		return nil
	}
	if item.Kind == models.MenuKindVendor {
		return models.NewValidationError("供应商不能有父级")
	}
	if item.ID != 0 && *item.ParentID == item.ID {
		return models.NewValidationError("不能将自己设为父级")
	}

	var parent models.MenuItem
	if err := tx.First(&parent, *item.ParentID).Error; err != nil {
		return notFoundOr(err, "父级菜单不存在")
	}

	switch item.Kind {
	case models.MenuKindItem:
		if parent.Kind != models.MenuKindItem {
			return models.NewValidationError("菜单项只能挂在菜单项之下")
		}
		if item.CategoryID == nil {
			item.CategoryID = parent.CategoryID
		} else if !sameRef(parent.CategoryID, item.CategoryID) {
			return models.NewValidationError("父级菜单与当前菜单不在同一分类")
		}
	case models.MenuKindVendorPage:
		if parent.Kind != models.MenuKindVendor {
			return models.NewValidationError("供应商页面只能挂在供应商之下")
		}
	}

	if item.ID != 0 {
		descendants, err := collectMenuDescendantIDs(tx, item.ID)
		if err != nil {
			return storeError(err)
		}
		if descendants[*item.ParentID] {
			return models.NewValidationError("不能将子菜单设为父级")
		}
	}
	return nil
}

// ListCategories 分类列表，按 order_index 排序
func (s *MenuService) ListCategories(ctx context.Context, activeOnly bool) ([]models.MenuCategory, error) {
	return loadCategories(ctx, s.db, activeOnly)
}

// CreateCategory 新建分类
func (s *MenuService) CreateCategory(ctx context.Context, in CategoryInput, actor Actor) (*models.MenuCategory, error) {
	category := models.MenuCategory{
		Name:       strings.TrimSpace(in.Name),
		Label:      in.Label,
		Icon:       in.Icon,
		Color:      in.Color,
		OrderIndex: in.OrderIndex,
		IsActive:   in.IsActive == nil || *in.IsActive,
	}
	if err := ValidateLocalizedText("label", category.Label); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&category).Error; err != nil {
			if isDuplicateKey(err) {
				return models.NewValidationError("分类名称已存在: %s", category.Name)
			}
			return storeError(err)
		}
		return s.audit.RecordChange(tx, "menu_categories", category.ID, models.ChangeInsert, nil, category, actor)
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, "menu_category.create", actor, category.ID)
	return &category, nil
}

// UpdateCategory 更新分类
func (s *MenuService) UpdateCategory(ctx context.Context, id uint, in CategoryUpdate, actor Actor) (*models.MenuCategory, error) {
	var category models.MenuCategory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, id).Error; err != nil {
			return notFoundOr(err, "菜单分类不存在")
		}
		before := category

		if in.Name != nil && *in.Name != category.Name {
			return models.NewValidationError("分类名称创建后不可修改")
		}
		if in.Label != nil {
			if err := ValidateLocalizedText("label", in.Label); err != nil {
				return err
			}
			category.Label = in.Label
		}
		if in.Icon != nil {
			category.Icon = *in.Icon
		}
		if in.Color != nil {
			category.Color = *in.Color
		}
		if in.OrderIndex != nil {
			category.OrderIndex = *in.OrderIndex
		}
		if in.IsActive != nil {
			category.IsActive = *in.IsActive
		}

		if err := tx.Save(&category).Error; err != nil {
			return storeError(err)
		}
		return s.audit.RecordChange(tx, "menu_categories", category.ID, models.ChangeUpdate, before, category, actor)
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, "menu_category.update", actor, category.ID)
	return &category, nil
}

// afterWrite 提交后失效缓存并记录业务日志
func (s *MenuService) afterWrite(ctx context.Context, op string, actor Actor, id uint) {
	s.cache.InvalidateAll(ctx)
	logger.LogBusinessOperation(op, actor.UserID, actor.ClientIP, "success", "", map[string]interface{}{"record_id": id})
}

func normalizeRef(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	return uintPtr(*id)
}

func sameRef(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
