package service

import (
	"context"

	"siemadmin/models"

	"gorm.io/gorm"
)

// loadMenuItems 按 分类顺序 -> 菜单顺序 -> id 排序加载菜单，未分类的排在最后
func loadMenuItems(ctx context.Context, db *gorm.DB, activeOnly bool, kinds ...string) ([]models.MenuItem, error) {
	query := db.WithContext(ctx).
		Model(&models.MenuItem{}).
		Select("menu_items.*").
		Joins("LEFT JOIN menu_categories ON menu_categories.id = menu_items.category_id")
	if activeOnly {
		query = query.Where("menu_items.is_active = ?", true)
	}
	if len(kinds) > 0 {
		query = query.Where("menu_items.kind IN ?", kinds)
	}

	var items []models.MenuItem
	err := query.
		Order("CASE WHEN menu_categories.id IS NULL THEN 1 ELSE 0 END").
		Order("menu_categories.order_index").
		Order("menu_items.order_index").
		Order("menu_items.id").
		Find(&items).Error
	if err != nil {
		return nil, storeError(err)
	}
	return items, nil
}

func loadCategories(ctx context.Context, db *gorm.DB, activeOnly bool) ([]models.MenuCategory, error) {
	query := db.WithContext(ctx).Model(&models.MenuCategory{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var categories []models.MenuCategory
	if err := query.Order("order_index").Order("id").Find(&categories).Error; err != nil {
		return nil, storeError(err)
	}
	return categories, nil
}

// collectMenuDescendantIDs 逐层查找子孙节点，visited 防止脏数据中的环
func collectMenuDescendantIDs(tx *gorm.DB, rootID uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	frontier := []uint{rootID}
	for len(frontier) > 0 {
		var children []uint
		if err := tx.Model(&models.MenuItem{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, id := range children {
			if id == rootID || set[id] {
				continue
			}
			set[id] = true
			frontier = append(frontier, id)
		}
	}
	return set, nil
}
