package service

import (
	"context"
	"encoding/json"
	"errors"

	"siemadmin/cache"
	"siemadmin/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// NavigationView 侧边栏导航
type NavigationView struct {
	Categories    []NavCategory `json:"categories"`
	Vendors       []NavVendor   `json:"vendors"`
	Uncategorized []NavItem     `json:"uncategorized"`
}

// NavCategory 导航分类
type NavCategory struct {
	ID    uint      `json:"id"`
	Name  string    `json:"name"`
	Label string    `json:"label"`
	Icon  string    `json:"icon"`
	Color string    `json:"color,omitempty"`
	Order int       `json:"order"`
	Items []NavItem `json:"items"`
}

// NavItem 导航菜单项
type NavItem struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Label        string    `json:"label"`
	Href         string    `json:"href"`
	Icon         string    `json:"icon"`
	Badge        string    `json:"badge,omitempty"`
	BadgeVariant string    `json:"badge_variant,omitempty"`
	Children     []NavItem `json:"children,omitempty"`
}

// NavVendor 导航中的供应商
type NavVendor struct {
	ID          string    `json:"id"`
	MenuItemID  uint      `json:"menu_item_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Href        string    `json:"href"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	Pages       []NavItem `json:"pages"`
}

// PageMetadata 页面标题信息
type PageMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Category    string `json:"category"`
}

// NavigationService 组装、本地化并缓存导航
type NavigationService struct {
	db       *gorm.DB
	cache    *cache.NavigationCache
	resolver *PermissionResolver
}

// NewNavigationService 创建导航服务
func NewNavigationService(db *gorm.DB, navCache *cache.NavigationCache, resolver *PermissionResolver) *NavigationService {
	return &NavigationService{db: db, cache: navCache, resolver: resolver}
}

// Navigation 全量导航，命中缓存时返回缓存中的原始 JSON
func (s *NavigationService) Navigation(ctx context.Context, lang string) (json.RawMessage, error) {
	lang = NormalizeLanguage(lang)
	return s.cache.GetOrCompute(ctx, s.cache.Key("navigation", lang), func(ctx context.Context) (interface{}, error) {
		return s.BuildNavigation(ctx, lang, nil)
	})
}

// NavigationForRole 按角色过滤的导航，角色不存在时返回空导航
func (s *NavigationService) NavigationForRole(ctx context.Context, roleCode, lang string) (*NavigationView, error) {
	set, known, err := s.resolver.Effective(ctx, Principal{RoleCode: roleCode})
	if err != nil {
		return nil, err
	}
	if !known {
		return emptyNavigation(), nil
	}
	return s.BuildNavigation(ctx, NormalizeLanguage(lang), menuVisible(set))
}

// BuildNavigation 并发加载分类、菜单与供应商后组装；keep 非空时剪掉不可见节点
func (s *NavigationService) BuildNavigation(ctx context.Context, lang string, keep func(models.MenuItem) bool) (*NavigationView, error) {
	var (
		categories []models.MenuCategory
		items      []models.MenuItem
		vendors    []models.MenuItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = loadCategories(gctx, s.db, false)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = loadMenuItems(gctx, s.db, true, models.MenuKindItem)
		return err
	})
	g.Go(func() error {
		var err error
		vendors, err = loadMenuItems(gctx, s.db, true, models.MenuKindVendor, models.MenuKindVendorPage)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	itemTree := AssembleMenuTree(items)
	vendorTree := AssembleMenuTree(vendors)
	if keep != nil {
		itemTree = PruneMenuTree(itemTree, keep)
		vendorTree = PruneMenuTree(vendorTree, keep)
	}
	return projectNavigation(categories, itemTree, vendorTree, lang), nil
}

func emptyNavigation() *NavigationView {
	return &NavigationView{Categories: []NavCategory{}, Vendors: []NavVendor{}, Uncategorized: []NavItem{}}
}

func projectNavigation(categories []models.MenuCategory, itemTree, vendorTree []*MenuNode, lang string) *NavigationView {
	view := emptyNavigation()

	groups, uncategorized := GroupByCategory(categories, itemTree)
	for _, g := range groups {
		view.Categories = append(view.Categories, NavCategory{
			ID:    g.Category.ID,
			Name:  g.Category.Name,
			Label: Localize(g.Category.Label, lang, g.Category.Name),
			Icon:  ResolveIcon(g.Category.Icon, DefaultItemIcon),
			Color: g.Category.Color,
			Order: g.Category.OrderIndex,
			Items: projectItems(g.Roots, lang),
		})
	}
	view.Uncategorized = projectItems(uncategorized, lang)

	for _, n := range vendorTree {
		if n.Item.Kind != models.MenuKindVendor {
			continue
		}
		view.Vendors = append(view.Vendors, projectVendor(n, lang))
	}
	return view
}

func projectItems(nodes []*MenuNode, lang string) []NavItem {
	out := make([]NavItem, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, projectItem(n, lang))
	}
	return out
}

func projectItem(n *MenuNode, lang string) NavItem {
	item := NavItem{
		ID:    n.Item.ID,
		Name:  n.Item.Name,
		Label: Localize(n.Item.Label, lang, n.Item.Name),
		Href:  n.Item.Href,
		Icon:  ResolveIcon(n.Item.Icon, DefaultItemIcon),
	}
	if b := n.Item.Badge; b != nil && b.Show {
		item.Badge = b.Text
		item.BadgeVariant = b.Variant
	}
	if len(n.Children) > 0 {
		item.Children = projectItems(n.Children, lang)
	}
	return item
}

func projectVendor(n *MenuNode, lang string) NavVendor {
	v := NavVendor{
		ID:          n.Item.Name,
		MenuItemID:  n.Item.ID,
		Name:        Localize(n.Item.Label, lang, n.Item.Name),
		Description: Localize(n.Item.Description, lang, ""),
		Href:        n.Item.Href,
		Icon:        ResolveIcon(n.Item.Icon, DefaultVendorIcon),
		Color:       n.Item.Color,
		Pages:       projectItems(n.Children, lang),
	}
	if v.Href == "" {
		v.Href = "/" + n.Item.Name
	}
	if v.Color == "" {
		v.Color = "gray"
	}
	return v
}

// Metadata 按页面路径查找对应菜单的标题、描述、图标与分类
func (s *NavigationService) Metadata(ctx context.Context, path, lang string) (*PageMetadata, error) {
	lang = NormalizeLanguage(lang)
	meta := &PageMetadata{Title: "Page", Icon: DefaultItemIcon}
	if path == "" {
		return meta, nil
	}

	var item models.MenuItem
	err := s.db.WithContext(ctx).
		Where("href = ? AND is_active = ?", path, true).
		Order("id").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return meta, nil
	}
	if err != nil {
		return nil, storeError(err)
	}

	fallbackIcon := DefaultItemIcon
	if item.Kind == models.MenuKindVendor {
		fallbackIcon = DefaultVendorIcon
	}
	meta.Title = Localize(item.Label, lang, item.Name)
	meta.Description = Localize(item.Description, lang, "")
	meta.Icon = ResolveIcon(item.Icon, fallbackIcon)

	if item.CategoryID != nil {
		var category models.MenuCategory
		err := s.db.WithContext(ctx).First(&category, *item.CategoryID).Error
		if err == nil {
			meta.Category = Localize(category.Label, lang, category.Name)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storeError(err)
		}
	}
	return meta, nil
}

// InvalidateCache 清空导航缓存
func (s *NavigationService) InvalidateCache(ctx context.Context) {
	s.cache.InvalidateAll(ctx)
}
