package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"siemadmin/models"

	"gorm.io/gorm"
)

// Principal 权限主体：有 UserID 时按用户解析（含覆盖），否则按角色编码解析
type Principal struct {
	UserID   uint
	RoleCode string
}

// PermissionSet 权限编码集合
type PermissionSet map[string]bool

// Codes 返回排序后的编码
func (s PermissionSet) Codes() []string {
	codes := make([]string, 0, len(s))
	for c := range s {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// PermissionResolver 计算主体的有效权限与可见菜单
// 未知角色或用户解析为空集，查询失败返回错误由调用方拒绝请求
type PermissionResolver struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPermissionResolver 创建解析器
func NewPermissionResolver(db *gorm.DB) *PermissionResolver {
	return &PermissionResolver{db: db, now: time.Now}
}

// WithClock 替换时钟，用于判断覆盖是否过期
func (r *PermissionResolver) WithClock(now func() time.Time) *PermissionResolver {
	r.now = now
	return r
}

// Effective 有效权限集合；known=false 表示主体不存在
func (r *PermissionResolver) Effective(ctx context.Context, p Principal) (PermissionSet, bool, error) {
	if p.UserID != 0 {
		return r.userPermissions(ctx, p.UserID)
	}
	if p.RoleCode != "" {
		var role models.Role
		err := r.db.WithContext(ctx).Where("code = ?", p.RoleCode).First(&role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PermissionSet{}, false, nil
		}
		if err != nil {
			return nil, false, storeError(err)
		}
		set, err := r.rolePermissions(ctx, role.ID)
		return set, err == nil, err
	}
	return PermissionSet{}, false, nil
}

// HasPermission 主体是否持有 code
func (r *PermissionResolver) HasPermission(ctx context.Context, p Principal, code string) (bool, error) {
	set, _, err := r.Effective(ctx, p)
	if err != nil {
		return false, err
	}
	return set[code], nil
}

func (r *PermissionResolver) rolePermissions(ctx context.Context, roleID uint) (PermissionSet, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&models.Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ? AND role_permissions.is_granted = ? AND permissions.is_active = ?", roleID, true, true).
		Pluck("permissions.code", &codes).Error
	if err != nil {
		return nil, storeError(err)
	}
	set := make(PermissionSet, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set, nil
}

func (r *PermissionResolver) userPermissions(ctx context.Context, userID uint) (PermissionSet, bool, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PermissionSet{}, false, nil
	}
	if err != nil {
		return nil, false, storeError(err)
	}
	if user.Status == models.UserStatusLocked {
		return PermissionSet{}, true, nil
	}

	set := PermissionSet{}
	if user.RoleID != nil {
		if set, err = r.rolePermissions(ctx, *user.RoleID); err != nil {
			return nil, false, err
		}
	}

	var overrides []models.UserPermission
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&overrides).Error; err != nil {
		return nil, false, storeError(err)
	}
	if len(overrides) == 0 {
		return set, true, nil
	}

	ids := make([]uint, 0, len(overrides))
	for _, o := range overrides {
		ids = append(ids, o.PermissionID)
	}
	var perms []models.Permission
	if err := r.db.WithContext(ctx).Where("id IN ? AND is_active = ?", ids, true).Find(&perms).Error; err != nil {
		return nil, false, storeError(err)
	}
	codeOf := make(map[uint]string, len(perms))
	for _, p := range perms {
		codeOf[p.ID] = p.Code
	}

	now := r.now()
	for _, o := range overrides {
		code, ok := codeOf[o.PermissionID]
		if !ok || !o.ActiveAt(now) {
			continue
		}
		if o.IsGranted {
			set[code] = true
		} else {
			delete(set, code)
		}
	}
	return set, true, nil
}

// menuVisible 未绑定权限的菜单对已知主体可见
func menuVisible(set PermissionSet) func(models.MenuItem) bool {
	return func(item models.MenuItem) bool {
		return item.PermissionCode == "" || set[item.PermissionCode]
	}
}

// VisibleMenuTree 主体可见的启用菜单树，父节点不可见时整棵子树隐藏
func (r *PermissionResolver) VisibleMenuTree(ctx context.Context, p Principal, kinds ...string) ([]*MenuNode, error) {
	set, known, err := r.Effective(ctx, p)
	if err != nil {
		return nil, err
	}
	if !known {
		return []*MenuNode{}, nil
	}
	items, err := loadMenuItems(ctx, r.db, true, kinds...)
	if err != nil {
		return nil, err
	}
	return PruneMenuTree(AssembleMenuTree(items), menuVisible(set)), nil
}

// VisibleMenuItems 主体可见的菜单 ID
func (r *PermissionResolver) VisibleMenuItems(ctx context.Context, p Principal) ([]uint, error) {
	tree, err := r.VisibleMenuTree(ctx, p)
	if err != nil {
		return nil, err
	}
	ids := CollectMenuIDs(tree)
	if ids == nil {
		ids = []uint{}
	}
	return ids, nil
}
