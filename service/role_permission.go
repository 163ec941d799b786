package service

import (
	"context"
	"time"

	"siemadmin/logger"
	"siemadmin/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RolePermissionService 角色授权、用户覆盖与菜单可见性
type RolePermissionService struct {
	db       *gorm.DB
	audit    *AuditRecorder
	resolver *PermissionResolver
}

// NewRolePermissionService 创建授权服务
func NewRolePermissionService(db *gorm.DB, audit *AuditRecorder, resolver *PermissionResolver) *RolePermissionService {
	return &RolePermissionService{db: db, audit: audit, resolver: resolver}
}

// GrantInput 批量授权/撤销，IsGranted 缺省为授权
type GrantInput struct {
	PermissionIDs []uint `json:"permission_ids" binding:"required,min=1,dive,gt=0"`
	IsGranted     *bool  `json:"is_granted"`
	Reason        string `json:"reason" binding:"max=500"`
}

// RemoveInput 批量移除角色授权行
type RemoveInput struct {
	PermissionIDs []uint `json:"permission_ids" binding:"required,min=1,dive,gt=0"`
	Reason        string `json:"reason" binding:"max=500"`
}

// OverrideInput 用户级覆盖
type OverrideInput struct {
	PermissionID uint       `json:"permission_id" binding:"required"`
	IsGranted    bool       `json:"is_granted"`
	ExpiresAt    *time.Time `json:"expires_at"`
	Reason       string     `json:"reason" binding:"max=500"`
}

// MenuVisibilityInput 切换角色对菜单的可见性
type MenuVisibilityInput struct {
	MenuItemID uint   `json:"menu_item_id" binding:"required"`
	Role       string `json:"role" binding:"required"`
	CanView    bool   `json:"can_view"`
}

// RolePermissionView 角色已配置的权限
type RolePermissionView struct {
	PermissionID uint                 `json:"permission_id"`
	Code         string               `json:"code"`
	Resource     string               `json:"resource"`
	Action       string               `json:"action"`
	Name         models.LocalizedText `json:"name"`
	Category     string               `json:"category"`
	IsGranted    bool                 `json:"is_granted"`
	GrantedBy    uint                 `json:"granted_by"`
	GrantedAt    time.Time            `json:"granted_at"`
}

// RoleMenuVisibility 角色可见的菜单
type RoleMenuVisibility struct {
	RoleID      uint   `json:"role_id"`
	RoleCode    string `json:"role_code"`
	RoleName    string `json:"role_name"`
	MenuItemIDs []uint `json:"menu_item_ids"`
}

func (s *RolePermissionService) findRole(tx *gorm.DB, roleID uint) (*models.Role, error) {
	var role models.Role
	if err := tx.First(&role, roleID).Error; err != nil {
		return nil, notFoundOr(err, "角色不存在")
	}
	return &role, nil
}

// ensurePermissions 全部权限必须存在且启用
func ensurePermissions(tx *gorm.DB, ids []uint) (map[uint]models.Permission, error) {
	var perms []models.Permission
	if err := tx.Where("id IN ? AND is_active = ?", ids, true).Find(&perms).Error; err != nil {
		return nil, storeError(err)
	}
	byID := make(map[uint]models.Permission, len(perms))
	for _, p := range perms {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, models.NewValidationError("权限 %d 不存在或已停用", id)
		}
	}
	return byID, nil
}

// GetRolePermissions 角色的授权行（含撤销行）
func (s *RolePermissionService) GetRolePermissions(ctx context.Context, roleID uint) ([]RolePermissionView, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.findRole(db, roleID); err != nil {
		return nil, err
	}

	var rows []models.RolePermission
	if err := db.Where("role_id = ?", roleID).Order("permission_id").Find(&rows).Error; err != nil {
		return nil, storeError(err)
	}
	if len(rows) == 0 {
		return []RolePermissionView{}, nil
	}

	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.PermissionID)
	}
	var perms []models.Permission
	if err := db.Where("id IN ?", ids).Find(&perms).Error; err != nil {
		return nil, storeError(err)
	}
	byID := make(map[uint]models.Permission, len(perms))
	for _, p := range perms {
		byID[p.ID] = p
	}

	out := make([]RolePermissionView, 0, len(rows))
	for _, r := range rows {
		p, ok := byID[r.PermissionID]
		if !ok {
			continue
		}
		out = append(out, RolePermissionView{
			PermissionID: p.ID,
			Code:         p.Code,
			Resource:     p.Resource,
			Action:       p.Action,
			Name:         p.Name,
			Category:     p.Category,
			IsGranted:    r.IsGranted,
			GrantedBy:    r.GrantedBy,
			GrantedAt:    r.GrantedAt,
		})
	}
	return out, nil
}

// Grant 批量写入角色授权，已存在的行更新授予标志；每个权限每次调用一条审计
func (s *RolePermissionService) Grant(ctx context.Context, roleID uint, in GrantInput, actor Actor) ([]models.RolePermission, error) {
	granted := in.IsGranted == nil || *in.IsGranted
	var result []models.RolePermission

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findRole(tx, roleID); err != nil {
			return err
		}
		if _, err := ensurePermissions(tx, in.PermissionIDs); err != nil {
			return err
		}

		now := time.Now()
		for _, pid := range uniqueIDs(in.PermissionIDs) {
			row, err := upsertRolePermission(tx, roleID, pid, granted, actor.UserID, now)
			if err != nil {
				return err
			}
			result = append(result, *row.after)
			if err := s.auditGrant(tx, row.before, row.after, in.Reason, actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.LogBusinessOperation("role_permission.grant", actor.UserID, actor.ClientIP, "success", in.Reason,
		map[string]interface{}{"role_id": roleID, "permission_ids": in.PermissionIDs, "is_granted": granted})
	return result, nil
}

type upsertedRow struct {
	before *models.RolePermission
	after  *models.RolePermission
}

// upsertRolePermission 依赖 (role_id, permission_id) 唯一索引做 upsert，返回变更前后的行
func upsertRolePermission(tx *gorm.DB, roleID, permissionID uint, granted bool, by uint, now time.Time) (*upsertedRow, error) {
	var before *models.RolePermission
	var existing models.RolePermission
	err := tx.Where("role_id = ? AND permission_id = ?", roleID, permissionID).Limit(1).Find(&existing).Error
	if err != nil {
		return nil, storeError(err)
	}
	if existing.ID != 0 {
		copied := existing
		before = &copied
	}

	row := models.RolePermission{
		RoleID:       roleID,
		PermissionID: permissionID,
		IsGranted:    granted,
		GrantedBy:    by,
		GrantedAt:    now,
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role_id"}, {Name: "permission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_granted", "granted_by", "granted_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, storeError(err)
	}

	var after models.RolePermission
	if err := tx.Where("role_id = ? AND permission_id = ?", roleID, permissionID).First(&after).Error; err != nil {
		return nil, storeError(err)
	}
	return &upsertedRow{before: before, after: &after}, nil
}

func (s *RolePermissionService) auditGrant(tx *gorm.DB, before, after *models.RolePermission, reason string, actor Actor) error {
	action := models.AuditActionGranted
	if !after.IsGranted {
		action = models.AuditActionRevoked
	}
	var old interface{}
	if before != nil {
		old = before
	}
	return s.audit.RecordPermission(tx, models.PermissionAudit{
		EntityType:   "role_permission",
		EntityID:     after.ID,
		Action:       action,
		PermissionID: uintPtr(after.PermissionID),
		RoleID:       uintPtr(after.RoleID),
		Reason:       reason,
	}, old, after, actor)
}

// Remove 删除角色授权行，每删除一行记录一条审计
func (s *RolePermissionService) Remove(ctx context.Context, roleID uint, in RemoveInput, actor Actor) (int, error) {
	removed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findRole(tx, roleID); err != nil {
			return err
		}

		var rows []models.RolePermission
		if err := tx.Where("role_id = ? AND permission_id IN ?", roleID, uniqueIDs(in.PermissionIDs)).Find(&rows).Error; err != nil {
			return storeError(err)
		}
		for i := range rows {
			row := rows[i]
			if err := s.audit.RecordPermission(tx, models.PermissionAudit{
				EntityType:   "role_permission",
				EntityID:     row.ID,
				Action:       models.AuditActionRemoved,
				PermissionID: uintPtr(row.PermissionID),
				RoleID:       uintPtr(row.RoleID),
				Reason:       in.Reason,
			}, row, nil, actor); err != nil {
				return err
			}
			if err := tx.Delete(&row).Error; err != nil {
				return storeError(err)
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// SetUserOverride 写入用户级覆盖，已存在则更新
func (s *RolePermissionService) SetUserOverride(ctx context.Context, userID uint, in OverrideInput, actor Actor) (*models.UserPermission, error) {
	if in.ExpiresAt != nil && !in.ExpiresAt.After(time.Now()) {
		return nil, models.NewValidationError("过期时间必须晚于当前时间")
	}

	var after models.UserPermission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return notFoundOr(err, "用户不存在")
		}
		if _, err := ensurePermissions(tx, []uint{in.PermissionID}); err != nil {
			return err
		}

		var existing models.UserPermission
		if err := tx.Where("user_id = ? AND permission_id = ?", userID, in.PermissionID).Limit(1).Find(&existing).Error; err != nil {
			return storeError(err)
		}
		var before interface{}
		if existing.ID != 0 {
			copied := existing
			before = copied
		}

		row := models.UserPermission{
			UserID:       userID,
			PermissionID: in.PermissionID,
			IsGranted:    in.IsGranted,
			ExpiresAt:    in.ExpiresAt,
			Reason:       in.Reason,
			GrantedBy:    actor.UserID,
			GrantedAt:    time.Now(),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_granted", "expires_at", "reason", "granted_by", "granted_at"}),
		}).Create(&row).Error
		if err != nil {
			return storeError(err)
		}
		if err := tx.Where("user_id = ? AND permission_id = ?", userID, in.PermissionID).First(&after).Error; err != nil {
			return storeError(err)
		}

		action := models.AuditActionGranted
		if !after.IsGranted {
			action = models.AuditActionRevoked
		}
		return s.audit.RecordPermission(tx, models.PermissionAudit{
			EntityType:   "user_permission",
			EntityID:     after.ID,
			Action:       action,
			PermissionID: uintPtr(after.PermissionID),
			UserID:       uintPtr(userID),
			Reason:       in.Reason,
		}, before, after, actor)
	})
	if err != nil {
		return nil, err
	}
	return &after, nil
}

// RemoveUserOverride 删除用户级覆盖
func (s *RolePermissionService) RemoveUserOverride(ctx context.Context, userID, permissionID uint, actor Actor) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.UserPermission
		if err := tx.Where("user_id = ? AND permission_id = ?", userID, permissionID).First(&row).Error; err != nil {
			return notFoundOr(err, "用户权限覆盖不存在")
		}
		if err := s.audit.RecordPermission(tx, models.PermissionAudit{
			EntityType:   "user_permission",
			EntityID:     row.ID,
			Action:       models.AuditActionRemoved,
			PermissionID: uintPtr(permissionID),
			UserID:       uintPtr(userID),
		}, row, nil, actor); err != nil {
			return err
		}
		if err := tx.Delete(&row).Error; err != nil {
			return storeError(err)
		}
		return nil
	})
}

// EffectiveForUser 用户的有效权限编码
func (s *RolePermissionService) EffectiveForUser(ctx context.Context, userID uint) ([]string, error) {
	set, known, err := s.resolver.Effective(ctx, Principal{UserID: userID})
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, models.NewNotFoundError("用户不存在")
	}
	return set.Codes(), nil
}

// SetMenuVisibility 通过菜单绑定的权限切换角色可见性
func (s *RolePermissionService) SetMenuVisibility(ctx context.Context, in MenuVisibilityInput, actor Actor) (*models.RolePermission, error) {
	db := s.db.WithContext(ctx)

	var item models.MenuItem
	if err := db.First(&item, in.MenuItemID).Error; err != nil {
		return nil, notFoundOr(err, "菜单不存在")
	}
	if item.PermissionCode == "" {
		return nil, models.NewValidationError("菜单未绑定权限，对所有角色可见")
	}

	var role models.Role
	if err := db.Where("code = ?", in.Role).First(&role).Error; err != nil {
		return nil, notFoundOr(err, "角色不存在")
	}
	var perm models.Permission
	if err := db.Where("code = ?", item.PermissionCode).First(&perm).Error; err != nil {
		return nil, notFoundOr(err, "菜单绑定的权限不存在")
	}

	canView := in.CanView
	rows, err := s.Grant(ctx, role.ID, GrantInput{
		PermissionIDs: []uint{perm.ID},
		IsGranted:     &canView,
		Reason:        "menu visibility",
	}, actor)
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// ListMenuVisibility 每个角色可见的菜单 ID
func (s *RolePermissionService) ListMenuVisibility(ctx context.Context) ([]RoleMenuVisibility, error) {
	var roles []models.Role
	if err := s.db.WithContext(ctx).Order("level DESC").Order("id").Find(&roles).Error; err != nil {
		return nil, storeError(err)
	}

	out := make([]RoleMenuVisibility, 0, len(roles))
	for _, role := range roles {
		ids, err := s.resolver.VisibleMenuItems(ctx, Principal{RoleCode: role.Code})
		if err != nil {
			return nil, err
		}
		out = append(out, RoleMenuVisibility{RoleID: role.ID, RoleCode: role.Code, RoleName: role.Name, MenuItemIDs: ids})
	}
	return out, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
