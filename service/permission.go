package service

import (
	"context"
	"strings"

	"siemadmin/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PermissionService 权限目录
type PermissionService struct {
	db    *gorm.DB
	audit *AuditRecorder
}

// NewPermissionService 创建权限目录服务
func NewPermissionService(db *gorm.DB, audit *AuditRecorder) *PermissionService {
	return &PermissionService{db: db, audit: audit}
}

// PermissionFilter 列表过滤条件
type PermissionFilter struct {
	Resource   string
	Category   string
	ActiveOnly bool
}

// PermissionStats 权限及其使用情况
type PermissionStats struct {
	models.Permission
	RoleCount         int64 `json:"role_count"`
	UserOverrideCount int64 `json:"user_override_count"`
}

// RoleGrant 授予某权限的角色
type RoleGrant struct {
	RoleID    uint   `json:"role_id"`
	RoleCode  string `json:"role_code"`
	RoleName  string `json:"role_name"`
	IsGranted bool   `json:"is_granted"`
}

// PermissionDetail 权限详情
type PermissionDetail struct {
	models.Permission
	Roles         []RoleGrant             `json:"roles"`
	UserOverrides []models.UserPermission `json:"user_overrides"`
}

// PermissionInput 新建权限，Resource/Action 缺省时由 Code 拆分
type PermissionInput struct {
	Code        string               `json:"code" binding:"required,permcode"`
	Resource    string               `json:"resource" binding:"max=50"`
	Action      string               `json:"action" binding:"max=50"`
	Name        models.LocalizedText `json:"name" binding:"required"`
	Description models.LocalizedText `json:"description"`
	Scope       string               `json:"scope" binding:"omitempty,oneof=ALL COMPANY DEPARTMENT OWN"`
	Category    string               `json:"category" binding:"max=50"`
}

// PermissionUpdate 更新权限，至少包含一个字段
type PermissionUpdate struct {
	Name        models.LocalizedText `json:"name"`
	Description models.LocalizedText `json:"description"`
	Scope       *string              `json:"scope" binding:"omitempty,oneof=ALL COMPANY DEPARTMENT OWN"`
	Category    *string              `json:"category" binding:"omitempty,max=50"`
	IsActive    *bool                `json:"is_active"`
}

func (u PermissionUpdate) empty() bool {
	return u.Name == nil && u.Description == nil && u.Scope == nil && u.Category == nil && u.IsActive == nil
}

type permissionCount struct {
	PermissionID uint
	Total        int64
}

// List 按 resource, action 排序返回权限及授权统计
func (s *PermissionService) List(ctx context.Context, filter PermissionFilter) ([]PermissionStats, error) {
	query := s.db.WithContext(ctx).Model(&models.Permission{})
	if filter.Resource != "" {
		query = query.Where("resource = ?", filter.Resource)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var perms []models.Permission
	if err := query.Order("resource").Order("action").Find(&perms).Error; err != nil {
		return nil, storeError(err)
	}

	var roleCounts, userCounts []permissionCount
	err := s.db.WithContext(ctx).Model(&models.RolePermission{}).
		Select("permission_id, COUNT(*) AS total").
		Where("is_granted = ?", true).
		Group("permission_id").
		Scan(&roleCounts).Error
	if err != nil {
		return nil, storeError(err)
	}
	err = s.db.WithContext(ctx).Model(&models.UserPermission{}).
		Select("permission_id, COUNT(*) AS total").
		Group("permission_id").
		Scan(&userCounts).Error
	if err != nil {
		return nil, storeError(err)
	}

	roleBy := make(map[uint]int64, len(roleCounts))
	for _, c := range roleCounts {
		roleBy[c.PermissionID] = c.Total
	}
	userBy := make(map[uint]int64, len(userCounts))
	for _, c := range userCounts {
		userBy[c.PermissionID] = c.Total
	}

	out := make([]PermissionStats, 0, len(perms))
	for _, p := range perms {
		out = append(out, PermissionStats{Permission: p, RoleCount: roleBy[p.ID], UserOverrideCount: userBy[p.ID]})
	}
	return out, nil
}

// Get 权限详情，含授权角色与用户覆盖
func (s *PermissionService) Get(ctx context.Context, id uint) (*PermissionDetail, error) {
	var perm models.Permission
	if err := s.db.WithContext(ctx).First(&perm, id).Error; err != nil {
		return nil, notFoundOr(err, "权限不存在")
	}

	roles := []RoleGrant{}
	err := s.db.WithContext(ctx).Model(&models.RolePermission{}).
		Select("roles.id AS role_id, roles.code AS role_code, roles.name AS role_name, role_permissions.is_granted AS is_granted").
		Joins("JOIN roles ON roles.id = role_permissions.role_id").
		Where("role_permissions.permission_id = ?", id).
		Order("roles.level DESC").
		Scan(&roles).Error
	if err != nil {
		return nil, storeError(err)
	}

	overrides := []models.UserPermission{}
	if err := s.db.WithContext(ctx).Where("permission_id = ?", id).Order("granted_at DESC").Find(&overrides).Error; err != nil {
		return nil, storeError(err)
	}
	return &PermissionDetail{Permission: perm, Roles: roles, UserOverrides: overrides}, nil
}

// Create 新建自定义权限，IsSystem 恒为 false
func (s *PermissionService) Create(ctx context.Context, in PermissionInput, actor Actor) (*models.Permission, error) {
	code := strings.TrimSpace(in.Code)
	resource, action := in.Resource, in.Action
	if parts := strings.SplitN(code, ".", 2); len(parts) == 2 {
		if resource == "" {
			resource = parts[0]
		}
		if action == "" {
			action = parts[1]
		}
	}
	if resource == "" || action == "" {
		return nil, models.NewValidationError("权限编码格式应为 resource.action")
	}
	if err := ValidateLocalizedText("name", in.Name); err != nil {
		return nil, err
	}
	scope := in.Scope
	if scope == "" {
		scope = models.ScopeCompany
	}

	perm := models.Permission{
		Code:        code,
		Resource:    resource,
		Action:      action,
		Name:        in.Name,
		Description: in.Description,
		Scope:       scope,
		Category:    in.Category,
		IsSystem:    false,
		IsActive:    true,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&perm).Error; err != nil {
			if isDuplicateKey(err) {
				return models.NewValidationError("权限编码已存在: %s", code)
			}
			return storeError(err)
		}
		return s.audit.RecordPermission(tx, models.PermissionAudit{
			EntityType:   "permission",
			EntityID:     perm.ID,
			Action:       models.AuditActionCreated,
			PermissionID: uintPtr(perm.ID),
		}, nil, perm, actor)
	})
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

// Update 更新权限，系统权限不可修改
func (s *PermissionService) Update(ctx context.Context, id uint, in PermissionUpdate, actor Actor) (*models.Permission, error) {
	if in.empty() {
		return nil, models.NewValidationError("没有需要更新的字段")
	}

	var perm models.Permission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&perm, id).Error; err != nil {
			return notFoundOr(err, "权限不存在")
		}
		if perm.IsSystem {
			return models.NewSystemProtectedError("系统权限不可修改")
		}
		before := perm

		if in.Name != nil {
			if err := ValidateLocalizedText("name", in.Name); err != nil {
				return err
			}
			perm.Name = in.Name
		}
		if in.Description != nil {
			perm.Description = in.Description
		}
		if in.Scope != nil {
			perm.Scope = *in.Scope
		}
		if in.Category != nil {
			perm.Category = *in.Category
		}
		if in.IsActive != nil {
			perm.IsActive = *in.IsActive
		}

		if err := tx.Save(&perm).Error; err != nil {
			return storeError(err)
		}
		return s.audit.RecordPermission(tx, models.PermissionAudit{
			EntityType:   "permission",
			EntityID:     perm.ID,
			Action:       models.AuditActionUpdated,
			PermissionID: uintPtr(perm.ID),
		}, before, perm, actor)
	})
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

// Delete 删除权限及其全部授权与覆盖，系统权限不可删除
func (s *PermissionService) Delete(ctx context.Context, id uint, actor Actor) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var perm models.Permission
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&perm, id).Error; err != nil {
			return notFoundOr(err, "权限不存在")
		}
		if perm.IsSystem {
			return models.NewSystemProtectedError("系统权限不可删除")
		}

		var menuRefs int64
		if err := tx.Model(&models.MenuItem{}).Where("permission_code = ?", perm.Code).Count(&menuRefs).Error; err != nil {
			return storeError(err)
		}
		if menuRefs > 0 {
			return models.NewConflictError("权限仍被 %d 个菜单引用，无法删除", menuRefs)
		}

		if err := s.audit.RecordPermission(tx, models.PermissionAudit{
			EntityType:   "permission",
			EntityID:     perm.ID,
			Action:       models.AuditActionDeleted,
			PermissionID: uintPtr(perm.ID),
		}, perm, nil, actor); err != nil {
			return err
		}
		if err := tx.Where("permission_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return storeError(err)
		}
		if err := tx.Where("permission_id = ?", id).Delete(&models.UserPermission{}).Error; err != nil {
			return storeError(err)
		}
		if err := tx.Delete(&perm).Error; err != nil {
			return storeError(err)
		}
		return nil
	})
}
