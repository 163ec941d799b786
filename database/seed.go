package database

import (
	"time"

	"siemadmin/models"

	"gorm.io/gorm"
)

type permissionSeed struct {
	resource string
	actions  []string
	category string
	name     models.LocalizedText
}

// 内置权限目录，均为系统权限
var systemPermissions = []permissionSeed{
	{"users", []string{"create", "read", "update", "delete"}, "organization", models.LocalizedText{"ko": "사용자", "en": "Users", "ja": "ユーザー", "zh": "用户"}},
	{"companies", []string{"create", "read", "update", "delete"}, "organization", models.LocalizedText{"ko": "회사", "en": "Companies", "ja": "会社", "zh": "公司"}},
	{"departments", []string{"create", "read", "update", "delete"}, "organization", models.LocalizedText{"ko": "부서", "en": "Departments", "ja": "部署", "zh": "部门"}},
	{"roles", []string{"create", "read", "update", "delete"}, "access", models.LocalizedText{"ko": "역할", "en": "Roles", "ja": "ロール", "zh": "角色"}},
	{"permissions", []string{"create", "read", "update", "delete"}, "access", models.LocalizedText{"ko": "권한", "en": "Permissions", "ja": "権限", "zh": "权限"}},
	{"menus", []string{"create", "read", "update", "delete"}, "system", models.LocalizedText{"ko": "메뉴", "en": "Menus", "ja": "メニュー", "zh": "菜单"}},
	{"incidents", []string{"read", "update", "export"}, "security", models.LocalizedText{"ko": "인시던트", "en": "Incidents", "ja": "インシデント", "zh": "安全事件"}},
	{"alerts", []string{"read", "update"}, "security", models.LocalizedText{"ko": "경보", "en": "Alerts", "ja": "アラート", "zh": "告警"}},
	{"dashboards", []string{"read", "create"}, "security", models.LocalizedText{"ko": "대시보드", "en": "Dashboards", "ja": "ダッシュボード", "zh": "仪表盘"}},
	{"reports", []string{"read", "create", "export"}, "security", models.LocalizedText{"ko": "보고서", "en": "Reports", "ja": "レポート", "zh": "报表"}},
	{"audit_logs", []string{"read"}, "system", models.LocalizedText{"ko": "감사 로그", "en": "Audit logs", "ja": "監査ログ", "zh": "审计日志"}},
	{"system_settings", []string{"read", "update"}, "system", models.LocalizedText{"ko": "시스템 설정", "en": "System settings", "ja": "システム設定", "zh": "系统设置"}},
}

// 内置角色及其默认授权规则
var systemRoles = []struct {
	role  models.Role
	grant func(resource, action string) bool
}{
	{models.Role{Code: models.RoleSuperAdmin, Name: "Super Admin", Level: 100, IsSystem: true},
		func(string, string) bool { return true }},
	{models.Role{Code: models.RoleAdmin, Name: "Admin", Level: 80, IsSystem: true},
		func(resource, action string) bool {
			return resource != "permissions" || action == "read"
		}},
	{models.Role{Code: models.RoleManager, Name: "Manager", Level: 60, IsSystem: true},
		func(resource, action string) bool {
			return action == "read" || resource == "departments" || resource == "incidents" || resource == "alerts"
		}},
	{models.Role{Code: models.RoleEditor, Name: "Editor", Level: 40, IsSystem: true},
		func(resource, action string) bool {
			return action == "read" || resource == "menus" || resource == "dashboards" || resource == "reports"
		}},
	{models.Role{Code: models.RoleViewer, Name: "Viewer", Level: 10, IsSystem: true},
		func(resource, action string) bool {
			return action == "read" && resource != "audit_logs" && resource != "permissions"
		}},
}

// Seed 写入内置权限与角色（仅当表为空时）
func Seed(db *gorm.DB) error {
	var permCount, roleCount int64
	if err := db.Model(&models.Permission{}).Count(&permCount).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Role{}).Count(&roleCount).Error; err != nil {
		return err
	}
	if permCount > 0 || roleCount > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var perms []models.Permission
		for _, seed := range systemPermissions {
			for _, action := range seed.actions {
				perms = append(perms, models.Permission{
					Code:     seed.resource + "." + action,
					Resource: seed.resource,
					Action:   action,
					Name:     seed.name,
					Scope:    models.ScopeCompany,
					Category: seed.category,
					IsSystem: true,
					IsActive: true,
				})
			}
		}
		if err := tx.Create(&perms).Error; err != nil {
			return err
		}

		now := time.Now()
		for _, sr := range systemRoles {
			role := sr.role
			if err := tx.Create(&role).Error; err != nil {
				return err
			}
			var grants []models.RolePermission
			for _, p := range perms {
				if sr.grant(p.Resource, p.Action) {
					grants = append(grants, models.RolePermission{
						RoleID:       role.ID,
						PermissionID: p.ID,
						IsGranted:    true,
						GrantedAt:    now,
					})
				}
			}
			if len(grants) > 0 {
				if err := tx.Create(&grants).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
