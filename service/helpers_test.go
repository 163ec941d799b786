package service

import (
	"sync/atomic"
	"testing"
	"time"

	"siemadmin/cache"
	"siemadmin/dbtest"
	"siemadmin/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

var testActor = Actor{UserID: 1, RoleCode: models.RoleSuperAdmin, ClientIP: "127.0.0.1"}

type testEnv struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	cache    *cache.NavigationCache
	audit    *AuditRecorder
	resolver *PermissionResolver
	menus    *MenuService
	nav      *NavigationService
	perms    *PermissionService
	grants   *RolePermissionService
	depts    *DepartmentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.NewSeededDB(t)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	navCache := cache.NewNavigationCache(cache.NewRedisStore(client), "menu:", time.Minute, cache.NewMetrics(prometheus.NewRegistry()))
	audit := NewAuditRecorder(db)
	resolver := NewPermissionResolver(db)

	return &testEnv{
		db:       db,
		mr:       mr,
		cache:    navCache,
		audit:    audit,
		resolver: resolver,
		menus:    NewMenuService(db, navCache, audit),
		nav:      NewNavigationService(db, navCache, resolver),
		perms:    NewPermissionService(db, audit),
		grants:   NewRolePermissionService(db, audit, resolver),
		depts:    NewDepartmentService(db, audit),
	}
}

// countQueries 统计之后执行的查询语句数
func countQueries(t *testing.T, db *gorm.DB) *atomic.Int64 {
	t.Helper()
	var n atomic.Int64
	err := db.Callback().Query().After("gorm:query").Register("test:count_queries", func(*gorm.DB) {
		n.Add(1)
	})
	if err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}
	return &n
}

func text(en string) models.LocalizedText {
	return models.LocalizedText{
		models.LangKo: en + " (ko)",
		models.LangEn: en,
		models.LangJa: en + " (ja)",
		models.LangZh: en + " (zh)",
	}
}

func ptr[T any](v T) *T {
	return &v
}

func mustRole(t *testing.T, db *gorm.DB, code string) models.Role {
	t.Helper()
	var role models.Role
	if err := db.Where("code = ?", code).First(&role).Error; err != nil {
		t.Fatalf("role %s: %v", code, err)
	}
	return role
}

func mustPermission(t *testing.T, db *gorm.DB, code string) models.Permission {
	t.Helper()
	var perm models.Permission
	if err := db.Where("code = ?", code).First(&perm).Error; err != nil {
		t.Fatalf("permission %s: %v", code, err)
	}
	return perm
}

func mustUser(t *testing.T, db *gorm.DB, email string, roleID uint, departmentID *uint) models.User {
	t.Helper()
	user := models.User{Email: email, Name: email, RoleID: &roleID, DepartmentID: departmentID, Status: models.UserStatusActive}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
