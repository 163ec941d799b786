// Package dbtest 提供测试用的内存数据库
package dbtest

import (
	"testing"

	"siemadmin/database"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB 创建已迁移的内存 SQLite 库，每次调用互相隔离
// 内存库只存在于单个连接上，因此连接池固定为 1
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// NewSeededDB 在 NewTestDB 基础上写入内置权限与角色
func NewSeededDB(t testing.TB) *gorm.DB {
	t.Helper()
	db := NewTestDB(t)
	if err := database.Seed(db); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	return db
}
