package database

import (
	"fmt"
	"strings"
	"time"

	"siemadmin/config"
	"siemadmin/logger"
	"siemadmin/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 按配置建立连接并设置连接池，不做迁移
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(cfg.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if err := ConfigurePool(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

// Dialector 根据 driver 生成 gorm 方言，连接超时写入 DSN
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	switch cfg.Driver {
	case "", "mysql":
		charset := cfg.Charset
		if charset == "" {
			charset = "utf8mb4"
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local&timeout=%s",
			cfg.Username,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			charset,
			timeout,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		seconds := int(timeout / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d TimeZone=UTC",
			cfg.Host,
			cfg.Port,
			cfg.Username,
			cfg.Password,
			cfg.DBName,
			sslmode,
			seconds,
		)
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}
}

// ConfigurePool 设置连接池上限与空闲回收
func ConfigurePool(db *gorm.DB, cfg *config.DatabaseConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	return nil
}

// Migrate 自动迁移全部表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Company{},
		&models.Role{},
		&models.Department{},
		&models.User{},
		&models.MenuCategory{},
		&models.MenuItem{},
		&models.Permission{},
		&models.RolePermission{},
		&models.UserPermission{},
		&models.PermissionAudit{},
		&models.AuditLog{},
	)
}

// Init 连接、迁移并写入初始数据
func Init(cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = Close(db)
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	if err := Seed(db); err != nil {
		_ = Close(db)
		return nil, fmt.Errorf("初始化数据失败: %w", err)
	}
	logger.Infof("数据库初始化成功 (driver=%s)", cfg.Database.Driver)
	return db, nil
}

// Close 关闭连接池，进程退出前调用
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewGormLogger SQL 日志写入 logrus，info 级别时记录全部语句
func NewGormLogger(level string) gormlogger.Interface {
	gormLevel := parseLogLevel(level)
	writeLevel := logrus.WarnLevel
	if gormLevel == gormlogger.Info {
		writeLevel = logrus.InfoLevel
	}
	return gormlogger.New(logger.NewGormWriter(writeLevel), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLevel,
		IgnoreRecordNotFoundError: true,
	})
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
