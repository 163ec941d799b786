package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"siemadmin/models"

	"gorm.io/gorm"
)

// Actor 发起写操作的身份，写入审计
type Actor struct {
	UserID   uint
	RoleCode string
	ClientIP string
}

// storeError 把驱动层错误归类：连接/超时为 StoreUnavailable，其余为内部错误
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return models.NewStoreUnavailableError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return models.NewStoreUnavailableError(err)
	}
	return models.NewInternalError("数据库操作失败", err)
}

// notFoundOr 记录不存在时返回 NotFound，其它错误按 storeError 归类
func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(format, args...)
	}
	return storeError(err)
}

// isDuplicateKey 唯一约束冲突，兼容未开启 TranslateError 的驱动
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}

func uintPtr(v uint) *uint {
	return &v
}
