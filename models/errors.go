package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind 业务错误分类，决定 HTTP 状态码
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindSystemProtected
	KindNotFound
	KindConflict
	KindStoreUnavailable
)

// AppError 业务错误
// Message 面向客户端；Err 为内部原因，只写日志
type AppError struct {
	Kind    ErrorKind
	Message string
	Missing []string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError 参数校验失败
func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewMissingLanguagesError 多语言字段缺少必填语言，错误信息列出缺失语言
func NewMissingLanguagesError(field string, missing []string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: fmt.Sprintf("%s 缺少语言: %s", field, strings.Join(missing, ", ")),
		Missing: missing,
	}
}

// NewNotFoundError 资源不存在
func NewNotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewConflictError 存在依赖或约束冲突
func NewConflictError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NewForbiddenError 权限不足
func NewForbiddenError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// NewSystemProtectedError 系统内置实体不可修改
func NewSystemProtectedError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindSystemProtected, Message: fmt.Sprintf(format, args...)}
}

// NewUnauthorizedError 未登录或凭证无效
func NewUnauthorizedError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// NewStoreUnavailableError 存储连接或超时
func NewStoreUnavailableError(err error) *AppError {
	return &AppError{Kind: KindStoreUnavailable, Message: "服务暂时不可用，请稍后重试", Err: err}
}

// NewInternalError 内部错误
func NewInternalError(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

// KindOf 取错误分类，非 AppError 视为内部错误
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind 判断错误分类
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus 错误分类对应的 HTTP 状态码
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden, KindSystemProtected:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
