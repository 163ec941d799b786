package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 日志类型字段取值
const (
	AccessLog   = "access"
	BusinessLog = "business"
	ErrorLog    = "error"
	CacheLog    = "cache"
)

// LogAccessRequest 记录HTTP访问日志
func LogAccessRequest(c *gin.Context, startTime time.Time, requestID string, userID uint) {
	base().WithFields(logrus.Fields{
		"type":          AccessLog,
		"method":        c.Request.Method,
		"path":          c.Request.URL.Path,
		"query":         c.Request.URL.RawQuery,
		"status_code":   c.Writer.Status(),
		"response_time": time.Since(startTime).Milliseconds(),
		"client_ip":     c.ClientIP(),
		"user_id":       userID,
		"request_id":    requestID,
		"response_size": c.Writer.Size(),
	}).Info("HTTP request processed")
}

// LogBusinessOperation 记录业务操作日志，如菜单变更、授权变更、部门调整
func LogBusinessOperation(operation string, userID uint, clientIP, result, message string, extraFields map[string]interface{}) {
	fields := logrus.Fields{
		"type":      BusinessLog,
		"operation": operation,
		"user_id":   userID,
		"client_ip": clientIP,
		"result":    result,
		"message":   message,
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	if result == "success" {
		base().WithFields(fields).Info(fmt.Sprintf("Business operation: %s", operation))
	} else {
		base().WithFields(fields).Warn(fmt.Sprintf("Business operation failed: %s", operation))
	}
}

// LogError 记录请求处理中的内部错误，返回给客户端的只有通用提示
func LogError(err error, requestID string, userID uint, path, method string) {
	if err == nil {
		return
	}
	base().WithFields(logrus.Fields{
		"type":       ErrorLog,
		"request_id": requestID,
		"user_id":    userID,
		"path":       path,
		"method":     method,
		"error":      err.Error(),
	}).Error("request failed")
}

// LogCacheDegraded 缓存不可用时记录，调用方继续回源
func LogCacheDegraded(op, key string, err error) {
	base().WithFields(logrus.Fields{
		"type":  CacheLog,
		"op":    op,
		"key":   key,
		"error": err.Error(),
	}).Warn("cache unavailable, falling back to store")
}
