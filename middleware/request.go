package middleware

import (
	"context"
	"time"

	"siemadmin/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 请求 ID 的响应头与上下文键
const (
	RequestIDHeader  = "X-Request-ID"
	ContextRequestID = "requestID"
)

// RequestID 沿用客户端传入的请求 ID，否则生成新的
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID 当前请求 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextRequestID)
}

// AccessLog 请求结束后写访问日志
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.LogAccessRequest(c, start, GetRequestID(c), GetCurrentUserID(c))
	}
}

// RequestTimeout 为请求上下文设置超时，存储调用超时后按 StoreUnavailable 返回
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
