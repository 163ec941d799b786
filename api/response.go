package api

import (
	"errors"
	"net/http"
	"strconv"

	"siemadmin/config"
	"siemadmin/logger"
	"siemadmin/middleware"
	"siemadmin/models"
	"siemadmin/service"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构，成功时带 data，失败时带 error
type Response struct {
	Success          bool        `json:"success"`
	Data             interface{} `json:"data,omitempty"`
	Error            string      `json:"error,omitempty"`
	MissingLanguages []string    `json:"missing_languages,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// Created 201 成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Success: false, Error: message})
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// RespondError 按错误分类返回；内部与存储错误只返回通用提示，详情写日志
func RespondError(c *gin.Context, err error) {
	status := models.HTTPStatus(err)
	resp := Response{Success: false}

	var appErr *models.AppError
	switch kind := models.KindOf(err); {
	case kind == models.KindStoreUnavailable:
		logRequestError(c, err)
		resp.Error = "存储服务暂不可用，请稍后重试"
	case kind == models.KindInternal:
		logRequestError(c, err)
		resp.Error = config.SafeErrorMessage(err, "服务器内部错误")
	case errors.As(err, &appErr):
		resp.Error = appErr.Message
		resp.MissingLanguages = appErr.Missing
	default:
		resp.Error = err.Error()
	}
	c.JSON(status, resp)
}

func logRequestError(c *gin.Context, err error) {
	logger.LogError(err, middleware.GetRequestID(c), middleware.GetCurrentUserID(c), c.Request.URL.Path, c.Request.Method)
}

// bindJSON 绑定并校验请求体，失败时直接返回 400
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		BadRequest(c, ValidationMessage(err))
		return false
	}
	return true
}

// parseID 解析路径参数中的 ID
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "无效的ID")
		return 0, false
	}
	return uint(id), true
}

// queryUint 可选的数字查询参数，缺省为 0
func queryUint(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		BadRequest(c, "无效的参数: "+name)
		return 0, false
	}
	return uint(v), true
}

// actor 当前请求的操作人
func actor(c *gin.Context) service.Actor {
	return service.Actor{
		UserID:   middleware.GetCurrentUserID(c),
		RoleCode: middleware.GetCurrentRole(c),
		ClientIP: c.ClientIP(),
	}
}

// language 请求语言：lang 参数优先，其次 Accept-Language
func language(c *gin.Context) string {
	if lang := c.Query("lang"); lang != "" {
		return lang
	}
	return c.GetHeader("Accept-Language")
}
