package api

import (
	"context"
	"net/http"
	"time"

	"siemadmin/cache"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler 存储与缓存连通性检查
type HealthHandler struct {
	db    *gorm.DB
	cache *cache.NavigationCache
}

func NewHealthHandler(db *gorm.DB, navCache *cache.NavigationCache) *HealthHandler {
	return &HealthHandler{db: db, cache: navCache}
}

// Health 数据库不可用返回 503；缓存不可用只标记 degraded
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	result := gin.H{"status": "ok", "database": "ok", "cache": "disabled"}
	status := http.StatusOK

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		logRequestError(c, err)
		result["status"] = "unavailable"
		result["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if h.cache.Enabled() {
		if err := h.cache.Ping(ctx); err != nil {
			result["cache"] = "degraded"
			if status == http.StatusOK {
				result["status"] = "degraded"
			}
		} else {
			result["cache"] = "ok"
		}
	}
	c.JSON(status, result)
}
