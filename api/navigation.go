package api

import (
	"strings"

	"siemadmin/middleware"
	"siemadmin/service"

	"github.com/gin-gonic/gin"
)

// NavigationHandler 侧边栏导航与页面元信息
type NavigationHandler struct {
	nav *service.NavigationService
}

func NewNavigationHandler(nav *service.NavigationService) *NavigationHandler {
	return &NavigationHandler{nav: nav}
}

// Navigation 获取导航
// @Summary 获取侧边栏导航
// @Description 按语言本地化的分类、菜单与供应商，结果会被缓存
// @Tags 导航
// @Produce json
// @Security BearerAuth
// @Param lang query string false "语言 ko/en/ja/zh"
// @Success 200 {object} Response{data=service.NavigationView}
// @Failure 503 {object} Response "存储不可用"
// @Router /api/v1/navigation [get]
func (h *NavigationHandler) Navigation(c *gin.Context) {
	raw, err := h.nav.Navigation(c.Request.Context(), language(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, raw)
}

// ByRole 按角色过滤的导航，role 缺省为当前用户角色；查看其他角色需要 roles.read
// @Summary 按角色获取导航
// @Tags 导航
// @Produce json
// @Security BearerAuth
// @Param role query string false "角色编码"
// @Param lang query string false "语言"
// @Success 200 {object} Response{data=service.NavigationView}
// @Failure 403 {object} Response "无权查看其他角色"
// @Router /api/v1/menu/by-role [get]
func (h *NavigationHandler) ByRole(c *gin.Context) {
	role := strings.TrimSpace(c.Query("role"))
	if role == "" {
		role = middleware.GetCurrentRole(c)
	}
	view, err := h.nav.NavigationForRole(c.Request.Context(), role, language(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, view)
}

// Metadata 页面标题信息
// @Summary 获取页面元信息
// @Tags 导航
// @Produce json
// @Security BearerAuth
// @Param path query string true "页面路径"
// @Param lang query string false "语言"
// @Success 200 {object} Response{data=service.PageMetadata}
// @Router /api/v1/menu/metadata [get]
func (h *NavigationHandler) Metadata(c *gin.Context) {
	meta, err := h.nav.Metadata(c.Request.Context(), c.Query("path"), language(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, meta)
}
