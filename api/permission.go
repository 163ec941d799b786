package api

import (
	"siemadmin/service"

	"github.com/gin-gonic/gin"
)

// PermissionHandler 权限目录管理
type PermissionHandler struct {
	perms *service.PermissionService
}

func NewPermissionHandler(perms *service.PermissionService) *PermissionHandler {
	return &PermissionHandler{perms: perms}
}

// List 权限列表，附带授权角色数与用户覆盖数
// @Summary 权限列表
// @Tags 权限
// @Produce json
// @Security BearerAuth
// @Param resource query string false "资源"
// @Param category query string false "分类"
// @Param active_only query bool false "仅启用"
// @Success 200 {object} Response{data=[]service.PermissionStats}
// @Router /api/v1/permissions [get]
func (h *PermissionHandler) List(c *gin.Context) {
	filter := service.PermissionFilter{
		Resource:   c.Query("resource"),
		Category:   c.Query("category"),
		ActiveOnly: c.Query("active_only") == "true",
	}
	list, err := h.perms.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, list)
}

// Get 权限详情
// @Summary 权限详情
// @Tags 权限
// @Produce json
// @Security BearerAuth
// @Param id path int true "权限ID"
// @Success 200 {object} Response{data=service.PermissionDetail}
// @Failure 404 {object} Response "权限不存在"
// @Router /api/v1/permissions/{id} [get]
func (h *PermissionHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.perms.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, detail)
}

// Create 新建权限
// @Summary 新建权限
// @Tags 权限
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.PermissionInput true "权限"
// @Success 201 {object} Response{data=models.Permission}
// @Failure 400 {object} Response "参数错误或编码重复"
// @Router /api/v1/permissions [post]
func (h *PermissionHandler) Create(c *gin.Context) {
	var in service.PermissionInput
	if !bindJSON(c, &in) {
		return
	}
	perm, err := h.perms.Create(c.Request.Context(), in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, perm)
}

// Update 更新权限，系统权限返回 403
// @Summary 更新权限
// @Tags 权限
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "权限ID"
// @Param request body service.PermissionUpdate true "变更字段"
// @Success 200 {object} Response{data=models.Permission}
// @Failure 403 {object} Response "系统权限不可修改"
// @Router /api/v1/permissions/{id} [put]
func (h *PermissionHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.PermissionUpdate
	if !bindJSON(c, &in) {
		return
	}
	perm, err := h.perms.Update(c.Request.Context(), id, in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, perm)
}

// Delete 删除权限及其授权
// @Summary 删除权限
// @Tags 权限
// @Produce json
// @Security BearerAuth
// @Param id path int true "权限ID"
// @Success 200 {object} Response
// @Failure 403 {object} Response "系统权限不可删除"
// @Failure 409 {object} Response "仍被菜单引用"
// @Router /api/v1/permissions/{id} [delete]
func (h *PermissionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.perms.Delete(c.Request.Context(), id, actor(c)); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"id": id})
}
