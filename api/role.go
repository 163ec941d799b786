package api

import (
	"siemadmin/service"

	"github.com/gin-gonic/gin"
)

// RolePermissionHandler 角色授权与用户覆盖
type RolePermissionHandler struct {
	grants *service.RolePermissionService
}

func NewRolePermissionHandler(grants *service.RolePermissionService) *RolePermissionHandler {
	return &RolePermissionHandler{grants: grants}
}

// GetRolePermissions 角色已配置的权限
// @Summary 角色权限
// @Tags 角色
// @Produce json
// @Security BearerAuth
// @Param id path int true "角色ID"
// @Success 200 {object} Response{data=[]service.RolePermissionView}
// @Router /api/v1/roles/{id}/permissions [get]
func (h *RolePermissionHandler) GetRolePermissions(c *gin.Context) {
	roleID, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.grants.GetRolePermissions(c.Request.Context(), roleID)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, list)
}

// Grant 批量授权或撤销，已有记录时更新
// @Summary 批量授权
// @Tags 角色
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "角色ID"
// @Param request body service.GrantInput true "权限ID列表"
// @Success 200 {object} Response{data=[]models.RolePermission}
// @Router /api/v1/roles/{id}/permissions [post]
func (h *RolePermissionHandler) Grant(c *gin.Context) {
	roleID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.GrantInput
	if !bindJSON(c, &in) {
		return
	}
	rows, err := h.grants.Grant(c.Request.Context(), roleID, in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, rows)
}

// Remove 批量移除授权记录
// @Summary 批量移除授权
// @Tags 角色
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "角色ID"
// @Param request body service.RemoveInput true "权限ID列表"
// @Success 200 {object} Response
// @Router /api/v1/roles/{id}/permissions [delete]
func (h *RolePermissionHandler) Remove(c *gin.Context) {
	roleID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.RemoveInput
	if !bindJSON(c, &in) {
		return
	}
	removed, err := h.grants.Remove(c.Request.Context(), roleID, in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"removed": removed})
}

// SetUserOverride 设置用户级权限覆盖
func (h *RolePermissionHandler) SetUserOverride(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.OverrideInput
	if !bindJSON(c, &in) {
		return
	}
	row, err := h.grants.SetUserOverride(c.Request.Context(), userID, in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, row)
}

// RemoveUserOverride 删除用户级权限覆盖
func (h *RolePermissionHandler) RemoveUserOverride(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	permissionID, ok := parseID(c, "permissionId")
	if !ok {
		return
	}
	if err := h.grants.RemoveUserOverride(c.Request.Context(), userID, permissionID, actor(c)); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"user_id": userID, "permission_id": permissionID})
}

// EffectivePermissions 用户最终生效的权限编码
// @Summary 用户有效权限
// @Tags 角色
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} Response{data=[]string}
// @Router /api/v1/users/{id}/permissions/effective [get]
func (h *RolePermissionHandler) EffectivePermissions(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	codes, err := h.grants.EffectiveForUser(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, codes)
}
