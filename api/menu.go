package api

import (
	"siemadmin/service"

	"github.com/gin-gonic/gin"
)

// MenuHandler 菜单项、分类与供应商管理
type MenuHandler struct {
	menus  *service.MenuService
	grants *service.RolePermissionService
}

func NewMenuHandler(menus *service.MenuService, grants *service.RolePermissionService) *MenuHandler {
	return &MenuHandler{menus: menus, grants: grants}
}

// ReorderRequest 批量排序请求
type ReorderRequest struct {
	Items []service.ReorderEntry `json:"items" binding:"required,min=1,dive"`
}

// ListItems 菜单编辑视图
// @Summary 菜单项树
// @Description 返回全部菜单项（含停用），kind 可过滤 item/vendor/vendor_page
// @Tags 菜单
// @Produce json
// @Security BearerAuth
// @Param kind query string false "菜单类型"
// @Success 200 {object} Response{data=[]service.MenuNode}
// @Router /api/v1/menu-items [get]
func (h *MenuHandler) ListItems(c *gin.Context) {
	var kinds []string
	if kind := c.Query("kind"); kind != "" {
		kinds = append(kinds, kind)
	}
	tree, err := h.menus.ListItems(c.Request.Context(), kinds...)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, tree)
}

// CreateItem 新建菜单项
// @Summary 新建菜单项
// @Tags 菜单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.MenuItemInput true "菜单项"
// @Success 201 {object} Response{data=models.MenuItem}
// @Failure 400 {object} Response "参数错误或缺少语言"
// @Router /api/v1/menu-items [post]
func (h *MenuHandler) CreateItem(c *gin.Context) {
	var in service.MenuItemInput
	if !bindJSON(c, &in) {
		return
	}
	item, err := h.menus.CreateItem(c.Request.Context(), in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, item)
}

// UpdateItem 更新菜单项
// @Summary 更新菜单项
// @Tags 菜单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "菜单项ID"
// @Param request body service.MenuItemUpdate true "变更字段"
// @Success 200 {object} Response{data=models.MenuItem}
// @Router /api/v1/menu-items/{id} [put]
func (h *MenuHandler) UpdateItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.MenuItemUpdate
	if !bindJSON(c, &in) {
		return
	}
	item, err := h.menus.UpdateItem(c.Request.Context(), id, in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, item)
}

// DeleteItem 删除菜单项，存在子项时返回 409
// @Summary 删除菜单项
// @Tags 菜单
// @Produce json
// @Security BearerAuth
// @Param id path int true "菜单项ID"
// @Success 200 {object} Response
// @Failure 409 {object} Response "存在子菜单"
// @Router /api/v1/menu-items/{id} [delete]
func (h *MenuHandler) DeleteItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.menus.DeleteItem(c.Request.Context(), id, actor(c)); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"id": id})
}

// Reorder 批量调整排序与父级
// @Summary 批量排序
// @Tags 菜单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ReorderRequest true "排序项"
// @Success 200 {object} Response
// @Router /api/v1/menu-items/reorder [put]
func (h *MenuHandler) Reorder(c *gin.Context) {
	var req ReorderRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.menus.Reorder(c.Request.Context(), req.Items, actor(c)); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"updated": len(req.Items)})
}

// ListCategories 分类列表，include_inactive=true 时包含停用分类
func (h *MenuHandler) ListCategories(c *gin.Context) {
	categories, err := h.menus.ListCategories(c.Request.Context(), c.Query("include_inactive") != "true")
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, categories)
}

// CreateCategory 新建分类
func (h *MenuHandler) CreateCategory(c *gin.Context) {
	var in service.CategoryInput
	if !bindJSON(c, &in) {
		return
	}
	category, err := h.menus.CreateCategory(c.Request.Context(), in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, category)
}

// UpdateCategory 更新分类
func (h *MenuHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.CategoryUpdate
	if !bindJSON(c, &in) {
		return
	}
	category, err := h.menus.UpdateCategory(c.Request.Context(), id, in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, category)
}

// ListVendors 供应商及其页面
// @Summary 供应商列表
// @Tags 供应商
// @Produce json
// @Security BearerAuth
// @Param include_inactive query bool false "包含停用"
// @Success 200 {object} Response{data=[]service.VendorView}
// @Router /api/v1/vendors [get]
func (h *MenuHandler) ListVendors(c *gin.Context) {
	vendors, err := h.menus.ListVendors(c.Request.Context(), c.Query("include_inactive") != "true")
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, vendors)
}

// CreateVendor 新建供应商
func (h *MenuHandler) CreateVendor(c *gin.Context) {
	var in service.VendorInput
	if !bindJSON(c, &in) {
		return
	}
	vendor, err := h.menus.CreateVendor(c.Request.Context(), in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, vendor)
}

// UpdateVendor 更新供应商
func (h *MenuHandler) UpdateVendor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.VendorInput
	if !bindJSON(c, &in) {
		return
	}
	vendor, err := h.menus.UpdateVendor(c.Request.Context(), id, in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, vendor)
}

// DeactivateVendor 停用供应商，不做物理删除
func (h *MenuHandler) DeactivateVendor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.menus.DeactivateVendor(c.Request.Context(), id, actor(c)); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"id": id, "is_active": false})
}

// MenuPermissions 每个角色可见的菜单项
// @Summary 角色菜单可见性
// @Tags 菜单
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]service.RoleMenuVisibility}
// @Router /api/v1/menu/permissions [get]
func (h *MenuHandler) MenuPermissions(c *gin.Context) {
	list, err := h.grants.ListMenuVisibility(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, list)
}

// SetMenuPermission 切换角色对某菜单的可见性
// @Summary 设置角色菜单可见性
// @Tags 菜单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.MenuVisibilityInput true "可见性"
// @Success 200 {object} Response{data=models.RolePermission}
// @Router /api/v1/menu/permissions [post]
func (h *MenuHandler) SetMenuPermission(c *gin.Context) {
	var in service.MenuVisibilityInput
	if !bindJSON(c, &in) {
		return
	}
	row, err := h.grants.SetMenuVisibility(c.Request.Context(), in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, row)
}
