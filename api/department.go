package api

import (
	"siemadmin/service"

	"github.com/gin-gonic/gin"
)

// DepartmentHandler 部门层级管理
type DepartmentHandler struct {
	depts *service.DepartmentService
}

func NewDepartmentHandler(depts *service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{depts: depts}
}

// List 部门列表
// @Summary 部门列表
// @Tags 部门
// @Produce json
// @Security BearerAuth
// @Param company_id query int false "公司ID"
// @Param parent_id query int false "上级部门ID，0 表示顶级"
// @Param active_only query bool false "仅启用"
// @Success 200 {object} Response{data=[]models.Department}
// @Router /api/v1/departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	companyID, ok := queryUint(c, "company_id")
	if !ok {
		return
	}
	filter := service.DepartmentFilter{CompanyID: companyID, ActiveOnly: c.Query("active_only") == "true"}
	if c.Query("parent_id") != "" {
		parentID, ok := queryUint(c, "parent_id")
		if !ok {
			return
		}
		filter.ParentID = &parentID
	}
	list, err := h.depts.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, list)
}

// Tree 公司部门树
func (h *DepartmentHandler) Tree(c *gin.Context) {
	companyID, ok := queryUint(c, "company_id")
	if !ok {
		return
	}
	if companyID == 0 {
		BadRequest(c, "company_id 不能为空")
		return
	}
	tree, err := h.depts.Tree(c.Request.Context(), companyID, c.Query("active_only") == "true")
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, tree)
}

// Get 部门详情，含上级名称与用户数
// @Summary 部门详情
// @Tags 部门
// @Produce json
// @Security BearerAuth
// @Param id path int true "部门ID"
// @Success 200 {object} Response{data=service.DepartmentView}
// @Failure 404 {object} Response "部门不存在"
// @Router /api/v1/departments/{id} [get]
func (h *DepartmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	view, err := h.depts.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, view)
}

// Create 新建部门
// @Summary 新建部门
// @Tags 部门
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.DepartmentInput true "部门"
// @Success 201 {object} Response{data=models.Department}
// @Router /api/v1/departments [post]
func (h *DepartmentHandler) Create(c *gin.Context) {
	var in service.DepartmentInput
	if !bindJSON(c, &in) {
		return
	}
	dept, err := h.depts.Create(c.Request.Context(), in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, dept)
}

// Update 更新部门，变更上级时级联更新全部下级的路径
// @Summary 更新部门
// @Tags 部门
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "部门ID"
// @Param request body service.DepartmentUpdate true "变更字段"
// @Success 200 {object} Response{data=models.Department}
// @Router /api/v1/departments/{id} [put]
func (h *DepartmentHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.DepartmentUpdate
	if !bindJSON(c, &in) {
		return
	}
	dept, err := h.depts.Update(c.Request.Context(), id, in, actor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, dept)
}

// Delete 删除部门，存在下级部门或用户时返回 409
// @Summary 删除部门
// @Tags 部门
// @Produce json
// @Security BearerAuth
// @Param id path int true "部门ID"
// @Success 200 {object} Response
// @Failure 409 {object} Response "存在下级部门或用户"
// @Router /api/v1/departments/{id} [delete]
func (h *DepartmentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.depts.Delete(c.Request.Context(), id, actor(c)); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"id": id})
}
