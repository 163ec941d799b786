package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"siemadmin/service"

	"github.com/gin-gonic/gin"
)

// AuditHandler 变更审计与权限审计查询
type AuditHandler struct {
	audit *service.AuditRecorder
}

func NewAuditHandler(audit *service.AuditRecorder) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func changeFilter(c *gin.Context) (service.ChangeFilter, bool) {
	recordID, ok := queryUint(c, "record_id")
	if !ok {
		return service.ChangeFilter{}, false
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	table := c.DefaultQuery("table", "menu_items")
	if table == "all" {
		table = ""
	}
	return service.ChangeFilter{Table: table, RecordID: recordID, Limit: limit}, true
}

// ChangeLogs 最近的变更审计
// @Summary 菜单变更审计
// @Description 默认返回 menu_items 最近 100 条，table=all 返回全部表
// @Tags 审计
// @Produce json
// @Security BearerAuth
// @Param table query string false "表名"
// @Param record_id query int false "记录ID"
// @Param limit query int false "条数" default(100)
// @Success 200 {object} Response{data=[]service.AuditLogView}
// @Router /api/v1/menu/audit-logs [get]
func (h *AuditHandler) ChangeLogs(c *gin.Context) {
	filter, ok := changeFilter(c)
	if !ok {
		return
	}
	logs, err := h.audit.ListChanges(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, logs)
}

// ExportChangeLogs 导出变更审计 Excel
// @Summary 导出变更审计
// @Tags 审计
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file "Excel 文件"
// @Router /api/v1/menu/audit-logs/export [get]
func (h *AuditHandler) ExportChangeLogs(c *gin.Context) {
	filter, ok := changeFilter(c)
	if !ok {
		return
	}
	f, err := h.audit.ExportChanges(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("变更审计_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", filename))
	if err := f.Write(c.Writer); err != nil {
		logRequestError(c, err)
		Error(c, http.StatusInternalServerError, "生成 Excel 失败")
	}
}

// PermissionAudit 权限审计记录
// @Summary 权限审计
// @Tags 审计
// @Produce json
// @Security BearerAuth
// @Param permission_id query int false "权限ID"
// @Param role_id query int false "角色ID"
// @Param user_id query int false "用户ID"
// @Param limit query int false "条数" default(100)
// @Success 200 {object} Response{data=[]models.PermissionAudit}
// @Router /api/v1/permissions/audit [get]
func (h *AuditHandler) PermissionAudit(c *gin.Context) {
	var filter service.PermissionAuditFilter
	var ok bool
	if filter.PermissionID, ok = queryUint(c, "permission_id"); !ok {
		return
	}
	if filter.RoleID, ok = queryUint(c, "role_id"); !ok {
		return
	}
	if filter.UserID, ok = queryUint(c, "user_id"); !ok {
		return
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))

	rows, err := h.audit.ListPermissionAudit(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, rows)
}
