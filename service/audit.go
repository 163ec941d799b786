package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"siemadmin/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// 审计查询默认条数
const defaultAuditLimit = 100

// AuditRecorder 审计记录，写入必须使用调用方的事务，与业务变更同时提交或回滚
type AuditRecorder struct {
	db *gorm.DB
}

// NewAuditRecorder 创建审计记录器
func NewAuditRecorder(db *gorm.DB) *AuditRecorder {
	return &AuditRecorder{db: db}
}

// RecordChange 追加一条行级变更记录
func (r *AuditRecorder) RecordChange(tx *gorm.DB, table string, recordID uint, action string, before, after interface{}, actor Actor) error {
	oldData, err := snapshot(before)
	if err != nil {
		return err
	}
	newData, err := snapshot(after)
	if err != nil {
		return err
	}
	return tx.Create(&models.AuditLog{
		TargetTable: table,
		RecordID:    recordID,
		Action:      action,
		OldData:     oldData,
		NewData:     newData,
		ChangedBy:   actor.UserID,
		ChangedAt:   time.Now(),
		IPAddress:   actor.ClientIP,
	}).Error
}

// RecordPermission 追加一条权限审计，entry 的 OldValue/NewValue 由 before/after 生成
func (r *AuditRecorder) RecordPermission(tx *gorm.DB, entry models.PermissionAudit, before, after interface{}, actor Actor) error {
	var err error
	if entry.OldValue, err = snapshot(before); err != nil {
		return err
	}
	if entry.NewValue, err = snapshot(after); err != nil {
		return err
	}
	entry.ChangedBy = actor.UserID
	return tx.Create(&entry).Error
}

func snapshot(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("序列化审计快照失败: %w", err)
	}
	return string(data), nil
}

// ChangeFilter 变更审计查询条件
type ChangeFilter struct {
	Table    string
	RecordID uint
	Limit    int
}

// AuditLogView 变更审计展示行
type AuditLogView struct {
	models.AuditLog
	ItemName string `json:"item_name"`
}

// ListChanges 按时间倒序返回最近的变更
func (r *AuditRecorder) ListChanges(ctx context.Context, filter ChangeFilter) ([]AuditLogView, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = defaultAuditLimit
	}

	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if filter.Table != "" {
		query = query.Where("table_name = ?", filter.Table)
	}
	if filter.RecordID > 0 {
		query = query.Where("record_id = ?", filter.RecordID)
	}

	var logs []models.AuditLog
	if err := query.Order("changed_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, storeError(err)
	}

	views := make([]AuditLogView, 0, len(logs))
	for _, l := range logs {
		name := snapshotName(l.NewData)
		if name == "" {
			name = snapshotName(l.OldData)
		}
		views = append(views, AuditLogView{AuditLog: l, ItemName: name})
	}
	return views, nil
}

// snapshotName 从快照中取 name 字段，多语言名称取英文
func snapshotName(data string) string {
	if data == "" {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return ""
	}
	raw, ok := fields["name"]
	if !ok {
		return ""
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}
	var text models.LocalizedText
	if err := json.Unmarshal(raw, &text); err == nil {
		return Localize(text, models.LangEn, "")
	}
	return ""
}

// PermissionAuditFilter 权限审计查询条件
type PermissionAuditFilter struct {
	PermissionID uint
	RoleID       uint
	UserID       uint
	Limit        int
}

// ListPermissionAudit 按时间倒序返回权限审计
func (r *AuditRecorder) ListPermissionAudit(ctx context.Context, filter PermissionAuditFilter) ([]models.PermissionAudit, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = defaultAuditLimit
	}

	query := r.db.WithContext(ctx).Model(&models.PermissionAudit{})
	if filter.PermissionID > 0 {
		query = query.Where("permission_id = ?", filter.PermissionID)
	}
	if filter.RoleID > 0 {
		query = query.Where("role_id = ?", filter.RoleID)
	}
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var rows []models.PermissionAudit
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, storeError(err)
	}
	return rows, nil
}

// ExportChanges 生成变更审计 Excel，调用方负责 Close
func (r *AuditRecorder) ExportChanges(ctx context.Context, filter ChangeFilter) (*excelize.File, error) {
	logs, err := r.ListChanges(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "变更审计"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		_ = f.Close()
		return nil, err
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
		Border:    border,
	})

	widths := map[string]float64{"A": 8, "B": 16, "C": 10, "D": 10, "E": 20, "F": 10, "G": 16, "H": 20, "I": 50, "J": 50}
	for col, w := range widths {
		_ = f.SetColWidth(sheetName, col, col, w)
	}

	headers := []string{"ID", "表名", "记录ID", "动作", "名称", "操作人", "IP", "时间", "变更前", "变更后"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, l := range logs {
		row := i + 2
		values := []interface{}{
			l.ID, l.TargetTable, l.RecordID, l.Action, l.ItemName, l.ChangedBy, l.IPAddress,
			l.ChangedAt.Format("2006-01-02 15:04:05"), l.OldData, l.NewData,
		}
		for col, v := range values {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("%c%d", 'A'+col, row), v)
		}
		_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("J%d", row), dataStyle)
	}
	return f, nil
}
