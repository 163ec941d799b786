package service

import (
	"context"
	"errors"
	"strings"

	"siemadmin/logger"
	"siemadmin/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DepartmentService 部门层级维护
// 层级写操作在单个事务内完成，移动部门时连同全部下级的 path/level 一起改写
type DepartmentService struct {
	db    *gorm.DB
	audit *AuditRecorder
}

// NewDepartmentService 创建部门服务
func NewDepartmentService(db *gorm.DB, audit *AuditRecorder) *DepartmentService {
	return &DepartmentService{db: db, audit: audit}
}

// DepartmentInput 新建部门
type DepartmentInput struct {
	CompanyID   uint                 `json:"company_id" binding:"required"`
	ParentID    *uint                `json:"parent_id"`
	Code        string               `json:"code" binding:"required,max=50"`
	Name        models.LocalizedText `json:"name" binding:"required"`
	Description models.LocalizedText `json:"description"`
	ManagerID   *uint                `json:"manager_id"`
	IsActive    *bool                `json:"is_active"`
}

// DepartmentUpdate 更新部门，nil 字段保持不变；ParentID 传 0 表示移到顶级
type DepartmentUpdate struct {
	ParentID    *uint                `json:"parent_id"`
	Code        *string              `json:"code" binding:"omitempty,max=50"`
	Name        models.LocalizedText `json:"name"`
	Description models.LocalizedText `json:"description"`
	ManagerID   *uint                `json:"manager_id"`
	IsActive    *bool                `json:"is_active"`
}

// DepartmentFilter 列表过滤条件
type DepartmentFilter struct {
	CompanyID  uint
	ParentID   *uint
	ActiveOnly bool
}

// DepartmentView 部门详情
type DepartmentView struct {
	models.Department
	ParentName models.LocalizedText `json:"parent_name,omitempty"`
	UserCount  int64                `json:"user_count"`
}

// DepartmentNode 部门树节点
type DepartmentNode struct {
	models.Department
	Children []*DepartmentNode `json:"children"`
}

// List 按公司与物化路径排序
func (s *DepartmentService) List(ctx context.Context, filter DepartmentFilter) ([]models.Department, error) {
	query := s.db.WithContext(ctx).Model(&models.Department{})
	if filter.CompanyID != 0 {
		query = query.Where("company_id = ?", filter.CompanyID)
	}
	if filter.ParentID != nil {
		if *filter.ParentID == 0 {
			query = query.Where("parent_id IS NULL")
		} else {
			query = query.Where("parent_id = ?", *filter.ParentID)
		}
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	departments := []models.Department{}
	if err := query.Order("company_id").Order("level").Order("id").Find(&departments).Error; err != nil {
		return nil, storeError(err)
	}
	return departments, nil
}

// Get 部门详情，含上级名称与直属人数
func (s *DepartmentService) Get(ctx context.Context, id uint) (*DepartmentView, error) {
	db := s.db.WithContext(ctx)

	var dept models.Department
	if err := db.First(&dept, id).Error; err != nil {
		return nil, notFoundOr(err, "部门不存在")
	}
	view := &DepartmentView{Department: dept}

	if dept.ParentID != nil {
		var parent models.Department
		err := db.Select("id", "name").First(&parent, *dept.ParentID).Error
		if err == nil {
			view.ParentName = parent.Name
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storeError(err)
		}
	}
	if err := db.Model(&models.User{}).Where("department_id = ?", id).Count(&view.UserCount).Error; err != nil {
		return nil, storeError(err)
	}
	return view, nil
}

// Tree 公司的部门树，上级缺失的部门作为根
func (s *DepartmentService) Tree(ctx context.Context, companyID uint, activeOnly bool) ([]*DepartmentNode, error) {
	departments, err := s.List(ctx, DepartmentFilter{CompanyID: companyID, ActiveOnly: activeOnly})
	if err != nil {
		return nil, err
	}
	return AssembleDepartmentTree(departments), nil
}

// AssembleDepartmentTree 按 parent_id 组装，输入需按 level 升序
func AssembleDepartmentTree(departments []models.Department) []*DepartmentNode {
	nodes := make(map[uint]*DepartmentNode, len(departments))
	for _, d := range departments {
		nodes[d.ID] = &DepartmentNode{Department: d, Children: []*DepartmentNode{}}
	}

	roots := make([]*DepartmentNode, 0)
	for _, d := range departments {
		node := nodes[d.ID]
		if d.ParentID != nil {
			if parent, ok := nodes[*d.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// lockDepartment 行锁读取，sqlite 方言忽略 FOR UPDATE
func lockDepartment(tx *gorm.DB, id uint, missing string) (*models.Department, error) {
	var dept models.Department
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&dept, id).Error; err != nil {
		return nil, notFoundOr(err, "%s", missing)
	}
	return &dept, nil
}

// Create 新建部门，先插入拿到 ID，再在同一事务内写入 path/level
func (s *DepartmentService) Create(ctx context.Context, in DepartmentInput, actor Actor) (*models.Department, error) {
	if err := ValidateLocalizedText("name", in.Name); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, models.NewValidationError("部门编码不能为空")
	}

	dept := models.Department{
		CompanyID:   in.CompanyID,
		ParentID:    normalizeRef(in.ParentID),
		Code:        code,
		Name:        in.Name,
		Description: in.Description,
		ManagerID:   in.ManagerID,
		IsActive:    in.IsActive == nil || *in.IsActive,
		CreatedBy:   actor.UserID,
		UpdatedBy:   actor.UserID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ancestors []uint
		if dept.ParentID != nil {
			parent, err := lockDepartment(tx, *dept.ParentID, "上级部门不存在")
			if err != nil {
				return err
			}
			if parent.CompanyID != dept.CompanyID {
				return models.NewValidationError("上级部门不属于同一公司")
			}
			ancestors = parent.Lineage()
		}

		if err := tx.Create(&dept).Error; err != nil {
			return departmentWriteError(err, code)
		}
		dept.SetAncestors(ancestors)
		if err := tx.Save(&dept).Error; err != nil {
			return storeError(err)
		}
		return s.audit.RecordChange(tx, "departments", dept.ID, models.ChangeInsert, nil, dept, actor)
	})
	if err != nil {
		return nil, err
	}

	logger.LogBusinessOperation("department.create", actor.UserID, actor.ClientIP, "success", "",
		map[string]interface{}{"department_id": dept.ID, "path": dept.Path})
	return &dept, nil
}

// Update 更新部门；上级变化时重算自身 path/level，并改写全部下级
func (s *DepartmentService) Update(ctx context.Context, id uint, in DepartmentUpdate, actor Actor) (*models.Department, error) {
	var dept *models.Department
	moved := 0

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if dept, err = lockDepartment(tx, id, "部门不存在"); err != nil {
			return err
		}
		before := *dept
		oldLineage := dept.Lineage()

		if in.Code != nil {
			code := strings.TrimSpace(*in.Code)
			if code == "" {
				return models.NewValidationError("部门编码不能为空")
			}
			dept.Code = code
		}
		if in.Name != nil {
			if err := ValidateLocalizedText("name", in.Name); err != nil {
				return err
			}
			dept.Name = in.Name
		}
		if in.Description != nil {
			dept.Description = in.Description
		}
		if in.ManagerID != nil {
			dept.ManagerID = normalizeRef(in.ManagerID)
		}
		if in.IsActive != nil {
			dept.IsActive = *in.IsActive
		}
		dept.UpdatedBy = actor.UserID

		reparent := in.ParentID != nil && !sameRef(normalizeRef(in.ParentID), dept.ParentID)
		if reparent {
			ancestors, err := s.resolveNewParent(tx, dept, normalizeRef(in.ParentID))
			if err != nil {
				return err
			}
			dept.ParentID = normalizeRef(in.ParentID)
			dept.SetAncestors(ancestors)
		}

		if err := tx.Save(dept).Error; err != nil {
			return departmentWriteError(err, dept.Code)
		}
		if err := s.audit.RecordChange(tx, "departments", dept.ID, models.ChangeUpdate, before, *dept, actor); err != nil {
			return err
		}

		if reparent {
			moved, err = s.rewriteDescendants(tx, models.BuildDepartmentPath(oldLineage), len(oldLineage), dept.Lineage(), actor)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.LogBusinessOperation("department.update", actor.UserID, actor.ClientIP, "success", "",
		map[string]interface{}{"department_id": dept.ID, "path": dept.Path, "descendants_moved": moved})
	return dept, nil
}

// resolveNewParent 校验新上级并返回新的祖先链
func (s *DepartmentService) resolveNewParent(tx *gorm.DB, dept *models.Department, parentID *uint) ([]uint, error) {
	if parentID == nil {
		return nil, nil
	}
	if *parentID == dept.ID {
		return nil, models.NewValidationError("部门不能作为自己的上级")
	}
	parent, err := lockDepartment(tx, *parentID, "上级部门不存在")
	if err != nil {
		return nil, err
	}
	if parent.CompanyID != dept.CompanyID {
		return nil, models.NewValidationError("上级部门不属于同一公司")
	}
	for _, ancestor := range parent.AncestorIDs {
		if ancestor == dept.ID {
			return nil, models.NewValidationError("不能移动到自己的下级部门")
		}
	}
	return parent.Lineage(), nil
}

// rewriteDescendants 把旧路径下的所有下级换成新的祖先前缀，返回改写行数
// 下级按路径前缀 oldPath + "/" 匹配，/1 不会误匹配 /12
func (s *DepartmentService) rewriteDescendants(tx *gorm.DB, oldPath string, oldDepth int, newLineage []uint, actor Actor) (int, error) {
	var descendants []models.Department
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("path LIKE ?", oldPath+"/%").
		Order("level").
		Order("id").
		Find(&descendants).Error
	if err != nil {
		return 0, storeError(err)
	}

	for i := range descendants {
		d := &descendants[i]
		if len(d.AncestorIDs) < oldDepth {
			return 0, models.NewInternalError("部门路径数据不一致", nil)
		}
		before := *d
		ancestors := make([]uint, 0, len(newLineage)+len(d.AncestorIDs)-oldDepth)
		ancestors = append(ancestors, newLineage...)
		ancestors = append(ancestors, d.AncestorIDs[oldDepth:]...)
		d.SetAncestors(ancestors)
		d.UpdatedBy = actor.UserID

		if err := tx.Save(d).Error; err != nil {
			return 0, storeError(err)
		}
		if err := s.audit.RecordChange(tx, "departments", d.ID, models.ChangeUpdate, before, *d, actor); err != nil {
			return 0, err
		}
	}
	return len(descendants), nil
}

// Delete 删除部门；存在下级部门或仍有用户归属时拒绝
// 检查与删除在同一事务内，外键 RESTRICT 兜底并发插入
func (s *DepartmentService) Delete(ctx context.Context, id uint, actor Actor) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dept, err := lockDepartment(tx, id, "部门不存在")
		if err != nil {
			return err
		}

		var children int64
		if err := tx.Model(&models.Department{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
			return storeError(err)
		}
		if children > 0 {
			return models.NewConflictError("部门下还有 %d 个下级部门，无法删除", children)
		}

		var users int64
		if err := tx.Unscoped().Model(&models.User{}).Where("department_id = ?", id).Count(&users).Error; err != nil {
			return storeError(err)
		}
		if users > 0 {
			return models.NewConflictError("部门下还有 %d 个用户，无法删除", users)
		}

		if err := s.audit.RecordChange(tx, "departments", dept.ID, models.ChangeDelete, *dept, nil, actor); err != nil {
			return err
		}
		if err := tx.Delete(dept).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return models.NewConflictError("部门仍被引用，无法删除")
			}
			return storeError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.LogBusinessOperation("department.delete", actor.UserID, actor.ClientIP, "success", "",
		map[string]interface{}{"department_id": id})
	return nil
}

func departmentWriteError(err error, code string) error {
	if isDuplicateKey(err) {
		return models.NewValidationError("部门编码在该公司内已存在: %s", code)
	}
	return storeError(err)
}
