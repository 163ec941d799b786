package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"siemadmin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createDepartment(t *testing.T, env *testEnv, company uint, code string, parent *uint) *models.Department {
	t.Helper()
	dept, err := env.depts.Create(context.Background(), DepartmentInput{
		CompanyID: company,
		ParentID:  parent,
		Code:      code,
		Name:      text(code),
	}, testActor)
	require.NoError(t, err)
	return dept
}

func reloadDepartment(t *testing.T, env *testEnv, id uint) models.Department {
	t.Helper()
	var d models.Department
	require.NoError(t, env.db.First(&d, id).Error)
	return d
}

// assertHierarchy 校验全部部门的 level/path 与上级一致
func assertHierarchy(t *testing.T, env *testEnv) {
	t.Helper()
	var all []models.Department
	require.NoError(t, env.db.Find(&all).Error)
	byID := map[uint]models.Department{}
	for _, d := range all {
		byID[d.ID] = d
	}
	for _, d := range all {
		assert.Equal(t, models.BuildDepartmentPath(d.Lineage()), d.Path, "department %d", d.ID)
		assert.Equal(t, len(d.AncestorIDs), d.Level, "department %d", d.ID)
		if d.ParentID == nil {
			assert.Equal(t, 0, d.Level)
			continue
		}
		parent := byID[*d.ParentID]
		assert.Equal(t, parent.Level+1, d.Level, "department %d", d.ID)
		assert.True(t, strings.HasPrefix(d.Path, parent.Path+"/"), "department %d path %s parent %s", d.ID, d.Path, parent.Path)
	}
}

func TestCreateDepartmentComputesPath(t *testing.T) {
	env := newTestEnv(t)
	root := createDepartment(t, env, 1, "hq", nil)
	child := createDepartment(t, env, 1, "soc", &root.ID)
	grandchild := createDepartment(t, env, 1, "tier1", &child.ID)

	assert.Equal(t, 0, root.Level)
	assert.Equal(t, fmt.Sprintf("/%d", root.ID), root.Path)
	assert.Equal(t, 1, child.Level)
	assert.Equal(t, fmt.Sprintf("/%d/%d", root.ID, child.ID), child.Path)
	assert.Equal(t, 2, grandchild.Level)
	assert.Equal(t, fmt.Sprintf("/%d/%d/%d", root.ID, child.ID, grandchild.ID), reloadDepartment(t, env, grandchild.ID).Path)

	_, err := env.depts.Create(context.Background(), DepartmentInput{CompanyID: 1, ParentID: ptr(uint(999)), Code: "x", Name: text("x")}, testActor)
	assert.True(t, models.IsKind(err, models.KindNotFound))

	_, err = env.depts.Create(context.Background(), DepartmentInput{CompanyID: 2, ParentID: &root.ID, Code: "x", Name: text("x")}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))

	_, err = env.depts.Create(context.Background(), DepartmentInput{CompanyID: 1, Code: "x", Name: models.LocalizedText{"en": "X"}}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))
}

func TestDepartmentCodeUniquePerCompany(t *testing.T) {
	env := newTestEnv(t)
	createDepartment(t, env, 1, "soc", nil)
	createDepartment(t, env, 2, "soc", nil)

	_, err := env.depts.Create(context.Background(), DepartmentInput{CompanyID: 1, Code: "soc", Name: text("soc")}, testActor)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindValidation))
	assert.Contains(t, err.Error(), "soc")

	var count int64
	env.db.Model(&models.Department{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestReparentCascadesToDescendants(t *testing.T) {
	env := newTestEnv(t)
	a := createDepartment(t, env, 1, "a", nil)
	b := createDepartment(t, env, 1, "b", &a.ID)
	c := createDepartment(t, env, 1, "c", &b.ID)
	d := createDepartment(t, env, 1, "d", &c.ID)
	target := createDepartment(t, env, 1, "target", nil)

	moved, err := env.depts.Update(context.Background(), b.ID, DepartmentUpdate{ParentID: &target.ID}, testActor)
	require.NoError(t, err)
	assert.Equal(t, 1, moved.Level)
	assert.Equal(t, fmt.Sprintf("/%d/%d", target.ID, b.ID), moved.Path)

	rc := reloadDepartment(t, env, c.ID)
	rd := reloadDepartment(t, env, d.ID)
	assert.Equal(t, fmt.Sprintf("/%d/%d/%d", target.ID, b.ID, c.ID), rc.Path)
	assert.Equal(t, 2, rc.Level)
	assert.Equal(t, fmt.Sprintf("/%d/%d/%d/%d", target.ID, b.ID, c.ID, d.ID), rd.Path)
	assert.Equal(t, 3, rd.Level)
	assertHierarchy(t, env)

	// 移到顶级
	_, err = env.depts.Update(context.Background(), c.ID, DepartmentUpdate{ParentID: ptr(uint(0))}, testActor)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("/%d/%d", c.ID, d.ID), reloadDepartment(t, env, d.ID).Path)
	assertHierarchy(t, env)

	// 自身 + 2 个下级 + 1 个下级 各一条变更
	logs, err := env.audit.ListChanges(context.Background(), ChangeFilter{Table: "departments", RecordID: d.ID})
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestReparentDoesNotTouchSimilarPrefix(t *testing.T) {
	env := newTestEnv(t)
	var roots []*models.Department
	for i := 1; i <= 12; i++ {
		roots = append(roots, createDepartment(t, env, 1, fmt.Sprintf("r%d", i), nil))
	}
	one, twelve := roots[0], roots[11]
	require.Equal(t, uint(1), one.ID)
	require.Equal(t, uint(12), twelve.ID)
	childOfOne := createDepartment(t, env, 1, "one-child", &one.ID)
	childOfTwelve := createDepartment(t, env, 1, "twelve-child", &twelve.ID)

	_, err := env.depts.Update(context.Background(), one.ID, DepartmentUpdate{ParentID: &roots[1].ID}, testActor)
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("/2/1/%d", childOfOne.ID), reloadDepartment(t, env, childOfOne.ID).Path)
	assert.Equal(t, fmt.Sprintf("/12/%d", childOfTwelve.ID), reloadDepartment(t, env, childOfTwelve.ID).Path)
	assertHierarchy(t, env)
}

func TestReparentRejectsCyclesAndCrossCompany(t *testing.T) {
	env := newTestEnv(t)
	a := createDepartment(t, env, 1, "a", nil)
	b := createDepartment(t, env, 1, "b", &a.ID)
	c := createDepartment(t, env, 1, "c", &b.ID)
	other := createDepartment(t, env, 2, "other", nil)
	ctx := context.Background()

	_, err := env.depts.Update(ctx, a.ID, DepartmentUpdate{ParentID: &c.ID}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))
	_, err = env.depts.Update(ctx, a.ID, DepartmentUpdate{ParentID: &a.ID}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))
	_, err = env.depts.Update(ctx, b.ID, DepartmentUpdate{ParentID: &other.ID}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))
	_, err = env.depts.Update(ctx, 999, DepartmentUpdate{Code: ptr("z")}, testActor)
	assert.True(t, models.IsKind(err, models.KindNotFound))

	assert.Equal(t, b.Path, reloadDepartment(t, env, b.ID).Path)
	assertHierarchy(t, env)
}

func TestReparentFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	a := createDepartment(t, env, 1, "a", nil)
	b := createDepartment(t, env, 1, "b", &a.ID)
	c1 := createDepartment(t, env, 1, "c1", &b.ID)
	c2 := createDepartment(t, env, 1, "c2", &b.ID)
	d := createDepartment(t, env, 1, "d", &c1.ID)
	target := createDepartment(t, env, 1, "target", nil)

	before := map[uint]string{}
	for _, id := range []uint{b.ID, c1.ID, c2.ID, d.ID} {
		before[id] = reloadDepartment(t, env, id).Path
	}
	var auditsBefore int64
	env.db.Model(&models.AuditLog{}).Count(&auditsBefore)

	// 第 3 次部门更新（自身之后的第 2 个下级）时注入失败
	updates := 0
	err := env.db.Callback().Update().Before("gorm:update").Register("test:fail_cascade", func(tx *gorm.DB) {
		if tx.Statement.Table != "departments" {
			return
		}
		updates++
		if updates == 3 {
			_ = tx.AddError(errors.New("injected failure"))
		}
	})
	require.NoError(t, err)

	_, err = env.depts.Update(context.Background(), b.ID, DepartmentUpdate{ParentID: &target.ID}, testActor)
	require.Error(t, err)
	assert.Equal(t, 3, updates)

	for id, path := range before {
		assert.Equal(t, path, reloadDepartment(t, env, id).Path, "department %d", id)
	}
	assert.Equal(t, a.ID, *reloadDepartment(t, env, b.ID).ParentID)

	var auditsAfter int64
	env.db.Model(&models.AuditLog{}).Count(&auditsAfter)
	assert.Equal(t, auditsBefore, auditsAfter)
	assertHierarchy(t, env)
}

func TestDeleteDepartmentGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	parent := createDepartment(t, env, 1, "parent", nil)
	child := createDepartment(t, env, 1, "child", &parent.ID)
	staffed := createDepartment(t, env, 1, "staffed", nil)
	viewer := mustRole(t, env.db, models.RoleViewer)
	mustUser(t, env.db, "staff@example.com", viewer.ID, &staffed.ID)

	err := env.depts.Delete(ctx, parent.ID, testActor)
	assert.True(t, models.IsKind(err, models.KindConflict))
	err = env.depts.Delete(ctx, staffed.ID, testActor)
	assert.True(t, models.IsKind(err, models.KindConflict))

	var count int64
	env.db.Model(&models.Department{}).Count(&count)
	assert.Equal(t, int64(3), count)

	require.NoError(t, env.depts.Delete(ctx, child.ID, testActor))
	require.NoError(t, env.depts.Delete(ctx, parent.ID, testActor))
	assert.True(t, models.IsKind(env.depts.Delete(ctx, parent.ID, testActor), models.KindNotFound))

	logs, err := env.audit.ListChanges(ctx, ChangeFilter{Table: "departments", RecordID: parent.ID})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.ChangeDelete, logs[0].Action)
	assert.Equal(t, "parent", logs[0].ItemName)
}

func TestMissingDepartmentMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	missing := uint(404)
	code := "renamed"

	_, err := env.depts.Create(ctx, DepartmentInput{CompanyID: 1, ParentID: &missing, Code: "orphan", Name: text("orphan")}, testActor)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindNotFound))
	assert.Equal(t, "上级部门不存在", err.Error())

	_, err = env.depts.Update(ctx, missing, DepartmentUpdate{Code: &code}, testActor)
	assert.True(t, models.IsKind(err, models.KindNotFound))
	assert.Equal(t, "部门不存在", err.Error())

	root := createDepartment(t, env, 1, "root", nil)
	_, err = env.depts.Update(ctx, root.ID, DepartmentUpdate{ParentID: &missing}, testActor)
	assert.True(t, models.IsKind(err, models.KindNotFound))
	assert.Equal(t, "上级部门不存在", err.Error())
}

func TestDepartmentGetAndTree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := createDepartment(t, env, 1, "root", nil)
	child := createDepartment(t, env, 1, "child", &root.ID)
	createDepartment(t, env, 1, "grandchild", &child.ID)
	createDepartment(t, env, 2, "elsewhere", nil)
	viewer := mustRole(t, env.db, models.RoleViewer)
	mustUser(t, env.db, "u1@example.com", viewer.ID, &child.ID)

	view, err := env.depts.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "root", view.ParentName["en"])
	assert.Equal(t, int64(1), view.UserCount)

	tree, err := env.depts.Tree(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, "grandchild", tree[0].Children[0].Children[0].Code)

	roots, err := env.depts.List(ctx, DepartmentFilter{ParentID: ptr(uint(0))})
	require.NoError(t, err)
	assert.Len(t, roots, 2)

	_, err = env.depts.Get(ctx, 999)
	assert.True(t, models.IsKind(err, models.KindNotFound))
}
