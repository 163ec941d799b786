package service

import (
	"context"
	"testing"

	"siemadmin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createCategory(t *testing.T, env *testEnv, name string, order int) *models.MenuCategory {
	t.Helper()
	c, err := env.menus.CreateCategory(context.Background(), CategoryInput{Name: name, Label: text(name), OrderIndex: order}, testActor)
	require.NoError(t, err)
	return c
}

func createItem(t *testing.T, env *testEnv, in MenuItemInput) *models.MenuItem {
	t.Helper()
	if in.Label == nil {
		in.Label = text(in.Name)
	}
	if in.Href == "" && in.Kind != models.MenuKindVendor {
		in.Href = "/" + in.Name
	}
	item, err := env.menus.CreateItem(context.Background(), in, testActor)
	require.NoError(t, err)
	return item
}

func TestCreateItemRequiresAllLanguages(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.menus.CreateItem(context.Background(), MenuItemInput{
		Name:  "incidents",
		Href:  "/incidents",
		Label: models.LocalizedText{"ko": "인시던트", "en": "Incidents"},
	}, testActor)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindValidation))
	assert.Contains(t, err.Error(), "ja, zh")

	var count int64
	env.db.Model(&models.MenuItem{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateItemDefaultsAndAudit(t *testing.T) {
	env := newTestEnv(t)
	security := createCategory(t, env, "security", 1)

	item := createItem(t, env, MenuItemInput{Name: "incidents", CategoryID: &security.ID, PermissionCode: "incidents.read"})
	assert.Equal(t, models.MenuKindItem, item.Kind)
	assert.True(t, item.IsActive)

	logs, err := env.audit.ListChanges(context.Background(), ChangeFilter{Table: "menu_items", RecordID: item.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ChangeInsert, logs[0].Action)
	assert.Equal(t, "incidents", logs[0].ItemName)
	assert.Equal(t, testActor.UserID, logs[0].ChangedBy)
}

func TestCreateItemRejectsUnknownReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.menus.CreateItem(ctx, MenuItemInput{Name: "x", Href: "/x", Label: text("x"), CategoryID: ptr(uint(42))}, testActor)
	assert.True(t, models.IsKind(err, models.KindNotFound))

	_, err = env.menus.CreateItem(ctx, MenuItemInput{Name: "x", Href: "/x", Label: text("x"), ParentID: ptr(uint(42))}, testActor)
	assert.True(t, models.IsKind(err, models.KindNotFound))

	_, err = env.menus.CreateItem(ctx, MenuItemInput{Name: "x", Href: "/x", Label: text("x"), PermissionCode: "nothing.here"}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))
}

func TestChildInheritsParentCategory(t *testing.T) {
	env := newTestEnv(t)
	security := createCategory(t, env, "security", 1)
	settings := createCategory(t, env, "settings", 2)

	parent := createItem(t, env, MenuItemInput{Name: "incidents", CategoryID: &security.ID})
	child := createItem(t, env, MenuItemInput{Name: "incidents-detail", ParentID: &parent.ID})
	require.NotNil(t, child.CategoryID)
	assert.Equal(t, security.ID, *child.CategoryID)

	_, err := env.menus.CreateItem(context.Background(), MenuItemInput{
		Name: "wrong", Href: "/wrong", Label: text("wrong"), ParentID: &parent.ID, CategoryID: &settings.ID,
	}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))
}

func TestUpdateItemCategoryCascadesToDescendants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	security := createCategory(t, env, "security", 1)
	settings := createCategory(t, env, "settings", 2)

	parent := createItem(t, env, MenuItemInput{Name: "incidents", CategoryID: &security.ID})
	child := createItem(t, env, MenuItemInput{Name: "incidents-detail", ParentID: &parent.ID})
	grandchild := createItem(t, env, MenuItemInput{Name: "incidents-notes", ParentID: &child.ID})

	_, err := env.menus.UpdateItem(ctx, child.ID, MenuItemUpdate{CategoryID: &settings.ID}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))

	updated, err := env.menus.UpdateItem(ctx, parent.ID, MenuItemUpdate{CategoryID: &settings.ID}, testActor)
	require.NoError(t, err)
	assert.Equal(t, settings.ID, *updated.CategoryID)

	for _, id := range []uint{child.ID, grandchild.ID} {
		var got models.MenuItem
		require.NoError(t, env.db.First(&got, id).Error)
		require.NotNil(t, got.CategoryID, "item %d", id)
		assert.Equal(t, settings.ID, *got.CategoryID, "item %d", id)

		logs, err := env.audit.ListChanges(ctx, ChangeFilter{Table: "menu_items", RecordID: id})
		require.NoError(t, err)
		require.Len(t, logs, 2, "item %d", id)
		assert.Equal(t, models.ChangeUpdate, logs[0].Action)
	}

	// 清空分类同样下沉
	_, err = env.menus.UpdateItem(ctx, parent.ID, MenuItemUpdate{CategoryID: ptr(uint(0))}, testActor)
	require.NoError(t, err)
	var got models.MenuItem
	require.NoError(t, env.db.First(&got, grandchild.ID).Error)
	assert.Nil(t, got.CategoryID)
}

func TestMovedItemFollowsNewParentCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	security := createCategory(t, env, "security", 1)
	settings := createCategory(t, env, "settings", 2)

	alerts := createItem(t, env, MenuItemInput{Name: "alerts", CategoryID: &security.ID})
	general := createItem(t, env, MenuItemInput{Name: "general", CategoryID: &settings.ID})
	rules := createItem(t, env, MenuItemInput{Name: "rules", ParentID: &alerts.ID})
	ruleDetail := createItem(t, env, MenuItemInput{Name: "rule-detail", ParentID: &rules.ID})

	moved, err := env.menus.UpdateItem(ctx, rules.ID, MenuItemUpdate{ParentID: &general.ID}, testActor)
	require.NoError(t, err)
	assert.Equal(t, settings.ID, *moved.CategoryID)

	var got models.MenuItem
	require.NoError(t, env.db.First(&got, ruleDetail.ID).Error)
	assert.Equal(t, settings.ID, *got.CategoryID)
}

func TestUpdateItemRejectsCycle(t *testing.T) {
	env := newTestEnv(t)
	a := createItem(t, env, MenuItemInput{Name: "a"})
	b := createItem(t, env, MenuItemInput{Name: "b", ParentID: &a.ID})
	c := createItem(t, env, MenuItemInput{Name: "c", ParentID: &b.ID})

	_, err := env.menus.UpdateItem(context.Background(), a.ID, MenuItemUpdate{ParentID: &c.ID}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))

	_, err = env.menus.UpdateItem(context.Background(), a.ID, MenuItemUpdate{ParentID: &a.ID}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))

	// 0 表示移到顶级
	moved, err := env.menus.UpdateItem(context.Background(), c.ID, MenuItemUpdate{ParentID: ptr(uint(0))}, testActor)
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)
}

func TestDeleteItemWithChildrenIsConflict(t *testing.T) {
	env := newTestEnv(t)
	parent := createItem(t, env, MenuItemInput{Name: "parent"})
	child := createItem(t, env, MenuItemInput{Name: "child", ParentID: &parent.ID})

	err := env.menus.DeleteItem(context.Background(), parent.ID, testActor)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindConflict))

	var count int64
	env.db.Model(&models.MenuItem{}).Count(&count)
	assert.Equal(t, int64(2), count)

	require.NoError(t, env.menus.DeleteItem(context.Background(), child.ID, testActor))
	require.NoError(t, env.menus.DeleteItem(context.Background(), parent.ID, testActor))

	err = env.menus.DeleteItem(context.Background(), parent.ID, testActor)
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestReorderIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	a := createItem(t, env, MenuItemInput{Name: "a", OrderIndex: 1})
	b := createItem(t, env, MenuItemInput{Name: "b", OrderIndex: 2})

	err := env.menus.Reorder(context.Background(), []ReorderEntry{
		{ID: a.ID, OrderIndex: 5},
		{ID: 999, OrderIndex: 1},
	}, testActor)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindNotFound))

	reloaded, err := env.menus.GetItem(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.OrderIndex)

	require.NoError(t, env.menus.Reorder(context.Background(), []ReorderEntry{
		{ID: a.ID, OrderIndex: 2},
		{ID: b.ID, OrderIndex: 1, ParentID: &a.ID},
	}, testActor))

	tree, err := env.menus.ListItems(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, a.ID, tree[0].Item.ID)
	assert.Equal(t, b.ID, tree[0].Children[0].Item.ID)

	assert.True(t, models.IsKind(env.menus.Reorder(context.Background(), nil, testActor), models.KindValidation))
}

func TestCategoryNameIsImmutableAndUnique(t *testing.T) {
	env := newTestEnv(t)
	c := createCategory(t, env, "security", 1)

	_, err := env.menus.CreateCategory(context.Background(), CategoryInput{Name: "security", Label: text("again")}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))

	_, err = env.menus.UpdateCategory(context.Background(), c.ID, CategoryUpdate{Name: ptr("renamed")}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))

	updated, err := env.menus.UpdateCategory(context.Background(), c.ID, CategoryUpdate{OrderIndex: ptr(7), IsActive: ptr(false)}, testActor)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.OrderIndex)
	assert.False(t, updated.IsActive)

	active, err := env.menus.ListCategories(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestVendorLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	vendor, err := env.menus.CreateVendor(ctx, VendorInput{VendorID: "crowdstrike", Name: text("CrowdStrike"), Icon: "Shield"}, testActor)
	require.NoError(t, err)
	assert.Equal(t, "crowdstrike", vendor.VendorID)

	_, err = env.menus.CreateVendor(ctx, VendorInput{VendorID: "crowdstrike", Name: text("Duplicate")}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))

	createItem(t, env, MenuItemInput{Kind: models.MenuKindVendorPage, Name: "detections", ParentID: &vendor.ID})
	_, err = env.menus.CreateItem(ctx, MenuItemInput{Kind: models.MenuKindVendorPage, Name: "loose", Href: "/loose", Label: text("loose")}, testActor)
	assert.True(t, models.IsKind(err, models.KindValidation))

	vendors, err := env.menus.ListVendors(ctx, true)
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	require.Len(t, vendors[0].Pages, 1)
	assert.Equal(t, "detections", vendors[0].Pages[0].Name)

	require.NoError(t, env.menus.DeactivateVendor(ctx, vendor.ID, testActor))
	vendors, err = env.menus.ListVendors(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, vendors)

	all, err := env.menus.ListVendors(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)

	page := createItem(t, env, MenuItemInput{Name: "plain"})
	assert.True(t, models.IsKind(env.menus.DeactivateVendor(ctx, page.ID, testActor), models.KindNotFound))
}
