package service

import (
	"context"
	"testing"

	"siemadmin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotName(t *testing.T) {
	assert.Equal(t, "incidents", snapshotName(`{"name":"incidents"}`))
	assert.Equal(t, "Security", snapshotName(`{"name":{"ko":"보안","en":"Security"}}`))
	assert.Empty(t, snapshotName(""))
	assert.Empty(t, snapshotName(`{"code":"x"}`))
	assert.Empty(t, snapshotName(`not json`))
}

func TestListChangesFiltersAndLimits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		createItem(t, env, MenuItemInput{Name: name})
	}
	createCategory(t, env, "security", 1)

	all, err := env.audit.ListChanges(ctx, ChangeFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "menu_categories", all[0].TargetTable)

	items, err := env.audit.ListChanges(ctx, ChangeFilter{Table: "menu_items", Limit: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].ItemName)
	assert.Equal(t, "b", items[1].ItemName)
}

func TestExportChanges(t *testing.T) {
	env := newTestEnv(t)
	createItem(t, env, MenuItemInput{Name: "incidents"})

	f, err := env.audit.ExportChanges(context.Background(), ChangeFilter{Table: "menu_items"})
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("变更审计", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)

	table, err := f.GetCellValue("变更审计", "B2")
	require.NoError(t, err)
	assert.Equal(t, "menu_items", table)

	action, err := f.GetCellValue("变更审计", "D2")
	require.NoError(t, err)
	assert.Equal(t, models.ChangeInsert, action)

	name, err := f.GetCellValue("变更审计", "E2")
	require.NoError(t, err)
	assert.Equal(t, "incidents", name)
}
