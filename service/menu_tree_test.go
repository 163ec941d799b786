package service

import (
	"math/rand"
	"testing"

	"siemadmin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func menuItem(id uint, parent *uint, category *uint, name string) models.MenuItem {
	return models.MenuItem{ID: id, ParentID: parent, CategoryID: category, Name: name, Kind: models.MenuKindItem, IsActive: true}
}

func TestAssembleMenuTreeNestsChildren(t *testing.T) {
	security := ptr(uint(1))
	items := []models.MenuItem{
		menuItem(10, nil, security, "incidents"),
		menuItem(11, ptr(uint(10)), security, "incidents-detail"),
	}

	roots := AssembleMenuTree(items)
	require.Len(t, roots, 1)
	assert.Equal(t, "incidents", roots[0].Item.Name)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "incidents-detail", roots[0].Children[0].Item.Name)
	assert.Empty(t, roots[0].Children[0].Children)
}

func TestAssembleMenuTreeOrphanBecomesRoot(t *testing.T) {
	items := []models.MenuItem{
		menuItem(1, nil, nil, "a"),
		menuItem(2, ptr(uint(99)), nil, "orphan"),
		menuItem(3, ptr(uint(3)), nil, "self"),
	}

	roots := AssembleMenuTree(items)
	names := []string{}
	for _, r := range roots {
		names = append(names, r.Item.Name)
	}
	assert.Equal(t, []string{"a", "orphan", "self"}, names)
}

func TestAssembleMenuTreeBreaksCycles(t *testing.T) {
	items := []models.MenuItem{
		menuItem(1, ptr(uint(2)), nil, "a"),
		menuItem(2, ptr(uint(1)), nil, "b"),
		menuItem(3, nil, nil, "c"),
	}

	roots := AssembleMenuTree(items)
	flat := FlattenMenuTree(roots)
	require.Len(t, flat, 3)

	seen := map[uint]int{}
	for _, item := range flat {
		seen[item.ID]++
	}
	assert.Equal(t, map[uint]int{1: 1, 2: 1, 3: 1}, seen)
}

func TestAssembleMenuTreeKeepsEveryItemOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(40)
		items := make([]models.MenuItem, 0, n)
		for i := 1; i <= n; i++ {
			var parent *uint
			switch rng.Intn(4) {
			case 0:
			case 1:
				parent = ptr(uint(n + 1 + rng.Intn(5)))
			default:
				parent = ptr(uint(1 + rng.Intn(n)))
			}
			items = append(items, menuItem(uint(i), parent, nil, "m"))
		}
		rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })

		flat := FlattenMenuTree(AssembleMenuTree(items))
		require.Len(t, flat, n, "round %d", round)
		seen := make(map[uint]bool, n)
		for _, item := range flat {
			assert.False(t, seen[item.ID], "round %d: item %d appears twice", round, item.ID)
			seen[item.ID] = true
		}
	}
}

func TestAssembleMenuTreeKeepsInputOrder(t *testing.T) {
	items := []models.MenuItem{
		menuItem(5, nil, nil, "first"),
		menuItem(7, ptr(uint(5)), nil, "child-b"),
		menuItem(6, ptr(uint(5)), nil, "child-a"),
		menuItem(2, nil, nil, "second"),
	}

	roots := AssembleMenuTree(items)
	require.Len(t, roots, 2)
	assert.Equal(t, "first", roots[0].Item.Name)
	assert.Equal(t, "second", roots[1].Item.Name)
	assert.Equal(t, "child-b", roots[0].Children[0].Item.Name)
	assert.Equal(t, "child-a", roots[0].Children[1].Item.Name)
}

func TestPruneMenuTreeHidesSubtree(t *testing.T) {
	items := []models.MenuItem{
		menuItem(1, nil, nil, "reports"),
		menuItem(2, ptr(uint(1)), nil, "reports-export"),
		menuItem(3, nil, nil, "alerts"),
	}
	items[0].PermissionCode = "reports.read"

	pruned := PruneMenuTree(AssembleMenuTree(items), menuVisible(PermissionSet{"alerts.read": true}))
	assert.Equal(t, []uint{3}, CollectMenuIDs(pruned))

	all := PruneMenuTree(AssembleMenuTree(items), menuVisible(PermissionSet{"reports.read": true}))
	assert.Equal(t, []uint{1, 2, 3}, CollectMenuIDs(all))
}

func TestGroupByCategory(t *testing.T) {
	categories := []models.MenuCategory{
		{ID: 1, Name: "settings", OrderIndex: 9, IsActive: true},
		{ID: 2, Name: "security", OrderIndex: 1, IsActive: true},
		{ID: 3, Name: "empty", OrderIndex: 5, IsActive: true},
		{ID: 4, Name: "retired", OrderIndex: 0, IsActive: false},
	}
	items := []models.MenuItem{
		menuItem(10, nil, ptr(uint(2)), "incidents"),
		menuItem(11, nil, ptr(uint(1)), "general"),
		menuItem(12, nil, nil, "loose"),
		menuItem(13, nil, ptr(uint(77)), "stale-category"),
		menuItem(14, nil, ptr(uint(2)), "alerts"),
		menuItem(15, nil, ptr(uint(4)), "legacy"),
		menuItem(16, ptr(uint(15)), ptr(uint(4)), "legacy-child"),
	}

	groups, uncategorized := GroupByCategory(categories, AssembleMenuTree(items))
	require.Len(t, groups, 3)
	assert.Equal(t, "security", groups[0].Category.Name)
	assert.Equal(t, "empty", groups[1].Category.Name)
	assert.Equal(t, "settings", groups[2].Category.Name)

	assert.Equal(t, []uint{10, 14}, CollectMenuIDs(groups[0].Roots))
	assert.Empty(t, groups[1].Roots)
	assert.Equal(t, []uint{12}, CollectMenuIDs(uncategorized))
}
