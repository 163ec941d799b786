package service

import (
	"context"
	"encoding/json"
	"testing"

	"siemadmin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedNavigation 直接写库，允许不完整的多语言标签
func seedNavigation(t *testing.T, env *testEnv) (security models.MenuCategory, incidents models.MenuItem) {
	t.Helper()

	security = models.MenuCategory{Name: "security", Label: models.LocalizedText{"ko": "보안", "en": "Security"}, Icon: "ShieldAlert", OrderIndex: 1, IsActive: true}
	require.NoError(t, env.db.Create(&security).Error)
	settings := models.MenuCategory{Name: "settings", Label: text("Settings"), Icon: "not-an-icon", OrderIndex: 2, IsActive: true}
	require.NoError(t, env.db.Create(&settings).Error)

	incidents = models.MenuItem{
		Kind: models.MenuKindItem, CategoryID: &security.ID, Name: "incidents", Href: "/incidents",
		Label: models.LocalizedText{"ko": "인시던트", "en": "Incidents"}, Icon: "Bug", OrderIndex: 1, IsActive: true,
		Badge: &models.MenuBadge{Text: "new", Variant: "destructive", Show: true},
	}
	require.NoError(t, env.db.Create(&incidents).Error)
	detail := models.MenuItem{
		Kind: models.MenuKindItem, CategoryID: &security.ID, ParentID: &incidents.ID, Name: "incidents-detail",
		Href: "/incidents/detail", Label: text("Incident detail"), OrderIndex: 1, IsActive: true,
	}
	require.NoError(t, env.db.Create(&detail).Error)
	audit := models.MenuItem{
		Kind: models.MenuKindItem, CategoryID: &settings.ID, Name: "audit", Href: "/settings/audit",
		Label: text("Audit"), OrderIndex: 1, IsActive: true, PermissionCode: "audit_logs.read",
		Badge: &models.MenuBadge{Text: "hidden", Show: false},
	}
	require.NoError(t, env.db.Create(&audit).Error)
	inactive := models.MenuItem{
		Kind: models.MenuKindItem, CategoryID: &settings.ID, Name: "legacy", Href: "/legacy",
		Label: text("Legacy"), OrderIndex: 2, IsActive: false,
	}
	require.NoError(t, env.db.Create(&inactive).Error)

	vendor := models.MenuItem{Kind: models.MenuKindVendor, Name: "sentinelone", Label: text("SentinelOne"), IsActive: true}
	require.NoError(t, env.db.Create(&vendor).Error)
	page := models.MenuItem{
		Kind: models.MenuKindVendorPage, ParentID: &vendor.ID, Name: "threats", Href: "/sentinelone/threats",
		Label: text("Threats"), IsActive: true,
	}
	require.NoError(t, env.db.Create(&page).Error)
	return security, incidents
}

func decodeNavigation(t *testing.T, raw json.RawMessage) NavigationView {
	t.Helper()
	var view NavigationView
	require.NoError(t, json.Unmarshal(raw, &view))
	return view
}

func TestNavigationLocalizesAndGroups(t *testing.T) {
	env := newTestEnv(t)
	seedNavigation(t, env)

	raw, err := env.nav.Navigation(context.Background(), "ja")
	require.NoError(t, err)
	view := decodeNavigation(t, raw)

	require.Len(t, view.Categories, 2)
	sec := view.Categories[0]
	assert.Equal(t, "security", sec.Name)
	assert.Equal(t, "Security", sec.Label)
	assert.Equal(t, "ShieldAlert", sec.Icon)
	require.Len(t, sec.Items, 1)
	assert.Equal(t, "Incidents", sec.Items[0].Label)
	assert.Equal(t, "new", sec.Items[0].Badge)
	require.Len(t, sec.Items[0].Children, 1)
	assert.Equal(t, "Incident detail (ja)", sec.Items[0].Children[0].Label)

	settings := view.Categories[1]
	assert.Equal(t, DefaultItemIcon, settings.Icon)
	require.Len(t, settings.Items, 1)
	assert.Equal(t, "audit", settings.Items[0].Name)
	assert.Empty(t, settings.Items[0].Badge)

	require.Len(t, view.Vendors, 1)
	v := view.Vendors[0]
	assert.Equal(t, "sentinelone", v.ID)
	assert.Equal(t, "/sentinelone", v.Href)
	assert.Equal(t, "gray", v.Color)
	assert.Equal(t, DefaultVendorIcon, v.Icon)
	require.Len(t, v.Pages, 1)
	assert.Equal(t, "Threats (ja)", v.Pages[0].Label)
	assert.Empty(t, view.Uncategorized)
}

func TestNavigationCacheHitSkipsStore(t *testing.T) {
	env := newTestEnv(t)
	seedNavigation(t, env)
	queries := countQueries(t, env.db)

	first, err := env.nav.Navigation(context.Background(), "en")
	require.NoError(t, err)
	afterMiss := queries.Load()
	assert.Positive(t, afterMiss)
	assert.True(t, env.mr.Exists("menu:navigation:en"))

	second, err := env.nav.Navigation(context.Background(), "en")
	require.NoError(t, err)
	assert.Equal(t, afterMiss, queries.Load())
	assert.Equal(t, string(first), string(second))
}

func TestNavigationUnsupportedLanguageSharesDefaultKey(t *testing.T) {
	env := newTestEnv(t)
	seedNavigation(t, env)

	_, err := env.nav.Navigation(context.Background(), "fr")
	require.NoError(t, err)
	assert.True(t, env.mr.Exists("menu:navigation:ko"))
	assert.False(t, env.mr.Exists("menu:navigation:fr"))
}

func TestNavigationInvalidatedOnWrite(t *testing.T) {
	env := newTestEnv(t)
	_, incidents := seedNavigation(t, env)
	ctx := context.Background()

	_, err := env.nav.Navigation(ctx, "en")
	require.NoError(t, err)
	_, err = env.nav.Navigation(ctx, "ko")
	require.NoError(t, err)
	env.mr.Set("unrelated", "keep")

	_, err = env.menus.UpdateItem(ctx, incidents.ID, MenuItemUpdate{Label: text("Cases")}, testActor)
	require.NoError(t, err)
	assert.False(t, env.mr.Exists("menu:navigation:en"))
	assert.False(t, env.mr.Exists("menu:navigation:ko"))
	assert.True(t, env.mr.Exists("unrelated"))

	raw, err := env.nav.Navigation(ctx, "en")
	require.NoError(t, err)
	view := decodeNavigation(t, raw)
	assert.Equal(t, "Cases", view.Categories[0].Items[0].Label)
}

func TestNavigationHidesInactiveCategoryItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	retired := createCategory(t, env, "retired", 1)
	old := createItem(t, env, MenuItemInput{Name: "old", CategoryID: &retired.ID})
	createItem(t, env, MenuItemInput{Name: "old-detail", ParentID: &old.ID})

	raw, err := env.nav.Navigation(ctx, "en")
	require.NoError(t, err)
	view := decodeNavigation(t, raw)
	require.Len(t, view.Categories, 1)
	assert.Len(t, view.Categories[0].Items, 1)

	_, err = env.menus.UpdateCategory(ctx, retired.ID, CategoryUpdate{IsActive: ptr(false)}, testActor)
	require.NoError(t, err)

	raw, err = env.nav.Navigation(ctx, "en")
	require.NoError(t, err)
	view = decodeNavigation(t, raw)
	assert.Empty(t, view.Categories)
	assert.Empty(t, view.Uncategorized)

	loose := createItem(t, env, MenuItemInput{Name: "loose"})
	raw, err = env.nav.Navigation(ctx, "en")
	require.NoError(t, err)
	view = decodeNavigation(t, raw)
	require.Len(t, view.Uncategorized, 1)
	assert.Equal(t, loose.ID, view.Uncategorized[0].ID)
}

func TestNavigationFallsBackWhenCacheDown(t *testing.T) {
	env := newTestEnv(t)
	seedNavigation(t, env)
	env.mr.Close()

	for i := 0; i < 2; i++ {
		raw, err := env.nav.Navigation(context.Background(), "en")
		require.NoError(t, err)
		view := decodeNavigation(t, raw)
		assert.Len(t, view.Categories, 2)
	}
}

func TestNavigationForRoleFiltersByPermission(t *testing.T) {
	env := newTestEnv(t)
	seedNavigation(t, env)
	ctx := context.Background()

	admin, err := env.nav.NavigationForRole(ctx, models.RoleAdmin, "en")
	require.NoError(t, err)
	require.Len(t, admin.Categories, 2)
	assert.Len(t, admin.Categories[1].Items, 1)

	viewer, err := env.nav.NavigationForRole(ctx, models.RoleViewer, "en")
	require.NoError(t, err)
	require.Len(t, viewer.Categories, 2)
	assert.Empty(t, viewer.Categories[1].Items)
	assert.Len(t, viewer.Categories[0].Items, 1)

	unknown, err := env.nav.NavigationForRole(ctx, "ghost", "en")
	require.NoError(t, err)
	assert.Empty(t, unknown.Categories)
	assert.Empty(t, unknown.Vendors)
}

func TestMetadata(t *testing.T) {
	env := newTestEnv(t)
	seedNavigation(t, env)
	ctx := context.Background()

	meta, err := env.nav.Metadata(ctx, "/incidents", "ko")
	require.NoError(t, err)
	assert.Equal(t, "인시던트", meta.Title)
	assert.Equal(t, "Bug", meta.Icon)
	assert.Equal(t, "보안", meta.Category)

	meta, err = env.nav.Metadata(ctx, "/nowhere", "en")
	require.NoError(t, err)
	assert.Equal(t, "Page", meta.Title)
	assert.Equal(t, DefaultItemIcon, meta.Icon)

	meta, err = env.nav.Metadata(ctx, "/legacy", "en")
	require.NoError(t, err)
	assert.Equal(t, "Page", meta.Title)
}
