package service

// 默认图标
const (
	DefaultItemIcon   = "Layers"
	DefaultVendorIcon = "Shield"
)

// knownIcons 前端图标库中可渲染的图标名
var knownIcons = map[string]bool{
	"Activity":        true,
	"AlertTriangle":   true,
	"BarChart3":       true,
	"Bell":            true,
	"Bug":             true,
	"Building2":       true,
	"ClipboardList":   true,
	"Cloud":           true,
	"Database":        true,
	"Eye":             true,
	"FileText":        true,
	"FolderTree":      true,
	"Globe":           true,
	"History":         true,
	"Key":             true,
	"Layers":          true,
	"LayoutDashboard": true,
	"ListChecks":      true,
	"Lock":            true,
	"Menu":            true,
	"Network":         true,
	"Radar":           true,
	"Search":          true,
	"Server":          true,
	"Settings":        true,
	"Shield":          true,
	"ShieldAlert":     true,
	"ShieldCheck":     true,
	"UserCog":         true,
	"Users":           true,
}

// ResolveIcon 未知或为空的图标名替换为 fallback
func ResolveIcon(token, fallback string) string {
	if knownIcons[token] {
		return token
	}
	return fallback
}
