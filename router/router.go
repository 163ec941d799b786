package router

import (
	"net/http"

	"siemadmin/api"
	"siemadmin/cache"
	"siemadmin/config"
	_ "siemadmin/docs"
	"siemadmin/middleware"
	"siemadmin/models"
	"siemadmin/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Dependencies 路由所需的外部资源，由 main 负责创建与关闭
type Dependencies struct {
	Config   *config.Config
	DB       *gorm.DB
	Cache    *cache.NavigationCache
	Gatherer prometheus.Gatherer
}

const apiPrefix = "/api/v1"

// permissionRules 管理接口所需权限，未列出的接口只要求登录
var permissionRules = []middleware.PermissionRule{
	{Method: http.MethodGet, Pattern: apiPrefix + "/menu-items", Code: "menus.read"},
	{Method: http.MethodPost, Pattern: apiPrefix + "/menu-items", Code: "menus.create"},
	{Method: http.MethodPut, Pattern: apiPrefix + "/menu-items/:id", Code: "menus.update"},
	{Method: http.MethodDelete, Pattern: apiPrefix + "/menu-items/:id", Code: "menus.delete"},
	{Method: http.MethodPost, Pattern: apiPrefix + "/menu-categories", Code: "menus.create"},
	{Method: http.MethodPut, Pattern: apiPrefix + "/menu-categories/:id", Code: "menus.update"},
	{Method: http.MethodPost, Pattern: apiPrefix + "/vendors", Code: "menus.create"},
	{Method: http.MethodPut, Pattern: apiPrefix + "/vendors/:id", Code: "menus.update"},
	{Method: http.MethodDelete, Pattern: apiPrefix + "/vendors/:id", Code: "menus.delete"},
	{Method: http.MethodGet, Pattern: apiPrefix + "/menu/permissions", Code: "roles.read"},
	{Method: http.MethodPost, Pattern: apiPrefix + "/menu/permissions", Code: "roles.update"},
	{Method: http.MethodGet, Pattern: apiPrefix + "/menu/audit-logs", Code: "audit_logs.read"},
	{Method: http.MethodGet, Pattern: apiPrefix + "/menu/audit-logs/export", Code: "audit_logs.read"},
	{Method: http.MethodGet, Pattern: apiPrefix + "/roles/:id/permissions", Code: "roles.read"},
	{Method: http.MethodPost, Pattern: apiPrefix + "/roles/:id/permissions", Code: "roles.update"},
	{Method: http.MethodDelete, Pattern: apiPrefix + "/roles/:id/permissions", Code: "roles.update"},
	{Method: http.MethodGet, Pattern: apiPrefix + "/users/:id/permissions/effective", Code: "users.read"},
	{Method: http.MethodPost, Pattern: apiPrefix + "/users/:id/permissions", Code: "users.update"},
	{Method: http.MethodDelete, Pattern: apiPrefix + "/users/:id/permissions/:permissionId", Code: "users.update"},
	{Method: http.MethodGet, Pattern: apiPrefix + "/departments", Code: "departments.read"},
	{Method: http.MethodGet, Pattern: apiPrefix + "/departments/tree", Code: "departments.read"},
	{Method: http.MethodGet, Pattern: apiPrefix + "/departments/:id", Code: "departments.read"},
	{Method: http.MethodPost, Pattern: apiPrefix + "/departments", Code: "departments.create"},
	{Method: http.MethodPut, Pattern: apiPrefix + "/departments/:id", Code: "departments.update"},
	{Method: http.MethodDelete, Pattern: apiPrefix + "/departments/:id", Code: "departments.delete"},
}

// SetupRouter 设置路由
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	gin.SetMode(cfg.Server.Mode)
	api.RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog())
	r.Use(CORSMiddleware())

	// 服务装配
	audit := service.NewAuditRecorder(deps.DB)
	resolver := service.NewPermissionResolver(deps.DB)
	menus := service.NewMenuService(deps.DB, deps.Cache, audit)
	nav := service.NewNavigationService(deps.DB, deps.Cache, resolver)
	perms := service.NewPermissionService(deps.DB, audit)
	grants := service.NewRolePermissionService(deps.DB, audit, resolver)
	depts := service.NewDepartmentService(deps.DB, audit)

	navHandler := api.NewNavigationHandler(nav)
	menuHandler := api.NewMenuHandler(menus, grants)
	permHandler := api.NewPermissionHandler(perms)
	roleHandler := api.NewRolePermissionHandler(grants)
	deptHandler := api.NewDepartmentHandler(depts)
	auditHandler := api.NewAuditHandler(audit)
	healthHandler := api.NewHealthHandler(deps.DB, deps.Cache)

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查与指标
	r.GET("/health", healthHandler.Health)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group(apiPrefix)
	v1.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	v1.Use(middleware.JWTAuth())
	v1.Use(middleware.PermissionGuard(resolver, permissionRules))
	if cfg.RateLimit.WriteMax > 0 {
		v1.Use(middleware.WriteRateLimit(cfg.RateLimit.WriteMax, cfg.RateLimit.WriteWindow))
	}
	{
		// 导航
		v1.GET("/navigation", navHandler.Navigation)
		v1.GET("/menu/by-role", middleware.RoleQueryGuard(resolver, "role", "roles.read"), navHandler.ByRole)
		v1.GET("/menu/metadata", navHandler.Metadata)

		// 菜单项
		v1.GET("/menu-items", menuHandler.ListItems)
		v1.POST("/menu-items", menuHandler.CreateItem)
		v1.PUT("/menu-items/reorder", menuHandler.Reorder)
		v1.PUT("/menu-items/:id", menuHandler.UpdateItem)
		v1.DELETE("/menu-items/:id", menuHandler.DeleteItem)

		// 分类
		v1.GET("/menu-categories", menuHandler.ListCategories)
		v1.POST("/menu-categories", menuHandler.CreateCategory)
		v1.PUT("/menu-categories/:id", menuHandler.UpdateCategory)

		// 供应商
		v1.GET("/vendors", menuHandler.ListVendors)
		v1.POST("/vendors", menuHandler.CreateVendor)
		v1.PUT("/vendors/:id", menuHandler.UpdateVendor)
		v1.DELETE("/vendors/:id", menuHandler.DeactivateVendor)

		// 菜单可见性与审计
		v1.GET("/menu/permissions", menuHandler.MenuPermissions)
		v1.POST("/menu/permissions", menuHandler.SetMenuPermission)
		v1.GET("/menu/audit-logs", auditHandler.ChangeLogs)
		v1.GET("/menu/audit-logs/export", auditHandler.ExportChangeLogs)

		// 权限目录：admin 可读，super_admin 可写
		catalogRead := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
		catalogWrite := middleware.RequireRoles(models.RoleSuperAdmin)
		permissions := v1.Group("/permissions")
		{
			permissions.GET("", catalogRead, permHandler.List)
			permissions.GET("/audit", catalogRead, auditHandler.PermissionAudit)
			permissions.GET("/:id", catalogRead, permHandler.Get)
			permissions.POST("", catalogWrite, permHandler.Create)
			permissions.PUT("/:id", catalogWrite, permHandler.Update)
			permissions.DELETE("/:id", catalogWrite, permHandler.Delete)
		}

		// 角色授权与用户覆盖
		v1.GET("/roles/:id/permissions", roleHandler.GetRolePermissions)
		v1.POST("/roles/:id/permissions", roleHandler.Grant)
		v1.DELETE("/roles/:id/permissions", roleHandler.Remove)
		v1.POST("/users/:id/permissions", roleHandler.SetUserOverride)
		v1.DELETE("/users/:id/permissions/:permissionId", roleHandler.RemoveUserOverride)
		v1.GET("/users/:id/permissions/effective", roleHandler.EffectivePermissions)

		// 部门
		departments := v1.Group("/departments")
		{
			departments.GET("", deptHandler.List)
			departments.GET("/tree", deptHandler.Tree)
			departments.GET("/:id", deptHandler.Get)
			departments.POST("", deptHandler.Create)
			departments.PUT("/:id", deptHandler.Update)
			departments.DELETE("/:id", deptHandler.Delete)
		}
	}

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Accept-Language, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After, Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
