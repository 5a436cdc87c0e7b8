package router

import (
	"context"
	"strings"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/cache"
	"github.com/replika-labs/wms-01-sub000/internal/config"
	"github.com/replika-labs/wms-01-sub000/internal/handler"
	"github.com/replika-labs/wms-01-sub000/internal/infra"
	"github.com/replika-labs/wms-01-sub000/internal/middleware"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"
	"github.com/replika-labs/wms-01-sub000/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the process-wide resources the router wires into services.
// Redis, Cache and Alerts may be nil.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Cache   cache.Cache
	Storage infra.Storage
	Alerts  service.StockAlertEnqueuer
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis.
// Rate limiter tables are purged until ctx is cancelled.
func New(ctx context.Context, d Deps) (*gin.Engine, error) {
	cfg := d.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	apiLimiter := middleware.NewRateLimiter("api", cfg.RateLimitPerMinute, time.Minute, "too many requests")
	loginLimiter := middleware.NewLoginRateLimiter()
	go apiLimiter.RunPurger(ctx, 5*time.Minute)
	go loginLimiter.RunPurger(ctx, 5*time.Minute)

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics())
	r.Use(middleware.ErrorHandler())
	r.Use(apiLimiter.Handler())

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(d.DB)
	materialRepo := repository.NewMaterialRepository(d.DB)
	productRepo := repository.NewProductRepository(d.DB)
	stockRepo := repository.NewStockRepository(d.DB)
	contactRepo := repository.NewContactRepository(d.DB)
	orderRepo := repository.NewOrderRepository(d.DB)
	catalogRepo := repository.NewCatalogRepository(d.DB)
	dashboardRepo, err := repository.NewDashboardRepository(d.DB)
	if err != nil {
		return nil, err
	}

	// ── Services ─────────────────────────────────────────────────────────────
	caches := service.NewCaches(d.Cache, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	maxUpload := int64(cfg.MaxUploadMB) << 20

	authSvc := service.NewAuthService(userRepo, cfg)
	ledgerSvc := service.NewLedgerService(stockRepo, userRepo, caches, d.Alerts)
	materialSvc := service.NewMaterialService(materialRepo, caches)
	productSvc := service.NewProductService(productRepo, materialRepo, d.Storage, caches, maxUpload)
	contactSvc := service.NewContactService(contactRepo, caches)
	orderSvc := service.NewOrderService(orderRepo, productRepo, contactRepo, caches)
	catalogSvc := service.NewCatalogService(catalogRepo, caches)
	dashboardSvc := service.NewDashboardService(dashboardRepo, caches)
	reportSvc := service.NewReportService(materialRepo, stockRepo, ledgerSvc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	stockH := handler.NewStockHandler(ledgerSvc)
	materialsH := handler.NewMaterialsHandler(materialSvc)
	productsH := handler.NewProductsHandler(productSvc)
	contactsH := handler.NewContactsHandler(contactSvc)
	ordersH := handler.NewOrdersHandler(orderSvc)
	catalogH := handler.NewCatalogHandler(catalogSvc)
	dashboardH := handler.NewDashboardHandler(dashboardSvc)
	reportsH := handler.NewReportsHandler(reportSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis))
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if local, ok := d.Storage.(*infra.LocalStorage); ok && strings.HasPrefix(cfg.UploadBaseURL, "/") {
		r.Static(strings.TrimRight(cfg.UploadBaseURL, "/"), local.Dir())
	}

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", loginLimiter.Handler(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	api := r.Group("/api", middleware.JWTAuth(cfg.JWTSecret))

	admin := middleware.RequireRole(model.RoleAdmin)
	managers := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	floor := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff)

	api.GET("/auth/me", authH.Me)

	users := api.Group("/users", admin)
	{
		users.POST("", usersH.Create)
		users.GET("", usersH.List)
		users.PUT("/:id", usersH.Update)
		users.DELETE("/:id", usersH.Deactivate)
		users.PATCH("/:id/reactivate", usersH.Reactivate)
	}

	mats := api.Group("/materials-management")
	{
		mats.GET("", materialsH.List)
		mats.GET("/critical-stock", stockH.CriticalStock)
		mats.GET("/:id", materialsH.Get)
		mats.POST("", managers, materialsH.Create)
		mats.PUT("/:id", managers, materialsH.Update)
		mats.DELETE("/:id", managers, materialsH.Delete)

		mats.POST("/:id/adjust", floor, stockH.AdjustMaterial)
		mats.PUT("/:id/stock", managers, stockH.SetMaterialStock)
		mats.GET("/:id/movements", stockH.MaterialMovements)

		mats.GET("/:id/remaining", materialsH.ListRemaining)
		mats.POST("/:id/remaining", managers, materialsH.CreateRemaining)
	}
	api.DELETE("/remaining-materials/:id", managers, materialsH.DeleteRemaining)

	prods := api.Group("/products")
	{
		prods.GET("", productsH.List)
		prods.GET("/:id", productsH.Get)
		prods.POST("", managers, productsH.Create)
		prods.PUT("/:id", managers, productsH.Update)
		prods.DELETE("/:id", managers, productsH.Delete)

		prods.POST("/:id/stock/adjust", floor, stockH.AdjustProduct)
		prods.PUT("/:id/stock/set", managers, stockH.SetProductStock)
		prods.GET("/:id/movements", stockH.ProductMovements)

		prods.POST("/:id/photos", managers, productsH.AddPhoto)
		prods.PUT("/:id/photos/order", managers, productsH.ReorderPhotos)
		prods.DELETE("/:id/photos/:photoId", managers, productsH.DeletePhoto)

		prods.GET("/:id/materials", productsH.ListMaterials)
		prods.PUT("/:id/materials", managers, productsH.SetMaterials)
	}

	contacts := api.Group("/contacts")
	{
		contacts.GET("", contactsH.List)
		contacts.GET("/:id", contactsH.Get)
		contacts.POST("", managers, contactsH.Create)
		contacts.PUT("/:id", managers, contactsH.Update)
		contacts.DELETE("/:id", managers, contactsH.Delete)

		contacts.GET("/:id/notes", contactsH.ListNotes)
		contacts.POST("/:id/notes", managers, contactsH.AddNote)
		contacts.DELETE("/:id/notes/:noteId", managers, contactsH.DeleteNote)
	}

	orders := api.Group("/orders")
	{
		orders.GET("", ordersH.List)
		orders.GET("/:id", ordersH.Get)
		orders.POST("", managers, ordersH.Create)
		orders.PUT("/:id", managers, ordersH.Update)
		orders.PATCH("/:id/status", managers, ordersH.UpdateStatus)
		orders.DELETE("/:id", managers, ordersH.Delete)

		// Floor staff report their own progress.
		orders.GET("/:id/progress-reports", ordersH.ListProgress)
		orders.POST("/:id/progress-reports", floor, ordersH.AddProgress)
	}

	// Catalog attributes: everyone reads, admins write.
	api.GET("/colors", catalogH.ListColors)
	api.POST("/colors", admin, catalogH.CreateColor)
	api.DELETE("/colors/:id", admin, catalogH.DeactivateColor)
	api.GET("/variations", catalogH.ListVariations)
	api.POST("/variations", admin, catalogH.CreateVariation)
	api.DELETE("/variations/:id", admin, catalogH.DeactivateVariation)

	dash := api.Group("/dashboard")
	{
		dash.GET("/summary", dashboardH.Summary)
		dash.GET("/recent-movements", dashboardH.RecentMovements)
		dash.GET("/top-consumed", dashboardH.TopConsumed)
	}

	reports := api.Group("/reports")
	{
		reports.GET("/materials.xlsx", reportsH.MaterialsXLSX)
		reports.GET("/movements.xlsx", reportsH.MovementsXLSX)
		reports.GET("/critical-stock.pdf", reportsH.CriticalStockPDF)
		reports.POST("/stock-count", managers, reportsH.ImportStockCount)
	}

	// Swagger UI outside production only
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r, nil
}
