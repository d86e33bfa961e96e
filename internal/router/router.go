package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/sofiabaracatlj/fiap-farms/internal/config"
	"github.com/sofiabaracatlj/fiap-farms/internal/dashboard"
	"github.com/sofiabaracatlj/fiap-farms/internal/handler"
	"github.com/sofiabaracatlj/fiap-farms/internal/infra"
	"github.com/sofiabaracatlj/fiap-farms/internal/ledger"
	"github.com/sofiabaracatlj/fiap-farms/internal/middleware"
	"github.com/sofiabaracatlj/fiap-farms/internal/repository"
	"github.com/sofiabaracatlj/fiap-farms/internal/service"
	"github.com/sofiabaracatlj/fiap-farms/internal/session"
)

// Deps are the infrastructure pieces built by the composition root.
// Optional fields may be left nil.
type Deps struct {
	Store      repository.Store
	RDB        *redis.Client // optional
	Locker     infra.KeyLocker
	Events     infra.EventPublisher
	Images     service.ImageUploader // optional
	Dispatcher service.JobDispatcher

	Aggregator    *dashboard.Aggregator
	Poller        *dashboard.Poller       // optional
	SnapshotCache dashboard.SnapshotCache // optional

	Identity session.IdentityProvider
	Recovery *session.Recovery
	Verifier *middleware.TokenVerifier // optional; without it requests are anonymous

	Ledger *ledger.Store
}

// New wires services and handlers and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Store ← postgres | firestore | memory
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Locker == nil {
		d.Locker = infra.NewLocalLocker()
	}
	if d.Events == nil {
		d.Events = infra.NopPublisher{}
	}
	if d.Dispatcher == nil {
		d.Dispatcher = service.NopDispatcher{}
	}
	if d.Ledger == nil {
		d.Ledger = ledger.NewStore("0001", "FIAP Farms", decimal.Zero)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(otelgin.Middleware("fiap-farms"))
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins(), cfg.Env == "production"))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(600)) // per IP per minute

	// ── Services ─────────────────────────────────────────────────────────────
	productSvc := service.NewProductService(d.Store, d.Events, d.Images)
	inventorySvc := service.NewInventoryService(d.Store, d.Locker, d.Events, d.Dispatcher)
	saleSvc := service.NewSaleService(d.Store, d.Locker, d.Events, d.Dispatcher)
	goalSvc := service.NewGoalService(d.Store.Goals())
	reportSvc := service.NewReportService(d.Aggregator, d.Dispatcher, cfg.ReportStoragePath)
	sessionSvc := service.NewSessionService(d.Identity, d.Recovery)

	// ── Handlers ─────────────────────────────────────────────────────────────
	productsH := handler.NewProductsHandler(productSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	salesH := handler.NewSalesHandler(saleSvc)
	goalsH := handler.NewGoalsHandler(goalSvc)
	dashboardH := handler.NewDashboardHandler(d.Aggregator, d.Poller, d.SnapshotCache, reportSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)
	ledgerH := handler.NewLedgerHandler(d.Ledger)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.Store, cfg.StoreBackend, d.RDB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sess := r.Group("/v1/session")
	{
		sess.GET("", sessionH.Status)
		sess.POST("/login", middleware.LoginRateLimiter(), sessionH.Login)
		sess.POST("/anonymous", middleware.LoginRateLimiter(), sessionH.Anonymous)
		sess.POST("/logout", sessionH.Logout)
		sess.GET("/token", sessionH.Token)
	}

	v1 := r.Group("/v1")
	if d.Verifier != nil {
		v1.Use(middleware.FirebaseAuth(d.Verifier, cfg.AuthRequired))
	}
	{
		products := v1.Group("/products")
		products.GET("", productsH.List)
		products.GET("/top-profitable", productsH.TopProfitable)
		products.GET("/:id", productsH.Get)
		products.POST("", productsH.Create)
		products.PUT("/:id", productsH.Update)
		products.DELETE("/:id", productsH.Delete)
		products.POST("/:id/image", productsH.UploadImage)

		inv := v1.Group("/inventory")
		inv.GET("", inventoryH.List)
		inv.GET("/low-stock", inventoryH.LowStock)
		inv.GET("/:id/movements", inventoryH.Movements)
		inv.POST("/stock", inventoryH.AddStock)
		inv.POST("/:id/adjust", inventoryH.Adjust)
		inv.POST("/:id/remove", inventoryH.Remove)

		sales := v1.Group("/sales")
		sales.POST("", salesH.Create)
		sales.GET("", salesH.List)
		sales.GET("/export.xlsx", salesH.Export)
		sales.GET("/:id", salesH.Get)
		sales.PATCH("/:id/status", salesH.UpdateStatus)

		goals := v1.Group("/goals")
		goals.GET("", goalsH.List)
		goals.POST("", goalsH.Create)
		goals.GET("/summary", goalsH.Summary)
		goals.PATCH("/:id/progress", goalsH.UpdateProgress)
		goals.DELETE("/:id", goalsH.Delete)

		dash := v1.Group("/dashboard")
		dash.GET("", dashboardH.Get)
		dash.GET("/live", dashboardH.Live)
		dash.POST("/refresh", dashboardH.Refresh)
		dash.GET("/sales", salesH.RangeDashboard)
		dash.GET("/report.pdf", dashboardH.ReportPDF)
		dash.POST("/report/email", dashboardH.EmailReport)

		led := v1.Group("/ledger")
		led.GET("", ledgerH.Get)
		led.POST("/transactions", ledgerH.CreateTransaction)
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
