package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	identityapp "github.com/wms/backend/internal/application/identity"
	inventoryapp "github.com/wms/backend/internal/application/inventory"
	rejectapp "github.com/wms/backend/internal/application/reject"
	stockapp "github.com/wms/backend/internal/application/stock"
	"github.com/wms/backend/internal/domain/uom"
	"github.com/wms/backend/internal/infrastructure/auth"
	"github.com/wms/backend/internal/infrastructure/cache"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/infrastructure/migration"
	"github.com/wms/backend/internal/infrastructure/persistence"
	"github.com/wms/backend/internal/infrastructure/storage"
	"github.com/wms/backend/internal/infrastructure/telemetry"
	"github.com/wms/backend/internal/interfaces/http/handler"
	"github.com/wms/backend/internal/interfaces/http/middleware"
	"github.com/wms/backend/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			WMS Backend API
//	@version		1.0
//	@description	Warehouse stock ledger with unit-of-measure conversion

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	migrateOnStart := flag.Bool("migrate", false, "Apply pending embedded migrations before serving")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting WMS Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = providers.BridgeLogger(log, cfg.Telemetry.ServiceName)

	gormLog := logger.NewGormLogger(log, logger.ParseGormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err != nil {
			log.Fatal("Failed to enable database tracing", zap.Error(err))
		}
	}
	unregisterPool, err := telemetry.RegisterDBPoolMetrics(db.DB, otel.GetMeterProvider())
	if err != nil {
		log.Fatal("Failed to register database pool metrics", zap.Error(err))
	}

	if *migrateOnStart {
		runMigrations(db, log)
	}

	// Repositories
	itemRepo := persistence.NewGormItemRepository(db.DB)
	txRepo := persistence.NewGormTransactionRepository(db.DB)
	rejectItemRepo := persistence.NewGormRejectItemRepository(db.DB)
	rejectLogRepo := persistence.NewGormRejectLogRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	inventoryResolver := uom.NewResolver(uom.Precision{Places: cfg.UOM.InventoryPrecision})
	rejectResolver := uom.NewResolver(uom.Precision{Places: cfg.UOM.RejectPrecision})

	// Services
	itemService := inventoryapp.NewItemService(itemRepo, scope, inventoryResolver, log)
	txService := stockapp.NewTransactionService(scope, txRepo, inventoryResolver, stockapp.Config{
		AllowNegative:   cfg.Stock.AllowNegative,
		IDRetryAttempts: cfg.Stock.IDRetryAttempts,
	}, log)
	rejectService := rejectapp.NewRejectService(rejectItemRepo, rejectLogRepo, rejectResolver, cfg.Stock.IDRetryAttempts, log)
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, log)

	stockMetrics, err := telemetry.NewStockMetrics(otel.GetMeterProvider())
	if err != nil {
		log.Fatal("Failed to create stock metrics", zap.Error(err))
	}
	txService.SetMovementRecorder(stockMetrics)
	itemService.SetStatsRecorder(stockMetrics)

	if cfg.Storage.Enabled {
		documents, err := storage.NewS3DocumentStore(ctx, cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to create document storage", zap.Error(err))
		}
		if err := documents.EnsureBucket(ctx); err != nil {
			log.Warn("Document bucket check failed, uploads may fail", zap.Error(err))
		}
		txService.SetDocumentStore(documents)
	}

	if seeded, err := authService.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		log.Fatal("Failed to seed admin user", zap.Error(err))
	} else if seeded {
		log.Info("Seeded admin user", zap.String("username", cfg.Admin.Username))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(otel.GetMeterProvider())
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	// Recovery wraps everything so panics in later middleware still get
	// the JSON envelope. RequestID runs before tracing and logging so both
	// can see the id.
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(httpMetrics)
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	healthHandler := handler.NewHealthHandler(db, version)
	healthHandler.RegisterRoutes(&engine.RouterGroup)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuth(jwtService, log), middleware.SpanAttributes())

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		r.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	var responseStore cache.ResponseStore
	if cfg.Idempotency.Enabled {
		responseStore = cache.NewResponseStore(ctx, cfg.Redis, log)
		r.Use(middleware.Idempotency(middleware.IdempotencyConfig{
			Store:  responseStore,
			TTL:    cfg.Idempotency.TTL,
			Logger: log,
		}))
	}

	r.RegisterPublic(handler.NewAuthHandler(authService)).
		RegisterPublic(healthHandler).
		Register(handler.NewItemHandler(itemService, cfg.HTTP.MaxUploadSize)).
		Register(handler.NewTransactionHandler(txService)).
		Register(handler.NewRejectHandler(rejectService))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if rateLimiter != nil {
		rateLimiter.Stop()
	}
	if responseStore != nil {
		if err := responseStore.Close(); err != nil {
			log.Warn("Error closing idempotency store", zap.Error(err))
		}
	}
	if err := unregisterPool(); err != nil {
		log.Warn("Error unregistering pool metrics", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown incomplete", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func runMigrations(db *persistence.Database, log *zap.Logger) {
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get sql.DB for migrations", zap.Error(err))
	}
	m, err := migration.NewEmbedded(sqlDB, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()
	if err := m.Up(); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}
}
