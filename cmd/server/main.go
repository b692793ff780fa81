package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	payinapp "github.com/payin/backend/internal/application/payin"
	"github.com/payin/backend/internal/application/reconciliation"
	"github.com/payin/backend/internal/infrastructure/config"
	"github.com/payin/backend/internal/infrastructure/event"
	"github.com/payin/backend/internal/infrastructure/locking"
	"github.com/payin/backend/internal/infrastructure/logger"
	"github.com/payin/backend/internal/infrastructure/notification"
	"github.com/payin/backend/internal/infrastructure/persistence"
	"github.com/payin/backend/internal/infrastructure/scheduler"
	"github.com/payin/backend/internal/interfaces/http/handler"
	"github.com/payin/backend/internal/interfaces/http/middleware"
	"github.com/payin/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting PayIn Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Redis backs the settlement locks and the live transaction feed
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	log.Info("Redis connected successfully")

	// Initialize repositories
	payInRepo := persistence.NewGormPayInRepository(db.DB)
	bankResponseRepo := persistence.NewGormBankResponseRepository(db.DB)
	merchantRepo := persistence.NewGormMerchantRepository(db.DB)
	bankAccountRepo := persistence.NewGormBankAccountRepository(db.DB)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	merchantNotifier := notification.NewMerchantNotifier(cfg.Notification, payInRepo, merchantRepo, log)
	eventBus.Subscribe(merchantNotifier)

	liveFeed := notification.NewLiveFeed(rdb, cfg.Notification.FeedChannel, log)
	eventBus.Subscribe(liveFeed)

	log.Info("Event handlers registered",
		zap.Strings("merchant_notifier_events", merchantNotifier.EventTypes()),
		zap.Strings("live_feed_events", liveFeed.EventTypes()),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Initialize application services
	txScope := persistence.NewGormTransactionScope(db.DB)
	locker := locking.NewRedisLocker(rdb, log)

	settlementService := reconciliation.NewSettlementService(txScope, locker, eventBus, log).
		WithLockTTL(cfg.Settlement.LockTTL)
	ingestionService := reconciliation.NewIngestionService(txScope, settlementService, eventBus, log)
	correctionService := reconciliation.NewCorrectionService(txScope, locker, eventBus, log)
	disputeService := reconciliation.NewDisputeService(txScope, eventBus, log)
	sweepService := reconciliation.NewSweepService(txScope, eventBus, log).
		WithBatchSize(cfg.Sweep.BatchSize)

	payinService := payinapp.NewPayInService(payinapp.PayInServiceConfig{
		PayInRepo:        payInRepo,
		BankResponseRepo: bankResponseRepo,
		MerchantRepo:     merchantRepo,
		BankAccountRepo:  bankAccountRepo,
		Settlement:       settlementService,
		EventPublisher:   eventBus,
		Logger:           log,
	})

	// Start the stale-request sweeper
	sweepRunner := scheduler.NewSweepRunner(cfg.Sweep, sweepService, log)
	if err := sweepRunner.Start(context.Background()); err != nil {
		log.Fatal("Failed to start sweep runner", zap.Error(err))
	}
	defer func() {
		if err := sweepRunner.Stop(context.Background()); err != nil {
			log.Error("Error stopping sweep runner", zap.Error(err))
		}
	}()
	if cfg.Sweep.Enabled {
		log.Info("Sweep runner started",
			zap.Duration("check_interval", cfg.Sweep.CheckInterval),
			zap.Int("batch_size", cfg.Sweep.BatchSize),
		)
	}

	// Initialize HTTP handlers
	payinHandler := handler.NewPayInHandler(payinService)
	reconciliationHandler := handler.NewReconciliationHandler(ingestionService, settlementService)
	correctionHandler := handler.NewCorrectionHandler(correctionService, disputeService)
	systemHandler := handler.NewSystemHandler(sweepRunner)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Register custom binding validations (utr tag, JSON field names)
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. CompanyContext - Lift tenant/operator headers into the request context
	// 3. Recovery - Catch panics
	// 4. Logger - Log requests
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Per-company request budget (when configured)
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CompanyContext())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Per-company rate limiting, disabled unless configured
	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, rdb))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(payinHandler).
		Register(reconciliationHandler).
		Register(correctionHandler).
		Register(systemHandler)
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, rdb redis.UniversalClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		status := http.StatusOK
		dbStatus := "ok"
		redisStatus := "ok"

		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			status = http.StatusServiceUnavailable
			dbStatus = "error"
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			reqLog.Warn("Redis health check failed", zap.Error(err))
			status = http.StatusServiceUnavailable
			redisStatus = "error"
		}

		healthy := "healthy"
		if status != http.StatusOK {
			healthy = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":   healthy,
			"time":     time.Now().Format(time.RFC3339),
			"database": dbStatus,
			"redis":    redisStatus,
		})
	}
}
