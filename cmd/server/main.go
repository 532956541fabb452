package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	paymentsapp "github.com/payments/backend/internal/application/payments"
	"github.com/payments/backend/internal/domain/payments"
	"github.com/payments/backend/internal/infrastructure/auth"
	"github.com/payments/backend/internal/infrastructure/billing"
	"github.com/payments/backend/internal/infrastructure/cache"
	"github.com/payments/backend/internal/infrastructure/config"
	"github.com/payments/backend/internal/infrastructure/logger"
	"github.com/payments/backend/internal/infrastructure/persistence"
	"github.com/payments/backend/internal/infrastructure/telemetry"
	"github.com/payments/backend/internal/interfaces/http/handler"
	"github.com/payments/backend/internal/interfaces/http/middleware"
	"github.com/payments/backend/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting payments API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, cfg.Telemetry.ServiceName)

	profiler, err := telemetry.NewProfiler(cfg.Telemetry.Profiling, cfg.Telemetry.ServiceName, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Telemetry.Profiling.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	paymentsMetrics, err := telemetry.NewPaymentsMetrics(meterProvider.Meter("payments"))
	if err != nil {
		log.Fatal("Failed to create payments metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.NewDBTracing(cfg.Telemetry, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	sqlDB, err := db.Pool()
	if err != nil {
		log.Fatal("Failed to access connection pool", zap.Error(err))
	}
	if _, err := telemetry.RegisterDBPoolMetrics(meterProvider.Meter("db"), sqlDB); err != nil {
		log.Fatal("Failed to register pool metrics", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Processor and idempotency store
	stripeAPI, err := billing.NewStripeClient(&cfg.Stripe, log)
	if err != nil {
		log.Fatal("Failed to configure Stripe client", zap.Error(err))
	}
	gateway := billing.NewStripeAdapter(stripeAPI, log)

	idempotency, err := cache.NewIdempotencyStore(ctx, cfg.Redis, cfg.IsProduction(), log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	if closer, ok := idempotency.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	// Repositories
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	chargeRepo := persistence.NewGormChargeRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	eventRepo := persistence.NewGormEventRepository(db.DB)

	// Application services
	catalog := newPlanCatalog(cfg.Plans)
	accounts := paymentsapp.NewAccountService(customerRepo, gateway, log)
	syncService := paymentsapp.NewSyncService(paymentsapp.SyncServiceConfig{
		Customers:     customerRepo,
		Subscriptions: subscriptionRepo,
		Invoices:      invoiceRepo,
		Charges:       chargeRepo,
		Gateway:       gateway,
		Catalog:       catalog,
		Logger:        log,
	})
	subscriptions := paymentsapp.NewSubscriptionService(paymentsapp.SubscriptionServiceConfig{
		Accounts:      accounts,
		Sync:          syncService,
		Subscriptions: subscriptionRepo,
		Gateway:       gateway,
		Catalog:       catalog,
		Logger:        log,
	})
	cards := paymentsapp.NewCardService(accounts, syncService, customerRepo, gateway, log)
	history := paymentsapp.NewHistoryService(accounts, chargeRepo, invoiceRepo, eventRepo)
	webhooks := paymentsapp.NewWebhookService(paymentsapp.WebhookServiceConfig{
		Events:      eventRepo,
		Gateway:     gateway,
		Processor:   paymentsapp.NewEventProcessor(customerRepo, eventRepo, syncService, log),
		Idempotency: idempotency,
		ClaimTTL:    cfg.Webhook.IdempotencyTTL,
		Metrics:     paymentsMetrics,
		Logger:      log,
	})

	paymentsHandler := handler.NewPaymentsHandler(handler.PaymentsHandlerConfig{
		Accounts:        accounts,
		Subscriptions:   subscriptions,
		Cards:           cards,
		History:         history,
		Webhooks:        webhooks,
		Catalog:         catalog,
		ProcessorErrors: paymentsMetrics,
	})

	engine := newEngine(cfg, log, meterProvider, auth.NewJWTService(cfg.JWT))
	webhookLimiter := middleware.NewRateLimiter(cfg.Webhook.RateLimit, cfg.Webhook.RateBurst)
	router.NewRouter(engine).
		Register(router.NewPaymentsGroup(paymentsHandler,
			middleware.BodyLimit(cfg.Webhook.MaxBodySize),
			middleware.RateLimit(webhookLimiter),
		)).
		Setup()
	engine.GET("/health/ready", readinessHandler(db))

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Profiler stop failed", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Logger provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newEngine builds the gin engine with the global middleware chain
func newEngine(cfg *config.Config, log *zap.Logger, meters *telemetry.MeterProvider, jwtService *auth.JWTService) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanEnricher(),
		middleware.ProfilingLabels(cfg.Telemetry.Profiling.Enabled),
		middleware.HTTPMetrics(meters.Meter("http")),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.JWTAuthMiddlewareWithConfig(jwtConfig),
	)
	return engine
}

// newPlanCatalog converts the [plans] config section into the domain catalog
func newPlanCatalog(plans map[string]config.PlanConfig) *payments.PlanCatalog {
	out := make([]payments.Plan, 0, len(plans))
	for key, p := range plans {
		out = append(out, payments.Plan{
			Key:             key,
			StripePlanID:    p.StripePlanID,
			Name:            p.Name,
			Description:     p.Description,
			Price:           decimal.NewFromFloat(p.Price).Round(2),
			Currency:        p.Currency,
			Interval:        p.Interval,
			TrialPeriodDays: p.TrialDays,
		})
	}
	return payments.NewPlanCatalog(out)
}

// readinessHandler reports whether the database answers pings
func readinessHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.GetGinLogger(c).Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
