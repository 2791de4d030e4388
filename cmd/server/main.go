package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cartapp "github.com/biblioteca/backend/internal/application/cart"
	catalogapp "github.com/biblioteca/backend/internal/application/catalog"
	checkoutapp "github.com/biblioteca/backend/internal/application/checkout"
	documentapp "github.com/biblioteca/backend/internal/application/document"
	inventoryapp "github.com/biblioteca/backend/internal/application/inventory"
	loanapp "github.com/biblioteca/backend/internal/application/loan"
	reconapp "github.com/biblioteca/backend/internal/application/reconciliation"
	salesapp "github.com/biblioteca/backend/internal/application/sales"
	"github.com/biblioteca/backend/internal/domain/loan"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/biblioteca/backend/internal/infrastructure/audit"
	"github.com/biblioteca/backend/internal/infrastructure/auth"
	"github.com/biblioteca/backend/internal/infrastructure/cache"
	"github.com/biblioteca/backend/internal/infrastructure/config"
	"github.com/biblioteca/backend/internal/infrastructure/event"
	"github.com/biblioteca/backend/internal/infrastructure/logger"
	"github.com/biblioteca/backend/internal/infrastructure/payment"
	"github.com/biblioteca/backend/internal/infrastructure/persistence"
	"github.com/biblioteca/backend/internal/infrastructure/printing"
	"github.com/biblioteca/backend/internal/infrastructure/scheduler"
	"github.com/biblioteca/backend/internal/infrastructure/storage"
	"github.com/biblioteca/backend/internal/infrastructure/telemetry"
	"github.com/biblioteca/backend/internal/interfaces/http/handler"
	"github.com/biblioteca/backend/internal/interfaces/http/middleware"
	"github.com/biblioteca/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/biblioteca/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Biblioteca Backend API
//	@version		1.0
//	@description	Bookstore and lending desk: cart, Stripe checkout, sale ledger, loans and fines.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// The OTLP log bridge must exist before the service logger so every
	// entry is teed to the collector
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}

	log, err := logger.New(logCfg, loggerProvider.Core(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Biblioteca Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdownTelemetry(log, tracerProvider, meterProvider, loggerProvider)

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		if err := telemetry.NewDBTracingPlugin(dbTracing, log).RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Database tracing disabled", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	// Redis backs webhook/document de-duplication and the token revocation list
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	var (
		tokenBlacklist auth.TokenBlacklist
		redisClient    *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = redisClient.Close() }()
		tokenBlacklist = auth.NewRedisTokenBlacklist(redisClient, "")
	}

	// Repositories
	bookRepo := persistence.NewGormBookRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	loanRepo := persistence.NewGormLoanRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	auditor := audit.NewZapRecorder(log)

	// Event bus. Dispatch is asynchronous so document rendering never holds
	// up a webhook response.
	eventBus := event.NewInMemoryEventBus(log, event.WithAsyncDispatch())
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Payment provider
	stripeGateway, err := payment.NewStripeGateway(&payment.StripeConfig{
		SecretKey:              cfg.Stripe.SecretKey,
		WebhookSecret:          cfg.Stripe.WebhookSecret,
		IsTestMode:             cfg.Stripe.IsTestMode,
		SuccessURL:             cfg.Stripe.SuccessURL,
		CancelURL:              cfg.Stripe.CancelURL,
		SessionTTL:             cfg.Stripe.SessionTTL,
		BoletoExpiresAfterDays: cfg.Stripe.BoletoExpiresAfterDays,
	}, log)
	if err != nil {
		log.Fatal("Failed to configure Stripe", zap.Error(err))
	}

	// Documents
	documentStore, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to open document storage", zap.Error(err))
	}
	renderer, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{
		DefaultTimeout: cfg.Document.RenderTimeout,
		RemoteURL:      cfg.Document.RemoteChromeURL,
		NoSandbox:      true,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
	}
	defer func() { _ = renderer.Close() }()
	generator := printing.NewSaleDocumentGenerator(renderer, printing.GeneratorConfig{
		Issuer: printing.Issuer{
			Name:    cfg.Document.IssuerName,
			TaxID:   cfg.Document.IssuerTaxID,
			Address: cfg.Document.IssuerAddress,
		},
		LoanPeriodDays: cfg.Library.LoanPeriodDays,
		RenderTimeout:  cfg.Document.RenderTimeout,
		Engine:         printing.NewTemplateEngine(printing.WithLocale(printing.ParseLocale(cfg.Document.Locale))),
		Logger:         log,
	})

	// Application services
	currency := valueobject.Currency(cfg.Library.Currency)
	penaltyRate, err := cfg.Library.PenaltyRateDecimal()
	if err != nil {
		log.Fatal("Invalid library.penalty_rate", zap.Error(err))
	}

	bookService := catalogapp.NewBookService(bookRepo, log)
	cartService := cartapp.NewCartService(cartapp.CartServiceConfig{
		CartRepo: cartRepo,
		BookRepo: bookRepo,
		Auditor:  auditor,
		Logger:   log,
	})

	brokerConfig := checkoutapp.DefaultBrokerConfig()
	brokerConfig.Currency = currency
	broker := checkoutapp.NewBroker(checkoutapp.BrokerDeps{
		CartRepo:  cartRepo,
		SaleRepo:  saleRepo,
		Provider:  stripeGateway,
		Publisher: eventBus,
		Auditor:   auditor,
		Logger:    log,
	}, brokerConfig)

	reconciler := reconapp.NewService(reconapp.ServiceDeps{
		Scope:       txScope,
		Provider:    stripeGateway,
		Idempotency: idempotencyStore,
		Publisher:   eventBus,
		Auditor:     auditor,
		Config:      shared.DefaultIdempotencyConfig(),
		Logger:      log,
	})
	expiration := reconapp.NewExpirationService(saleRepo, reconciler, reconapp.ExpirationConfig{
		TTL:       cfg.Library.SaleTTL,
		BatchSize: cfg.Scheduler.ExpirationBatch,
	}, log)

	saleQueries := salesapp.NewQueryService(saleRepo, cfg.Library.LoanPeriodDays, log)

	documentService := documentapp.NewService(documentapp.ServiceDeps{
		SaleRepo:    saleRepo,
		Generator:   generator,
		Store:       documentStore,
		Idempotency: idempotencyStore,
		Logger:      log,
	})

	loanService := loanapp.NewLoanService(loanapp.LoanServiceConfig{
		Scope:    txScope,
		LoanRepo: loanRepo,
		Policy: loan.Policy{
			MaxActiveLoans:  cfg.Library.MaxActiveLoans,
			GracePeriodDays: cfg.Library.LoanPeriodDays,
			RentalFraction:  valueobject.RentalFraction,
			PenaltyRate:     penaltyRate,
		},
		Auditor: auditor,
		Logger:  log,
	})

	businessMetrics, err := telemetry.NewBusinessMetrics(meterProvider.Meter("biblioteca"), log)
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}
	lowStockMonitor := inventoryapp.NewLowStockMonitor(bookRepo, eventBus, cfg.Library.LowStockThreshold, log).
		WithGauge(businessMetrics)

	// Event handlers
	salePaidHandler := event.NewIdempotentHandler("documents",
		documentapp.NewSalePaidHandler(saleRepo, documentService, log),
		idempotencyStore, log,
		event.WithKeyFunc(event.ByAggregate),
	)
	lowStockHandler := inventoryapp.NewLowStockHandler(log).
		WithNotifier(inventoryapp.NewLoggingStockAlertNotifier(log))
	eventBus.Subscribe(salePaidHandler)
	eventBus.Subscribe(lowStockHandler)
	eventBus.Subscribe(businessMetrics)
	log.Info("Event handlers registered",
		zap.Strings("sale_paid_events", salePaidHandler.EventTypes()),
		zap.Strings("low_stock_events", lowStockHandler.EventTypes()),
		zap.Strings("metrics_events", businessMetrics.EventTypes()),
	)

	// Background jobs
	if cfg.Scheduler.Enabled {
		jobs := scheduler.NewScheduler(scheduler.SchedulerConfig{
			Enabled:    true,
			JobTimeout: cfg.Scheduler.JobTimeout,
		}, log)
		for _, job := range []scheduler.Job{
			scheduler.NewExpirationJob(expiration, cfg.Scheduler.ExpirationInterval, log),
			scheduler.NewLowStockJob(lowStockMonitor, cfg.Scheduler.LowStockInterval, log),
		} {
			if err := jobs.Register(job); err != nil {
				log.Fatal("Failed to register job", zap.Error(err))
			}
		}
		if err := jobs.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			if err := jobs.Stop(context.Background()); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()
		log.Info("Scheduler started",
			zap.Duration("expiration_interval", cfg.Scheduler.ExpirationInterval),
			zap.Duration("low_stock_interval", cfg.Scheduler.LowStockInterval),
		)
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order: request logger (assigns the request id), panic
	// recovery, tracing, metrics, security headers, CORS, body limit
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	jwtService := auth.NewJWTService(cfg.JWT)
	authMiddleware := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		Logger:         log,
	})

	var checkoutLimit gin.HandlerFunc
	if cfg.HTTP.CheckoutRateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.CheckoutRateLimit, time.Minute)
		defer limiter.Stop()
		checkoutLimit = middleware.RateLimitByKey(limiter, middleware.CustomerKey)
	}

	docs := engine.Group("/swagger", middleware.DocsProtection(middleware.DocsConfig{
		Enabled:    cfg.HTTP.DocsEnabled,
		AllowedIPs: cfg.HTTP.DocsAllowedIPs,
	}, authMiddleware))
	docs.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterAPI(r, router.Handlers{
		Health:   handler.NewHealthHandler(version, healthChecks(db, redisClient)),
		Books:    handler.NewBookHandler(bookService),
		Cart:     handler.NewCartHandler(cartService),
		Checkout: handler.NewCheckoutHandler(broker),
		Payments: handler.NewPaymentHandler(reconciler, cfg.Stripe.ConfirmationURL),
		Sales:    handler.NewSalesHandler(saleQueries),
		Docs:     handler.NewDocumentHandler(documentService),
		Loans:    handler.NewLoanHandler(loanService),
	}, router.Guards{
		Auth:          authMiddleware,
		Staff:         middleware.RequireRole(auth.RoleStaff),
		CheckoutLimit: checkoutLimit,
	})
	r.Setup()

	public := 0
	for _, route := range r.Routes() {
		if route.Public {
			public++
		}
	}
	log.Info("Routes registered", zap.Int("total", len(r.Routes())), zap.Int("public", public))

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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthChecks builds the dependency probes behind GET /health. Only the
// database is critical; Redis is reported but the service degrades without it.
func healthChecks(db *persistence.Database, redisClient *redis.Client) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}

func shutdownTelemetry(log *zap.Logger, tp *telemetry.TracerProvider, mp *telemetry.MeterProvider, lp *telemetry.LoggerProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := tp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := mp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := lp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}
