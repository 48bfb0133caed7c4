package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	appinvoicing "github.com/erp/invoicing/internal/application/invoicing"
	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/infrastructure/auth"
	"github.com/erp/invoicing/internal/infrastructure/cache"
	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/erp/invoicing/internal/infrastructure/event"
	"github.com/erp/invoicing/internal/infrastructure/i18n"
	"github.com/erp/invoicing/internal/infrastructure/logger"
	"github.com/erp/invoicing/internal/infrastructure/migration"
	"github.com/erp/invoicing/internal/infrastructure/persistence"
	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/erp/invoicing/internal/interfaces/http/handler"
	"github.com/erp/invoicing/internal/interfaces/http/middleware"
	"github.com/erp/invoicing/internal/interfaces/http/router"
	"github.com/erp/invoicing/migrations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "1.0.0"

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

	log.Info("Starting invoicing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
	if level, err := logger.ParseLevel(cfg.Log.Level); err == nil {
		log = loggerProvider.Bridge(log, cfg.Telemetry.ServiceName, level)
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Telemetry.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}
	metrics, err := telemetry.NewInvoicingMetrics(meterProvider.Meter(telemetry.TracerName))
	if err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.SQLLevel))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := db.EnableTracing(cfg.Database.DBName); err != nil {
			log.Fatal("Failed to enable database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get sql.DB", zap.Error(err))
	}
	poolMetrics, err := telemetry.RegisterPoolMetrics(meterProvider.Meter(telemetry.TracerName), sqlDB.Stats)
	if err != nil {
		log.Fatal("Failed to register pool metrics", zap.Error(err))
	}
	defer func() {
		_ = poolMetrics.Unregister()
	}()

	if cfg.Migration.AutoMigrate {
		if err := runMigrations(cfg.Database.DSN(), log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Shared backends
	backends := cache.NewBackendFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	)
	defer func() {
		if err := backends.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()

	counters, err := backends.CreateCounterStore(ctx, cfg.Numbering.Backend, persistence.NewGormSequenceStore(db.DB))
	if err != nil {
		log.Fatal("Failed to create sequence store", zap.Error(err))
	}
	locker, err := backends.CreateDocumentLocker(ctx, cfg.Reconciliation)
	if err != nil {
		log.Fatal("Failed to create document locker", zap.Error(err))
	}

	// Repositories
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	ledger := persistence.NewGormTransactionLedger(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Events
	serializer := event.NewInvoicingSerializer()
	paymentEvents := event.NewPaymentEventPublisher(outboxRepo, serializer, cfg.Event.MaxRetries)
	dispatcher := event.NewDispatcher(log)
	documentRepo.SetOutboxEventSaver(paymentEvents)

	// Application services
	numbering := invoicing.NewNumberingService(
		invoicing.NewSequenceAllocator(counters, cfg.Numbering.SequenceWidth),
		cfg.Numbering.DateLayout,
	)
	documentService := appinvoicing.NewDocumentService(documentRepo, numbering, log,
		appinvoicing.WithDocumentMetrics(metrics),
		appinvoicing.WithGracePeriod(cfg.Presentation.GracePeriod),
	)
	reconciliationService := appinvoicing.NewReconciliationService(documentRepo, ledger, log,
		appinvoicing.WithLocker(locker),
		appinvoicing.WithReconciliationMetrics(metrics),
		appinvoicing.WithMaxConflictRetries(cfg.Reconciliation.MaxConflictRetries),
	)

	paymentChanged := appinvoicing.NewPaymentChangedHandler(reconciliationService, log)
	dispatcher.Subscribe(paymentChanged, paymentChanged.EventTypes()...)

	var processor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		processor = event.NewOutboxProcessor(outboxRepo, dispatcher, serializer,
			event.ProcessorConfigFrom(cfg.Event), log,
			event.WithProcessorMetrics(metrics),
		)
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	}

	translator, err := i18n.NewTranslator(cfg.Presentation.DefaultLanguage)
	if err != nil {
		log.Fatal("Failed to build label catalog", zap.Error(err))
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	engine.Use(
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		}),
		middleware.SpanEnricher(),
	)

	healthHandler := handler.NewHealthHandler(sqlDB, cfg.App.Name, version)
	engine.GET("/health", healthHandler.Health)

	invoicingRoutes := router.InvoicingRoutes(
		handler.NewDocumentHandler(documentService, translator),
		handler.NewPaymentEventHandler(paymentEvents, reconciliationService),
	)
	if cfg.Auth.Enabled {
		invoicingRoutes.Use(middleware.JWTAuth(auth.NewTokenService(cfg.Auth)))
	} else {
		log.Warn("API authentication disabled")
	}

	router.NewRouter(engine).
		Register(invoicingRoutes).
		Register(router.SystemRoutes(healthHandler)).
		Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if processor != nil {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited")
}

// runMigrations applies the embedded migrations before serving traffic
func runMigrations(dsn string, log *zap.Logger) error {
	db, err := migration.Open(dsn)
	if err != nil {
		return err
	}
	m, err := migration.NewFromFS(db, migrations.FS, log)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()
	return m.Up()
}
