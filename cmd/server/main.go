package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	letterapp "github.com/Ayash13/tulip-sub000/internal/application/letter"
	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/cache"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/config"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/logger"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/persistence"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/printing"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/printing/layouts"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/storage"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/telemetry"
	"github.com/Ayash13/tulip-sub000/internal/interfaces/http/handler"
	"github.com/Ayash13/tulip-sub000/internal/interfaces/http/middleware"
	"github.com/Ayash13/tulip-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const spoolCleanupInterval = time.Hour

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
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting letter service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, logger.Component(log, "telemetry"))
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, logger.Component(log, "telemetry"))
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()
	metrics, err := telemetry.NewLetterMetrics(meterProvider.Meter(telemetry.TracerName))
	if err != nil {
		log.Fatal("Failed to register letter metrics", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log, persistence.WithTracing(telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	requestRepo := persistence.NewGormLetterRequestRepository(db.DB)
	templateRepo := persistence.NewGormLetterTemplateRepository(db.DB)

	stores := cache.NewStoreFactory(cfg.Redis, cfg.Asset,
		cache.WithLogger(logger.Component(log, "cache")),
		cache.WithInMemoryFallback(cfg.Letter.CounterBackend != "redis"),
	)
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()

	counters, err := newCounterStore(cfg, db, stores)
	if err != nil {
		log.Fatal("Failed to create letter counter store", zap.Error(err))
	}
	allocator := letter.NewAllocator(counters,
		letter.WithPrefix(cfg.Letter.InstitutionPrefix),
		letter.WithAllocatorLogger(logger.Component(log, "allocator")),
	)

	seedTemplates(ctx, templateRepo, log)

	var objects *storage.S3ObjectStorage
	if cfg.Storage.Enabled {
		objects, err = storage.NewS3ObjectStorage(&cfg.Storage,
			storage.WithLogger(logger.Component(log, "storage")),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
			storage.WithMaxObjectBytes(cfg.Asset.MaxBytes),
		)
		if err != nil {
			log.Fatal("Failed to create object storage", zap.Error(err))
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			log.Warn("Object storage bucket is not ready", zap.Error(err))
		}
	}

	assetCache, err := stores.CreateAssetCache()
	if err != nil {
		log.Fatal("Failed to create asset cache", zap.Error(err))
	}
	embedderOpts := []printing.AssetEmbedderOption{
		printing.WithAssetCache(assetCache),
		printing.WithEmbedderLogger(logger.Component(log, "embedder")),
		printing.WithEmbedderMetrics(metrics),
	}
	if cfg.Letter.TemplateDir != "" {
		embedderOpts = append(embedderOpts, printing.WithFetcher("file", printing.NewFileFetcher(cfg.Letter.TemplateDir)))
	}
	if objects != nil {
		embedderOpts = append(embedderOpts, printing.WithFetcher(storage.ObjectScheme, objects))
	}
	embedder := printing.NewAssetEmbedder(&printing.AssetEmbedderConfig{
		FetchTimeout: cfg.Asset.FetchTimeout,
		BaseURL:      cfg.Asset.BaseURL,
		Concurrency:  cfg.Asset.Concurrency,
		MaxBytes:     cfg.Asset.MaxBytes,
	}, embedderOpts...)

	layoutStore, err := printing.NewLayoutStore(&printing.LayoutStoreConfig{ExternalDir: cfg.Letter.TemplateDir})
	if err != nil {
		log.Fatal("Failed to load letter layouts", zap.Error(err))
	}
	engine := printing.NewTemplateEngine()
	assembler := printing.NewAssembler(engine, layoutStore, layouts.NewDefaultRegistry(engine, layoutStore), embedder,
		&printing.AssemblerConfig{
			Letterhead: printing.Letterhead{
				Logo:        cfg.Letter.LetterheadLogo,
				Institution: cfg.Letter.InstitutionName,
				Unit:        cfg.Letter.FacultyName,
				Address:     cfg.Letter.Address,
			},
			Footer: printing.Footer{
				Notice: cfg.Letter.FooterNotice,
				Marks:  cfg.Letter.FooterMarks,
			},
			Signatory: printing.Signatory{
				Name:  cfg.Letter.SignatoryName,
				NIP:   cfg.Letter.SignatoryNIP,
				Title: cfg.Letter.SignatoryTitle,
				City:  cfg.Letter.City,
			},
			SignatureRef: cfg.Letter.SignatureRef,
			Peeker:       allocator,
			Logger:       logger.Component(log, "assembler"),
		})

	serviceOpts := []letterapp.LetterServiceOption{
		letterapp.WithLogger(logger.Component(log, "letters")),
		letterapp.WithSubstitutor(printing.Substitutor{Strict: cfg.Letter.StrictFields}),
		letterapp.WithMetrics(metrics),
		letterapp.WithFixedYear(cfg.App.Year),
	}
	if objects != nil {
		serviceOpts = append(serviceOpts, letterapp.WithUploadSigner(objects))
	}
	letterService := letterapp.NewLetterService(requestRepo, templateRepo, allocator, assembler, serviceOpts...)
	if err := letterService.ReconcileCounters(ctx); err != nil {
		log.Fatal("Failed to reconcile letter counters", zap.Error(err))
	}

	spool, err := printing.NewFileSystemStorage(&printing.FileSystemStorageConfig{
		BasePath: cfg.Render.SpoolDir,
		BaseURL:  strings.TrimRight(cfg.Render.SpoolURL, "/"),
		Logger:   logger.Component(log, "spool"),
	})
	if err != nil {
		log.Fatal("Failed to create print spool", zap.Error(err))
	}
	go cleanSpool(ctx, spool, cfg.Render.SpoolRetention, log)

	newSurface, closeSurfaces, err := newSurfaceFactory(cfg, spool, log)
	if err != nil {
		log.Fatal("Failed to create print surface", zap.Error(err))
	}
	defer closeSurfaces()

	printService := letterapp.NewPrintService(letterService, newSurface, &letterapp.PrintServiceConfig{
		Renderer: printing.RendererConfig{
			SettleDelay:     cfg.Render.SettleDelay,
			ArtifactTimeout: cfg.Render.ArtifactTimeout,
			PrintTimeout:    cfg.Render.RenderTimeout,
			Checker:         newArtifactChecker(cfg, spool, objects),
			Metrics:         metrics,
		},
		Logger: logger.Component(log, "print"),
	})
	defer printService.CloseAll()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        newEngine(cfg, log, db, letterService, printService),
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

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

// newCounterStore picks the counter backend named by letter.counter_backend
func newCounterStore(cfg *config.Config, db *persistence.Database, stores *cache.StoreFactory) (letter.CounterStore, error) {
	if cfg.Letter.CounterBackend == "database" {
		return persistence.NewGormCounterStore(db.DB), nil
	}
	return stores.CreateCounterStore()
}

func seedTemplates(ctx context.Context, repo *persistence.GormLetterTemplateRepository, log *zap.Logger) {
	templates, err := printing.DefaultTemplates()
	if err != nil {
		log.Fatal("Failed to load default letter templates", zap.Error(err))
	}
	seeded, err := repo.SeedMissing(ctx, templates)
	if err != nil {
		log.Fatal("Failed to seed letter templates", zap.Error(err))
	}
	if seeded > 0 {
		log.Info("Seeded letter templates", zap.Int("count", seeded))
	}
}

// newSurfaceFactory returns the per-session surface constructor and a
// function releasing what it holds
func newSurfaceFactory(cfg *config.Config, spool *printing.FileSystemStorage, log *zap.Logger) (letterapp.SurfaceFactory, func(), error) {
	if cfg.Render.Surface != "chromedp" {
		return func(uuid.UUID) (printing.Surface, error) {
			return printing.NewSandboxSurface(), nil
		}, func() {}, nil
	}

	browser, err := printing.NewChromedpBrowser(&printing.ChromedpConfig{
		DefaultTimeout: cfg.Render.RenderTimeout,
		RemoteURL:      cfg.Render.ChromeRemoteURL,
		NoSandbox:      cfg.Render.NoSandbox,
		Logger:         logger.Component(log, "chromedp"),
	}, spool)
	if err != nil {
		return nil, nil, err
	}
	closeBrowser := func() {
		if err := browser.Close(); err != nil {
			log.Error("Error closing browser", zap.Error(err))
		}
	}
	return func(id uuid.UUID) (printing.Surface, error) {
		return browser.NewSurface(id), nil
	}, closeBrowser, nil
}

// newArtifactChecker routes artifact references to the spool, object
// storage or a HEAD request by scheme
func newArtifactChecker(cfg *config.Config, spool *printing.FileSystemStorage, objects *storage.S3ObjectStorage) printing.ArtifactChecker {
	spoolPrefix := strings.TrimRight(cfg.Render.SpoolURL, "/") + "/"
	remote := printing.NewHTTPArtifactChecker(&http.Client{Timeout: cfg.Render.ArtifactTimeout})
	web := printing.CheckerFunc(func(ctx context.Context, ref string) (bool, error) {
		if strings.HasPrefix(ref, spoolPrefix) {
			return spool.Exists(ctx, ref)
		}
		return remote.Exists(ctx, ref)
	})

	checker := printing.NewMultiChecker().
		Register("http", web).
		Register("https", web).
		Register("", spool)
	if objects != nil {
		checker.Register(storage.ObjectScheme, objects)
	}
	return checker
}

func cleanSpool(ctx context.Context, spool *printing.FileSystemStorage, retention time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(spoolCleanupInterval)
	defer ticker.Stop()
	for {
		if _, err := spool.CleanupOlderThan(ctx, retention); err != nil {
			log.Warn("Spool cleanup failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func newEngine(
	cfg *config.Config,
	log *zap.Logger,
	db *persistence.Database,
	letters *letterapp.LetterService,
	prints *letterapp.PrintService,
) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies", zap.Error(err))
	}
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	})...)
	engine.Use(
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.WriteTimeout),
	)

	system := handler.NewSystemHandler(cfg.App.Name, version).
		AddCheck("database", func(context.Context) error { return db.Ping() })

	if strings.HasPrefix(cfg.Render.SpoolURL, "/") {
		engine.StaticFS(strings.TrimRight(cfg.Render.SpoolURL, "/"), gin.Dir(cfg.Render.SpoolDir, false))
	}

	router.NewRouter(engine).
		Register(handler.LetterRoutes(handler.NewLetterHandler(letters), handler.NewPrintSessionHandler(prints))).
		Register(handler.SystemRoutes(system)).
		RegisterRoot(handler.HealthRoutes(system)).
		Setup()

	return engine
}
