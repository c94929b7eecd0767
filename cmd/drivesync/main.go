package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/habibshaikh14/drivesoft-final-round/config"
	httpdelivery "github.com/habibshaikh14/drivesoft-final-round/delivery/http"
	"github.com/habibshaikh14/drivesoft-final-round/infrastructure/cache"
	"github.com/habibshaikh14/drivesoft-final-round/infrastructure/database"
	"github.com/habibshaikh14/drivesoft-final-round/infrastructure/external"
	"github.com/habibshaikh14/drivesoft-final-round/infrastructure/metrics"
	"github.com/habibshaikh14/drivesoft-final-round/usecase"
)

const (
	serviceName = "drivesync"
	version     = "1.0.0"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger

	// Connections
	postgres *sqlx.DB
	redis    *redis.Client

	// Cache
	cache *cache.RedisCache

	// Repositories
	accountRepo *database.PostgresAccountRepository
	userRepo    *database.PostgresUserRepository

	// Services
	idmsClient     *external.IDMSClient
	syncService    *usecase.SyncService
	accountService *usecase.AccountService
	authService    *usecase.AuthService
	scheduler      *usecase.SyncScheduler

	// Servers
	httpServer *httpdelivery.HTTPServer

	// Metrics
	registry    *prometheus.Registry
	syncMetrics *metrics.SyncMetrics

	// Graceful shutdown
	shutdownCh chan os.Signal
	cancelSync context.CancelFunc
}

func main() {
	app := &Application{
		shutdownCh: make(chan os.Signal, 1),
	}

	if err := app.Initialize(); err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}

	app.WaitForShutdown()

	if err := app.Shutdown(); err != nil {
		app.logger.Error("Error during shutdown", zap.Error(err))
		os.Exit(1)
	}

	app.logger.Info("Application shutdown complete")
}

// Initialize initializes all application components
func (app *Application) Initialize() error {
	var err error

	app.config, err = config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	app.logger.Info("Starting DriveSync Service",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", app.config.Service.Environment),
	)

	if err := app.initDatabase(); err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}

	if err := app.initCache(); err != nil {
		return fmt.Errorf("failed to init cache: %w", err)
	}

	if err := app.initRepositories(); err != nil {
		return fmt.Errorf("failed to init repositories: %w", err)
	}

	app.initMetrics()

	if err := app.initServices(); err != nil {
		return fmt.Errorf("failed to init services: %w", err)
	}

	app.initServers()

	app.logger.Info("Application initialization complete")
	return nil
}

// initLogger initializes the logger
func (app *Application) initLogger() error {
	var logger *zap.Logger
	var err error

	if app.config.Service.Debug || app.config.Service.Environment == "development" {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		logger, err = cfg.Build()
	} else {
		cfg := zap.NewProductionConfig()

		switch app.config.Logging.Level {
		case "debug":
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		case "info":
			cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		case "warn":
			cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		case "error":
			cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
		default:
			cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}

		logger, err = cfg.Build()
	}

	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	app.logger = logger.With(
		zap.String("service", serviceName),
		zap.String("version", version),
	)

	return nil
}

// initDatabase initializes the PostgreSQL connection
func (app *Application) initDatabase() error {
	app.logger.Info("Connecting to PostgreSQL",
		zap.String("host", app.config.Database.PostgreSQL.Host),
		zap.Int("port", app.config.Database.PostgreSQL.Port),
		zap.String("database", app.config.Database.PostgreSQL.Database),
	)

	dsn := app.config.Database.PostgreSQL.GetDSN()
	postgres, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	postgres.SetMaxOpenConns(app.config.Database.PostgreSQL.MaxOpenConns)
	postgres.SetMaxIdleConns(app.config.Database.PostgreSQL.MaxIdleConns)
	postgres.SetConnMaxLifetime(app.config.Database.PostgreSQL.ConnMaxLifetime)
	postgres.SetConnMaxIdleTime(app.config.Database.PostgreSQL.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := postgres.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	app.postgres = postgres
	app.logger.Info("PostgreSQL connection established")

	return nil
}

// initCache initializes the Redis connection when caching is enabled
func (app *Application) initCache() error {
	if !app.config.Cache.Enabled {
		app.logger.Info("Cache disabled, skipping Redis")
		return nil
	}

	app.logger.Info("Connecting to Redis",
		zap.String("host", app.config.Cache.Redis.Host),
		zap.String("port", app.config.Cache.Redis.Port),
	)

	redisClient := redis.NewClient(&redis.Options{
		Addr:         app.config.Cache.Redis.GetRedisAddr(),
		Password:     app.config.Cache.Redis.Password,
		DB:           app.config.Cache.Redis.Database,
		PoolSize:     app.config.Cache.Redis.PoolSize,
		MinIdleConns: app.config.Cache.Redis.MinIdleConns,
		DialTimeout:  app.config.Cache.Redis.DialTimeout,
		ReadTimeout:  app.config.Cache.Redis.ReadTimeout,
		WriteTimeout: app.config.Cache.Redis.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	app.redis = redisClient
	app.cache = cache.NewRedisCache(redisClient, app.config.Cache.AccountsTTL, app.logger)
	app.logger.Info("Redis connection established")

	return nil
}

// initRepositories initializes repositories and ensures the schema exists
func (app *Application) initRepositories() error {
	app.logger.Info("Initializing repositories")

	app.accountRepo = database.NewPostgresAccountRepository(app.postgres, app.logger)
	app.userRepo = database.NewPostgresUserRepository(app.postgres, app.logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.accountRepo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure account schema: %w", err)
	}
	if err := app.userRepo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure user schema: %w", err)
	}

	app.logger.Info("Repositories initialized")
	return nil
}

// initMetrics initializes metrics collection
func (app *Application) initMetrics() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(prometheus.NewGoCollector())
	app.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	app.syncMetrics = metrics.NewSyncMetrics(app.config.Metrics.Namespace, app.registry)
}

// initServices initializes the domain services
func (app *Application) initServices() error {
	app.logger.Info("Initializing services")

	app.idmsClient = external.NewIDMSClient(&app.config.IDMS, app.logger)

	// The cache interface stays nil when caching is disabled; services treat a
	// nil cache as a permanent miss.
	var accountCache usecase.AccountCache
	if app.cache != nil {
		accountCache = app.cache
	}

	app.syncService = usecase.NewSyncService(
		app.accountRepo,
		app.idmsClient,
		accountCache,
		app.syncMetrics,
		app.config.Sync.BatchSize,
		app.logger,
	)

	app.accountService = usecase.NewAccountService(
		app.accountRepo,
		app.syncService,
		accountCache,
		app.logger,
	)

	app.authService = usecase.NewAuthService(app.userRepo, &app.config.Auth.JWT, app.logger)

	if app.config.Auth.Bootstrap.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.authService.EnsureBootstrapUser(
			ctx,
			app.config.Auth.Bootstrap.Username,
			app.config.Auth.Bootstrap.Password,
		); err != nil {
			return fmt.Errorf("failed to create bootstrap user: %w", err)
		}
	}

	app.scheduler = usecase.NewSyncScheduler(
		app.syncService,
		app.config.Sync.Interval,
		app.config.Sync.RunOnStartup,
		app.logger,
	)

	app.logger.Info("Services initialized")
	return nil
}

// initServers initializes the HTTP server
func (app *Application) initServers() {
	handlers := httpdelivery.NewHandlers(
		app.accountService,
		app.authService,
		app.syncService,
		serviceName,
		version,
		app.logger,
	)
	middleware := httpdelivery.NewMiddlewareManager(app.authService, app.logger)

	app.httpServer = httpdelivery.NewHTTPServer(app.config, handlers, middleware, app.registry, app.logger)
	app.logger.Info("HTTP server initialized", zap.String("addr", app.httpServer.GetAddress()))
}

// Start starts all application services
func (app *Application) Start() error {
	app.logger.Info("Starting application services")

	if err := app.httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	syncCtx, cancel := context.WithCancel(context.Background())
	app.cancelSync = cancel
	app.scheduler.Start(syncCtx)

	signal.Notify(app.shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	app.logger.Info("All services started successfully")
	return nil
}

// WaitForShutdown waits for shutdown signal
func (app *Application) WaitForShutdown() {
	<-app.shutdownCh
	app.logger.Info("Shutdown signal received")
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("Starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), app.config.Service.ShutdownTimeout)
	defer cancel()

	// Stop the scheduler first so no new cycles start during shutdown.
	app.scheduler.Stop()
	if app.cancelSync != nil {
		app.cancelSync()
	}

	if app.httpServer != nil {
		if err := app.httpServer.Stop(ctx); err != nil {
			app.logger.Error("Error stopping HTTP server", zap.Error(err))
		}
	}

	if app.postgres != nil {
		app.logger.Info("Closing PostgreSQL connection")
		if err := app.postgres.Close(); err != nil {
			app.logger.Error("Error closing PostgreSQL", zap.Error(err))
		}
	}

	if app.redis != nil {
		app.logger.Info("Closing Redis connection")
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Error closing Redis", zap.Error(err))
		}
	}

	if app.logger != nil {
		app.logger.Sync()
	}

	return nil
}
