// Package wire provides dependency injection and application wiring.
package wire

import (
	"context"
	"net/http"
	"time"

	appPort "swingref/application/port"
	appService "swingref/application/service"
	"swingref/application/usecase"
	"swingref/config"
	"swingref/infrastructure/adapter"
	httpinfra "swingref/infrastructure/http"
	"swingref/infrastructure/mongodb"
	"swingref/infrastructure/telegram"
	"swingref/pkg/logger"
	presHTTP "swingref/presentation/http"
	presHandler "swingref/presentation/http/handler"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// App holds all initialized dependencies and manages application lifecycle.
type App struct {
	cfg    *config.InfraConfig
	logger *zap.Logger

	mongoClient   *mongo.Client
	configRepo    appPort.ConfigProfileRepository
	snapshotRepo  appPort.SnapshotRepository
	manager       *usecase.Manager
	replayDriver  *appService.ReplayDriver
	router        http.Handler
}

// New creates and wires all application dependencies: Mongo-backed
// config/snapshot repositories, the VietCap bar source behind a retrying
// HTTP client, the session manager, the replay driver, and the gin router.
func New(cfg *config.InfraConfig) (*App, error) {
	appLogger, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, err
	}

	appLogger.Info("Initializing application")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongodb.ConnectMongoDB(ctx, cfg.MongoDBURI, 10*time.Second)
	if err != nil {
		return nil, err
	}
	appLogger.Info("Connected to MongoDB", zap.String("database", cfg.MongoDBDatabase))

	configRepo := mongodb.NewConfigProfileRepository(mongoClient, cfg.MongoDBDatabase)
	snapshotRepo := mongodb.NewSnapshotRepository(mongoClient, cfg.MongoDBDatabase)

	httpClient := httpinfra.NewHTTPClientWithRetry(30*time.Second, appLogger)
	barSource := adapter.NewVietCapBarSource(httpClient, cfg.VietCapSymbol, cfg.VietCapTimeFrame, cfg.VietCapRateLimit)

	notifier := telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.TelegramEnabled)

	manager := usecase.NewManager(appLogger)

	replayDriver := appService.NewReplayDriver(appLogger, manager, barSource, notifier, snapshotRepo, nil, cfg.ReplayBatchSize)

	sessionHandler := presHandler.NewSessionHandler(manager, configRepo)
	profileHandler := presHandler.NewProfileHandler(configRepo)
	router := presHTTP.NewRouter(sessionHandler, profileHandler)

	appLogger.Info("Application initialized successfully")

	return &App{
		cfg:          cfg,
		logger:       appLogger,
		mongoClient:  mongoClient,
		configRepo:   configRepo,
		snapshotRepo: snapshotRepo,
		manager:      manager,
		replayDriver: replayDriver,
		router:       router,
	}, nil
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Router returns the HTTP router.
func (a *App) Router() http.Handler {
	return a.router
}

// Manager returns the session registry, for handlers or tests wired
// outside this package.
func (a *App) Manager() *usecase.Manager {
	return a.manager
}

// ConfigRepo returns the Mongo-backed config profile repository.
func (a *App) ConfigRepo() appPort.ConfigProfileRepository {
	return a.configRepo
}

// SnapshotRepo returns the Mongo-backed snapshot repository.
func (a *App) SnapshotRepo() appPort.SnapshotRepository {
	return a.snapshotRepo
}

// StartReplayDriver starts the replay driver's cron loop if configured to
// auto-start.
func (a *App) StartReplayDriver() {
	if !a.cfg.ReplayCronAutoStart {
		return
	}
	if err := a.replayDriver.Start(a.cfg.ReplaySchedule); err != nil {
		a.logger.Error("Failed to start replay driver", zap.Error(err))
		return
	}
	a.logger.Info("Replay driver started")
}

// StopReplayDriver stops the replay driver if running.
func (a *App) StopReplayDriver() {
	if a.replayDriver.IsRunning() {
		a.replayDriver.Stop()
		a.logger.Info("Replay driver stopped")
	}
}

// Close releases all application resources.
func (a *App) Close() {
	a.StopReplayDriver()
	if a.mongoClient != nil {
		a.mongoClient.Disconnect(context.Background())
	}
	a.logger.Sync()
}
