package app

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libdb "parkwise/backend/libs/db"
	libredis "parkwise/backend/libs/redis"
	"parkwise/backend/services/sessions-service/internal/clients"
	"parkwise/backend/services/sessions-service/internal/config"
	httpserver "parkwise/backend/services/sessions-service/internal/http"
	"parkwise/backend/services/sessions-service/internal/http/handlers"
	"parkwise/backend/services/sessions-service/internal/metrics"
	redisstore "parkwise/backend/services/sessions-service/internal/redis"
	"parkwise/backend/services/sessions-service/internal/repository"
	"parkwise/backend/services/sessions-service/internal/service"
	"parkwise/backend/services/sessions-service/internal/spacesync"
	"parkwise/backend/services/sessions-service/internal/ws"
)

// App wires sessions-service dependencies.
type App struct {
	server      *httpserver.Server
	outbox      *spacesync.Outbox
	hub         *ws.Hub
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	sessionRepo := repository.NewSessionRepository(sqlDB)
	if err := sessionRepo.EnsureSchema(ctx); err != nil {
		sqlDB.Close()
		redisClient.Close()
		return nil, err
	}

	m := metrics.New()
	activeStore := redisstore.NewStore(redisClient, cfg.ActiveSessionTTL())
	spacesClient := clients.NewSpacesClient(cfg.Spaces.BaseURL, clients.NewDefaultHTTPClient(cfg.Spaces.Timeout))
	outbox := spacesync.NewOutbox(redisClient, spacesClient, m, logger, spacesync.Options{
		MaxAttempts:  cfg.Sync.MaxAttempts,
		CallTimeout:  cfg.Sync.CallTimeout,
		RetryDelay:   cfg.Sync.RetryDelay,
		PollInterval: cfg.Sync.PollInterval,
	})
	hub := ws.NewHub(logger, 0)

	sessionsService := service.NewSessionsService(sessionRepo, outbox, activeStore, hub, m, logger, cfg.Billing.HourlyRate)

	sessionsHandler := handlers.NewSessionsHandler(sessionsService, logger)
	queriesHandler := handlers.NewQueriesHandler(sessionsService, logger)

	routes := httpserver.Routes{
		CreateSession: sessionsHandler.HandleCreate,
		ExitSession:   sessionsHandler.HandleExit,
		CancelSession: sessionsHandler.HandleCancel,

		ListSessions:    queriesHandler.HandleList,
		GetSession:      queriesHandler.HandleGet,
		ActiveQuery:     queriesHandler.HandleActiveQuery,
		ActiveByPlate:   queriesHandler.HandleActiveByPlate,
		SessionsVisitor: queriesHandler.HandleByVisitor,
		SessionsSpace:   queriesHandler.HandleBySpace,
		SessionStats:    queriesHandler.HandleStats,

		Health:        handlers.NewHealthHandler(outbox),
		Metrics:       m.Handler(),
		OccupancyFeed: hub.HandleWS,
	}

	router := httpserver.NewRouter(routes, cfg.Auth.JWTSecret)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		outbox:      outbox,
		hub:         hub,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the HTTP server, the sync worker and the feed ping loop, and
// blocks until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	go a.outbox.Run(ctx)
	go a.hub.Run(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
