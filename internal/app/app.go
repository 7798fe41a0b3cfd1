package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/yungbote/trendwatch-backend/internal/data/db"
	apphttp "github.com/yungbote/trendwatch-backend/internal/http"
	httpMW "github.com/yungbote/trendwatch-backend/internal/http/middleware"
	"github.com/yungbote/trendwatch-backend/internal/observability"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/realtime"
	"github.com/yungbote/trendwatch-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Hub      *realtime.Hub
	Bus      bus.Bus
	Server   *apphttp.Server
	Metrics  *observability.Metrics

	dbService    *db.Service
	shutdownOtel func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	shutdownOtel := observability.InitOTel(ctx, log, cfg.Otel)
	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.Init(log)
	}

	dbs, err := db.NewService(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(dbs.DB()); err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := dbs.DB()

	b, err := bus.New(log, cfg.Redis)
	if err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, fmt.Errorf("init notification bus: %w", err)
	}
	hub := realtime.NewHub(log)

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, b)
	if err != nil {
		_ = b.Close()
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	sqlDB, err := theDB.DB()
	if err != nil {
		_ = b.Close()
		_ = dbs.Close()
		log.Sync()
		return nil, fmt.Errorf("database pool: %w", err)
	}
	handlerset := wireHandlers(log, serviceset, hub, sqlDB, metrics)
	server := apphttp.NewServer(log, cfg.HTTPAddr, apphttp.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		AllowOrigins:      cfg.AllowOrigins,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, cfg.JWTSecret),
		HealthHandler:     handlerset.Health,
		MetricsHandler:    handlerset.Metrics,
		CycleHandler:      handlerset.Cycle,
		ResolutionHandler: handlerset.Resolution,
		IngestHandler:     handlerset.Ingest,
		RealtimeHandler:   handlerset.Realtime,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Hub:          hub,
		Bus:          b,
		Server:       server,
		Metrics:      metrics,
		dbService:    dbs,
		shutdownOtel: shutdownOtel,
	}, nil
}

// Start forwards bus messages to connected stream clients and starts the SLO
// evaluator when enabled.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	if err := a.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
		cancel()
		a.cancel = nil
		return fmt.Errorf("start bus forwarder: %w", err)
	}
	a.Metrics.StartSLOEvaluator(ctx, a.Log, a.Cfg.SLO)
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("close bus", "error", err)
		}
	}
	if a.shutdownOtel != nil {
		sctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		if err := a.shutdownOtel(sctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
		cancel()
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("close database", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
