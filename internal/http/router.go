package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/trendwatch-backend/internal/http/handlers"
	httpMW "github.com/yungbote/trendwatch-backend/internal/http/middleware"
	"github.com/yungbote/trendwatch-backend/internal/observability"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	AllowOrigins   []string
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	MetricsHandler    *httpH.MetricsHandler
	CycleHandler      *httpH.CycleHandler
	ResolutionHandler *httpH.ResolutionHandler
	IngestHandler     *httpH.IngestHandler
	RealtimeHandler   *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", cfg.MetricsHandler.Serve)
	}

	api := r.Group("/api")
	{
		if cfg.ResolutionHandler != nil {
			api.GET("/resolutions", cfg.ResolutionHandler.List)
			api.GET("/resolutions/:id", cfg.ResolutionHandler.Get)
		}
		if cfg.CycleHandler != nil {
			api.GET("/cycles/last", cfg.CycleHandler.Last)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Pipeline
		if cfg.CycleHandler != nil {
			protected.POST("/cycles", cfg.CycleHandler.Run)
		}

		// Ingest
		if cfg.IngestHandler != nil {
			protected.POST("/events", cfg.IngestHandler.Events)
			protected.POST("/articles", cfg.IngestHandler.Articles)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/stream", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}
