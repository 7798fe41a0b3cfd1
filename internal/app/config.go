package app

import (
	"time"

	"github.com/yungbote/trendwatch-backend/internal/data/db"
	"github.com/yungbote/trendwatch-backend/internal/observability"
	"github.com/yungbote/trendwatch-backend/internal/pipeline"
	"github.com/yungbote/trendwatch-backend/internal/platform/envutil"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/realtime/bus"
)

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	Pipeline      pipeline.Config
	CycleInterval time.Duration
	CycleTimeout  time.Duration
	StoreTimeout  time.Duration

	EscalationPolicyPath string

	DB    db.Config
	Redis bus.RedisConfig
	Otel  observability.OtelConfig
	SLO   observability.SLOConfig

	JWTSecret      string
	AllowOrigins   []string
	MetricsEnabled bool
	NotifyEmailTo  []string
}

func LoadConfig(log *logger.Logger) Config {
	def := pipeline.DefaultConfig()
	return Config{
		HTTPAddr:        envutil.String("HTTP_ADDR", ":8080", log),
		ShutdownTimeout: envutil.Duration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second, log),

		Pipeline: pipeline.Config{
			Window:         time.Duration(envutil.Int("TREND_WINDOW_MINUTES", int(def.Window/time.Minute), log)) * time.Minute,
			MinOccurrences: envutil.Int("TREND_MIN_OCCURRENCES", def.MinOccurrences, log),
			LookbackDays:   envutil.Int("BASELINE_LOOKBACK_DAYS", def.LookbackDays, log),
			MaxIterations:  envutil.Int("MONITOR_MAX_ITERATIONS", def.MaxIterations, log),
			PollInterval:   envutil.Duration("MONITOR_POLL_INTERVAL", def.PollInterval, log),
			PriorDays:      envutil.Int("PRIOR_RESOLUTION_DAYS", def.PriorDays, log),
			MaxPriors:      envutil.Int("PRIOR_RESOLUTION_LIMIT", def.MaxPriors, log),
		},
		CycleInterval: envutil.Duration("CYCLE_INTERVAL", 0, log),
		CycleTimeout:  envutil.Duration("CYCLE_TIMEOUT", 5*time.Minute, log),
		StoreTimeout:  envutil.Duration("STORE_TIMEOUT", 15*time.Second, log),

		EscalationPolicyPath: envutil.String("ESCALATION_POLICY_YAML", "", log),

		DB:    db.ConfigFromEnv(log),
		Redis: bus.RedisConfigFromEnv(log),
		Otel:  observability.OtelConfigFromEnv(log),
		SLO:   observability.SLOConfigFromEnv(log),

		JWTSecret:      envutil.String("API_JWT_SECRET", "", nil),
		AllowOrigins:   envutil.List("CORS_ALLOW_ORIGINS", nil, log),
		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true, log),
		NotifyEmailTo:  envutil.List("NOTIFY_EMAIL_TO", nil, log),
	}
}
