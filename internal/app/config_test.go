package app

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yungbote/trendwatch-backend/internal/pipeline"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{
		"HTTP_ADDR", "TREND_WINDOW_MINUTES", "TREND_MIN_OCCURRENCES", "BASELINE_LOOKBACK_DAYS",
		"MONITOR_MAX_ITERATIONS", "MONITOR_POLL_INTERVAL", "PRIOR_RESOLUTION_DAYS", "PRIOR_RESOLUTION_LIMIT",
		"CYCLE_INTERVAL", "CYCLE_TIMEOUT", "STORE_TIMEOUT", "REDIS_ADDR", "NOTIFY_EMAIL_TO",
	} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig(logger.Nop())

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr: %q", cfg.HTTPAddr)
	}
	if diff := cmp.Diff(pipeline.DefaultConfig(), cfg.Pipeline); diff != "" {
		t.Fatalf("pipeline defaults (-want +got):\n%s", diff)
	}
	if cfg.CycleInterval != 0 || cfg.CycleTimeout != 5*time.Minute || cfg.StoreTimeout != 15*time.Second {
		t.Fatalf("cycle timing: %v %v %v", cfg.CycleInterval, cfg.CycleTimeout, cfg.StoreTimeout)
	}
	if cfg.Redis.Addr != "" || len(cfg.NotifyEmailTo) != 0 {
		t.Fatalf("optional collaborators should be off by default: %+v %v", cfg.Redis, cfg.NotifyEmailTo)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("TREND_WINDOW_MINUTES", "30")
	t.Setenv("TREND_MIN_OCCURRENCES", "4")
	t.Setenv("MONITOR_POLL_INTERVAL", "250ms")
	t.Setenv("CYCLE_INTERVAL", "10m")
	t.Setenv("NOTIFY_EMAIL_TO", "oncall@example.com, support@example.com")

	cfg := LoadConfig(logger.Nop())
	if cfg.Pipeline.Window != 30*time.Minute || cfg.Pipeline.MinOccurrences != 4 {
		t.Fatalf("trend overrides: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.PollInterval != 250*time.Millisecond || cfg.CycleInterval != 10*time.Minute {
		t.Fatalf("durations: %v %v", cfg.Pipeline.PollInterval, cfg.CycleInterval)
	}
	if diff := cmp.Diff([]string{"oncall@example.com", "support@example.com"}, cfg.NotifyEmailTo); diff != "" {
		t.Fatalf("email list (-want +got):\n%s", diff)
	}
}
