package app

import (
	httpH "github.com/yungbote/trendwatch-backend/internal/http/handlers"
	"github.com/yungbote/trendwatch-backend/internal/observability"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/realtime"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Metrics    *httpH.MetricsHandler
	Cycle      *httpH.CycleHandler
	Resolution *httpH.ResolutionHandler
	Ingest     *httpH.IngestHandler
	Realtime   *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, services Services, hub *realtime.Hub, db httpH.Pinger, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{
		Health:     httpH.NewHealthHandler(db),
		Cycle:      httpH.NewCycleHandler(log, services.Runner),
		Resolution: httpH.NewResolutionHandler(services.Incidents),
		Ingest:     httpH.NewIngestHandler(services.Incidents),
		Realtime:   httpH.NewRealtimeHandler(log, hub),
	}
	if metrics != nil {
		h.Metrics = httpH.NewMetricsHandler(metrics)
	}
	return h
}
