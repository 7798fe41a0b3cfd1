package observability

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yungbote/trendwatch-backend/internal/platform/envutil"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

const (
	SLOCycleSuccess    = "cycle_success"
	SLOAPIAvailability = "api_availability"
)

type rollingSum struct {
	values []float64
	idx    int
	total  float64
}

func newRollingSum(size int) *rollingSum {
	if size < 1 {
		size = 1
	}
	return &rollingSum{values: make([]float64, size)}
}

func (r *rollingSum) add(v float64) {
	r.total += v - r.values[r.idx]
	r.values[r.idx] = v
	r.idx++
	if r.idx >= len(r.values) {
		r.idx = 0
	}
}

// sloCounters are raw totals the evaluator samples each tick.
type sloCounters struct {
	cycleTotal atomic.Uint64
	cycleBad   atomic.Uint64
	apiTotal   atomic.Uint64
	apiBad     atomic.Uint64
}

type SLOConfig struct {
	Enabled            bool
	Interval           time.Duration
	Window             time.Duration
	CycleSuccessTarget float64
	APIAvailTarget     float64
	AlertBurnWarn      float64
	AlertBurnCrit      float64
	AlertMinInterval   time.Duration
}

func SLOConfigFromEnv(log *logger.Logger) SLOConfig {
	return SLOConfig{
		Enabled:            envutil.Bool("SLO_ENABLED", false, log),
		Interval:           envutil.Duration("SLO_EVAL_INTERVAL", time.Minute, log),
		Window:             envutil.Duration("SLO_WINDOW", 24*time.Hour, log),
		CycleSuccessTarget: clamp01(envutil.Float("SLO_CYCLE_SUCCESS_TARGET", 0.95, log)),
		APIAvailTarget:     clamp01(envutil.Float("SLO_API_AVAIL_TARGET", 0.995, log)),
		AlertBurnWarn:      envutil.Float("SLO_ALERT_BURN_RATE_WARN", 2, log),
		AlertBurnCrit:      envutil.Float("SLO_ALERT_BURN_RATE_CRIT", 10, log),
		AlertMinInterval:   envutil.Duration("SLO_ALERT_MIN_INTERVAL", 15*time.Minute, log),
	}
}

// SLOEvaluator keeps rolling-window error budgets for cycle success and API
// availability and logs when a budget burns faster than the alert thresholds.
type SLOEvaluator struct {
	metrics     *Metrics
	log         *logger.Logger
	cfg         SLOConfig
	windowLabel string
	now         func() time.Time

	cycleTotal *rollingSum
	cycleBad   *rollingSum
	apiTotal   *rollingSum
	apiBad     *rollingSum

	prevCycleTotal uint64
	prevCycleBad   uint64
	prevAPITotal   uint64
	prevAPIBad     uint64

	alertMu    sync.Mutex
	lastAlerts map[string]time.Time
}

// StartSLOEvaluator runs the evaluator until ctx is done. It does nothing when
// metrics are off or cfg is disabled.
func (m *Metrics) StartSLOEvaluator(ctx context.Context, log *logger.Logger, cfg SLOConfig) {
	if m == nil || !cfg.Enabled {
		return
	}
	eval := newSLOEvaluator(m, log, cfg)
	go eval.run(ctx)
	eval.log.Info("SLO evaluator started", "window", eval.windowLabel, "interval", eval.cfg.Interval.String())
}

func newSLOEvaluator(m *Metrics, log *logger.Logger, cfg SLOConfig) *SLOEvaluator {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Window < cfg.Interval {
		cfg.Window = 24 * time.Hour
	}
	size := int(cfg.Window / cfg.Interval)
	return &SLOEvaluator{
		metrics:     m,
		log:         log.With("component", "SLOEvaluator"),
		cfg:         cfg,
		windowLabel: formatWindowLabel(cfg.Window),
		now:         time.Now,
		cycleTotal:  newRollingSum(size),
		cycleBad:    newRollingSum(size),
		apiTotal:    newRollingSum(size),
		apiBad:      newRollingSum(size),
		lastAlerts:  map[string]time.Time{},
	}
}

func (e *SLOEvaluator) run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.evaluate()
		}
	}
}

func (e *SLOEvaluator) evaluate() {
	c := &e.metrics.slo
	cycleTotal, cycleBad := c.cycleTotal.Load(), c.cycleBad.Load()
	apiTotal, apiBad := c.apiTotal.Load(), c.apiBad.Load()

	e.cycleTotal.add(float64(cycleTotal - e.prevCycleTotal))
	e.cycleBad.add(float64(cycleBad - e.prevCycleBad))
	e.apiTotal.add(float64(apiTotal - e.prevAPITotal))
	e.apiBad.add(float64(apiBad - e.prevAPIBad))
	e.prevCycleTotal, e.prevCycleBad = cycleTotal, cycleBad
	e.prevAPITotal, e.prevAPIBad = apiTotal, apiBad

	e.evalSLO(SLOCycleSuccess, e.cycleTotal.total, e.cycleBad.total, e.cfg.CycleSuccessTarget)
	e.evalSLO(SLOAPIAvailability, e.apiTotal.total, e.apiBad.total, e.cfg.APIAvailTarget)
}

func (e *SLOEvaluator) evalSLO(name string, total, bad, target float64) {
	m := e.metrics
	if total <= 0 {
		m.sloCompliance.WithLabelValues(name, e.windowLabel).Set(1)
		m.sloBudget.WithLabelValues(name, e.windowLabel).Set(1)
		m.sloBurn.WithLabelValues(name, e.windowLabel).Set(0)
		return
	}
	sli := clamp01(1 - bad/total)
	burn := 0.0
	if target < 1 {
		burn = (1 - sli) / (1 - target)
	}
	budget := clamp01(1 - burn)
	m.sloCompliance.WithLabelValues(name, e.windowLabel).Set(sli)
	m.sloBudget.WithLabelValues(name, e.windowLabel).Set(budget)
	m.sloBurn.WithLabelValues(name, e.windowLabel).Set(burn)

	severity := ""
	switch {
	case e.cfg.AlertBurnCrit > 0 && burn >= e.cfg.AlertBurnCrit:
		severity = "critical"
	case e.cfg.AlertBurnWarn > 0 && burn >= e.cfg.AlertBurnWarn:
		severity = "warning"
	}
	if severity == "" {
		return
	}
	key := name + ":" + severity
	now := e.now()
	e.alertMu.Lock()
	last := e.lastAlerts[key]
	if !last.IsZero() && now.Sub(last) < e.cfg.AlertMinInterval {
		e.alertMu.Unlock()
		return
	}
	e.lastAlerts[key] = now
	e.alertMu.Unlock()

	kv := []interface{}{"slo", name, "severity", severity, "window", e.windowLabel, "sli", sli, "target", target, "burn_rate", burn, "error_budget_remaining", budget}
	if severity == "critical" {
		e.log.Error("SLO burn rate alert", kv...)
		return
	}
	e.log.Warn("SLO burn rate alert", kv...)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func formatWindowLabel(window time.Duration) string {
	if window >= 24*time.Hour && window%(24*time.Hour) == 0 {
		return strconv.Itoa(int(window/(24*time.Hour))) + "d"
	}
	if window >= time.Hour {
		return strconv.Itoa(int(window.Hours())) + "h"
	}
	return strconv.Itoa(int(window.Minutes())) + "m"
}
