package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec

	cycles            *prometheus.CounterVec
	cycleDuration     *prometheus.HistogramVec
	stageDuration     *prometheus.HistogramVec
	monitorIterations prometheus.Histogram
	escalations       *prometheus.CounterVec
	dependencyFailure *prometheus.CounterVec
	consistencyAmends prometheus.Counter
	notifications     *prometheus.CounterVec

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec

	sloCompliance *prometheus.GaugeVec
	sloBudget     *prometheus.GaugeVec
	sloBurn       *prometheus.GaugeVec
	slo           sloCounters
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process-wide metrics, or nil when Init has not been called.
// Every Observe* method is safe on a nil receiver.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// NewMetrics builds an isolated registry; tests use it directly instead of Init.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tw_api_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tw_api_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tw_cycles_total",
			Help: "Pipeline cycles by outcome (completed, no_trend, dependency_unavailable, aborted).",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tw_cycle_duration_seconds",
			Help:    "Wall time of one pipeline cycle.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tw_stage_duration_seconds",
			Help:    "Wall time of one pipeline stage.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage", "status"}),
		monitorIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tw_monitor_iterations",
			Help:    "Monitoring loop iterations per cycle.",
			Buckets: []float64{1, 2, 3, 5, 8, 13},
		}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tw_escalation_decisions_total",
			Help: "Escalation decisions by level and whether a human was paged.",
		}, []string{"level", "escalated"}),
		dependencyFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tw_dependency_unavailable_total",
			Help: "Cycles aborted because a required collaborator was unavailable.",
		}, []string{"dependency"}),
		consistencyAmends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tw_consistency_amendments_total",
			Help: "Resolutions amended by the consistency checker.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tw_notifications_total",
			Help: "Notifications published by channel and status.",
		}, []string{"channel", "status"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tw_llm_requests_total",
			Help: "Text generation requests by model and status.",
		}, []string{"model", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tw_llm_request_duration_seconds",
			Help:    "Text generation latency including retries.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"model"}),
		sloCompliance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tw_slo_compliance_ratio",
			Help: "Good events over total in the SLO window.",
		}, []string{"slo", "window"}),
		sloBudget: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tw_slo_error_budget_remaining",
			Help: "Fraction of the error budget left in the SLO window.",
		}, []string{"slo", "window"}),
		sloBurn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tw_slo_burn_rate",
			Help: "Error budget burn rate; 1 spends the budget exactly over the window.",
		}, []string{"slo", "window"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests,
		m.apiLatency,
		m.cycles,
		m.cycleDuration,
		m.stageDuration,
		m.monitorIterations,
		m.escalations,
		m.dependencyFailure,
		m.consistencyAmends,
		m.notifications,
		m.llmRequests,
		m.llmLatency,
		m.sloCompliance,
		m.sloBudget,
		m.sloBurn,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests that gather values directly.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPIRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.slo.apiTotal.Add(1)
	if status >= http.StatusInternalServerError {
		m.slo.apiBad.Add(1)
	}
	m.apiLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveCycle(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
	// operator-aborted cycles spend no error budget
	switch outcome {
	case "aborted":
	case "dependency_unavailable", "failed":
		m.slo.cycleTotal.Add(1)
		m.slo.cycleBad.Add(1)
	default:
		m.slo.cycleTotal.Add(1)
	}
	m.cycleDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveStage(stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

func (m *Metrics) ObserveMonitorIterations(n int) {
	if m == nil {
		return
	}
	m.monitorIterations.Observe(float64(n))
}

func (m *Metrics) ObserveEscalation(level string, escalated bool) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(level, strconv.FormatBool(escalated)).Inc()
}

func (m *Metrics) ObserveDependencyUnavailable(dependency string) {
	if m == nil {
		return
	}
	m.dependencyFailure.WithLabelValues(dependency).Inc()
}

func (m *Metrics) ObserveConsistencyAmendment() {
	if m == nil {
		return
	}
	m.consistencyAmends.Inc()
}

func (m *Metrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.notifications.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) ObserveLLMRequest(model, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(model, status).Inc()
	m.llmLatency.WithLabelValues(model).Observe(d.Seconds())
}
