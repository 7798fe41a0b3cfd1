// Package pipeline runs one trend-detection cycle: monitor, summarize, rank
// remedies, score escalation, generate, reconcile and notify.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/trendwatch-backend/internal/baseline"
	"github.com/yungbote/trendwatch-backend/internal/consistency"
	"github.com/yungbote/trendwatch-backend/internal/escalation"
	"github.com/yungbote/trendwatch-backend/internal/knowledge"
	"github.com/yungbote/trendwatch-backend/internal/observability"
	"github.com/yungbote/trendwatch-backend/internal/platform/httpx"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/resolution"
	"github.com/yungbote/trendwatch-backend/internal/trend"
)

type Config struct {
	Window         time.Duration
	MinOccurrences int
	LookbackDays   int
	MaxIterations  int
	PollInterval   time.Duration
	PriorDays      int
	MaxPriors      int
}

func DefaultConfig() Config {
	return Config{
		Window:         60 * time.Minute,
		MinOccurrences: 10,
		LookbackDays:   30,
		MaxIterations:  3,
		PollInterval:   5 * time.Second,
		PriorDays:      30,
		MaxPriors:      consistency.DefaultMaxPriors,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.MinOccurrences <= 0 {
		c.MinOccurrences = d.MinOccurrences
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = d.LookbackDays
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.PriorDays <= 0 {
		c.PriorDays = d.PriorDays
	}
	if c.MaxPriors <= 0 {
		c.MaxPriors = d.MaxPriors
	}
	return c
}

// Deps are resolved once when the pipeline is assembled. Text, Keywords and
// Notifier are optional; every stage has a documented fallback without them.
type Deps struct {
	Log         *logger.Logger
	Events      EventStore
	Knowledge   knowledge.Store
	Resolutions ResolutionStore
	Text        resolution.TextGenerator
	Keywords    knowledge.KeywordExtractor
	Notifier    Notifier
	Scorer      *escalation.Scorer

	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
	NewID func() string
}

type Orchestrator struct {
	cfg         Config
	log         *logger.Logger
	events      EventStore
	resolutions ResolutionStore
	notifier    Notifier

	comparator *baseline.Comparator
	retriever  *knowledge.Retriever
	scorer     *escalation.Scorer
	generator  *resolution.Generator
	checker    *consistency.Checker

	clock func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	newID func() string

	stages []Stage
}

func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Events == nil || deps.Knowledge == nil || deps.Resolutions == nil {
		return nil, fmt.Errorf("pipeline: event, knowledge and resolution stores are required")
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "Pipeline")
	o := &Orchestrator{
		cfg:         cfg.withDefaults(),
		log:         log,
		events:      deps.Events,
		resolutions: deps.Resolutions,
		notifier:    deps.Notifier,
		comparator:  baseline.NewComparator(deps.Events),
		retriever:   knowledge.NewRetriever(log, deps.Knowledge, deps.Keywords),
		scorer:      deps.Scorer,
		generator:   resolution.NewGenerator(log, deps.Text),
		clock:       deps.Clock,
		sleep:       deps.Sleep,
		newID:       deps.NewID,
	}
	o.checker = consistency.NewChecker(log, deps.Text, o.cfg.MaxPriors)
	if o.scorer == nil {
		o.scorer = escalation.NewScorer(escalation.DefaultPolicy())
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.sleep == nil {
		o.sleep = httpx.Sleep
	}
	if o.newID == nil {
		o.newID = func() string { return uuid.NewString() }
	}
	o.stages = o.buildStages()
	if err := validateStages(o.stages); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return o, nil
}

func (o *Orchestrator) Config() Config { return o.cfg }

// Stages returns the stage names in execution order.
func (o *Orchestrator) Stages() []string {
	out := make([]string, 0, len(o.stages))
	for _, s := range o.stages {
		out = append(out, s.Name)
	}
	return out
}

type Report struct {
	CycleID    string                 `json:"cycle_id"`
	Outcome    Outcome                `json:"outcome"`
	Phase      Phase                  `json:"phase"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Iterations int                    `json:"iterations"`
	Trending   int                    `json:"trending_signals"`
	Primary    *trend.Signal          `json:"primary,omitempty"`
	Decision   *escalation.Decision   `json:"decision,omitempty"`
	Resolution *resolution.Resolution `json:"resolution,omitempty"`
	RecordID   string                 `json:"record_id,omitempty"`
	Escalated  bool                   `json:"escalated"`
	Dependency string                 `json:"dependency,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// Run executes one cycle. The returned error is nil for completed and no_trend
// outcomes. Aborted and failed cycles discard their run-state.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	st := State{
		CycleID:   o.newID(),
		StartedAt: o.clock().UTC(),
		Phase:     PhaseMonitoring,
	}
	log := o.log.With("cycle_id", st.CycleID)

	ctx, span := observability.Tracer().Start(ctx, "pipeline.cycle")
	span.SetAttributes(attribute.String("cycle_id", st.CycleID))
	defer span.End()

	begin := time.Now()
	final, err := o.execute(ctx, log, st)
	rep := o.report(ctx, final, err)
	rep.FinishedAt = o.clock().UTC()

	metrics := observability.Current()
	metrics.ObserveCycle(string(rep.Outcome), time.Since(begin))
	if final.Iterations > 0 {
		metrics.ObserveMonitorIterations(final.Iterations)
	}
	span.SetAttributes(attribute.String("outcome", string(rep.Outcome)))

	switch rep.Outcome {
	case OutcomeNoTrend:
		log.Info("cycle finished", "outcome", rep.Outcome, "iterations", rep.Iterations)
	case OutcomeCompleted:
		log.Info("cycle finished",
			"outcome", rep.Outcome,
			"category", rep.Primary.Category,
			"count", rep.Primary.Count,
			"score", rep.Decision.Score,
			"level", rep.Decision.Level,
			"escalated", rep.Escalated,
			"record_id", rep.RecordID,
		)
	case OutcomeDependencyUnavailable:
		metrics.ObserveDependencyUnavailable(rep.Dependency)
		span.SetStatus(codes.Error, rep.Error)
		log.Error("cycle aborted", "outcome", rep.Outcome, "dependency", rep.Dependency, "error", err)
	case OutcomeAborted:
		log.Warn("cycle aborted", "outcome", rep.Outcome, "phase", final.Phase, "error", err)
	default:
		span.SetStatus(codes.Error, rep.Error)
		log.Error("cycle failed", "outcome", rep.Outcome, "phase", final.Phase, "error", err)
	}
	return rep, err
}

func (o *Orchestrator) execute(ctx context.Context, log *logger.Logger, st State) (State, error) {
	for _, def := range o.stages {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		stageCtx, span := observability.Tracer().Start(ctx, "pipeline.stage."+def.Name)
		start := time.Now()

		var next State
		var err error
		if effectiveMode(def) == ModeLoop {
			next, err = o.runLoop(stageCtx, def, st)
		} else {
			next, err = safeRun(stageCtx, def, st)
		}

		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		observability.Current().ObserveStage(def.Name, status, time.Since(start))
		if err != nil {
			return st, fmt.Errorf("stage %s: %w", def.Name, err)
		}

		next.Phase = def.Phase
		st = next
		log.Debug("stage complete", "stage", def.Name, "phase", st.Phase)
		if def.Stop != nil && def.Stop(st) {
			st.Phase = PhaseTerminated
			return st, nil
		}
	}
	return st, nil
}

func (o *Orchestrator) report(ctx context.Context, st State, err error) Report {
	rep := Report{
		CycleID:    st.CycleID,
		Phase:      st.Phase,
		StartedAt:  st.StartedAt,
		Iterations: st.Iterations,
	}
	switch {
	case err == nil && st.NoTrend:
		rep.Outcome = OutcomeNoTrend
		return rep
	case err == nil:
		rep.Outcome = OutcomeCompleted
		primary, decision, res := st.Primary, st.Decision, st.Resolution
		rep.Trending = len(st.Signals)
		rep.Primary = &primary
		rep.Decision = &decision
		rep.Resolution = &res
		rep.RecordID = st.RecordID
		rep.Escalated = st.EscalatedToHuman
		return rep
	case isAborted(ctx, err):
		rep.Outcome = OutcomeAborted
	case IsUnavailable(err):
		rep.Outcome = OutcomeDependencyUnavailable
		rep.Dependency = DependencyOf(err)
	default:
		rep.Outcome = OutcomeFailed
	}
	rep.Error = err.Error()
	return rep
}
