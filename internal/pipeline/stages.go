package pipeline

import (
	"context"
	"strings"

	"github.com/yungbote/trendwatch-backend/internal/baseline"
	"github.com/yungbote/trendwatch-backend/internal/escalation"
	"github.com/yungbote/trendwatch-backend/internal/knowledge"
	"github.com/yungbote/trendwatch-backend/internal/observability"
	"github.com/yungbote/trendwatch-backend/internal/trend"
)

const (
	StageMonitor   = "monitor"
	StageSummarize = "summarize"
	StageRank      = "rank"
	StageEscalate  = "escalate"
	StageGenerate  = "generate"
	StageReconcile = "reconcile"
	StageNotify    = "notify"
)

func (o *Orchestrator) buildStages() []Stage {
	return []Stage{
		{
			Name:          StageMonitor,
			Mode:          ModeLoop,
			Phase:         PhasePrimarySignalFound,
			Run:           o.monitor,
			MaxIterations: o.cfg.MaxIterations,
			Interval:      o.cfg.PollInterval,
			Until:         func(st State) bool { return st.NoTrend || st.Precheck.ShouldEscalate },
			Stop:          func(st State) bool { return st.NoTrend },
		},
		{Name: StageSummarize, Phase: PhaseSummarized, Run: o.summarize},
		{Name: StageRank, Phase: PhaseRemediesRanked, Run: o.rank},
		{Name: StageEscalate, Phase: PhaseEscalationEvaluated, Run: o.escalate},
		{Name: StageGenerate, Phase: PhaseResolutionGenerated, Run: o.generate},
		{Name: StageReconcile, Phase: PhaseReconciled, Run: o.reconcile},
		{Name: StageNotify, Phase: PhaseNotified, Run: o.notify},
	}
}

// monitor reads the open-event window, picks the primary signal and scores a
// precheck escalation without remedy coverage. The first iteration reads the
// window ending at the cycle start; later ones, after a poll interval, read a
// fresh window ending at the current time.
func (o *Orchestrator) monitor(ctx context.Context, st State) (State, error) {
	now := st.StartedAt
	if st.Iterations > 0 {
		now = o.clock().UTC()
	}
	st.WindowEnd = now
	events, err := o.events.OpenEvents(ctx, now.Add(-o.cfg.Window), now)
	if err != nil {
		return st, Unavailable(DependencyEventStore, err)
	}

	st.Signals = trend.Aggregate(events, o.cfg.MinOccurrences)
	primary, ok := trend.Primary(st.Signals)
	if !ok {
		st.NoTrend = true
		st.Primary = trend.Signal{}
		st.Baseline = baseline.Baseline{}
		st.Precheck = escalation.Decision{}
		return st, nil
	}
	st.NoTrend = false
	st.Primary = primary

	base, err := o.comparator.Compare(ctx, primary.Category, o.cfg.LookbackDays, now)
	if err != nil {
		if IsUnavailable(err) {
			return st, err
		}
		o.log.Warn("baseline unavailable, using empty history", "cycle_id", st.CycleID, "category", primary.Category, "error", err)
		base = baseline.Baseline{Category: primary.Category}
	}
	st.Baseline = base
	st.Precheck = o.scorer.Score(o.scoreInput(st, escalation.Remedy{}))
	return st, nil
}

func (o *Orchestrator) summarize(ctx context.Context, st State) (State, error) {
	st.Summary = o.generator.Summarize(ctx, st.Signals, st.Baseline)
	return st, nil
}

func (o *Orchestrator) rank(ctx context.Context, st State) (State, error) {
	text := st.Summary.Text
	if strings.TrimSpace(text) == "" {
		text = st.Primary.SampleContent
	}
	res, keywords, err := o.retriever.Retrieve(ctx, st.Primary.Category, st.Primary.SubArea, text)
	if err != nil {
		if IsUnavailable(err) {
			return st, err
		}
		o.log.Warn("knowledge lookup failed, using standard guide", "cycle_id", st.CycleID, "category", st.Primary.Category, "error", err)
		res = knowledge.Rank(st.Primary.Category, keywords, nil)
	}
	st.Keywords = keywords
	st.Remedies = res
	return st, nil
}

func (o *Orchestrator) escalate(_ context.Context, st State) (State, error) {
	st.Decision = o.scorer.Score(o.scoreInput(st, escalation.Remedy{
		Assessed:     true,
		ArticlesUsed: st.Remedies.ArticlesUsed(),
	}))
	observability.Current().ObserveEscalation(string(st.Decision.Level), st.Decision.ShouldEscalate)
	return st, nil
}

// generate stamps the resolution with the generation instant, not the cycle start.
func (o *Orchestrator) generate(ctx context.Context, st State) (State, error) {
	st.Resolution, st.ResolutionFallback = o.generator.Generate(ctx, st.Primary, st.Summary.Text, st.Remedies, o.clock())
	return st, nil
}

// reconcile is best effort: an unreadable history leaves the resolution as generated.
func (o *Orchestrator) reconcile(ctx context.Context, st State) (State, error) {
	since := st.StartedAt.AddDate(0, 0, -o.cfg.PriorDays)
	priors, err := o.resolutions.Recent(ctx, st.Primary.Category, since, o.cfg.MaxPriors)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return st, ctxErr
		}
		o.log.Warn("prior resolutions unavailable, skipping reconciliation", "cycle_id", st.CycleID, "category", st.Primary.Category, "error", err)
		return st, nil
	}
	out := o.checker.Reconcile(ctx, st.Resolution, priors)
	st.Resolution = out.Resolution
	st.ConsistencyConflict = out.Conflict
	st.ConsistencyAmended = out.Amended
	if out.Amended {
		observability.Current().ObserveConsistencyAmendment()
	}
	return st, nil
}

// notify persists the record and then hands it to the notifier. Only the
// append is required; delivery failures are logged.
func (o *Orchestrator) notify(ctx context.Context, st State) (State, error) {
	if err := ctx.Err(); err != nil {
		return st, err
	}
	id, err := o.resolutions.Append(ctx, Record{
		CycleID:    st.CycleID,
		Signal:     st.Primary,
		Summary:    st.Summary.Text,
		Resolution: st.Resolution,
		Decision:   st.Decision,
	})
	if err != nil {
		return st, Unavailable(DependencyResolutionStore, err)
	}
	st.RecordID = id
	st.EscalatedToHuman = st.Decision.ShouldEscalate

	if o.notifier == nil {
		return st, nil
	}
	err = o.notifier.Notify(ctx, Notification{
		CycleID:    st.CycleID,
		RecordID:   id,
		Signal:     st.Primary,
		Summary:    st.Summary.Text,
		Resolution: st.Resolution,
		Decision:   st.Decision,
	})
	if err != nil {
		o.log.Warn("notification delivery failed", "cycle_id", st.CycleID, "record_id", id, "error", err)
		return st, nil
	}
	st.Notified = true
	return st, nil
}

func (o *Orchestrator) scoreInput(st State, remedy escalation.Remedy) escalation.Input {
	return escalation.Input{
		Signal:           st.Primary,
		ConcurrentTrends: len(st.Signals),
		Baseline:         st.Baseline,
		Remedy:           remedy,
		Window:           o.cfg.Window,
		Now:              st.windowEnd(),
	}
}
