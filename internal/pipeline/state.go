package pipeline

import (
	"time"

	"github.com/yungbote/trendwatch-backend/internal/baseline"
	"github.com/yungbote/trendwatch-backend/internal/escalation"
	"github.com/yungbote/trendwatch-backend/internal/knowledge"
	"github.com/yungbote/trendwatch-backend/internal/resolution"
	"github.com/yungbote/trendwatch-backend/internal/trend"
)

type Phase string

const (
	PhaseMonitoring          Phase = "MONITORING"
	PhasePrimarySignalFound  Phase = "PRIMARY_SIGNAL_FOUND"
	PhaseSummarized          Phase = "SUMMARIZED"
	PhaseRemediesRanked      Phase = "REMEDIES_RANKED"
	PhaseEscalationEvaluated Phase = "ESCALATION_EVALUATED"
	PhaseResolutionGenerated Phase = "RESOLUTION_GENERATED"
	PhaseReconciled          Phase = "RECONCILED"
	PhaseNotified            Phase = "NOTIFIED"
	PhaseTerminated          Phase = "TERMINATED"
)

type Outcome string

const (
	OutcomeCompleted             Outcome = "completed"
	OutcomeNoTrend               Outcome = "no_trend"
	OutcomeDependencyUnavailable Outcome = "dependency_unavailable"
	OutcomeAborted               Outcome = "aborted"
	OutcomeFailed                Outcome = "failed"
)

// State is the run-state of one cycle. Stages receive it by value and return
// an updated copy; each field is written only by the stage that owns it.
type State struct {
	CycleID   string
	StartedAt time.Time
	Phase     Phase

	// monitor
	Iterations int
	// WindowEnd is the end of the last open-event window read.
	WindowEnd time.Time
	Signals   []trend.Signal
	Primary   trend.Signal
	Baseline  baseline.Baseline
	Precheck  escalation.Decision
	NoTrend   bool

	// summarize
	Summary resolution.Summary

	// rank
	Keywords []string
	Remedies knowledge.Result

	// escalate
	Decision escalation.Decision

	// generate
	Resolution         resolution.Resolution
	ResolutionFallback bool

	// reconcile
	ConsistencyConflict bool
	ConsistencyAmended  bool

	// notify
	RecordID         string
	EscalatedToHuman bool
	Notified         bool
}

// HasPrimary reports whether monitoring selected a primary signal.
func (s State) HasPrimary() bool {
	return !s.NoTrend && s.Primary.Count > 0
}

func (st State) windowEnd() time.Time {
	if st.WindowEnd.IsZero() {
		return st.StartedAt
	}
	return st.WindowEnd
}
