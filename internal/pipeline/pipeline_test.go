package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yungbote/trendwatch-backend/internal/baseline"
	"github.com/yungbote/trendwatch-backend/internal/escalation"
	"github.com/yungbote/trendwatch-backend/internal/knowledge"
	"github.com/yungbote/trendwatch-backend/internal/resolution"
	"github.com/yungbote/trendwatch-backend/internal/trend"
)

var clockNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeEvents struct {
	events      []trend.Event
	history     []baseline.Sample
	openErr     error
	historyErr  error
	panicOnRead bool
	blockOnRead bool
	windowEnds  []time.Time
}

func (f *fakeEvents) OpenEvents(ctx context.Context, since, until time.Time) ([]trend.Event, error) {
	if f.blockOnRead {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.panicOnRead {
		panic("driver exploded")
	}
	f.windowEnds = append(f.windowEnds, until)
	if f.openErr != nil {
		return nil, f.openErr
	}
	var out []trend.Event
	for _, e := range f.events {
		if e.OccurredAt.After(since) && !e.OccurredAt.After(until) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEvents) History(_ context.Context, _ string, _, _ time.Time) ([]baseline.Sample, error) {
	return f.history, f.historyErr
}

type fakeKnowledge struct {
	articles []knowledge.Article
	err      error
}

func (f *fakeKnowledge) ActiveArticles(_ context.Context, category, subArea string) ([]knowledge.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []knowledge.Article
	for _, a := range f.articles {
		if a.Category == category && (subArea == "" || a.SubArea == subArea) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeResolutions struct {
	mu        sync.Mutex
	records   []Record
	priors    []resolution.Resolution
	appendErr error
	recentErr error
}

func (f *fakeResolutions) Append(_ context.Context, rec Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.records = append(f.records, rec)
	return fmt.Sprintf("rec-%d", len(f.records)), nil
}

func (f *fakeResolutions) Recent(_ context.Context, _ string, _ time.Time, limit int) ([]resolution.Resolution, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	if len(f.priors) > limit {
		return f.priors[:limit], nil
	}
	return f.priors, nil
}

type fakeNotifier struct {
	sent []Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n Notification) error {
	f.sent = append(f.sent, n)
	return f.err
}

// scriptedText answers prompts in call order.
type scriptedText struct {
	replies []string
	calls   int
	onCall  func(call int)
}

func (s *scriptedText) Generate(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.onCall != nil {
		s.onCall(s.calls)
	}
	if s.calls > len(s.replies) {
		return "", errors.New("no reply scripted")
	}
	return s.replies[s.calls-1], nil
}

type staticKeywords []string

func (k staticKeywords) ExtractKeywords(context.Context, string) ([]string, error) { return k, nil }

type recordingSleep struct{ slept []time.Duration }

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return ctx.Err()
}

// spaced returns n open events of category, one every step minutes, the newest step minutes before clockNow.
func spaced(category string, n int, step time.Duration, severity int) []trend.Event {
	out := make([]trend.Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, trend.Event{
			RefID:      fmt.Sprintf("%s-%02d", category, i),
			Category:   category,
			Content:    category + " users cannot continue",
			Severity:   severity,
			Status:     "open",
			OccurredAt: clockNow.Add(-time.Duration(n-i) * step),
		})
	}
	return out
}

// dailyHistory spreads perDay samples over each of days rolling days before clockNow.
func dailyHistory(days, perDay int) []baseline.Sample {
	var out []baseline.Sample
	for d := 0; d < days; d++ {
		for i := 0; i < perDay; i++ {
			out = append(out, baseline.Sample{OccurredAt: clockNow.Add(-time.Duration(d)*24*time.Hour - time.Hour)})
		}
	}
	return out
}

type harness struct {
	events      *fakeEvents
	knowledge   *fakeKnowledge
	resolutions *fakeResolutions
	notifier    *fakeNotifier
	sleeper     *recordingSleep
	deps        Deps
	cfg         Config
}

func newHarness() *harness {
	h := &harness{
		events:      &fakeEvents{},
		knowledge:   &fakeKnowledge{},
		resolutions: &fakeResolutions{},
		notifier:    &fakeNotifier{},
		sleeper:     &recordingSleep{},
	}
	h.cfg = Config{
		Window:         time.Hour,
		MinOccurrences: 10,
		LookbackDays:   30,
		MaxIterations:  3,
		PollInterval:   5 * time.Second,
		PriorDays:      30,
		MaxPriors:      3,
	}
	h.deps = Deps{
		Events:      h.events,
		Knowledge:   h.knowledge,
		Resolutions: h.resolutions,
		Notifier:    h.notifier,
		Clock:       func() time.Time { return clockNow },
		Sleep:       h.sleeper.sleep,
		NewID:       func() string { return "cycle-1" },
	}
	return h
}

func (h *harness) run(t *testing.T, ctx context.Context) (Report, error) {
	t.Helper()
	o, err := New(h.cfg, h.deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o.Run(ctx)
}

func TestCriticalSpikeWithoutArticlesEscalatesUrgent(t *testing.T) {
	h := newHarness()
	h.events.events = spaced("authentication", 45, time.Minute, 4)
	h.events.history = dailyHistory(30, 5)

	rep, err := h.run(t, context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Outcome != OutcomeCompleted || rep.Phase != PhaseNotified {
		t.Fatalf("outcome=%s phase=%s", rep.Outcome, rep.Phase)
	}
	want := escalation.Decision{
		ShouldEscalate: true,
		Score:          6,
		Level:          escalation.LevelUrgent,
		Reasons: []string{
			"Critical service affected: authentication",
			"Abnormal volume: 45 vs avg 5.0",
			"No knowledge base articles found",
		},
		Team: "identity_team",
		SLA:  15 * time.Minute,
	}
	if diff := cmp.Diff(want, *rep.Decision); diff != "" {
		t.Fatalf("decision (-want +got):\n%s", diff)
	}
	if rep.Iterations != 1 || len(h.sleeper.slept) != 0 {
		t.Fatalf("precheck escalation should end monitoring early: iterations=%d sleeps=%d", rep.Iterations, len(h.sleeper.slept))
	}
	if len(h.resolutions.records) != 1 || rep.RecordID != "rec-1" || !rep.Escalated {
		t.Fatalf("expected one escalated record, got %d (id=%q)", len(h.resolutions.records), rep.RecordID)
	}
	if len(h.notifier.sent) != 1 || h.notifier.sent[0].RecordID != "rec-1" {
		t.Fatalf("expected one notification for rec-1, got %+v", h.notifier.sent)
	}
	if got := h.resolutions.records[0].Resolution.ArticlesUsed; len(got) != 0 {
		t.Fatalf("standard guide must not be recorded as an article, got %v", got)
	}
}

func TestWellCoveredIssueIsNotEscalated(t *testing.T) {
	h := newHarness()
	h.events.events = spaced("notification", 15, 3*time.Minute, 2)
	for i := 0; i < 3; i++ {
		h.knowledge.articles = append(h.knowledge.articles, knowledge.Article{
			ID:          fmt.Sprintf("kb-%d", i),
			Category:    "notification",
			Content:     "check push token registration",
			Active:      true,
			LastUpdated: clockNow.Add(-time.Duration(i) * time.Hour),
		})
	}
	h.deps.Keywords = staticKeywords{"push"}

	rep, err := h.run(t, context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Outcome != OutcomeCompleted {
		t.Fatalf("outcome=%s", rep.Outcome)
	}
	if rep.Decision.ShouldEscalate || rep.Decision.Score != 0 || rep.Decision.Level != escalation.LevelNormal {
		t.Fatalf("unexpected decision %+v", rep.Decision)
	}
	if rep.Iterations != 3 {
		t.Fatalf("monitoring should run to the iteration cap, got %d", rep.Iterations)
	}
	if diff := cmp.Diff([]time.Duration{5 * time.Second, 5 * time.Second}, h.sleeper.slept); diff != "" {
		t.Fatalf("sleeps (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"kb-0", "kb-1", "kb-2"}, h.resolutions.records[0].Resolution.ArticlesUsed); diff != "" {
		t.Fatalf("articles used (-want +got):\n%s", diff)
	}
	if rep.Escalated {
		t.Fatalf("record should not be escalated")
	}
}

func TestMonitoringWindowsStartAtCycleStart(t *testing.T) {
	h := newHarness()
	h.events.events = spaced("notification", 15, 3*time.Minute, 2)
	ticks := 0
	h.deps.Clock = func() time.Time {
		ticks++
		return clockNow.Add(time.Duration(ticks-1) * time.Minute)
	}

	rep, err := h.run(t, context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Iterations != 3 || len(h.events.windowEnds) != 3 {
		t.Fatalf("iterations=%d reads=%d", rep.Iterations, len(h.events.windowEnds))
	}
	if !h.events.windowEnds[0].Equal(rep.StartedAt) {
		t.Fatalf("first window should end at cycle start %v, got %v", rep.StartedAt, h.events.windowEnds[0])
	}
	for i, end := range h.events.windowEnds[1:] {
		if !end.After(h.events.windowEnds[i]) {
			t.Fatalf("iteration %d did not read a fresh window: %v", i+2, end)
		}
	}
}

func TestEmptyWindowEndsWithNoTrend(t *testing.T) {
	h := newHarness()
	h.events.events = spaced("payment", 4, time.Minute, 3)

	rep, err := h.run(t, context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Outcome != OutcomeNoTrend || rep.Phase != PhaseTerminated {
		t.Fatalf("outcome=%s phase=%s", rep.Outcome, rep.Phase)
	}
	if rep.Iterations != 1 || rep.Resolution != nil || rep.Primary != nil {
		t.Fatalf("no-trend report carries stage output: %+v", rep)
	}
	if len(h.resolutions.records) != 0 || len(h.notifier.sent) != 0 {
		t.Fatalf("no-trend cycle must not write or notify")
	}
}

func TestDependencyUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		dep   string
	}{
		{
			name:  "event store",
			setup: func(h *harness) { h.events.openErr = errors.New("dial tcp: connection refused") },
			dep:   DependencyEventStore,
		},
		{
			name: "event history",
			setup: func(h *harness) {
				h.events.historyErr = Unavailable(DependencyEventStore, context.DeadlineExceeded)
			},
			dep: DependencyEventStore,
		},
		{
			name: "knowledge store",
			setup: func(h *harness) {
				h.knowledge.err = Unavailable(DependencyKnowledgeStore, errors.New("connection reset"))
			},
			dep: DependencyKnowledgeStore,
		},
		{
			name:  "resolution store",
			setup: func(h *harness) { h.resolutions.appendErr = errors.New("read-only transaction") },
			dep:   DependencyResolutionStore,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			h.events.events = spaced("payment", 20, 2*time.Minute, 3)
			tc.setup(h)

			rep, err := h.run(t, context.Background())
			if !IsUnavailable(err) {
				t.Fatalf("expected a dependency error, got %v", err)
			}
			if rep.Outcome != OutcomeDependencyUnavailable || rep.Dependency != tc.dep {
				t.Fatalf("outcome=%s dependency=%q", rep.Outcome, rep.Dependency)
			}
			if rep.Resolution != nil || len(h.resolutions.records) != 0 || len(h.notifier.sent) != 0 {
				t.Fatalf("unavailable dependency must not emit a resolution")
			}
		})
	}
}

func TestRecoverableFailuresDegrade(t *testing.T) {
	t.Run("knowledge query error uses standard guide", func(t *testing.T) {
		h := newHarness()
		h.events.events = spaced("payment", 20, 2*time.Minute, 3)
		h.knowledge.err = errors.New("syntax error at or near")

		rep, err := h.run(t, context.Background())
		if err != nil || rep.Outcome != OutcomeCompleted {
			t.Fatalf("Run: outcome=%s err=%v", rep.Outcome, err)
		}
		if !strings.Contains(strings.Join(rep.Decision.Reasons, "|"), "No knowledge base articles found") {
			t.Fatalf("fallback should count as zero articles: %v", rep.Decision.Reasons)
		}
	})
	t.Run("baseline query error uses empty history", func(t *testing.T) {
		h := newHarness()
		h.events.events = spaced("payment", 20, 2*time.Minute, 3)
		h.events.historyErr = errors.New("relation does not exist")

		rep, err := h.run(t, context.Background())
		if err != nil || rep.Outcome != OutcomeCompleted {
			t.Fatalf("Run: outcome=%s err=%v", rep.Outcome, err)
		}
	})
	t.Run("notification failure still completes", func(t *testing.T) {
		h := newHarness()
		h.events.events = spaced("payment", 20, 2*time.Minute, 3)
		h.notifier.err = errors.New("smtp down")

		rep, err := h.run(t, context.Background())
		if err != nil || rep.Outcome != OutcomeCompleted || len(h.resolutions.records) != 1 {
			t.Fatalf("Run: outcome=%s err=%v records=%d", rep.Outcome, err, len(h.resolutions.records))
		}
	})
	t.Run("prior read error skips reconciliation", func(t *testing.T) {
		h := newHarness()
		h.events.events = spaced("payment", 20, 2*time.Minute, 3)
		h.resolutions.recentErr = errors.New("timeout")

		rep, err := h.run(t, context.Background())
		if err != nil || rep.Outcome != OutcomeCompleted {
			t.Fatalf("Run: outcome=%s err=%v", rep.Outcome, err)
		}
	})
}

func TestInterruptedStoreReadOutcome(t *testing.T) {
	t.Run("deadline is dependency unavailable", func(t *testing.T) {
		h := newHarness()
		h.events.blockOnRead = true
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		rep, err := h.run(t, ctx)
		if rep.Outcome != OutcomeDependencyUnavailable || rep.Dependency != DependencyEventStore {
			t.Fatalf("outcome=%s dependency=%q err=%v", rep.Outcome, rep.Dependency, err)
		}
		if !errors.Is(err, context.DeadlineExceeded) || !IsUnavailable(err) {
			t.Fatalf("err=%v", err)
		}
	})
	t.Run("cancel is aborted", func(t *testing.T) {
		h := newHarness()
		h.events.blockOnRead = true
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)

		rep, err := h.run(t, ctx)
		if rep.Outcome != OutcomeAborted || !errors.Is(err, context.Canceled) {
			t.Fatalf("outcome=%s err=%v", rep.Outcome, err)
		}
	})
}

func TestStagePanicFailsCycle(t *testing.T) {
	h := newHarness()
	h.events.panicOnRead = true

	rep, err := h.run(t, context.Background())
	if err == nil || rep.Outcome != OutcomeFailed {
		t.Fatalf("outcome=%s err=%v", rep.Outcome, err)
	}
}

func TestCancellationAborts(t *testing.T) {
	t.Run("before the first stage", func(t *testing.T) {
		h := newHarness()
		h.events.events = spaced("payment", 20, 2*time.Minute, 3)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		rep, err := h.run(t, ctx)
		if !errors.Is(err, context.Canceled) || rep.Outcome != OutcomeAborted {
			t.Fatalf("outcome=%s err=%v", rep.Outcome, err)
		}
		if len(h.resolutions.records) != 0 {
			t.Fatalf("aborted cycle wrote a record")
		}
	})
	t.Run("between stages", func(t *testing.T) {
		h := newHarness()
		h.events.events = spaced("payment", 20, 2*time.Minute, 3)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		text := &scriptedText{
			replies: []string{"summary", "a\n\nb\n\nc\n\nd\n\ne"},
			onCall: func(call int) {
				if call == 2 {
					cancel()
				}
			},
		}
		h.deps.Text = text

		rep, err := h.run(t, ctx)
		if rep.Outcome != OutcomeAborted || err == nil {
			t.Fatalf("outcome=%s err=%v", rep.Outcome, err)
		}
		if rep.Phase != PhaseResolutionGenerated {
			t.Fatalf("expected abort after generation, phase=%s", rep.Phase)
		}
		if len(h.resolutions.records) != 0 || len(h.notifier.sent) != 0 {
			t.Fatalf("aborted cycle must not persist or notify")
		}
	})
	t.Run("while monitoring sleeps", func(t *testing.T) {
		h := newHarness()
		h.events.events = spaced("notification", 15, 3*time.Minute, 2)
		ctx, cancel := context.WithCancel(context.Background())
		h.deps.Sleep = func(context.Context, time.Duration) error {
			cancel()
			return context.Canceled
		}

		rep, err := h.run(t, ctx)
		if rep.Outcome != OutcomeAborted || !errors.Is(err, context.Canceled) {
			t.Fatalf("outcome=%s err=%v", rep.Outcome, err)
		}
	})
}

func TestReconcileAmendsBodyAndPreservesIdentity(t *testing.T) {
	h := newHarness()
	h.events.events = spaced("payment", 20, 2*time.Minute, 3)
	h.knowledge.articles = []knowledge.Article{{
		ID: "kb-7", Category: "payment", Content: "rotate gateway credentials", Active: true, LastUpdated: clockNow,
	}}
	h.deps.Keywords = staticKeywords{"gateway"}
	h.resolutions.priors = []resolution.Resolution{
		{Category: "payment", RootCause: "expired gateway credentials", GeneratedAt: clockNow.Add(-48 * time.Hour)},
	}
	h.deps.Text = &scriptedText{replies: []string{
		"Payment failures are trending.",
		"cause\n\nsteps\n\nverify\n\nprevent\n\ntemplate",
		"Suggested changes: align root cause with prior incident.",
		"expired credentials\n\nrotate\n\nretry a charge\n\nalert on expiry\n\nwe are on it",
	}}

	rep, err := h.run(t, context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec := h.resolutions.records[0].Resolution
	if rec.RootCause != "expired credentials" || rec.ConsistencyChanges == "" {
		t.Fatalf("expected amended body, got %+v", rec)
	}
	if rec.Category != "payment" || !rec.GeneratedAt.Equal(clockNow) {
		t.Fatalf("identity fields changed: category=%q generated_at=%v", rec.Category, rec.GeneratedAt)
	}
	if diff := cmp.Diff([]string{"kb-7"}, rec.ArticlesUsed); diff != "" {
		t.Fatalf("articles used changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(rec, *rep.Resolution); diff != "" {
		t.Fatalf("report and record disagree:\n%s", diff)
	}
	if h.resolutions.records[0].Summary != "Payment failures are trending." {
		t.Fatalf("summary not recorded: %q", h.resolutions.records[0].Summary)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	run := func() Report {
		h := newHarness()
		h.events.events = append(spaced("database", 30, time.Minute, 4), spaced("api", 12, 4*time.Minute, 2)...)
		h.events.history = dailyHistory(30, 2)
		rep, err := h.run(t, context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return rep
	}
	first := run()
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, run()); diff != "" {
			t.Fatalf("run %d differs:\n%s", i, diff)
		}
	}
	if first.Primary.Category != "database" || first.Trending != 2 {
		t.Fatalf("unexpected primary %s (trending=%d)", first.Primary.Category, first.Trending)
	}
}

func TestNewRequiresStores(t *testing.T) {
	if _, err := New(DefaultConfig(), Deps{}); err == nil {
		t.Fatalf("expected error for missing stores")
	}
	h := newHarness()
	o, err := New(Config{}, h.deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), o.Config()); diff != "" {
		t.Fatalf("zero config should take defaults:\n%s", diff)
	}
	want := []string{StageMonitor, StageSummarize, StageRank, StageEscalate, StageGenerate, StageReconcile, StageNotify}
	if diff := cmp.Diff(want, o.Stages()); diff != "" {
		t.Fatalf("stages (-want +got):\n%s", diff)
	}
}
