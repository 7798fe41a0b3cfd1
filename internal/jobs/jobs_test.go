package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/trendwatch-backend/internal/pipeline"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/realtime"
	"github.com/yungbote/trendwatch-backend/internal/realtime/bus"
)

type cycleFunc func(ctx context.Context) (pipeline.Report, error)

func (f cycleFunc) Run(ctx context.Context) (pipeline.Report, error) { return f(ctx) }

func TestRunOnceRejectsOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	r := NewRunner(logger.Nop(), cycleFunc(func(ctx context.Context) (pipeline.Report, error) {
		close(started)
		<-release
		return pipeline.Report{CycleID: "c1", Outcome: pipeline.OutcomeCompleted}, nil
	}), 0, nil)

	done := make(chan error, 1)
	go func() {
		_, err := r.RunOnce(context.Background())
		done <- err
	}()
	<-started

	if _, err := r.RunOnce(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Fatalf("expected ErrCycleInProgress, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	last, ok := r.Last()
	if !ok || last.CycleID != "c1" {
		t.Fatalf("Last: ok=%v report=%+v", ok, last)
	}
}

func TestRunOnceAppliesTimeoutAndPublishes(t *testing.T) {
	b := bus.NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan realtime.Message, 1)
	if err := b.StartForwarder(ctx, func(m realtime.Message) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}

	r := NewRunner(logger.Nop(), cycleFunc(func(ctx context.Context) (pipeline.Report, error) {
		<-ctx.Done()
		return pipeline.Report{CycleID: "c2", Outcome: pipeline.OutcomeDependencyUnavailable}, ctx.Err()
	}), 20*time.Millisecond, b)

	rep, err := r.RunOnce(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) || rep.Outcome != pipeline.OutcomeDependencyUnavailable {
		t.Fatalf("outcome=%s err=%v", rep.Outcome, err)
	}
	select {
	case m := <-got:
		if m.Event != realtime.EventCycleFinished || m.Data.(pipeline.Report).CycleID != "c2" {
			t.Fatalf("unexpected message %+v", m)
		}
	case <-time.After(time.Second):
		t.Fatalf("cycle report not published")
	}
}

func TestRunOnceRecoversPanics(t *testing.T) {
	r := NewRunner(logger.Nop(), cycleFunc(func(context.Context) (pipeline.Report, error) {
		panic("boom")
	}), 0, nil)
	rep, err := r.RunOnce(context.Background())
	if err == nil || rep.Outcome != pipeline.OutcomeFailed {
		t.Fatalf("outcome=%s err=%v", rep.Outcome, err)
	}
	if _, err := r.RunOnce(context.Background()); err == nil {
		t.Fatalf("runner should be usable after a panic")
	}
}

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	var runs int32
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(logger.Nop(), cycleFunc(func(context.Context) (pipeline.Report, error) {
		if atomic.AddInt32(&runs, 1) == 3 {
			cancel()
		}
		return pipeline.Report{Outcome: pipeline.OutcomeNoTrend}, nil
	}), 0, nil)

	done := make(chan error, 1)
	go func() { done <- NewScheduler(logger.Nop(), r, time.Millisecond).Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("scheduler did not stop")
	}
	if n := atomic.LoadInt32(&runs); n < 3 {
		t.Fatalf("expected at least 3 runs, got %d", n)
	}
}

func TestSchedulerDisabled(t *testing.T) {
	s := NewScheduler(logger.Nop(), nil, 0)
	if s.Enabled() {
		t.Fatalf("zero interval should disable scheduling")
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
