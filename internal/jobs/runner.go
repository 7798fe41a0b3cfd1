// Package jobs runs pipeline cycles on demand and on a schedule. At most one
// cycle runs at a time per process.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/trendwatch-backend/internal/pipeline"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/realtime"
	"github.com/yungbote/trendwatch-backend/internal/realtime/bus"
)

var ErrCycleInProgress = errors.New("cycle already in progress")

// Cycle is satisfied by *pipeline.Orchestrator.
type Cycle interface {
	Run(ctx context.Context) (pipeline.Report, error)
}

type Runner struct {
	log     *logger.Logger
	cycle   Cycle
	timeout time.Duration
	bus     bus.Bus

	running sync.Mutex

	mu   sync.RWMutex
	last *pipeline.Report
}

// NewRunner wraps cycle. b may be nil; when set, every finished cycle is published on the cycles channel.
func NewRunner(log *logger.Logger, cycle Cycle, timeout time.Duration, b bus.Bus) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		log:     log.With("component", "CycleRunner"),
		cycle:   cycle,
		timeout: timeout,
		bus:     b,
	}
}

// RunOnce runs one cycle, or returns ErrCycleInProgress without waiting.
func (r *Runner) RunOnce(ctx context.Context) (pipeline.Report, error) {
	if !r.running.TryLock() {
		return pipeline.Report{}, ErrCycleInProgress
	}
	defer r.running.Unlock()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	rep, err := r.safeRun(ctx)

	r.mu.Lock()
	r.last = &rep
	r.mu.Unlock()

	r.publish(ctx, rep)
	return rep, err
}

func (r *Runner) safeRun(ctx context.Context) (rep pipeline.Report, err error) {
	defer func() {
		if v := recover(); v != nil {
			r.log.Error("cycle panic", "panic", v)
			rep = pipeline.Report{Outcome: pipeline.OutcomeFailed, Error: fmt.Sprint(v)}
			err = fmt.Errorf("cycle panic: %v", v)
		}
	}()
	return r.cycle.Run(ctx)
}

func (r *Runner) publish(ctx context.Context, rep pipeline.Report) {
	if r.bus == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := r.bus.Publish(pctx, realtime.Message{
		Channel: realtime.ChannelCycles,
		Event:   realtime.EventCycleFinished,
		Data:    rep,
	})
	if err != nil {
		r.log.Warn("publish cycle report failed", "cycle_id", rep.CycleID, "error", err)
	}
}

// Last returns the report of the most recent cycle.
func (r *Runner) Last() (pipeline.Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return pipeline.Report{}, false
	}
	return *r.last, true
}
