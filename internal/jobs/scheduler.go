package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

type Scheduler struct {
	log      *logger.Logger
	runner   *Runner
	interval time.Duration
}

func NewScheduler(log *logger.Logger, runner *Runner, interval time.Duration) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{log: log.With("component", "CycleScheduler"), runner: runner, interval: interval}
}

func (s *Scheduler) Enabled() bool { return s.interval > 0 }

// Run blocks until ctx is done. The next cycle is scheduled interval after the
// previous one finished, so cycles never overlap. A non-positive interval
// disables scheduling and Run returns immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.Enabled() {
		s.log.Info("cycle scheduler disabled")
		return nil
	}
	s.log.Info("starting cycle scheduler", "interval", s.interval.String())

	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("cycle scheduler stopped")
			return nil
		case <-timer.C:
			rep, err := s.runner.RunOnce(ctx)
			switch {
			case errors.Is(err, ErrCycleInProgress):
				s.log.Debug("skipping tick; cycle already running")
			case err != nil:
				s.log.Warn("scheduled cycle did not complete", "cycle_id", rep.CycleID, "outcome", rep.Outcome, "error", err)
			default:
				s.log.Debug("scheduled cycle finished", "cycle_id", rep.CycleID, "outcome", rep.Outcome)
			}
			timer.Reset(s.interval)
		}
	}
}
