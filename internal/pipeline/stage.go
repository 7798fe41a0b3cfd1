package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type StageMode string

const (
	ModeSequential StageMode = "sequential"
	ModeLoop       StageMode = "loop"
)

type StageFunc func(ctx context.Context, st State) (State, error)

// Stage is one entry of the ordered stage list the orchestrator interprets.
type Stage struct {
	Name string
	Mode StageMode
	// Phase is entered when the stage succeeds.
	Phase Phase
	Run   StageFunc

	// loop only
	MaxIterations int
	Interval      time.Duration
	Until         func(st State) bool

	// Stop ends the cycle after this stage when it returns true.
	Stop func(st State) bool
}

func validateStages(stages []Stage) error {
	if len(stages) == 0 {
		return fmt.Errorf("no stages")
	}
	seen := map[string]bool{}
	for _, s := range stages {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("stage missing Name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate stage name %q", s.Name)
		}
		seen[s.Name] = true
		if s.Run == nil {
			return fmt.Errorf("stage %q: Run is nil", s.Name)
		}
		switch effectiveMode(s) {
		case ModeSequential:
		case ModeLoop:
			if s.MaxIterations < 1 {
				return fmt.Errorf("stage %q: loop needs MaxIterations >= 1", s.Name)
			}
			if s.Until == nil {
				return fmt.Errorf("stage %q: loop needs Until", s.Name)
			}
		default:
			return fmt.Errorf("stage %q: unknown mode %q", s.Name, s.Mode)
		}
	}
	return nil
}

func effectiveMode(s Stage) StageMode {
	if strings.TrimSpace(string(s.Mode)) == "" {
		return ModeSequential
	}
	return s.Mode
}

func safeRun(ctx context.Context, def Stage, st State) (out State, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = st, fmt.Errorf("stage %q panicked: %v", def.Name, r)
		}
	}()
	return def.Run(ctx, st)
}

// runLoop repeats the stage until Until holds or MaxIterations is reached,
// sleeping Interval between iterations. Iteration counts are recorded on the state.
func (o *Orchestrator) runLoop(ctx context.Context, def Stage, st State) (State, error) {
	for i := 1; i <= def.MaxIterations; i++ {
		next, err := safeRun(ctx, def, st)
		if err != nil {
			return st, err
		}
		next.Iterations = i
		st = next
		if def.Until(st) || i == def.MaxIterations {
			return st, nil
		}
		o.log.Debug("monitoring iteration without exit", "cycle_id", st.CycleID, "iteration", i, "sleep", def.Interval.String())
		if def.Interval > 0 {
			if err := o.sleep(ctx, def.Interval); err != nil {
				return st, err
			}
		} else if err := ctx.Err(); err != nil {
			return st, err
		}
	}
	return st, nil
}
