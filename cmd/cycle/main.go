// Command cycle runs exactly one pipeline cycle and prints its report as JSON.
// It exits 2 when a required store was unavailable and 1 on any other failure.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/trendwatch-backend/internal/app"
	"github.com/yungbote/trendwatch-backend/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize app: %v\n", err)
		return 1
	}
	defer a.Close()

	rep, err := a.Services.Runner.RunOnce(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(rep); encErr != nil {
		a.Log.Warn("encode report", "error", encErr)
	}

	switch rep.Outcome {
	case pipeline.OutcomeCompleted, pipeline.OutcomeNoTrend:
		return 0
	case pipeline.OutcomeDependencyUnavailable:
		return 2
	default:
		if err != nil {
			a.Log.Error("cycle failed", "error", err)
		}
		return 1
	}
}
