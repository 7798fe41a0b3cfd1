package pipeline

import (
	"context"
	"time"

	"github.com/yungbote/trendwatch-backend/internal/baseline"
	"github.com/yungbote/trendwatch-backend/internal/escalation"
	"github.com/yungbote/trendwatch-backend/internal/resolution"
	"github.com/yungbote/trendwatch-backend/internal/trend"
)

// EventStore is the read side of the incident store. Implementations return a
// DependencyError when the store cannot be reached.
type EventStore interface {
	// OpenEvents returns open events with since < occurred_at <= until.
	OpenEvents(ctx context.Context, since, until time.Time) ([]trend.Event, error)
	baseline.HistoryReader
}

// Record is what a completed cycle persists.
type Record struct {
	CycleID    string
	Signal     trend.Signal
	Summary    string
	Resolution resolution.Resolution
	Decision   escalation.Decision
}

type ResolutionStore interface {
	// Append writes rec and returns its generated identifier. Records are never updated.
	Append(ctx context.Context, rec Record) (string, error)
	// Recent returns up to limit resolutions for category generated at or after since, newest first.
	Recent(ctx context.Context, category string, since time.Time, limit int) ([]resolution.Resolution, error)
}

type Notification struct {
	CycleID    string
	RecordID   string
	Signal     trend.Signal
	Summary    string
	Resolution resolution.Resolution
	Decision   escalation.Decision
}

// Notifier delivers a completed cycle to operators. Delivery failures are reported, never fatal.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
