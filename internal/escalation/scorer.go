// Package escalation decides whether a trend signal needs a human team.
package escalation

import (
	"fmt"
	"time"

	"github.com/yungbote/trendwatch-backend/internal/baseline"
	"github.com/yungbote/trendwatch-backend/internal/trend"
)

type Level string

const (
	LevelNormal Level = "normal"
	LevelHigh   Level = "high"
	LevelUrgent Level = "urgent"
)

type Decision struct {
	ShouldEscalate bool          `json:"should_escalate"`
	Score          int           `json:"score"`
	Level          Level         `json:"level"`
	Reasons        []string      `json:"reasons"`
	Team           string        `json:"team"`
	SLA            time.Duration `json:"sla"`
}

// Remedy is the knowledge coverage input. When Assessed is false the
// remedy rule is skipped, as in the monitoring precondition check.
type Remedy struct {
	Assessed     bool
	ArticlesUsed int
}

type Input struct {
	Signal           trend.Signal
	ConcurrentTrends int
	Baseline         baseline.Baseline
	Remedy           Remedy
	Window           time.Duration
	// Now anchors the rapid-onset window. Callers pass the cycle start time.
	Now time.Time
}

type Scorer struct {
	policy Policy
}

func NewScorer(p Policy) *Scorer {
	return &Scorer{policy: p}
}

// Score applies the rules in fixed order. It reads nothing but its input.
func (s *Scorer) Score(in Input) Decision {
	p := s.policy
	var score int
	reasons := []string{}
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	count := in.Signal.Count
	for _, tier := range p.AffectedTiers {
		if count > tier.Above {
			add(tier.Points, tier.Reason)
			break
		}
	}

	if p.isCritical(in.Signal.Category) {
		add(p.Critical.Points, fmt.Sprintf("Critical service affected: %s", in.Signal.Category))
	}

	if avg := in.Baseline.AvgDailyCount; avg > 0 && float64(count) > p.VolumeAnomaly.Multiplier*avg {
		add(p.VolumeAnomaly.Points, fmt.Sprintf("Abnormal volume: %d vs avg %.1f", count, avg))
	}

	if in.Remedy.Assessed {
		switch {
		case in.Remedy.ArticlesUsed == 0:
			add(p.Remedy.NonePoints, "No knowledge base articles found")
		case in.Remedy.ArticlesUsed < p.Remedy.LimitedBelow:
			add(p.Remedy.LimitedPoints, "Limited knowledge base coverage")
		}
	}

	if in.ConcurrentTrends > p.Concurrent.Above {
		add(p.Concurrent.Points, fmt.Sprintf("Multiple trending issues: %d", in.ConcurrentTrends))
	}

	if s.rapidOnset(in) {
		add(p.RapidOnset.Points, "Rapid increase in incident rate")
	}

	level := LevelNormal
	switch {
	case score >= p.Thresholds.Urgent:
		level = LevelUrgent
	case score >= p.Thresholds.High:
		level = LevelHigh
	}
	return Decision{
		ShouldEscalate: score >= p.Thresholds.Escalate,
		Score:          score,
		Level:          level,
		Reasons:        reasons,
		Team:           p.TeamFor(in.Signal.Category),
		SLA:            p.SLA[level],
	}
}

// rapidOnset is true when at least Share of the incidents fall within the most
// recent RecentFraction of the window, measured back from in.Now.
func (s *Scorer) rapidOnset(in Input) bool {
	rule := s.policy.RapidOnset
	n := len(in.Signal.Incidents)
	if n < rule.MinIncidents || n == 0 || in.Window <= 0 || in.Now.IsZero() {
		return false
	}
	recent := time.Duration(float64(in.Window) * rule.RecentFraction)
	var hits int
	for _, inc := range in.Signal.Incidents {
		if in.Now.Sub(inc.OccurredAt) <= recent {
			hits++
		}
	}
	return float64(hits) >= float64(n)*rule.Share
}
