// Package trend groups windowed customer-issue events into trend signals and
// picks the primary signal for a cycle.
package trend

import (
	"sort"
	"strings"
	"time"
)

type Event struct {
	RefID       string
	Category    string
	ProductArea string
	Content     string
	Severity    int
	Status      string
	OccurredAt  time.Time
}

type Incident struct {
	RefID      string    `json:"ref_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Detail     string    `json:"detail"`
}

type Signal struct {
	Category      string     `json:"category"`
	SubArea       string     `json:"sub_area,omitempty"`
	Count         int        `json:"count"`
	MaxSeverity   int        `json:"max_severity"`
	SampleContent string     `json:"sample_content"`
	FirstSeen     time.Time  `json:"first_seen"`
	Incidents     []Incident `json:"incidents"`
}

// Aggregate groups open events by category and returns every group with at least
// minOccurrences events, strongest first. An empty result means no trend.
func Aggregate(events []Event, minOccurrences int) []Signal {
	if minOccurrences < 1 {
		minOccurrences = 1
	}
	sorted := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Status != "" && !strings.EqualFold(e.Status, "open") {
			continue
		}
		if strings.TrimSpace(e.Category) == "" {
			continue
		}
		sorted = append(sorted, e)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.Before(b.OccurredAt)
		}
		if a.RefID != b.RefID {
			return a.RefID < b.RefID
		}
		return a.Content < b.Content
	})

	groups := map[string]*Signal{}
	var order []string
	for _, e := range sorted {
		key := e.Category
		s, ok := groups[key]
		if !ok {
			s = &Signal{
				Category:      e.Category,
				SubArea:       e.ProductArea,
				SampleContent: e.Content,
				FirstSeen:     e.OccurredAt,
			}
			groups[key] = s
			order = append(order, key)
		}
		s.Count++
		if e.Severity > s.MaxSeverity {
			s.MaxSeverity = e.Severity
		}
		s.Incidents = append(s.Incidents, Incident{RefID: e.RefID, OccurredAt: e.OccurredAt, Detail: e.Content})
	}

	out := make([]Signal, 0, len(order))
	for _, key := range order {
		if s := groups[key]; s.Count >= minOccurrences {
			out = append(out, *s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return stronger(out[i], out[j]) })
	return out
}

// stronger orders by count, then max severity, then earliest first-seen.
func stronger(a, b Signal) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	if a.MaxSeverity != b.MaxSeverity {
		return a.MaxSeverity > b.MaxSeverity
	}
	if !a.FirstSeen.Equal(b.FirstSeen) {
		return a.FirstSeen.Before(b.FirstSeen)
	}
	return a.Category < b.Category
}

// Primary returns the first signal of an Aggregate result.
func Primary(signals []Signal) (Signal, bool) {
	if len(signals) == 0 {
		return Signal{}, false
	}
	return signals[0], true
}

// RecentIncidents returns at most n incidents, newest first.
func (s Signal) RecentIncidents(n int) []Incident {
	if n <= 0 || len(s.Incidents) == 0 {
		return nil
	}
	out := make([]Incident, 0, n)
	for i := len(s.Incidents) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.Incidents[i])
	}
	return out
}
