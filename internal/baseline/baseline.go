// Package baseline derives per-category daily statistics from event history.
package baseline

import (
	"context"
	"time"
)

const day = 24 * time.Hour

type Sample struct {
	OccurredAt        time.Time
	Closed            bool
	ResolutionMinutes *float64
}

type Baseline struct {
	Category                 string  `json:"category"`
	AvgDailyCount            float64 `json:"avg_daily_count"`
	MaxDailyCount            float64 `json:"max_daily_count"`
	TypicalResolutionMinutes float64 `json:"typical_resolution_minutes"`
}

// Empty reports a baseline with no history; volume rules must treat it as disabled.
func (b Baseline) Empty() bool {
	return b.AvgDailyCount == 0 && b.MaxDailyCount == 0
}

// AnomalyRatio is count over the daily average, or 0 when there is no history.
func (b Baseline) AnomalyRatio(count int) float64 {
	if b.AvgDailyCount <= 0 {
		return 0
	}
	return float64(count) / b.AvgDailyCount
}

// Compute buckets samples into lookbackDays rolling 24h buckets ending at now.
// Empty buckets count as zero in the average.
func Compute(category string, samples []Sample, lookbackDays int, now time.Time) Baseline {
	out := Baseline{Category: category}
	if lookbackDays < 1 {
		lookbackDays = 1
	}
	start := now.Add(-time.Duration(lookbackDays) * day)
	counts := make([]int, lookbackDays)
	var total int
	var durSum float64
	var durN int
	for _, s := range samples {
		if !s.OccurredAt.After(start) || s.OccurredAt.After(now) {
			continue
		}
		idx := int(now.Sub(s.OccurredAt) / day)
		if idx >= lookbackDays {
			idx = lookbackDays - 1
		}
		counts[idx]++
		total++
		if s.Closed && s.ResolutionMinutes != nil && *s.ResolutionMinutes >= 0 {
			durSum += *s.ResolutionMinutes
			durN++
		}
	}
	if total == 0 {
		return out
	}
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	out.AvgDailyCount = float64(total) / float64(lookbackDays)
	out.MaxDailyCount = float64(maxCount)
	if durN > 0 {
		out.TypicalResolutionMinutes = durSum / float64(durN)
	}
	return out
}

type HistoryReader interface {
	History(ctx context.Context, category string, since, until time.Time) ([]Sample, error)
}

type Comparator struct {
	reader HistoryReader
}

func NewComparator(reader HistoryReader) *Comparator {
	return &Comparator{reader: reader}
}

// Compare reads lookbackDays of history ending at now and computes the baseline.
// Read errors are returned untouched; the caller picks the fallback.
func (c *Comparator) Compare(ctx context.Context, category string, lookbackDays int, now time.Time) (Baseline, error) {
	if lookbackDays < 1 {
		lookbackDays = 1
	}
	since := now.Add(-time.Duration(lookbackDays) * day)
	samples, err := c.reader.History(ctx, category, since, now)
	if err != nil {
		return Baseline{Category: category}, err
	}
	return Compute(category, samples, lookbackDays, now), nil
}
