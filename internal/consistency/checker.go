// Package consistency reconciles a new resolution with earlier resolutions for the same category.
package consistency

import (
	"context"
	"strings"

	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/resolution"
)

const DefaultMaxPriors = 3

// conflictVerdicts open the verdict line of a comparison that asks for changes.
var conflictVerdicts = []string{"changes needed", "suggested changes"}

type Result struct {
	Resolution resolution.Resolution
	// Conflict is set when the comparison asked for changes.
	Conflict bool
	// Amended is set when the body was replaced.
	Amended bool
}

type Checker struct {
	log       *logger.Logger
	text      resolution.TextGenerator
	maxPriors int
}

func NewChecker(log *logger.Logger, text resolution.TextGenerator, maxPriors int) *Checker {
	if log == nil {
		log = logger.Nop()
	}
	if maxPriors <= 0 {
		maxPriors = DefaultMaxPriors
	}
	return &Checker{log: log.With("component", "ConsistencyChecker"), text: text, maxPriors: maxPriors}
}

// Reconcile compares current against the most recent priors (newest first). The
// body is replaced only when the comparison explicitly signals a conflict and the
// update yields every section. Category, timestamp and articles are never changed.
func (c *Checker) Reconcile(ctx context.Context, current resolution.Resolution, priors []resolution.Resolution) Result {
	out := Result{Resolution: current}
	if len(priors) == 0 || c.text == nil {
		return out
	}
	if len(priors) > c.maxPriors {
		priors = priors[:c.maxPriors]
	}

	analysis, err := c.text.Generate(ctx, resolution.ComparisonPrompt(current, priors))
	if err != nil {
		c.log.Warn("consistency comparison failed, keeping resolution", "category", current.Category, "error", err)
		return out
	}
	if !SignalsConflict(analysis) {
		return out
	}
	out.Conflict = true

	updated, err := c.text.Generate(ctx, resolution.UpdatePrompt(current, analysis))
	if err != nil {
		c.log.Warn("consistency update failed, keeping resolution", "category", current.Category, "error", err)
		return out
	}
	sections, found := resolution.ParseSections(updated)
	if found < resolution.SectionCount {
		c.log.Warn("consistency update incomplete, keeping resolution", "category", current.Category, "sections", found)
		return out
	}
	amended := current.WithSections(sections)
	amended.ConsistencyChanges = strings.TrimSpace(analysis)
	out.Resolution = amended
	out.Amended = true
	return out
}

// SignalsConflict reads only the first non-empty line of the comparison. A
// conflict is signalled when that line opens with a change verdict that is not
// followed by "none". Change phrases anywhere else are ignored.
func SignalsConflict(analysis string) bool {
	verdict := verdictLine(analysis)
	for _, v := range conflictVerdicts {
		rest, ok := strings.CutPrefix(verdict, v)
		if !ok {
			continue
		}
		rest = strings.Trim(rest, " :.-*")
		return rest != "none" && !strings.HasPrefix(rest, "none ")
	}
	return false
}

func verdictLine(analysis string) string {
	for _, line := range strings.Split(analysis, "\n") {
		line = strings.ToLower(strings.Trim(line, " \t\r*#>_`"))
		if line == "" {
			continue
		}
		line = strings.TrimPrefix(line, "verdict:")
		return strings.Trim(line, " \t*_`")
	}
	return ""
}
