package resolution

import (
	"context"
	"strings"
	"time"

	"github.com/yungbote/trendwatch-backend/internal/baseline"
	"github.com/yungbote/trendwatch-backend/internal/knowledge"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/trend"
)

// TimestampPrecision is the finest resolution a stored timestamptz keeps.
// Generated timestamps are truncated to it so a stored record reads back equal.
const TimestampPrecision = time.Microsecond

type Summary struct {
	Text      string `json:"text"`
	IssueData string `json:"issue_data"`
	// Fallback is set when Text is the formatted issue data rather than generated prose.
	Fallback bool `json:"fallback"`
}

type Generator struct {
	log  *logger.Logger
	text TextGenerator
}

func NewGenerator(log *logger.Logger, text TextGenerator) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{log: log.With("component", "ResolutionGenerator"), text: text}
}

// Summarize never fails: without a usable generator the formatted issue data is the summary.
func (g *Generator) Summarize(ctx context.Context, signals []trend.Signal, base baseline.Baseline) Summary {
	data := FormatIssueData(signals, base)
	if g.text == nil {
		return Summary{Text: data, IssueData: data, Fallback: true}
	}
	out, err := g.text.Generate(ctx, SummaryPrompt(data))
	if err != nil || strings.TrimSpace(out) == "" {
		g.log.Warn("summary generation failed, using issue data", "error", err)
		return Summary{Text: data, IssueData: data, Fallback: true}
	}
	return Summary{Text: strings.TrimSpace(out), IssueData: data}
}

// Generate produces the resolution body for primary. When generation fails the
// steps come from the top ranked article and the bool result is true.
func (g *Generator) Generate(ctx context.Context, primary trend.Signal, summary string, ranked knowledge.Result, now time.Time) (Resolution, bool) {
	res := Resolution{
		Category:     primary.Category,
		SubArea:      primary.SubArea,
		ArticlesUsed: ranked.IDs(),
		GeneratedAt:  now.UTC().Truncate(TimestampPrecision),
	}
	if g.text != nil {
		out, err := g.text.Generate(ctx, GenerationPrompt(primary, summary, ranked))
		if err == nil && strings.TrimSpace(out) != "" {
			sections, _ := ParseSections(out)
			return res.WithSections(sections), false
		}
		g.log.Warn("resolution generation failed, deriving from top article", "category", primary.Category, "error", err)
	}
	if len(ranked.Articles) > 0 {
		res.Steps = strings.TrimSpace(ranked.Articles[0].Content)
	}
	return res, true
}
