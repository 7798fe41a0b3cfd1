package resolution

import (
	"fmt"
	"strings"

	"github.com/yungbote/trendwatch-backend/internal/baseline"
	"github.com/yungbote/trendwatch-backend/internal/knowledge"
	"github.com/yungbote/trendwatch-backend/internal/trend"
)

const summarizerInstructions = `Create a clear, actionable summary of the trending issue below. Cover:
the core problem and affected systems, impact severity, the number of affected customers and the time pattern,
and an initial assessment of likely root causes and priority.
Keep it concise but complete enough for a resolution team to understand the scope.`

const generatorInstructions = `Generate a comprehensive, actionable resolution for the trending issue below.
Address the root cause, give clear step-by-step instructions, and cover both the immediate fix and the long-term solution.
Stay consistent with previous communications and include escalation paths where needed.`

const sectionInstructions = `Reply with exactly five plain-text sections separated by one blank line, in this order:
1. Root cause analysis
2. Step-by-step resolution steps
3. Verification steps
4. Prevention measures
5. Customer communication template`

// FormatIssueData renders the primary signal, up to five recent incidents, the
// historical context and the other trending signals.
func FormatIssueData(signals []trend.Signal, base baseline.Baseline) string {
	primary, ok := trend.Primary(signals)
	if !ok {
		return "No trending issues detected."
	}
	var b strings.Builder
	b.WriteString("Primary Trending Issue:\n")
	fmt.Fprintf(&b, "- Type: %s\n", primary.Category)
	if primary.SubArea != "" {
		fmt.Fprintf(&b, "- Product Area: %s\n", primary.SubArea)
	}
	fmt.Fprintf(&b, "- Description: %s\n", primary.SampleContent)
	fmt.Fprintf(&b, "- Severity: %d\n", primary.MaxSeverity)
	fmt.Fprintf(&b, "- Current Incident Count: %d\n", primary.Count)
	b.WriteString("\nRecent Incidents:\n")
	for _, inc := range primary.RecentIncidents(5) {
		fmt.Fprintf(&b, "- %s (%s): %s\n", inc.RefID, inc.OccurredAt.UTC().Format("2006-01-02 15:04"), inc.Detail)
	}
	if !base.Empty() {
		b.WriteString("\nHistorical Context:\n")
		fmt.Fprintf(&b, "- Average Daily Incidents: %.1f\n", base.AvgDailyCount)
		fmt.Fprintf(&b, "- Peak Daily Incidents: %.0f\n", base.MaxDailyCount)
		fmt.Fprintf(&b, "- Typical Resolution Time: %.1f minutes\n", base.TypicalResolutionMinutes)
	}
	if len(signals) > 1 {
		b.WriteString("\nOther Trending Issues:\n")
		for _, s := range signals[1:] {
			fmt.Fprintf(&b, "- %s (%d incidents): %s\n", s.Category, s.Count, s.SampleContent)
		}
	}
	return strings.TrimSpace(b.String())
}

func SummaryPrompt(issueData string) string {
	return summarizerInstructions + "\n\nCurrent Issue Data:\n" + issueData + "\n\nPlease provide a comprehensive summary."
}

func GenerationPrompt(primary trend.Signal, summary string, ranked knowledge.Result) string {
	var b strings.Builder
	b.WriteString(generatorInstructions)
	b.WriteString("\n\nIssue Context:\n")
	fmt.Fprintf(&b, "Type: %s\n", primary.Category)
	if primary.SubArea != "" {
		fmt.Fprintf(&b, "Product Area: %s\n", primary.SubArea)
	}
	fmt.Fprintf(&b, "Severity: %d\n", primary.MaxSeverity)
	fmt.Fprintf(&b, "Affected Users: %d\n", primary.Count)
	b.WriteString("\nIssue Summary:\n")
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n\nKnowledge Base Articles:\n")
	for _, a := range ranked.Articles {
		fmt.Fprintf(&b, "- %s (success rate %.0f%%, relevance %d): %s\n", a.Title, a.SuccessRate, a.RelevanceScore, oneLine(a.Content))
	}
	b.WriteString("\n")
	b.WriteString(sectionInstructions)
	return b.String()
}

func ComparisonPrompt(current Resolution, priors []Resolution) string {
	var b strings.Builder
	b.WriteString("Compare the current resolution with past responses and ensure consistency.\n")
	b.WriteString("Identify any contradictions or improvements needed.\n")
	b.WriteString("Start your answer with a verdict line that is exactly CHANGES NEEDED or CONSISTENT, then give your analysis on the following lines.\n\n")
	b.WriteString("Current Resolution:\n")
	writeBrief(&b, current)
	b.WriteString("\nPast Responses:\n")
	for i, p := range priors {
		fmt.Fprintf(&b, "\nPast Response %d:\n", i+1)
		writeBrief(&b, p)
	}
	b.WriteString("\nPlease analyze and suggest any needed adjustments to maintain consistency while preserving accuracy.")
	return b.String()
}

func UpdatePrompt(current Resolution, analysis string) string {
	var b strings.Builder
	b.WriteString("Based on the consistency analysis, provide an updated resolution that stays consistent with past responses while addressing the current issue effectively.\n\n")
	b.WriteString("Analysis:\n")
	b.WriteString(strings.TrimSpace(analysis))
	b.WriteString("\n\nCurrent Resolution:\n")
	for _, s := range current.Sections() {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	b.WriteString(sectionInstructions)
	return b.String()
}

func writeBrief(b *strings.Builder, r Resolution) {
	fmt.Fprintf(b, "Root Cause: %s\n", oneLine(r.RootCause))
	fmt.Fprintf(b, "Steps: %s\n", oneLine(r.Steps))
	fmt.Fprintf(b, "Communication: %s\n", oneLine(r.CommunicationTemplate))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
