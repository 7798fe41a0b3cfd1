package promptstyle

import "strings"

const marker = "TRENDWATCH_PROMPT_STYLE_V1"

const (
	ModeText     = "text"
	ModeSections = "sections"
	ModeList     = "list"
)

// ApplySystem prepends a short guidance block to a system prompt. It is idempotent.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}
	mode = strings.ToLower(strings.TrimSpace(mode))

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou support an operations team that resolves trending customer issues.")
	b.WriteString("\nUse the provided incident data as grounding; do not invent incidents, customers or metrics.")
	b.WriteString("\nIf information is missing, say so plainly.")
	switch mode {
	case ModeSections:
		b.WriteString("\nSeparate every requested section with exactly one blank line.")
		b.WriteString("\nDo not put blank lines inside a section and do not add headings or numbering.")
	case ModeList:
		b.WriteString("\nReturn only the requested list, with no commentary.")
	default:
		b.WriteString("\nBe concise and structured.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return strings.TrimSpace(b.String())
}
