// Package resolution holds the generated resolution type, its section
// parsing, and the summarizer and generator stages that produce it.
package resolution

import (
	"context"
	"strings"
	"time"
)

// SectionCount is the number of blank-line separated sections in a resolution body.
const SectionCount = 5

type Resolution struct {
	Category              string    `json:"category"`
	SubArea               string    `json:"sub_area,omitempty"`
	RootCause             string    `json:"root_cause"`
	Steps                 string    `json:"steps"`
	Verification          string    `json:"verification"`
	Prevention            string    `json:"prevention"`
	CommunicationTemplate string    `json:"communication_template"`
	ArticlesUsed          []string  `json:"articles_used"`
	GeneratedAt           time.Time `json:"generated_at"`
	ConsistencyChanges    string    `json:"consistency_changes,omitempty"`
}

// TextGenerator is the opaque prompt-in, text-out capability.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Sections returns the body in section order.
func (r Resolution) Sections() [SectionCount]string {
	return [SectionCount]string{r.RootCause, r.Steps, r.Verification, r.Prevention, r.CommunicationTemplate}
}

// WithSections replaces the body and keeps category, sub-area, articles and timestamp.
func (r Resolution) WithSections(s [SectionCount]string) Resolution {
	r.RootCause = s[0]
	r.Steps = s[1]
	r.Verification = s[2]
	r.Prevention = s[3]
	r.CommunicationTemplate = s[4]
	return r
}

// ParseSections splits text on blank lines. Missing trailing sections are empty;
// anything past the fifth section is folded into the last one. found reports how
// many sections the text actually contained.
func ParseSections(text string) (sections [SectionCount]string, found int) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var blocks []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.TrimSpace(strings.Join(cur, "\n")))
			cur = cur[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()

	found = len(blocks)
	for i, b := range blocks {
		if i < SectionCount {
			sections[i] = b
			continue
		}
		sections[SectionCount-1] += "\n\n" + b
	}
	return sections, found
}
