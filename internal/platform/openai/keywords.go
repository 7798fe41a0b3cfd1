package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/trendwatch-backend/internal/platform/promptstyle"
)

const keywordSystemPrompt = "You extract search keywords. Reply with a single comma-separated list and nothing else."

func (c *client) ExtractKeywords(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}, nil
	}
	prompt := fmt.Sprintf(
		"Extract key technical terms and concepts from the following text as a comma-separated list.\n"+
			"Focus on product names, feature names, error messages, and technical terms.\n\n"+
			"Text: %s\n\nKeywords:", text)
	out, err := c.GenerateText(ctx, promptstyle.ApplySystem(keywordSystemPrompt, promptstyle.ModeList), prompt)
	if err != nil {
		return nil, err
	}
	return ParseKeywords(out), nil
}

// ParseKeywords splits a comma or newline separated list into unique lowercase keywords.
func ParseKeywords(raw string) []string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(raw), "keywords:") {
		raw = raw[len("keywords:"):]
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' })
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		k := strings.ToLower(strings.TrimSpace(f))
		k = strings.Trim(k, "-*•.\"'` ")
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
