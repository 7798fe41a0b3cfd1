// Package knowledge ranks knowledge-base articles against a trend signal.
package knowledge

import (
	"sort"
	"strings"
	"time"
)

const (
	MaxResults = 5

	// StandardGuideID identifies the synthetic article used when nothing matches.
	StandardGuideID          = "standard-resolution-guide"
	StandardGuideSuccessRate = 80
)

type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Category    string    `json:"category"`
	SubArea     string    `json:"sub_area,omitempty"`
	SuccessRate float64   `json:"success_rate"`
	Active      bool      `json:"active"`
	LastUpdated time.Time `json:"last_updated"`
}

type RankedArticle struct {
	Article
	RelevanceScore int  `json:"relevance_score"`
	Synthetic      bool `json:"synthetic,omitempty"`
}

type Result struct {
	Articles []RankedArticle `json:"articles"`
	// Fallback is set when the synthetic standard guide replaced an empty ranking.
	Fallback bool `json:"fallback"`
	// Unscored is set when no keywords were available and articles are ordered by recency only.
	Unscored bool `json:"unscored"`
}

// ArticlesUsed counts real articles backing the result.
func (r Result) ArticlesUsed() int {
	if r.Fallback {
		return 0
	}
	return len(r.Articles)
}

func (r Result) Degraded() bool { return r.Fallback || r.Unscored }

func (r Result) IDs() []string {
	out := make([]string, 0, len(r.Articles))
	for _, a := range r.Articles {
		if a.Synthetic {
			continue
		}
		out = append(out, a.ID)
	}
	return out
}

// Rank scores active candidates of the category by keyword containment and keeps
// the top MaxResults. Zero-score articles are dropped. With no keywords the most
// recently updated articles are returned unscored.
func Rank(category string, keywords []string, candidates []Article) Result {
	kws := normalizeKeywords(keywords)
	pool := make([]RankedArticle, 0, len(candidates))
	for _, a := range candidates {
		if !a.Active || !strings.EqualFold(strings.TrimSpace(a.Category), strings.TrimSpace(category)) {
			continue
		}
		ra := RankedArticle{Article: a}
		if len(kws) > 0 {
			ra.RelevanceScore = score(a.Content, kws)
			if ra.RelevanceScore == 0 {
				continue
			}
		}
		pool = append(pool, ra)
	}

	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if !a.LastUpdated.Equal(b.LastUpdated) {
			return a.LastUpdated.After(b.LastUpdated)
		}
		return a.ID < b.ID
	})
	if len(pool) > MaxResults {
		pool = pool[:MaxResults]
	}
	if len(pool) == 0 {
		return Result{Articles: []RankedArticle{StandardGuide(category)}, Fallback: true, Unscored: len(kws) == 0}
	}
	return Result{Articles: pool, Unscored: len(kws) == 0}
}

func score(content string, keywords []string) int {
	lc := strings.ToLower(content)
	n := 0
	for _, k := range keywords {
		if strings.Contains(lc, k) {
			n++
		}
	}
	return n
}

func normalizeKeywords(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func StandardGuide(category string) RankedArticle {
	return RankedArticle{
		Article: Article{
			ID:          StandardGuideID,
			Title:       "Standard Resolution Guide",
			Content:     "Follow the standard incident response runbook for " + category + " issues: confirm scope, check recent deploys and dependency health, apply the documented mitigation, then verify with affected customers.",
			Category:    category,
			SuccessRate: StandardGuideSuccessRate,
			Active:      true,
		},
		Synthetic: true,
	}
}
