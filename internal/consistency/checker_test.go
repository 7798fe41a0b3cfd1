package consistency

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yungbote/trendwatch-backend/internal/resolution"
)

var generated = time.Date(2026, 7, 2, 14, 0, 0, 0, time.UTC)

type reply struct {
	out string
	err error
}

type scriptedText struct {
	replies []reply
	prompts []string
}

func (s *scriptedText) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.replies) == 0 {
		return "", errors.New("unexpected call")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.out, r.err
}

func current() resolution.Resolution {
	return resolution.Resolution{
		Category:              "payment",
		RootCause:             "gateway timeout",
		Steps:                 "retry payments",
		Verification:          "check dashboard",
		Prevention:            "raise timeout",
		CommunicationTemplate: "We are on it",
		ArticlesUsed:          []string{"kb-7", "kb-9"},
		GeneratedAt:           generated,
	}
}

func priors(n int) []resolution.Resolution {
	out := make([]resolution.Resolution, 0, n)
	for i := 0; i < n; i++ {
		p := current()
		p.RootCause = "prior cause " + string(rune('A'+i))
		p.GeneratedAt = generated.Add(-time.Duration(i+1) * 24 * time.Hour)
		out = append(out, p)
	}
	return out
}

func TestReconcile(t *testing.T) {
	amendedBody := "processor outage\n\nfail over\n\nconfirm success rate\n\nadd second processor\n\nWe switched processors"
	tests := []struct {
		name        string
		priors      []resolution.Resolution
		replies     []reply
		wantCalls   int
		wantAmended bool
		wantConf    bool
	}{
		{name: "no priors leaves resolution untouched", priors: nil, wantCalls: 0},
		{name: "consistent comparison", priors: priors(2), replies: []reply{{out: "The resolution is consistent with past responses."}}, wantCalls: 1},
		{name: "comparison failure", priors: priors(1), replies: []reply{{err: errors.New("503")}}, wantCalls: 1},
		{
			name:        "conflict with complete update",
			priors:      priors(5),
			replies:     []reply{{out: "Changes needed: root cause contradicts past response 1."}, {out: amendedBody}},
			wantCalls:   2,
			wantAmended: true,
			wantConf:    true,
		},
		{
			name:      "suggested changes marker also counts",
			priors:    priors(1),
			replies:   []reply{{out: "Suggested Changes: align the template."}, {out: amendedBody}},
			wantCalls: 2, wantAmended: true, wantConf: true,
		},
		{
			name:      "conflict with incomplete update",
			priors:    priors(1),
			replies:   []reply{{out: "changes needed"}, {out: "only\n\nthree\n\nsections"}},
			wantCalls: 2, wantConf: true,
		},
		{
			name:      "conflict with failed update",
			priors:    priors(1),
			replies:   []reply{{out: "changes needed"}, {err: errors.New("timeout")}},
			wantCalls: 2, wantConf: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text := &scriptedText{replies: tc.replies}
			got := NewChecker(nil, text, 0).Reconcile(context.Background(), current(), tc.priors)

			if len(text.prompts) != tc.wantCalls {
				t.Fatalf("calls: want %d got %d", tc.wantCalls, len(text.prompts))
			}
			if got.Amended != tc.wantAmended || got.Conflict != tc.wantConf {
				t.Fatalf("amended=%v conflict=%v", got.Amended, got.Conflict)
			}
			r := got.Resolution
			if r.Category != "payment" || !r.GeneratedAt.Equal(generated) || !cmp.Equal(r.ArticlesUsed, []string{"kb-7", "kb-9"}) {
				t.Fatalf("identity fields changed: %+v", r)
			}
			if !tc.wantAmended {
				if diff := cmp.Diff(current(), r); diff != "" {
					t.Fatalf("resolution changed without amendment (-want +got):\n%s", diff)
				}
				return
			}
			if r.RootCause != "processor outage" || r.CommunicationTemplate != "We switched processors" {
				t.Fatalf("body not replaced: %+v", r)
			}
			if r.ConsistencyChanges == "" {
				t.Fatalf("amendment must be annotated")
			}
		})
	}
}

func TestReconcileComparesAtMostThreePriors(t *testing.T) {
	text := &scriptedText{replies: []reply{{out: "consistent"}}}
	NewChecker(nil, text, 0).Reconcile(context.Background(), current(), priors(5))
	p := text.prompts[0]
	if !strings.Contains(p, "Past Response 3:") || strings.Contains(p, "Past Response 4:") {
		t.Fatalf("expected exactly three priors in prompt:\n%s", p)
	}
	if !strings.Contains(p, "prior cause A") || strings.Contains(p, "prior cause D") {
		t.Fatalf("expected the newest priors first:\n%s", p)
	}
}

func TestSignalsConflict(t *testing.T) {
	tests := map[string]bool{
		"CHANGES NEEDED\nroot cause differs":                   true,
		"**Changes needed**: align the template":               true,
		"\n  Verdict: CHANGES NEEDED":                          true,
		"Suggested changes - swap step 2":                      true,
		"No CHANGES NEEDED here":                               false,
		"suggested changes: none":                              false,
		"CONSISTENT\nno changes needed":                        false,
		"CONSISTENT\nsuggested changes would be cosmetic only": false,
		"The responses are consistent.":                        false,
		"minor wording could be changed":                       false,
		"":                                                     false,
	}
	for in, want := range tests {
		if got := SignalsConflict(in); got != want {
			t.Fatalf("%q: want %v got %v", in, want, got)
		}
	}
}

func TestReconcileNegativeVerdictKeepsResolution(t *testing.T) {
	text := &scriptedText{replies: []reply{
		{out: "The current resolution is consistent with past responses. No changes needed."},
		{out: "r\n\ns\n\nv\n\np\n\nc"},
	}}
	got := NewChecker(nil, text, 0).Reconcile(context.Background(), current(), priors(1))
	if len(text.prompts) != 1 {
		t.Fatalf("calls: want 1 got %d", len(text.prompts))
	}
	if got.Conflict || got.Amended {
		t.Fatalf("conflict=%v amended=%v", got.Conflict, got.Amended)
	}
	if diff := cmp.Diff(current(), got.Resolution); diff != "" {
		t.Fatalf("resolution changed (-want +got):\n%s", diff)
	}
}

func TestComparisonPromptAsksForVerdictLine(t *testing.T) {
	p := resolution.ComparisonPrompt(current(), priors(1))
	if !strings.Contains(p, "CHANGES NEEDED") || !strings.Contains(p, "CONSISTENT") {
		t.Fatalf("prompt does not request a verdict line:\n%s", p)
	}
}
