package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystem(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		expect string
	}{
		{"sections", ModeSections, "exactly one blank line"},
		{"list", ModeList, "only the requested list"},
		{"text", "", "concise and structured"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := ApplySystem("You analyze incidents.", tc.mode)
			if !strings.HasPrefix(out, marker) || !strings.Contains(out, tc.expect) {
				t.Fatalf("unexpected prompt:\n%s", out)
			}
			if !strings.HasSuffix(out, "You analyze incidents.") {
				t.Fatalf("base prompt should be kept last:\n%s", out)
			}
			if again := ApplySystem(out, tc.mode); again != out {
				t.Fatalf("ApplySystem is not idempotent")
			}
		})
	}
	if ApplySystem("   ", ModeText) != "" {
		t.Fatalf("blank prompt should stay blank")
	}
}
