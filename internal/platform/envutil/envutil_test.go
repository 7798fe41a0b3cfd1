package envutil

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDuration(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{name: "unset", raw: "", want: 7 * time.Second},
		{name: "seconds", raw: "30", want: 30 * time.Second},
		{name: "go_duration", raw: "2m", want: 2 * time.Minute},
		{name: "garbage", raw: "soon", want: 7 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TW_TEST_DURATION", tc.raw)
			if got := Duration("TW_TEST_DURATION", 7*time.Second, nil); got != tc.want {
				t.Fatalf("Duration(%q)=%v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestIntFloatBool(t *testing.T) {
	t.Setenv("TW_TEST_INT", " 12 ")
	t.Setenv("TW_TEST_FLOAT", "x")
	t.Setenv("TW_TEST_BOOL", "on")

	if got := Int("TW_TEST_INT", 1, nil); got != 12 {
		t.Fatalf("Int=%d", got)
	}
	if got := Float("TW_TEST_FLOAT", 0.5, nil); got != 0.5 {
		t.Fatalf("Float=%v", got)
	}
	if got := Bool("TW_TEST_BOOL", false, nil); !got {
		t.Fatalf("Bool=%v", got)
	}
}

func TestList(t *testing.T) {
	t.Setenv("TW_TEST_LIST", "a, ,b,c ")
	got := List("TW_TEST_LIST", nil, nil)
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Fatalf("List mismatch (-want +got):\n%s", diff)
	}
	t.Setenv("TW_TEST_LIST", " , ")
	def := []string{"x"}
	if diff := cmp.Diff(def, List("TW_TEST_LIST", def, nil)); diff != "" {
		t.Fatalf("List default mismatch (-want +got):\n%s", diff)
	}
}
