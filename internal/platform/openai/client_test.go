package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, v any) *http.Response {
	b, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func assistantText(text string) map[string]any {
	return map[string]any{
		"output": []map[string]any{{
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "output_text", "text": text},
			},
		}},
	}
}

func newTestClient(t *testing.T, rt roundTripperFunc, cfg Config) *client {
	t.Helper()
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	c, err := NewWithHTTPClient(nil, cfg, &http.Client{Transport: rt})
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	cc := c.(*client)
	cc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return cc
}

func TestGenerateText(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/responses" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("authorization=%q", got)
		}
		var in responsesRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in.Model != "m-1" || len(in.Input) != 2 || in.Input[1].Content != "hello" {
			t.Fatalf("unexpected request: %+v", in)
		}
		return jsonResponse(http.StatusOK, assistantText("root cause\n\nsteps")), nil
	}, Config{BaseURL: "http://upstream/", Model: "m-1"})

	out, err := c.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "root cause\n\nsteps" {
		t.Fatalf("out=%q", out)
	}
}

func TestGenerateTextRetriesOnServerError(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return jsonResponse(http.StatusServiceUnavailable, map[string]any{"error": "busy"}), nil
		}
		return jsonResponse(http.StatusOK, assistantText("ok")), nil
	}, Config{MaxRetries: 3})

	out, err := c.Generate(context.Background(), "x")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "ok" || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("out=%q calls=%d", out, calls)
	}
}

func TestGenerateTextDoesNotRetryClientError(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusBadRequest, map[string]any{"error": "bad"}), nil
	}, Config{MaxRetries: 3})

	if _, err := c.Generate(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestGenerateTextDropsUnsupportedTemperature(t *testing.T) {
	temp := 0.2
	var withTemp, withoutTemp int32
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		var in responsesRequest
		_ = json.NewDecoder(req.Body).Decode(&in)
		if in.Temperature != nil {
			atomic.AddInt32(&withTemp, 1)
			return jsonResponse(http.StatusBadRequest, map[string]any{"error": "Unsupported parameter: 'temperature'"}), nil
		}
		atomic.AddInt32(&withoutTemp, 1)
		return jsonResponse(http.StatusOK, assistantText("fine")), nil
	}, Config{Temperature: &temp})

	out, err := c.Generate(context.Background(), "x")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "fine" || withTemp != 1 || withoutTemp != 1 {
		t.Fatalf("out=%q withTemp=%d withoutTemp=%d", out, withTemp, withoutTemp)
	}
}

func TestExtractKeywords(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, assistantText("Keywords: Login, OAuth Token,\nlogin, 502 error")), nil
	}, Config{})

	got, err := c.ExtractKeywords(context.Background(), "users cannot log in")
	if err != nil {
		t.Fatalf("ExtractKeywords: %v", err)
	}
	if diff := cmp.Diff([]string{"login", "oauth token", "502 error"}, got); diff != "" {
		t.Fatalf("keywords mismatch (-want +got):\n%s", diff)
	}

	empty, err := c.ExtractKeywords(context.Background(), "   ")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty text: got=%v err=%v", empty, err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(nil, Config{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
