package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

func recvMessage(t *testing.T, ch <-chan Message, timeout time.Duration) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return Message{}
}

func TestHubOrderingAndDisconnect(t *testing.T) {
	hub := NewHub(logger.Nop())

	a := hub.NewClient()
	hub.AddChannel(a, ChannelResolutions)
	b := hub.NewClient()
	hub.AddChannel(b, ChannelEscalations)

	hub.Broadcast(Message{Channel: ChannelResolutions, Event: EventResolutionPublished, Data: map[string]any{"seq": 1}})
	hub.Broadcast(Message{Channel: ChannelResolutions, Event: EventCycleFinished, Data: map[string]any{"seq": 2}})

	if got := recvMessage(t, a.Outbound, time.Second); got.Event != EventResolutionPublished {
		t.Fatalf("first event: got %s", got.Event)
	}
	if got := recvMessage(t, a.Outbound, time.Second); got.Event != EventCycleFinished {
		t.Fatalf("second event: got %s", got.Event)
	}
	select {
	case msg := <-b.Outbound:
		t.Fatalf("client on another channel received %+v", msg)
	default:
	}

	hub.CloseClient(a)
	hub.CloseClient(a)
	if _, ok := <-a.Outbound; ok {
		t.Fatalf("outbound should be closed after disconnect")
	}
	if n := hub.Subscribers(ChannelResolutions); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
	hub.Broadcast(Message{Channel: ChannelResolutions, Event: EventCycleFinished})
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(logger.Nop())
	c := hub.NewClient()
	hub.AddChannel(c, ChannelCycles)
	for i := 0; i < cap(c.Outbound)+5; i++ {
		hub.Broadcast(Message{Channel: ChannelCycles, Event: EventCycleFinished})
	}
	if len(c.Outbound) != cap(c.Outbound) {
		t.Fatalf("expected a full buffer, got %d", len(c.Outbound))
	}
}

func TestHubServeHTTPWritesEvents(t *testing.T) {
	hub := NewHub(logger.Nop())
	c := hub.NewClient()
	hub.AddChannel(c, ChannelEscalations)
	hub.Broadcast(Message{Channel: ChannelEscalations, Event: EventEscalationRaised, Data: map[string]any{"level": "urgent"}})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest("GET", "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, req, c)

	body := rec.Body.String()
	if !strings.Contains(body, "event: EscalationRaised") || !strings.Contains(body, `"level":"urgent"`) {
		t.Fatalf("unexpected stream body %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}
}
