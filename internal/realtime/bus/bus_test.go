package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/realtime"
)

func TestMemoryBusForwards(t *testing.T) {
	b := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan realtime.Message, 1)
	if err := b.StartForwarder(ctx, func(m realtime.Message) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	msg := realtime.Message{Channel: realtime.ChannelCycles, Event: realtime.EventCycleFinished}
	if err := b.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.Event != realtime.EventCycleFinished {
			t.Fatalf("event: got %s", m.Event)
		}
	case <-time.After(time.Second):
		t.Fatalf("message not forwarded")
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Publish(context.Background(), msg); err == nil {
		t.Fatalf("publish after close should fail")
	}
}

func TestNewWithoutAddrIsInProcess(t *testing.T) {
	b, err := New(logger.Nop(), RedisConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := b.(*memoryBus); !ok {
		t.Fatalf("expected memory bus, got %T", b)
	}
	if _, err := NewRedisBus(logger.Nop(), RedisConfig{}); err == nil {
		t.Fatalf("expected missing address error")
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	b, err := NewRedisBus(logger.Nop(), RedisConfig{Addr: addr, Channel: "trendwatch:test"})
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan realtime.Message, 1)
	if err := b.StartForwarder(ctx, func(m realtime.Message) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	if err := b.Publish(ctx, realtime.Message{Channel: realtime.ChannelResolutions, Event: realtime.EventResolutionPublished}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.Channel != realtime.ChannelResolutions {
			t.Fatalf("channel: got %s", m.Channel)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("message not forwarded")
	}
}
