// Package bus carries realtime messages between processes so every API
// replica can serve the same SSE stream.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/trendwatch-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}

// memoryBus delivers in-process only. Used when no Redis address is configured.
type memoryBus struct {
	mu       sync.RWMutex
	handlers []func(realtime.Message)
	closed   bool
}

func NewMemoryBus() Bus { return &memoryBus{} }

func (b *memoryBus) Publish(ctx context.Context, msg realtime.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("memory bus closed")
	}
	for _, h := range b.handlers {
		h(msg)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("memory bus closed")
	}
	idx := len(b.handlers)
	b.handlers = append(b.handlers, onMsg)
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.handlers) {
			b.handlers[idx] = func(realtime.Message) {}
		}
	}()
	return nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = nil
	return nil
}
