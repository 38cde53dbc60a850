// Package events fans engine events out to subscribers and keeps a short recent-event buffer.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mtlprog/wealth/internal/domain"
)

// DefaultBufferSize is the number of recent events kept for the API.
const DefaultBufferSize = 100

// Handler receives published events. It must not block.
type Handler func(domain.Event)

// Bus is a synchronous in-process event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	recent   []domain.Event
	size     int
}

// NewBus creates a bus keeping the last size events (DefaultBufferSize if non-positive).
func NewBus(size int) *Bus {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Bus{size: size}
}

// Subscribe registers h for every subsequent event.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish logs each event, buffers it and delivers it to the subscribers in order.
func (b *Bus) Publish(events ...domain.Event) {
	if len(events) == 0 {
		return
	}

	b.mu.Lock()
	b.recent = append(b.recent, events...)
	if over := len(b.recent) - b.size; over > 0 {
		b.recent = append([]domain.Event(nil), b.recent[over:]...)
	}
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.Unlock()

	for _, e := range events {
		level := slog.LevelInfo
		if e.Type == domain.EventRefreshFailed {
			level = slog.LevelWarn
		}
		slog.Log(context.Background(), level, "event", "type", e.Type, "asset", e.AssetID, "message", e.Message)
		for _, h := range handlers {
			h(e)
		}
	}
}

// Recent returns the buffered events, oldest first.
func (b *Bus) Recent() []domain.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.Event(nil), b.recent...)
}
