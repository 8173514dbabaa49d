// Package event delivers snapshots from the scheduler to its consumers.
package event

import (
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/hostpulse/internal/diagnostics"
)

// Handler consumes one snapshot.
type Handler func(diagnostics.SystemStats)

type subscription struct {
	id   uint64
	name string
	fn   Handler
}

// Bus fans snapshots out to subscribers in subscription order. A panicking
// subscriber is logged and skipped; the rest still receive the snapshot.
type Bus struct {
	logger *zap.Logger

	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
}

// NewBus creates an empty Bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger}
}

// Subscribe registers fn under name and returns a function that removes it.
func (b *Bus) Subscribe(name string, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, name: name, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len reports the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers s to every subscriber synchronously.
func (b *Bus) Publish(s diagnostics.SystemStats) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, s)
	}
}

func (b *Bus) deliver(sub subscription, s diagnostics.SystemStats) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("snapshot subscriber panicked",
				zap.String("subscriber", sub.name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	sub.fn(s)
}
