package signal

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// HandlerFunc reacts to a published signal.
type HandlerFunc func(ctx context.Context, sig Signal)

type handlerEntry struct {
	id      uint64
	handler HandlerFunc
}

// catchAll is the registry key for handlers that receive every kind.
const catchAll Kind = ""

// Bus is a process-wide publish/subscribe hub. The zero value is not usable; construct
// it once with [NewBus] and inject it into collaborators.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]handlerEntry
	nextID   atomic.Uint64
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for recovered handler panics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[Kind][]handlerEntry),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription is a registered handler. Unsubscribe removes it.
type Subscription struct {
	id   uint64
	kind Kind
	bus  *Bus
	once sync.Once
}

// Unsubscribe removes the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.kind, s.id)
	})
}

// Subscribe registers fn for signals of kind.
func (b *Bus) Subscribe(kind Kind, fn HandlerFunc) *Subscription {
	return b.add(kind, fn)
}

// SubscribeAll registers fn for every signal, after the kind-specific handlers.
func (b *Bus) SubscribeAll(fn HandlerFunc) *Subscription {
	return b.add(catchAll, fn)
}

func (b *Bus) add(kind Kind, fn HandlerFunc) *Subscription {
	id := b.nextID.Add(1)
	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], handlerEntry{id: id, handler: fn})
	b.mu.Unlock()
	return &Subscription{id: id, kind: kind, bus: b}
}

func (b *Bus) remove(kind Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.handlers[kind]
	for i, e := range entries {
		if e.id == id {
			// copy so in-flight Publish snapshots keep their slice intact
			next := make([]handlerEntry, 0, len(entries)-1)
			next = append(next, entries[:i]...)
			next = append(next, entries[i+1:]...)
			b.handlers[kind] = next
			break
		}
	}
	if len(b.handlers[kind]) == 0 {
		delete(b.handlers, kind)
	}
}

// Publish stamps sig with an ID and timestamp when missing and delivers it.
// It returns the stamped signal.
func (b *Bus) Publish(ctx context.Context, sig Signal) Signal {
	if ctx == nil {
		ctx = context.Background()
	}
	if sig.ID == uuid.Nil {
		sig.ID = uuid.New()
	}
	if sig.At.IsZero() {
		sig.At = b.now()
	}

	b.mu.RLock()
	specific := b.handlers[sig.Kind]
	all := b.handlers[catchAll]
	b.mu.RUnlock()

	for _, e := range specific {
		b.deliver(ctx, e, sig)
	}
	for _, e := range all {
		b.deliver(ctx, e, sig)
	}
	return sig
}

func (b *Bus) deliver(ctx context.Context, e handlerEntry, sig Signal) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("signal handler panicked",
				slog.String("kind", string(sig.Kind)),
				slog.String("signal_id", sig.ID.String()),
				slog.Any("panic", r),
			)
		}
	}()
	e.handler(ctx, sig)
}

// Len returns the number of handlers registered for kind.
func (b *Bus) Len(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind])
}
