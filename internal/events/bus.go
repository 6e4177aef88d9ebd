package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// bus delivers events from a single goroutine, so handlers never run
// concurrently with each other
type bus struct {
	cfg    EventBusConfig
	logger hclog.Logger

	// life guards the channel: Stop closes it under the write lock while
	// publishers send under the read lock
	life    sync.RWMutex
	ch      chan Event
	running bool
	stopped chan struct{}

	mu     sync.RWMutex
	subs   []*Subscription
	recent []Event
	stats  EventStats
}

// NewEventBus creates a stopped event bus
func NewEventBus(cfg EventBusConfig, logger hclog.Logger) EventBus {
	def := DefaultEventBusConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.RecentEvents <= 0 {
		cfg.RecentEvents = def.RecentEvents
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &bus{
		cfg:    cfg,
		logger: logger.Named("events"),
		stats:  EventStats{EventsByType: make(map[string]int64)},
	}
}

func (b *bus) Start(ctx context.Context) error {
	b.life.Lock()
	defer b.life.Unlock()
	if b.running {
		return fmt.Errorf("event bus already started")
	}

	b.ch = make(chan Event, b.cfg.BufferSize)
	b.stopped = make(chan struct{})
	b.running = true
	go b.loop(b.ch, b.stopped)

	b.logger.Debug("event bus started", "buffer", b.cfg.BufferSize)
	return nil
}

func (b *bus) Stop(ctx context.Context) error {
	b.life.Lock()
	if !b.running {
		b.life.Unlock()
		return nil
	}
	b.running = false
	close(b.ch)
	stopped := b.stopped
	b.life.Unlock()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		b.logger.Warn("event bus stop timed out with events pending")
		return ctx.Err()
	}
}

func (b *bus) Publish(ctx context.Context, event Event) error {
	event, err := stamp(event)
	if err != nil {
		return err
	}

	b.life.RLock()
	defer b.life.RUnlock()
	if !b.running {
		return ErrNotRunning
	}
	select {
	case b.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *bus) PublishAsync(event Event) error {
	event, err := stamp(event)
	if err != nil {
		return err
	}

	b.life.RLock()
	defer b.life.RUnlock()
	if !b.running {
		return ErrNotRunning
	}
	select {
	case b.ch <- event:
		return nil
	default:
	}

	b.mu.Lock()
	b.stats.DroppedEvents++
	b.mu.Unlock()
	b.logger.Warn("dropping event", "type", event.Type, "id", event.ID)
	return ErrBufferFull
}

func (b *bus) Subscribe(filter EventFilter, handler EventHandler) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("subscription needs a handler")
	}
	sub := &Subscription{
		ID:      "sub-" + uuid.NewString(),
		Filter:  filter,
		Handler: handler,
		Created: time.Now(),
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

func (b *bus) Unsubscribe(subscriptionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.ID == subscriptionID {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no subscription %s", subscriptionID)
}

func (b *bus) RecentEvents(filter EventFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Event
	for _, e := range b.recent {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (b *bus) GetStats() EventStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	stats := b.stats
	stats.EventsByType = make(map[string]int64, len(b.stats.EventsByType))
	for k, v := range b.stats.EventsByType {
		stats.EventsByType[k] = v
	}
	stats.ActiveSubscriptions = len(b.subs)
	return stats
}

// stamp fills in the id and time of an event and validates it
func stamp(e Event) (Event, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return e, validate(e)
}

func (b *bus) loop(ch <-chan Event, stopped chan<- struct{}) {
	defer close(stopped)
	for e := range ch {
		for _, sub := range b.record(e) {
			b.deliver(sub, e)
		}
	}
}

// record keeps e in the recent window and returns its subscribers
func (b *bus) record(e Event) []*Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recent = append(b.recent, e)
	if over := len(b.recent) - b.cfg.RecentEvents; over > 0 {
		b.recent = b.recent[over:]
	}
	b.stats.TotalEvents++
	b.stats.EventsByType[string(e.Type)]++

	var matched []*Subscription
	for _, sub := range b.subs {
		if sub.Filter.Matches(e) {
			matched = append(matched, sub)
		}
	}
	return matched
}

func (b *bus) deliver(sub *Subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "subscription", sub.ID, "event", e.ID, "panic", r)
		}
	}()

	if err := sub.Handler(e); err != nil {
		b.logger.Error("event handler failed", "subscription", sub.ID, "event", e.ID, "error", err)
		return
	}

	now := time.Now()
	b.mu.Lock()
	sub.TriggerCount++
	sub.LastTriggered = &now
	b.mu.Unlock()
}
