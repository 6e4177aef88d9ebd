package events

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotRunning is returned when publishing to a bus that is not started
	ErrNotRunning = errors.New("event bus is not running")
	// ErrBufferFull is returned by PublishAsync when the event was dropped
	ErrBufferFull = errors.New("event buffer full")
)

// EventBus fans published events out to subscribers. Subscribers see
// events one at a time in publish order.
type EventBus interface {
	// Publish waits for buffer space until ctx is done
	Publish(ctx context.Context, event Event) error
	// PublishAsync never blocks; the event is dropped when the buffer is full
	PublishAsync(event Event) error

	Subscribe(filter EventFilter, handler EventHandler) (*Subscription, error)
	Unsubscribe(subscriptionID string) error

	// RecentEvents returns the last handled events matching filter, oldest
	// first
	RecentEvents(filter EventFilter) []Event
	GetStats() EventStats

	Start(ctx context.Context) error
	// Stop delivers the buffered events, then stops
	Stop(ctx context.Context) error
}

// NewEvent creates a normal priority event stamped with the current time
func NewEvent(eventType EventType, source, title, message string) Event {
	return NewEventWithData(eventType, source, title, message, map[string]interface{}{})
}

// NewEventWithData creates an event carrying structured data
func NewEventWithData(eventType EventType, source, title, message string, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Title:     title,
		Message:   message,
		Data:      data,
		Priority:  PriorityNormal,
		Timestamp: time.Now(),
	}
}

// Matches reports whether e passes every non-empty field of the filter
func (f EventFilter) Matches(e Event) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, e.Type) {
		return false
	}
	if len(f.Sources) > 0 && !slices.Contains(f.Sources, e.Source) {
		return false
	}
	return f.Target == "" || f.Target == e.Target
}

func validate(e Event) error {
	switch {
	case e.Type == "":
		return errors.New("invalid event: type is required")
	case e.Source == "":
		return errors.New("invalid event: source is required")
	}
	return nil
}
