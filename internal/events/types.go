// Package events provides the in-process event bus used to observe the
// activity list, content changes and release notifications.
package events

import (
	"time"
)

// EventType names what happened
type EventType string

const (
	EventActivityAdded     EventType = "activity.added"
	EventActivityProgress  EventType = "activity.progress"
	EventActivityCompleted EventType = "activity.completed"
	EventActivitiesCleared EventType = "activity.cleared"

	EventContentAdded   EventType = "content.added"
	EventContentUpdated EventType = "content.updated"
	EventContentRemoved EventType = "content.removed"

	EventReleaseNotification EventType = "release.notification"

	EventSchemaMigrated EventType = "schema.migrated"
)

// EventPriority orders notifications for display
type EventPriority int

const (
	PriorityLow    EventPriority = 1
	PriorityNormal EventPriority = 5
	PriorityHigh   EventPriority = 10
)

// Event is one published occurrence
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Target    string                 `json:"target"` // title or activity id
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	Priority  EventPriority          `json:"priority"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventHandler receives matching events on the delivery goroutine
type EventHandler func(event Event) error

// EventFilter selects events. Empty fields match everything.
type EventFilter struct {
	Types   []EventType `json:"types,omitempty"`
	Sources []string    `json:"sources,omitempty"`
	Target  string      `json:"target,omitempty"`
}

// Subscription is a registered handler
type Subscription struct {
	ID            string       `json:"id"`
	Filter        EventFilter  `json:"filter"`
	Handler       EventHandler `json:"-"`
	Created       time.Time    `json:"created"`
	LastTriggered *time.Time   `json:"last_triggered,omitempty"`
	TriggerCount  int64        `json:"trigger_count"`
}

// EventStats counts handled and dropped events
type EventStats struct {
	TotalEvents         int64            `json:"total_events"`
	DroppedEvents       int64            `json:"dropped_events"`
	EventsByType        map[string]int64 `json:"events_by_type"`
	ActiveSubscriptions int              `json:"active_subscriptions"`
}

// EventBusConfig sizes the publish buffer and the recent event window
type EventBusConfig struct {
	BufferSize   int `json:"buffer_size"`
	RecentEvents int `json:"recent_events"`
}

// DefaultEventBusConfig returns a 1000 event buffer and a 100 event window
func DefaultEventBusConfig() EventBusConfig {
	return EventBusConfig{
		BufferSize:   1000,
		RecentEvents: 100,
	}
}

// ReleaseItem is one title whose release state changed during a scan
type ReleaseItem struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Change string `json:"change"`
}
