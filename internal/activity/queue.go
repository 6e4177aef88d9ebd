package activity

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/hashicorp/go-hclog"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/events"
)

const eventSource = "activity"

// ErrClosed is returned by Submit once the queue is closed
var ErrClosed = errors.New("activity queue is closed")

// DoneFunc receives the outcome of an activity on the owning goroutine
type DoneFunc func(a *Activity, result interface{}, err error)

// Summary counts activities by state
type Summary struct {
	Running        int `json:"running"`
	CompletedOK    int `json:"completed_ok"`
	CompletedError int `json:"completed_error"`
}

// Queue holds every activity submitted during the process lifetime, in
// submission order
type Queue struct {
	bus    events.EventBus
	logger hclog.Logger

	mu         sync.Mutex
	activities []*Activity
	callbacks  map[string]DoneFunc
	pending    []*Activity
	closed     bool

	// notify has room for one wake-up; workers never block on it.
	notify chan struct{}
	wg     sync.WaitGroup
}

// NewQueue creates an empty queue. bus may be nil.
func NewQueue(bus events.EventBus, logger hclog.Logger) *Queue {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Queue{
		bus:       bus,
		logger:    logger.Named("activity"),
		callbacks: make(map[string]DoneFunc),
		notify:    make(chan struct{}, 1),
	}
}

// Submit appends the activity and starts its work on a new goroutine. It
// returns without waiting for the work. onDone may be nil.
func (q *Queue) Submit(a *Activity, onDone DoneFunc) error {
	if a == nil || a.Work == nil {
		return apperrors.NewValidationError("activity has no work", "work")
	}
	if !a.started.CompareAndSwap(false, true) {
		return apperrors.NewValidationError("activity already submitted", "id").With("id", a.ID)
	}
	a.queue = q

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.activities = append(q.activities, a)
	if onDone != nil {
		q.callbacks[a.ID] = onDone
	}
	q.wg.Add(1)
	q.mu.Unlock()

	q.logger.Debug("activity submitted", "id", a.ID, "title", a.Title, "kind", a.Kind)
	q.publish(events.EventActivityAdded, a, a.Title, map[string]interface{}{
		"kind": string(a.Kind),
	})

	go q.execute(a)
	return nil
}

func (q *Queue) execute(a *Activity) {
	defer q.wg.Done()

	result, err := q.invoke(a)
	if !a.complete(result, err) {
		return
	}
	if err != nil {
		q.logger.Warn("activity failed", "id", a.ID, "title", a.Title, "error", err)
	} else {
		q.logger.Debug("activity completed", "id", a.ID, "title", a.Title)
	}
	q.publish(events.EventActivityCompleted, a, a.Title, map[string]interface{}{
		"kind":   string(a.Kind),
		"status": string(a.Status()),
	})

	q.mu.Lock()
	q.pending = append(q.pending, a)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// invoke runs the work and turns a panic into an error
func (q *Queue) invoke(a *Activity) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("activity panicked", "id", a.ID, "title", a.Title, "panic", r, "stack", string(debug.Stack()))
			result = nil
			err = apperrors.NewInternalError(fmt.Sprintf("activity %q panicked: %v", a.Title, r), nil)
		}
	}()

	if a.Cancelled() {
		return nil, apperrors.NewCancelledError(a.Title)
	}
	return a.Work(a.ctx, a)
}

// Run delivers completions to their callbacks until ctx is done. It must
// be called from the owning goroutine.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.Drain()
			return
		case <-q.notify:
			q.Drain()
		}
	}
}

// Drain runs the callbacks of every completion delivered so far and
// returns how many there were. It never blocks on running work.
func (q *Queue) Drain() int {
	q.mu.Lock()
	done := q.pending
	q.pending = nil
	callbacks := make([]DoneFunc, len(done))
	for i, a := range done {
		callbacks[i] = q.callbacks[a.ID]
		delete(q.callbacks, a.ID)
	}
	q.mu.Unlock()

	for i, a := range done {
		if callbacks[i] == nil {
			continue
		}
		result, err := a.Result()
		callbacks[i](a, result, err)
	}
	return len(done)
}

// Get returns the activity with the given id
func (q *Queue) Get(id string) (*Activity, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, a := range q.activities {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Snapshot returns the state of every activity in submission order
func (q *Queue) Snapshot() []Info {
	q.mu.Lock()
	list := make([]*Activity, len(q.activities))
	copy(list, q.activities)
	q.mu.Unlock()

	infos := make([]Info, 0, len(list))
	for _, a := range list {
		infos = append(infos, a.info())
	}
	return infos
}

// Summary counts the activities by state
func (q *Queue) Summary() Summary {
	q.mu.Lock()
	defer q.mu.Unlock()

	var s Summary
	for _, a := range q.activities {
		switch a.Status() {
		case StatusCompletedOK:
			s.CompletedOK++
		case StatusCompletedError:
			s.CompletedError++
		default:
			s.Running++
		}
	}
	return s
}

// Running reports whether an activity with the given title is still
// running
func (q *Queue) Running(title string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, a := range q.activities {
		if a.Title == title && !a.Completed() {
			return true
		}
	}
	return false
}

// CanExit reports whether every activity has completed
func (q *Queue) CanExit() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, a := range q.activities {
		if !a.Completed() {
			return false
		}
	}
	return true
}

// Wait blocks until every submitted activity has completed or ctx is done
func (q *Queue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close makes every later Submit fail with ErrClosed. Activities already
// submitted keep running; Wait still waits for them.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// CancelAll cancels every activity that has not completed
func (q *Queue) CancelAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, a := range q.activities {
		if !a.Completed() {
			a.Cancel()
		}
	}
}

// Clear removes completed activities from the list and returns how many
// were removed. Completions not yet drained are still delivered.
func (q *Queue) Clear() int {
	q.mu.Lock()
	kept := q.activities[:0]
	removed := 0
	for _, a := range q.activities {
		if a.Completed() {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	for i := len(kept); i < len(q.activities); i++ {
		q.activities[i] = nil
	}
	q.activities = kept
	q.mu.Unlock()

	if removed > 0 {
		q.publishEvent(events.NewEventWithData(events.EventActivitiesCleared, eventSource,
			"Activities cleared", fmt.Sprintf("%d completed activities removed", removed),
			map[string]interface{}{"removed": removed}))
	}
	return removed
}

func (q *Queue) publishProgress(a *Activity, f float64) {
	q.publish(events.EventActivityProgress, a, a.Title, map[string]interface{}{
		"progress": f,
	})
}

func (q *Queue) publish(eventType events.EventType, a *Activity, message string, data map[string]interface{}) {
	data["title"] = a.Title
	event := events.NewEventWithData(eventType, eventSource, a.Title, message, data)
	event.Target = a.ID
	if a.Status() == StatusCompletedError {
		event.Priority = events.PriorityHigh
	}
	q.publishEvent(event)
}

func (q *Queue) publishEvent(event events.Event) {
	if q.bus == nil {
		return
	}
	if err := q.bus.PublishAsync(event); err != nil {
		q.logger.Debug("activity event not published", "type", event.Type, "error", err)
	}
}
