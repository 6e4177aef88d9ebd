// Package activity runs long operations (adding, removing and refreshing
// titles) on background goroutines while the owner stays responsive.
//
// Every submitted activity gets its own goroutine. Completions are handed
// back to the owning goroutine, which runs the completion callbacks from
// Queue.Run or Queue.Drain, so callbacks never race with the owner.
package activity

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Kind is what an activity does to the library
type Kind string

const (
	KindAdd    Kind = "ADD"
	KindRemove Kind = "REMOVE"
	KindUpdate Kind = "UPDATE"
)

// Status is the derived lifecycle state of an activity
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusRunning        Status = "RUNNING"
	StatusCompletedOK    Status = "COMPLETED_OK"
	StatusCompletedError Status = "COMPLETED_ERROR"
)

// WorkFunc is the body of an activity. ctx is cancelled when the activity
// is cancelled; long work should check it between steps.
type WorkFunc func(ctx context.Context, a *Activity) (interface{}, error)

// Activity is one unit of background work. Once Completed reports true the
// activity never changes again.
type Activity struct {
	ID      string
	Title   string
	Kind    Kind
	Work    WorkFunc
	Created time.Time

	ctx    context.Context
	cancel context.CancelFunc

	started   atomic.Bool
	cancelled atomic.Bool
	finishing atomic.Bool
	completed atomic.Bool
	hasError  atomic.Bool
	progress  atomic.Uint64

	mu       sync.Mutex
	result   interface{}
	err      error
	finished time.Time

	queue *Queue
}

// New creates a pending activity
func New(title string, kind Kind, work WorkFunc) *Activity {
	ctx, cancel := context.WithCancel(context.Background())
	return &Activity{
		ID:      uuid.NewString(),
		Title:   title,
		Kind:    kind,
		Work:    work,
		Created: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Completed reports whether the activity has finished
func (a *Activity) Completed() bool {
	return a.completed.Load()
}

// HasError reports whether the activity finished with an error. It is only
// meaningful once Completed is true.
func (a *Activity) HasError() bool {
	return a.hasError.Load()
}

// Result returns the value and error the work returned
func (a *Activity) Result() (interface{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result, a.err
}

// Err returns the error the work returned, if any
func (a *Activity) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// FinishedAt returns when the activity completed, zero while it runs
func (a *Activity) FinishedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finished
}

// Status derives the lifecycle state from the activity flags
func (a *Activity) Status() Status {
	switch {
	case a.completed.Load() && a.hasError.Load():
		return StatusCompletedError
	case a.completed.Load():
		return StatusCompletedOK
	case a.started.Load():
		return StatusRunning
	default:
		return StatusPending
	}
}

// Cancel asks the work to stop. Work that already finished is unaffected.
func (a *Activity) Cancel() {
	a.cancelled.Store(true)
	a.cancel()
}

// Cancelled reports whether Cancel was called
func (a *Activity) Cancelled() bool {
	return a.cancelled.Load()
}

// Progress returns the last reported progress in [0, 1]
func (a *Activity) Progress() float64 {
	return math.Float64frombits(a.progress.Load())
}

// SetProgress records progress in [0, 1] and publishes it
func (a *Activity) SetProgress(f float64) {
	if a.finishing.Load() {
		return
	}
	if f < 0 || math.IsNaN(f) {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	a.progress.Store(math.Float64bits(f))
	if a.queue != nil {
		a.queue.publishProgress(a, f)
	}
}

// complete stores the outcome exactly once and reports whether this call
// was the one that completed the activity
func (a *Activity) complete(result interface{}, err error) bool {
	if !a.finishing.CompareAndSwap(false, true) {
		return false
	}
	a.mu.Lock()
	a.result = result
	a.err = err
	a.finished = time.Now()
	a.mu.Unlock()

	a.hasError.Store(err != nil)
	if err == nil {
		a.progress.Store(math.Float64bits(1))
	}
	a.completed.Store(true)
	a.cancel()
	return true
}

// Info is a point-in-time view of an activity
type Info struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Kind     Kind      `json:"kind"`
	Status   Status    `json:"status"`
	Progress float64   `json:"progress"`
	Error    string    `json:"error,omitempty"`
	Created  time.Time `json:"created"`
}

func (a *Activity) info() Info {
	info := Info{
		ID:       a.ID,
		Title:    a.Title,
		Kind:     a.Kind,
		Status:   a.Status(),
		Progress: a.Progress(),
		Created:  a.Created,
	}
	if err := a.Err(); err != nil {
		info.Error = err.Error()
	}
	return info
}
