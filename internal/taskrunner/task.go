package taskrunner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a task
type Status string

// Possible task status values
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusRetrying  Status = "retrying"
)

// Terminal reports whether no further transitions can occur from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Priority determines which queue lane a task is placed in. Lanes are
// consulted in strict order: urgent, high, medium, low.
type Priority string

// Priority levels, highest first
const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// priorityOrder is the fixed scan order used by the queue on every dequeue
// decision.
var priorityOrder = [...]Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority converts the string form of a priority level, as carried by
// HTTP requests and events, into a Priority. An empty string maps to the
// default medium level.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s), nil
	case "":
		return PriorityMedium, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// WorkFunc is the unit of deferred work bound to a task. Arguments are
// captured by the closure at submission time. The context is the runner's
// worker context; callers that need a per-task deadline wrap it themselves.
type WorkFunc func(ctx context.Context) (any, error)

// Task is a unit of deferred work with identity, priority, and lifecycle
// status. All mutation happens through the runner or the worker that
// currently owns the task; external callers only ever see snapshots.
type Task struct {
	id         uuid.UUID
	name       string
	work       WorkFunc
	priority   Priority
	maxRetries int
	createdAt  time.Time

	mu          sync.Mutex
	status      Status
	startedAt   *time.Time
	completedAt *time.Time
	result      any
	errMsg      string
	retries     int
}

func newTask(name string, work WorkFunc, priority Priority, maxRetries int) *Task {
	return &Task{
		id:         uuid.New(),
		name:       name,
		work:       work,
		priority:   priority,
		maxRetries: maxRetries,
		createdAt:  time.Now().UTC(),
		status:     StatusPending,
	}
}

// ID returns the task's unique identifier, assigned at submission.
func (t *Task) ID() uuid.UUID {
	return t.id
}

// Priority returns the task's immutable priority level.
func (t *Task) Priority() Priority {
	return t.priority
}

// Status returns the task's current status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// markRunning records the start of an execution attempt. It reports false if
// the task was cancelled before the attempt began, in which case the worker
// skips execution entirely.
func (t *Task) markRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusCancelled {
		return false
	}
	now := time.Now().UTC()
	t.status = StatusRunning
	t.startedAt = &now
	return true
}

// markCompleted records a successful terminal outcome. Cancellation observed
// mid-execution is sticky: a task already marked cancelled keeps that status
// and the result is discarded.
func (t *Task) markCompleted(result any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusCancelled {
		return
	}
	now := time.Now().UTC()
	t.status = StatusCompleted
	t.result = result
	t.completedAt = &now
}

// failAttempt records one failed execution attempt and reports whether the
// task should be re-enqueued. Once retries exceed the ceiling the task is
// marked failed with the error captured as text. A cancelled task is never
// retried.
func (t *Task) failAttempt(err error) (requeue bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusCancelled {
		return false
	}
	t.retries++
	if t.retries <= t.maxRetries {
		t.status = StatusRetrying
		return true
	}
	now := time.Now().UTC()
	t.status = StatusFailed
	t.errMsg = err.Error()
	t.completedAt = &now
	return false
}

// markCancelled stamps the cancellation and reports whether it took effect.
// A task that already reached a terminal status keeps its outcome; without
// this guard a cancel racing the final checkpoint could overwrite a
// completed result. The worker that owns the task observes the status at its
// next checkpoint and moves it to the completed table.
func (t *Task) markCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Terminal() {
		return false
	}
	now := time.Now().UTC()
	t.status = StatusCancelled
	t.completedAt = &now
	return true
}

// completionTime returns the completion timestamp, falling back to the
// creation time for entries that never received one.
func (t *Task) completionTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completedAt != nil {
		return *t.completedAt
	}
	return t.createdAt
}

// Snapshot is a point-in-time, immutable view of a task suitable for direct
// JSON encoding by an HTTP layer.
type Snapshot struct {
	ID          uuid.UUID  `json:"task_id"`
	Name        string     `json:"name"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	Retries     int        `json:"retries"`
	MaxRetries  int        `json:"max_retries"`
}

// Snapshot returns a consistent copy of the task's current state. Repeated
// calls for a terminal task return identical snapshots.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		ID:          t.id,
		Name:        t.name,
		Priority:    t.priority,
		Status:      t.status,
		CreatedAt:   t.createdAt,
		StartedAt:   t.startedAt,
		CompletedAt: t.completedAt,
		Result:      t.result,
		Error:       t.errMsg,
		Retries:     t.retries,
		MaxRetries:  t.maxRetries,
	}
}
