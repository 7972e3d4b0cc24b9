package taskrunner

import (
	"context"
	"log/slog"
	"sync"
)

// TaskQueue holds one unbounded FIFO lane per priority level. Dequeues scan
// the lanes in fixed order (urgent, high, medium, low), so the highest
// non-empty lane always wins; within a lane, arrival order is preserved.
// Lower priorities can starve under sustained high-priority load; there is
// no aging.
type TaskQueue struct {
	mu     sync.Mutex
	lanes  map[Priority][]*Task
	wakeup chan struct{}
	logger *slog.Logger
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue(logger *slog.Logger) *TaskQueue {
	lanes := make(map[Priority][]*Task, len(priorityOrder))
	for _, p := range priorityOrder {
		lanes[p] = nil
	}
	return &TaskQueue{
		lanes:  lanes,
		wakeup: make(chan struct{}, 1),
		logger: logger,
	}
}

// Put appends the task to the lane matching its priority. Lanes are
// unbounded, so Put never blocks and always succeeds.
func (q *TaskQueue) Put(task *Task) {
	q.mu.Lock()
	q.lanes[task.priority] = append(q.lanes[task.priority], task)
	q.mu.Unlock()

	q.signal()

	q.logger.Debug("task enqueued",
		"task_id", task.ID(),
		"priority", task.Priority())
}

// Get returns the task at the front of the highest-priority non-empty lane.
// If every lane is empty it blocks until a task arrives anywhere, then
// re-applies the same priority scan, so "highest priority ready task" is
// re-evaluated at each wakeup. Returns the context's error once it is
// cancelled; a cancelled context never claims a task, even when work is
// queued.
func (q *TaskQueue) Get(ctx context.Context) (*Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if task, ok := q.take(); ok {
			return task, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wakeup:
		}
	}
}

// take removes and returns the front task of the highest-priority non-empty
// lane. If work remains after the removal it re-arms the wakeup signal so
// another blocked worker gets a turn.
func (q *TaskQueue) take() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, p := range priorityOrder {
		lane := q.lanes[p]
		if len(lane) == 0 {
			continue
		}
		task := lane[0]
		q.lanes[p] = lane[1:]

		for _, rest := range priorityOrder {
			if len(q.lanes[rest]) > 0 {
				q.signal()
				break
			}
		}
		return task, true
	}
	return nil, false
}

// signal wakes one blocked Get without ever blocking the caller. The channel
// holds at most one pending token; take re-arms it while work remains.
func (q *TaskQueue) signal() {
	select {
	case q.wakeup <- struct{}{}:
	default:
	}
}

// Lens returns the current number of queued tasks per priority.
func (q *TaskQueue) Lens() map[Priority]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	counts := make(map[Priority]int, len(priorityOrder))
	for _, p := range priorityOrder {
		counts[p] = len(q.lanes[p])
	}
	return counts
}
