package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sapbridge/agent-services/internal/metrics"
)

// Common errors returned by the Runner
var (
	// ErrTaskNotFound is returned by status queries for an id unknown to both
	// the active and completed tables.
	ErrTaskNotFound = errors.New("task not found")

	// ErrShutdownTimeout is returned by Stop when a worker fails to terminate
	// within the shutdown grace period. The runner is left stopped; the
	// straggler finishes its current task in the background.
	ErrShutdownTimeout = errors.New("shutdown timed out waiting for workers")
)

// Config holds configuration for the task runner
type Config struct {
	// WorkerCount determines how many concurrent workers process tasks.
	// If zero or negative, defaults to 5.
	WorkerCount int

	// ShutdownTimeout bounds how long Stop waits for workers to drain.
	// If zero, defaults to 30 seconds.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		WorkerCount:     5,
		ShutdownTimeout: 30 * time.Second,
	}
}

// QueueStatus is a diagnostic snapshot of the runner's queue and tables. It
// is informational only and never used for control decisions.
type QueueStatus struct {
	Pending   map[Priority]int `json:"pending"`
	Active    int              `json:"active_tasks"`
	Completed int              `json:"completed_tasks"`
	Workers   int              `json:"workers"`
	Running   bool             `json:"is_running"`
}

// Runner owns the priority queue, a fixed pool of workers, and the two
// status tables: active (tasks currently claimed by a worker) and completed
// (terminal tasks retained for historical query). Construct one per host
// application and tie its lifecycle to the process's startup/shutdown hooks.
type Runner struct {
	queue   *TaskQueue
	config  Config
	logger  *slog.Logger
	metrics *metrics.Collector

	mu        sync.Mutex
	active    map[uuid.UUID]*Task
	completed map[uuid.UUID]*Task
	running   bool
	cancel    context.CancelFunc
	wg        *sync.WaitGroup
}

// New creates a Runner. Tasks may be submitted before Start; they sit in the
// queue until workers begin polling.
func New(config Config, logger *slog.Logger, collector *metrics.Collector) *Runner {
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 5)
		config.WorkerCount = 5
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	return &Runner{
		queue:     NewTaskQueue(logger),
		config:    config,
		logger:    logger,
		metrics:   collector,
		active:    make(map[uuid.UUID]*Task),
		completed: make(map[uuid.UUID]*Task),
	}
}

// SubmitOption customizes a task at submission time.
type SubmitOption func(*submitOptions)

type submitOptions struct {
	priority   Priority
	maxRetries int
}

// WithPriority sets the lane the task is queued into. Defaults to medium.
func WithPriority(p Priority) SubmitOption {
	return func(o *submitOptions) {
		o.priority = p
	}
}

// WithMaxRetries sets the ceiling on failed attempts before the task is
// failed permanently. Defaults to 3, meaning up to 4 attempts total.
func WithMaxRetries(n int) SubmitOption {
	return func(o *submitOptions) {
		o.maxRetries = n
	}
}

// Submit constructs a pending task, enqueues it, and returns its id
// immediately without waiting for execution. Submission is valid whether or
// not the runner has been started.
func (r *Runner) Submit(name string, work WorkFunc, opts ...SubmitOption) (uuid.UUID, error) {
	if work == nil {
		return uuid.Nil, fmt.Errorf("submit %q: work must not be nil", name)
	}

	options := submitOptions{
		priority:   PriorityMedium,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.maxRetries < 0 {
		return uuid.Nil, fmt.Errorf("submit %q: max retries must not be negative", name)
	}

	task := newTask(name, work, options.priority, options.maxRetries)
	r.queue.Put(task)

	r.logger.Info("task submitted",
		"task_id", task.ID(),
		"name", name,
		"priority", options.priority)
	r.metrics.Inc("tasks_submitted")
	r.metrics.Inc("tasks_queued_" + string(options.priority))

	return task.ID(), nil
}

// Start spawns the worker pool. It is idempotent: calling Start on a running
// runner is a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg = &sync.WaitGroup{}
	r.running = true

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}

	r.logger.Info("task runner started", "workers", r.config.WorkerCount)
}

// Stop signals all workers to halt and waits for them to terminate. Workers
// finish their current task before observing the signal; queued tasks stay
// queued. Stop is idempotent. If a worker does not terminate within the
// shutdown grace period, Stop returns ErrShutdownTimeout instead of hanging.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	cancel := r.cancel
	wg := r.wg
	r.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("task runner stopped")
		return nil
	case <-time.After(r.config.ShutdownTimeout):
		r.logger.Error("task runner shutdown timed out",
			"timeout", r.config.ShutdownTimeout)
		return ErrShutdownTimeout
	}
}

// IsRunning reports whether the worker pool is active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// GetTaskStatus returns a point-in-time snapshot of the task, looking in the
// active table first and then the completed table. Returns ErrTaskNotFound
// if the id is unknown to both.
func (r *Runner) GetTaskStatus(id uuid.UUID) (Snapshot, error) {
	r.mu.Lock()
	task, ok := r.active[id]
	if !ok {
		task, ok = r.completed[id]
	}
	r.mu.Unlock()

	if !ok {
		return Snapshot{}, fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	return task.Snapshot(), nil
}

// GetActiveTasks returns snapshots of every task currently claimed by a
// worker.
func (r *Runner) GetActiveTasks() []Snapshot {
	r.mu.Lock()
	tasks := make([]*Task, 0, len(r.active))
	for _, t := range r.active {
		tasks = append(tasks, t)
	}
	r.mu.Unlock()

	snapshots := make([]Snapshot, len(tasks))
	for i, t := range tasks {
		snapshots[i] = t.Snapshot()
	}
	return snapshots
}

// GetCompletedTasks returns snapshots of terminal tasks sorted by completion
// time, most recent first, truncated to limit. A non-positive limit returns
// the full history.
func (r *Runner) GetCompletedTasks(limit int) []Snapshot {
	r.mu.Lock()
	tasks := make([]*Task, 0, len(r.completed))
	for _, t := range r.completed {
		tasks = append(tasks, t)
	}
	r.mu.Unlock()

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].completionTime().After(tasks[j].completionTime())
	})
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}

	snapshots := make([]Snapshot, len(tasks))
	for i, t := range tasks {
		snapshots[i] = t.Snapshot()
	}
	return snapshots
}

// GetQueueStatus returns a diagnostic snapshot of queue depths, table sizes,
// and pool state. Workers is the live pool size: zero unless the runner is
// running.
func (r *Runner) GetQueueStatus() QueueStatus {
	pending := r.queue.Lens()

	r.mu.Lock()
	defer r.mu.Unlock()
	workers := 0
	if r.running {
		workers = r.config.WorkerCount
	}
	return QueueStatus{
		Pending:   pending,
		Active:    len(r.active),
		Completed: len(r.completed),
		Workers:   workers,
		Running:   r.running,
	}
}

// Cancel marks an active task cancelled and stamps its completion time. It
// returns true only if the task is currently in the active table and has not
// already reached a terminal status; a task whose final checkpoint races the
// cancel keeps its outcome. Cancelling a task that is queued but not yet
// claimed returns false and the task will still be dequeued and run;
// queued-task cancellation is deliberately not supported.
func (r *Runner) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	task, ok := r.active[id]
	r.mu.Unlock()
	if !ok {
		return false
	}

	if !task.markCancelled() {
		return false
	}
	r.logger.Info("task cancelled", "task_id", id)
	r.metrics.Inc("tasks_cancelled")
	return true
}

// worker pulls tasks off the queue until the runner context is cancelled.
func (r *Runner) worker(ctx context.Context, id int) {
	defer r.wg.Done()

	logger := r.logger.With("worker_id", id)
	logger.Debug("worker started")

	for {
		task, err := r.queue.Get(ctx)
		if err != nil {
			logger.Debug("worker stopped")
			return
		}

		r.mu.Lock()
		r.active[task.ID()] = task
		r.mu.Unlock()
		r.metrics.Inc("tasks_dequeued_" + string(task.Priority()))

		r.execute(ctx, task, logger)

		if ctx.Err() != nil {
			logger.Debug("worker stopped")
			return
		}
	}
}

// execute runs one attempt of the task and routes it to the completed table,
// back onto the queue for a retry, or out as cancelled.
func (r *Runner) execute(ctx context.Context, task *Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID(), "name", task.name)

	if !task.markRunning() {
		// Cancelled between claim and first instruction: never executed.
		logger.Info("skipping cancelled task")
		r.moveToCompleted(task)
		return
	}

	logger.Info("executing task", "attempt", task.Snapshot().Retries+1)

	result, err := invoke(ctx, task.work)
	if err != nil {
		if task.failAttempt(err) {
			snap := task.Snapshot()
			logger.Warn("task failed, retrying",
				"error", err,
				"retries", snap.Retries,
				"max_retries", snap.MaxRetries)
			r.requeue(task)
			return
		}
		if task.Status() == StatusFailed {
			logger.Error("task failed permanently",
				"error", err,
				"retries", task.Snapshot().Retries)
			r.metrics.Inc("tasks_failed")
		}
		r.moveToCompleted(task)
		return
	}

	task.markCompleted(result)
	if task.Status() == StatusCompleted {
		logger.Info("task completed")
		r.metrics.Inc("tasks_completed")
	}
	r.moveToCompleted(task)
}

// requeue returns a retrying task to the back of its lane. The task leaves
// the active table before re-entering the queue so its id is never in both
// places at once.
func (r *Runner) requeue(task *Task) {
	r.mu.Lock()
	delete(r.active, task.ID())
	r.mu.Unlock()
	r.queue.Put(task)
	r.metrics.Inc("tasks_queued_" + string(task.Priority()))
}

// moveToCompleted moves a terminal task from the active table to the
// completed table in one critical section.
func (r *Runner) moveToCompleted(task *Task) {
	r.mu.Lock()
	delete(r.active, task.ID())
	r.completed[task.ID()] = task
	r.mu.Unlock()
}

// invoke runs the work function, converting a panic into an ordinary error
// so a misbehaving task cannot take down its worker.
func invoke(ctx context.Context, work WorkFunc) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()
	return work(ctx)
}
