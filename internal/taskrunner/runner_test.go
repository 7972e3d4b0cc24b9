package taskrunner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapbridge/agent-services/internal/metrics"
)

func newTestRunner(t *testing.T, workers int) *Runner {
	t.Helper()
	config := DefaultConfig()
	config.WorkerCount = workers
	config.ShutdownTimeout = 5 * time.Second
	runner := New(config, testLogger(), metrics.NewCollector())
	t.Cleanup(func() {
		_ = runner.Stop()
	})
	return runner
}

// waitForStatus polls until the task reaches the wanted status or the
// timeout expires.
func waitForStatus(t *testing.T, runner *Runner, id uuid.UUID, want Status) Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		snap, err := runner.GetTaskStatus(id)
		if err == nil && snap.Status == want {
			return snap
		}
		select {
		case <-deadline:
			t.Fatalf("Timed out waiting for task %s to reach status %q (last: %+v, err: %v)",
				id, want, snap, err)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRunner_SubmitReturnsImmediately(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 1)

	// Runner not started: Submit must still succeed and return an id.
	id, err := runner.Submit("queued-before-start", func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	// The task sits pending in the queue; unknown to both tables until a
	// worker claims it.
	_, err = runner.GetTaskStatus(id)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	status := runner.GetQueueStatus()
	assert.Equal(t, 1, status.Pending[PriorityMedium])
	assert.False(t, status.Running)

	// Once started, the queued task runs.
	runner.Start()
	snap := waitForStatus(t, runner, id, StatusCompleted)
	assert.Equal(t, "ok", snap.Result)
}

func TestRunner_SubmitValidation(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 1)

	_, err := runner.Submit("nil-work", nil)
	assert.Error(t, err)

	_, err = runner.Submit("bad-retries", func(ctx context.Context) (any, error) {
		return nil, nil
	}, WithMaxRetries(-1))
	assert.Error(t, err)
}

func TestRunner_StartAndStopAreIdempotent(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 2)

	runner.Start()
	runner.Start() // no-op, must not spawn a second pool
	assert.True(t, runner.IsRunning())
	assert.Equal(t, 2, runner.GetQueueStatus().Workers)

	require.NoError(t, runner.Stop())
	assert.False(t, runner.IsRunning())
	assert.Equal(t, 0, runner.GetQueueStatus().Workers)
	require.NoError(t, runner.Stop()) // second Stop is a no-op
}

func TestRunner_NoDequeueAfterStop(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 1)
	runner.Start()
	require.NoError(t, runner.Stop())

	var executed atomic.Bool
	id, err := runner.Submit("after-stop", func(ctx context.Context) (any, error) {
		executed.Store(true)
		return nil, nil
	})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.False(t, executed.Load(), "stopped runner must not dequeue")
	_, err = runner.GetTaskStatus(id)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.Equal(t, 1, runner.GetQueueStatus().Pending[PriorityMedium])
}

func TestRunner_PriorityOrderWhenIdle(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 1)

	// Submit low before urgent while no worker is polling; the urgent task
	// must still be dequeued first.
	order := make(chan Priority, 2)
	record := func(p Priority) WorkFunc {
		return func(ctx context.Context) (any, error) {
			order <- p
			return nil, nil
		}
	}

	_, err := runner.Submit("low", record(PriorityLow), WithPriority(PriorityLow))
	require.NoError(t, err)
	_, err = runner.Submit("urgent", record(PriorityUrgent), WithPriority(PriorityUrgent))
	require.NoError(t, err)

	runner.Start()

	assert.Equal(t, PriorityUrgent, <-order)
	assert.Equal(t, PriorityLow, <-order)
}

func TestRunner_SuccessfulTaskEndToEnd(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 2)
	runner.Start()

	id, err := runner.Submit("add", func(ctx context.Context) (any, error) {
		return 2 + 3, nil
	}, WithPriority(PriorityHigh))
	require.NoError(t, err)

	snap := waitForStatus(t, runner, id, StatusCompleted)
	assert.Equal(t, 5, snap.Result)
	assert.Equal(t, 0, snap.Retries)
	assert.Empty(t, snap.Error)
	assert.NotNil(t, snap.StartedAt)
	assert.NotNil(t, snap.CompletedAt)

	// Terminal snapshots are stable across repeated queries.
	again, err := runner.GetTaskStatus(id)
	require.NoError(t, err)
	assert.Equal(t, snap, again)
}

func TestRunner_FailingTaskExhaustsRetries(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 1)
	runner.Start()

	var attempts atomic.Int32
	id, err := runner.Submit("always_fail", func(ctx context.Context) (any, error) {
		attempts.Add(1)
		return nil, errors.New("persistent failure")
	}, WithMaxRetries(2))
	require.NoError(t, err)

	snap := waitForStatus(t, runner, id, StatusFailed)

	// maxRetries=2 allows 3 attempts total; the retry counter lands one past
	// the ceiling.
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, 3, snap.Retries)
	assert.Equal(t, "persistent failure", snap.Error)
	assert.Nil(t, snap.Result)
}

func TestRunner_RetrySucceedsMidway(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 1)
	runner.Start()

	var attempts atomic.Int32
	id, err := runner.Submit("flaky", func(ctx context.Context) (any, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("transient")
		}
		return "recovered", nil
	}, WithMaxRetries(5))
	require.NoError(t, err)

	snap := waitForStatus(t, runner, id, StatusCompleted)
	assert.Equal(t, "recovered", snap.Result)
	assert.Equal(t, 2, snap.Retries)
	assert.Empty(t, snap.Error)
}

func TestRunner_PanickingTaskIsRetriedNotFatal(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 1)
	runner.Start()

	id, err := runner.Submit("panicky", func(ctx context.Context) (any, error) {
		panic("kaboom")
	}, WithMaxRetries(1))
	require.NoError(t, err)

	snap := waitForStatus(t, runner, id, StatusFailed)
	assert.Contains(t, snap.Error, "kaboom")
	assert.Equal(t, 2, snap.Retries)

	// The worker survived the panic and keeps processing.
	id, err = runner.Submit("after-panic", func(ctx context.Context) (any, error) {
		return "alive", nil
	})
	require.NoError(t, err)
	snap = waitForStatus(t, runner, id, StatusCompleted)
	assert.Equal(t, "alive", snap.Result)
}

func TestRunner_CancelActiveTask(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 1)
	runner.Start()

	started := make(chan struct{})
	release := make(chan struct{})
	id, err := runner.Submit("long-haul", func(ctx context.Context) (any, error) {
		close(started)
		<-release
		return "finished anyway", nil
	})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for task to start")
	}

	// Cancel succeeds while the task is in the active table.
	assert.True(t, runner.Cancel(id))

	// Cancellation is bookkeeping only: the work keeps running until it
	// returns on its own, then the cancelled status sticks.
	close(release)
	snap := waitForStatus(t, runner, id, StatusCancelled)
	assert.Nil(t, snap.Result)
	assert.Empty(t, snap.Error)
	assert.NotNil(t, snap.CompletedAt)

	// A second cancel finds the task in the completed table and fails.
	assert.False(t, runner.Cancel(id))
}

func TestRunner_CancelQueuedTaskNotSupported(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 1)

	var executed atomic.Bool
	id, err := runner.Submit("still-runs", func(ctx context.Context) (any, error) {
		executed.Store(true)
		return "ran", nil
	})
	require.NoError(t, err)

	// The task is queued but unclaimed: Cancel reports false and has no
	// effect on the queue entry.
	assert.False(t, runner.Cancel(id))

	// The task is still dequeued and executed after that failed cancel.
	runner.Start()
	snap := waitForStatus(t, runner, id, StatusCompleted)
	assert.True(t, executed.Load())
	assert.Equal(t, "ran", snap.Result)
}

// TestRunner_CancelRacingCompletionKeepsOutcome hammers Cancel against tasks
// that finish almost immediately, so cancels land at every point of the
// claim/run/complete window. Whatever the interleaving: a Cancel that
// reports true must end in a cancelled snapshot with no result, and a task
// that ends completed must keep its result with Cancel having reported
// false.
func TestRunner_CancelRacingCompletionKeepsOutcome(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 4)
	runner.Start()

	for i := 0; i < 100; i++ {
		id, err := runner.Submit("sprint", func(ctx context.Context) (any, error) {
			return "raced", nil
		})
		require.NoError(t, err)

		cancelled := runner.Cancel(id)

		var snap Snapshot
		deadline := time.After(5 * time.Second)
		for {
			s, err := runner.GetTaskStatus(id)
			if err == nil && s.Status.Terminal() {
				snap = s
				break
			}
			select {
			case <-deadline:
				t.Fatalf("Timed out waiting for task %s to terminate", id)
			case <-time.After(time.Millisecond):
			}
		}

		switch snap.Status {
		case StatusCancelled:
			assert.Nil(t, snap.Result)
			assert.Empty(t, snap.Error)
		case StatusCompleted:
			assert.False(t, cancelled, "Cancel must not report true for a task that completed")
			assert.Equal(t, "raced", snap.Result)
			assert.Empty(t, snap.Error)
		default:
			t.Fatalf("Unexpected terminal status %q", snap.Status)
		}
		if cancelled {
			assert.Equal(t, StatusCancelled, snap.Status)
		}

		// The terminal snapshot must not flip afterwards.
		runner.Cancel(id)
		later, err := runner.GetTaskStatus(id)
		require.NoError(t, err)
		assert.Equal(t, snap.Status, later.Status)
	}
}

func TestRunner_CancelUnknownTask(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 1)
	assert.False(t, runner.Cancel(uuid.New()))
}

func TestRunner_GetTaskStatusUnknownID(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 1)
	_, err := runner.GetTaskStatus(uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRunner_GetCompletedTasksSortedAndLimited(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 1)
	runner.Start()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		id, err := runner.Submit("batch", func(ctx context.Context) (any, error) {
			return nil, nil
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for _, id := range ids {
		waitForStatus(t, runner, id, StatusCompleted)
	}

	completed := runner.GetCompletedTasks(3)
	require.Len(t, completed, 3)
	for i := 1; i < len(completed); i++ {
		prev := completed[i-1].CompletedAt
		curr := completed[i].CompletedAt
		require.NotNil(t, prev)
		require.NotNil(t, curr)
		assert.False(t, prev.Before(*curr), "completed tasks must be newest first")
	}

	all := runner.GetCompletedTasks(0)
	assert.Len(t, all, 5)
}

func TestRunner_QueueStatusSnapshot(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 3)

	for i := 0; i < 2; i++ {
		_, err := runner.Submit("urgent", noopWork, WithPriority(PriorityUrgent))
		require.NoError(t, err)
	}
	_, err := runner.Submit("low", noopWork, WithPriority(PriorityLow))
	require.NoError(t, err)

	status := runner.GetQueueStatus()
	assert.Equal(t, 2, status.Pending[PriorityUrgent])
	assert.Equal(t, 1, status.Pending[PriorityLow])
	assert.Equal(t, 0, status.Active)
	assert.Equal(t, 0, status.Completed)
	assert.Equal(t, 0, status.Workers, "no live workers before Start")
	assert.False(t, status.Running)

	runner.Start()
	status = runner.GetQueueStatus()
	assert.Equal(t, 3, status.Workers)
	assert.True(t, status.Running)
}

func TestRunner_StopReportsShutdownTimeout(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	config.WorkerCount = 1
	config.ShutdownTimeout = 100 * time.Millisecond
	runner := New(config, testLogger(), metrics.NewCollector())
	runner.Start()

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	_, err := runner.Submit("stuck", func(ctx context.Context) (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for task to start")
	}

	// The worker is occupied past the grace period: Stop must surface the
	// partial shutdown instead of hanging.
	err = runner.Stop()
	assert.ErrorIs(t, err, ErrShutdownTimeout)
	assert.False(t, runner.IsRunning())
}

func TestRunner_ConcurrentLoadAcrossPriorities(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 4)
	runner.Start()

	const total = 100
	priorities := []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

	var executions sync.Map // task id -> *atomic.Int32
	ids := make([]uuid.UUID, 0, total)

	for i := 0; i < total; i++ {
		count := &atomic.Int32{}
		id, err := runner.Submit("load", func(ctx context.Context) (any, error) {
			count.Add(1)
			return nil, nil
		}, WithPriority(priorities[i%len(priorities)]))
		require.NoError(t, err)
		executions.Store(id, count)
		ids = append(ids, id)
	}

	for _, id := range ids {
		waitForStatus(t, runner, id, StatusCompleted)
	}

	// Every task reached a terminal state exactly once; nothing ran beyond
	// its intended attempts.
	for _, id := range ids {
		count, ok := executions.Load(id)
		require.True(t, ok)
		assert.Equal(t, int32(1), count.(*atomic.Int32).Load(),
			"task %s executed more than once", id)
	}

	status := runner.GetQueueStatus()
	assert.Equal(t, total, status.Completed)
	assert.Equal(t, 0, status.Active)
	for _, p := range priorities {
		assert.Equal(t, 0, status.Pending[p])
	}
	assert.Len(t, runner.GetCompletedTasks(0), total)
}

func TestRunner_TaskNeverInTwoTablesAtOnce(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 4)
	runner.Start()

	done := make(chan struct{})
	defer close(done)

	// Continuously cross-check the two tables while tasks churn through.
	violations := make(chan uuid.UUID, 1)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			// Read completed first: a terminal task can never return to
			// the active table, so seeing it active afterwards is a real
			// violation rather than a snapshot-ordering artifact.
			completed := make(map[uuid.UUID]bool)
			for _, snap := range runner.GetCompletedTasks(0) {
				completed[snap.ID] = true
			}
			for _, snap := range runner.GetActiveTasks() {
				if completed[snap.ID] {
					select {
					case violations <- snap.ID:
					default:
					}
					return
				}
			}
		}
	}()

	ids := make([]uuid.UUID, 0, 50)
	for i := 0; i < 50; i++ {
		id, err := runner.Submit("churn", func(ctx context.Context) (any, error) {
			time.Sleep(time.Millisecond)
			return nil, nil
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for _, id := range ids {
		waitForStatus(t, runner, id, StatusCompleted)
	}

	select {
	case id := <-violations:
		t.Fatalf("task %s observed in both active and completed tables", id)
	default:
	}
}
