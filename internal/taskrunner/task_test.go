package taskrunner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_SnapshotInitialState(t *testing.T) {
	t.Parallel()

	task := newTask("report", noopWork, PriorityHigh, 2)
	snap := task.Snapshot()

	assert.Equal(t, task.ID(), snap.ID)
	assert.Equal(t, "report", snap.Name)
	assert.Equal(t, PriorityHigh, snap.Priority)
	assert.Equal(t, StatusPending, snap.Status)
	assert.Equal(t, 0, snap.Retries)
	assert.Equal(t, 2, snap.MaxRetries)
	assert.Nil(t, snap.StartedAt)
	assert.Nil(t, snap.CompletedAt)
	assert.Empty(t, snap.Error)
	assert.Nil(t, snap.Result)
}

func TestTask_CompletedOutcome(t *testing.T) {
	t.Parallel()

	task := newTask("sum", noopWork, PriorityMedium, 3)
	require.True(t, task.markRunning())
	task.markCompleted(5)

	snap := task.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 5, snap.Result)
	assert.Empty(t, snap.Error)
	assert.NotNil(t, snap.StartedAt)
	assert.NotNil(t, snap.CompletedAt)
	assert.True(t, snap.Status.Terminal())
}

func TestTask_FailAttemptCounts(t *testing.T) {
	t.Parallel()

	task := newTask("flaky", noopWork, PriorityMedium, 2)
	boom := errors.New("boom")

	// Attempts 1 and 2 fail within the ceiling and request a retry.
	assert.True(t, task.failAttempt(boom))
	assert.Equal(t, StatusRetrying, task.Status())
	assert.True(t, task.failAttempt(boom))

	// Attempt 3 exceeds maxRetries=2 and fails permanently.
	assert.False(t, task.failAttempt(boom))

	snap := task.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, 3, snap.Retries)
	assert.Equal(t, "boom", snap.Error)
	assert.Nil(t, snap.Result)
	assert.NotNil(t, snap.CompletedAt)
}

func TestTask_CancellationIsSticky(t *testing.T) {
	t.Parallel()

	t.Run("before execution", func(t *testing.T) {
		t.Parallel()
		task := newTask("doomed", noopWork, PriorityMedium, 3)
		task.markCancelled()

		assert.False(t, task.markRunning(), "cancelled task must not start running")
		assert.Equal(t, StatusCancelled, task.Status())
	})

	t.Run("result discarded after cancel", func(t *testing.T) {
		t.Parallel()
		task := newTask("late-finish", noopWork, PriorityMedium, 3)
		require.True(t, task.markRunning())
		task.markCancelled()
		task.markCompleted("ignored")

		snap := task.Snapshot()
		assert.Equal(t, StatusCancelled, snap.Status)
		assert.Nil(t, snap.Result)
	})

	t.Run("no retry after cancel", func(t *testing.T) {
		t.Parallel()
		task := newTask("no-retry", noopWork, PriorityMedium, 3)
		require.True(t, task.markRunning())
		task.markCancelled()

		assert.False(t, task.failAttempt(errors.New("boom")))
		snap := task.Snapshot()
		assert.Equal(t, StatusCancelled, snap.Status)
		assert.Empty(t, snap.Error)
		assert.Equal(t, 0, snap.Retries)
	})

	t.Run("cancel after completion is refused", func(t *testing.T) {
		t.Parallel()
		task := newTask("already-done", noopWork, PriorityMedium, 3)
		require.True(t, task.markRunning())
		task.markCompleted("kept")

		assert.False(t, task.markCancelled(), "a terminal outcome must not be overwritten")
		snap := task.Snapshot()
		assert.Equal(t, StatusCompleted, snap.Status)
		assert.Equal(t, "kept", snap.Result)
		assert.Empty(t, snap.Error)
	})

	t.Run("cancel after permanent failure is refused", func(t *testing.T) {
		t.Parallel()
		task := newTask("already-failed", noopWork, PriorityMedium, 0)
		require.True(t, task.markRunning())
		require.False(t, task.failAttempt(errors.New("boom")))

		assert.False(t, task.markCancelled())
		snap := task.Snapshot()
		assert.Equal(t, StatusFailed, snap.Status)
		assert.Equal(t, "boom", snap.Error)
	})
}

func TestTask_TerminalSnapshotIsIdempotent(t *testing.T) {
	t.Parallel()

	task := newTask("stable", noopWork, PriorityLow, 0)
	require.True(t, task.markRunning())
	task.markCompleted("done")

	first := task.Snapshot()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, task.Snapshot())
	}
}

func TestWorkFunc_ClosureBindsArguments(t *testing.T) {
	t.Parallel()

	x, y := 2, 3
	add := func(ctx context.Context) (any, error) {
		return x + y, nil
	}

	result, err := add(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, result)
}
