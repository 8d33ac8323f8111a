package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 2)
	q := NewQueue("audit", func(_ context.Context, job Job) error {
		done <- job.Payload.(string)
		return nil
	}, QueueConfig{Workers: 2})

	_, err := q.Enqueue(Job{Type: "audit"})
	require.Error(t, err, "enqueue before start")

	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue(Job{Type: "audit", Payload: "plan-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case got := <-done:
		assert.Equal(t, "plan-1", got)
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed")
	}
	assert.Eventually(t, func() bool { return q.Processed() == 1 }, time.Second, 10*time.Millisecond)
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var attempts atomic.Int32
	q := NewQueue("audit", func(context.Context, Job) error {
		attempts.Add(1)
		return errors.New("redis down")
	}, QueueConfig{MaxRetries: 2, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{ID: "job-1", Type: "audit"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return q.Failed() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueueTryEnqueueWhenFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("audit", func(ctx context.Context, _ Job) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	_, err := q.TryEnqueue(Job{Type: "audit"})
	require.NoError(t, err)
	// the worker may or may not have picked up the first job yet; fill until full
	var fullErr error
	for i := 0; i < 3 && fullErr == nil; i++ {
		_, fullErr = q.TryEnqueue(Job{Type: "audit"})
	}
	assert.ErrorIs(t, fullErr, ErrQueueFull)
}
