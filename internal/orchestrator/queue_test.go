package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/dno-gatherer/internal/model"
)

func TestJobQueue_PriorityOrdering(t *testing.T) {
	q := NewJobQueue()
	low := model.NewJob("op-a", 2024, model.DataKindBoth, model.PriorityLow)
	high := model.NewJob("op-b", 2024, model.DataKindBoth, model.PriorityHigh)
	medium := model.NewJob("op-c", 2024, model.DataKindBoth, model.PriorityMedium)

	require.True(t, q.Push(low))
	require.True(t, q.Push(high))
	require.True(t, q.Push(medium))

	first, ok := q.Pop(nil)
	require.True(t, ok)
	assert.Equal(t, high.ID, first.ID)

	second, ok := q.Pop(nil)
	require.True(t, ok)
	assert.Equal(t, medium.ID, second.ID)

	third, ok := q.Pop(nil)
	require.True(t, ok)
	assert.Equal(t, low.ID, third.ID)
}

func TestJobQueue_SamePriorityIsFIFO(t *testing.T) {
	q := NewJobQueue()
	first := model.NewJob("op-a", 2024, model.DataKindBoth, model.PriorityMedium)
	second := model.NewJob("op-b", 2024, model.DataKindBoth, model.PriorityMedium)

	require.True(t, q.Push(first))
	require.True(t, q.Push(second))

	got1, ok := q.Pop(nil)
	require.True(t, ok)
	assert.Equal(t, first.ID, got1.ID)

	got2, ok := q.Pop(nil)
	require.True(t, ok)
	assert.Equal(t, second.ID, got2.ID)
}

func TestJobQueue_PushFrontJumpsAheadOfSamePriority(t *testing.T) {
	q := NewJobQueue()
	queued := model.NewJob("op-a", 2024, model.DataKindBoth, model.PriorityMedium)
	requeued := model.NewJob("op-b", 2024, model.DataKindBoth, model.PriorityMedium)

	require.True(t, q.Push(queued))
	require.True(t, q.PushFront(requeued))

	first, ok := q.Pop(nil)
	require.True(t, ok)
	assert.Equal(t, requeued.ID, first.ID)
}

func TestJobQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewJobQueue()
	job := model.NewJob("op-a", 2024, model.DataKindBoth, model.PriorityLow)

	done := make(chan *model.Job, 1)
	go func() {
		got, ok := q.Pop(nil)
		if ok {
			done <- got
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.True(t, q.Push(job))

	select {
	case got := <-done:
		assert.Equal(t, job.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("Pop did not observe the pushed job")
	}
}

func TestJobQueue_PopReturnsFalseOnStop(t *testing.T) {
	q := NewJobQueue()
	stop := make(chan struct{})

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop(stop)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	close(stop)

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop did not observe the closed stop channel")
	}
}

func TestJobQueue_CloseWakesBlockedPop(t *testing.T) {
	q := NewJobQueue()

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop(nil)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop did not observe Close")
	}

	assert.False(t, q.Push(model.NewJob("op-a", 2024, model.DataKindBoth, model.PriorityLow)))
}
