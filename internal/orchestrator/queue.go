// Package orchestrator implements the job queue, session lifecycle, and
// worker pool from spec.md §4.5/§4.7: priority-ordered admission, bounded
// concurrency gated by internal/resourcemonitor, plan execution via
// internal/strategy, and monotonic per-session log streaming.
package orchestrator

import (
	"container/heap"
	"sync"
	"time"

	"github.com/ternarybob/dno-gatherer/internal/model"
)

// queueItem is one admitted Job waiting for a worker, ordered by
// (priority desc, enqueued-at asc) so equal-priority jobs run FIFO.
type queueItem struct {
	job      *model.Job
	seq      int64 // admission order, breaks priority ties FIFO
}

type itemHeap []*queueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority > h[j].job.Priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(*queueItem)) }

func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// JobQueue is a priority queue of admitted Jobs, ordered by
// (priority desc, admission order asc) per spec.md §4.5. Pop blocks until
// an item is available or the queue is closed.
type JobQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *itemHeap
	nextSeq int64
	frontSeq int64
	closed bool
}

// NewJobQueue constructs an empty JobQueue.
func NewJobQueue() *JobQueue {
	h := &itemHeap{}
	heap.Init(h)
	q := &JobQueue{items: h}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push admits job into the queue, waking one blocked Pop.
func (q *JobQueue) Push(job *model.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	heap.Push(q.items, &queueItem{job: job, seq: q.nextSeq})
	q.nextSeq++
	q.cond.Signal()
	return true
}

// PushFront re-admits job ahead of same-priority items already queued, used
// to re-queue a job whose worker lost admission to the Resource Monitor.
// Implemented as a Push with a seq below every item already pushed at the
// same priority, so it is popped before they are.
func (q *JobQueue) PushFront(job *model.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.frontSeq--
	heap.Push(q.items, &queueItem{job: job, seq: q.frontSeq})
	q.cond.Signal()
	return true
}

// popPollInterval bounds how long Pop's internal wait can block before it
// re-checks stop, so a caller's cancellation is observed promptly without a
// dedicated goroutine per wait cycle (avoiding the leak a naive
// select-on-channel-inside-the-lock approach would cause).
const popPollInterval = 100 * time.Millisecond

// Pop blocks until a Job is available, the queue is closed, or stop is
// closed (both return nil, false).
func (q *JobQueue) Pop(stop <-chan struct{}) (*model.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 && !q.closed {
		select {
		case <-stop:
			return nil, false
		default:
		}

		timer := time.AfterFunc(popPollInterval, func() {
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		})
		q.cond.Wait()
		timer.Stop()
	}

	if q.items.Len() == 0 {
		return nil, false
	}
	item := heap.Pop(q.items).(*queueItem)
	return item.job, true
}

// Len returns the number of jobs currently queued.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Close wakes every blocked Pop and makes future Push calls fail.
func (q *JobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
