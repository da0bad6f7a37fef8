package queue

import (
	"context"
	"time"

	"mailsense-backend/internal/pipeline/domain"
)

// Queue is the bounded buffer between notification producers and the worker
// pool. Enqueue never blocks: a full queue rejects the task so the webhook
// handler can keep acknowledging fast.
type Queue struct {
	tasks chan domain.EnrichmentTask

	onEnqueued func()
	onDropped  func()
	onDepth    func(depth int)
}

func New(capacity int) *Queue {
	return &Queue{tasks: make(chan domain.EnrichmentTask, capacity)}
}

// SetHooks wires metric callbacks. Any of them may be nil.
func (q *Queue) SetHooks(onEnqueued, onDropped func(), onDepth func(depth int)) {
	q.onEnqueued = onEnqueued
	q.onDropped = onDropped
	q.onDepth = onDepth
}

// Enqueue offers the task to the queue without blocking, returning
// ErrQueueFull when there is no room.
func (q *Queue) Enqueue(task domain.EnrichmentTask) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}

	select {
	case q.tasks <- task:
		if q.onEnqueued != nil {
			q.onEnqueued()
		}
		q.reportDepth()
		return nil
	default:
		if q.onDropped != nil {
			q.onDropped()
		}
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until a task is available or ctx is done. The second
// return value is false on cancellation.
func (q *Queue) Dequeue(ctx context.Context) (domain.EnrichmentTask, bool) {
	select {
	case task := <-q.tasks:
		q.reportDepth()
		return task, true
	case <-ctx.Done():
		return domain.EnrichmentTask{}, false
	}
}

// Depth reports the number of waiting tasks.
func (q *Queue) Depth() int {
	return len(q.tasks)
}

func (q *Queue) reportDepth() {
	if q.onDepth != nil {
		q.onDepth(len(q.tasks))
	}
}
