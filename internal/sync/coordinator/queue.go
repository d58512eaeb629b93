package coordinator

import (
	"context"
	"errors"
	"time"
)

// ErrQueueEmpty is returned by Pop when no project arrived within the timeout
var ErrQueueEmpty = errors.New("work queue empty")

// WorkQueue hands out project ids to workers. Every id is popped exactly once.
type WorkQueue struct {
	items   chan string
	timeout time.Duration
}

// NewWorkQueue creates a queue holding ids
func NewWorkQueue(ids []string, timeout time.Duration) *WorkQueue {
	q := &WorkQueue{
		items:   make(chan string, len(ids)),
		timeout: timeout,
	}
	for _, id := range ids {
		q.items <- id
	}
	return q
}

// Pop returns the next project id. It waits at most the queue timeout and
// returns ErrQueueEmpty when nothing arrived, or the context error when ctx
// ends first.
func (q *WorkQueue) Pop(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case id := <-q.items:
		return id, nil
	case <-timer.C:
		return "", ErrQueueEmpty
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Len is the number of ids not handed out yet
func (q *WorkQueue) Len() int {
	return len(q.items)
}
