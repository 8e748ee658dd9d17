package pipeline

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// Queue is the FIFO buffer between a stage relay and its worker.
//
// A Queue with a size of 0 is unbounded. Otherwise Push blocks while the queue holds size messages, which in turn
// blocks the relay and the stage upstream.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    *linkedlistqueue.Queue
	size     int
	closed   bool
}

// NewQueue creates a queue holding at most size messages, or any number when size is 0.
func NewQueue(size int) *Queue {
	q := &Queue{
		items: linkedlistqueue.New(),
		size:  size,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)

	return q
}

func (q *Queue) full() bool {
	return q.size > 0 && q.items.Size() >= q.size
}

// Push appends msg. It returns false if the queue is closed.
func (q *Queue) Push(msg Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.full() && !q.closed {
		q.notFull.Wait()
	}

	if q.closed {
		return false
	}

	q.items.Enqueue(msg)
	q.notEmpty.Signal()

	return true
}

// Pop removes the oldest message, blocking while the queue is empty. ok is false once the queue is closed.
func (q *Queue) Pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Empty() && !q.closed {
		q.notEmpty.Wait()
	}

	if q.closed {
		return Message{}, false
	}

	v, _ := q.items.Dequeue()
	q.notFull.Signal()

	return v.(Message), true //nolint:forcetypeassert // only messages are enqueued
}

// Len returns the number of buffered messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.items.Size()
}

// Close wakes every blocked caller. Buffered messages are discarded.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.items.Clear()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}
