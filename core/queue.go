package core

import "sync"

// workQueue is an unbounded FIFO with any number of producers and a single consumer.
// push never blocks; the consumer waits on wake and takes everything queued at once.
type workQueue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	wake   chan struct{}
}

func newWorkQueue[T any]() *workQueue[T] {
	return &workQueue[T]{
		wake: make(chan struct{}, 1),
	}
}

// push appends item. It returns false once the queue is closed, in which case
// the caller still owns item.
func (q *workQueue[T]) push(item T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// take removes and returns everything queued, in push order
func (q *workQueue[T]) take() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// close rejects further pushes and returns whatever was still queued
func (q *workQueue[T]) close() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	items := q.items
	q.items = nil
	return items
}

func (q *workQueue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
