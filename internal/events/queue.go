// Package events buffers requests raised between frames until the frame loop drains them.
package events

import "sync"

// Envelope carries a queued payload together with its sequence number.
type Envelope[T any] struct {
	Sequence uint64
	Payload  T
}

// Queue buffers payloads in arrival order until the next drain.
type Queue[T any] struct {
	mu      sync.Mutex
	next    uint64
	pending []Envelope[T]
}

// NewQueue constructs an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push enqueues a payload for the next drain and returns its sequence number.
func (q *Queue[T]) Push(payload T) uint64 {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	//1.- Sequence under the lock so concurrent producers keep a total order.
	q.next++
	q.pending = append(q.pending, Envelope[T]{Sequence: q.next, Payload: payload})
	return q.next
}

// Drain hands back every pending payload exactly once, oldest first.
func (q *Queue[T]) Drain() []Envelope[T] {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	//1.- Swap out the current slice with a fresh buffer for the next frame.
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()
	return pending
}

// Len reports how many payloads are waiting.
func (q *Queue[T]) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
