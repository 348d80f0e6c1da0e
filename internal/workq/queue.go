// Package workq provides a multi-producer, multi-consumer work queue
// with termination detection for workloads where the consumers are also
// the producers, such as graph or directory-tree exploration.
package workq

import "sync"

type state int

const (
	open      state = iota // accepting and distributing work
	quiescent              // outstanding hit zero; all work completed
	shutdown               // closed early by Shutdown
)

// Queue distributes items across concurrent consumers while tracking
// how much work remains in flight. An item is outstanding from the
// moment Push accepts it until the consumer that popped it calls Done.
// When the outstanding count returns to zero the queue closes itself:
// every blocked Pop returns false and no further items are accepted.
//
// Correct termination rests on one caller rule: a consumer must Push
// every item it discovers while processing an item before calling Done
// for that item. The count then cannot reach zero while any in-flight
// item could still produce work.
type Queue[T any] struct {
	mu          sync.Mutex
	cond        *sync.Cond
	items       []T
	outstanding int
	state       state
}

// New returns an empty, open queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds an item and accounts for it in the outstanding count before
// any consumer can observe it. It reports whether the item was
// accepted; a closed queue drops items, which is how work discovered
// after cancellation is discarded.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != open {
		return false
	}
	q.outstanding++
	q.items = append(q.items, item)
	q.cond.Signal()
	return true
}

// Pop blocks until an item is available or the queue closes. The second
// return value is false only once the queue is closed, which is the
// uniform exit signal for consumer loops.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && q.state == open {
		q.cond.Wait()
	}
	if q.state == shutdown || len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Done marks one previously popped item as fully processed. The caller
// must have already pushed everything that item produced. If the
// outstanding count reaches zero the queue becomes quiescent and every
// blocked Pop is released.
func (q *Queue[T]) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.outstanding--
	if q.outstanding < 0 {
		panic("workq: Done called more times than Push")
	}
	if q.outstanding == 0 && q.state == open {
		q.state = quiescent
		q.cond.Broadcast()
	}
}

// Shutdown closes the queue immediately, regardless of outstanding
// work. Blocked Pops return false and queued items are discarded.
// Calling Shutdown on an already closed queue has no effect.
func (q *Queue[T]) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state == open {
		q.state = shutdown
		q.cond.Broadcast()
	}
}

// Quiescent reports whether the queue closed because all outstanding
// work completed, as opposed to being shut down early.
func (q *Queue[T]) Quiescent() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state == quiescent
}

// Outstanding returns the number of items accepted but not yet marked
// done. Intended for diagnostics; the value may be stale by the time
// the caller inspects it.
func (q *Queue[T]) Outstanding() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outstanding
}
