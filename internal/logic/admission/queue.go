package admission

import "time"

// queuedOperation is a CRITICAL/HIGH operation parked until capacity frees
// up. The waiter blocks on decision: a nil value means the promoter already
// reserved resources on its behalf, a non-nil value is the eviction reason.
type queuedOperation struct {
	id           string
	name         string
	priority     Priority
	requirements Requirements
	enqueuedAt   time.Time
	estimated    time.Duration
	decision     chan error
}

// waitQueue is the priority-ordered wait list. Insertion sorts by priority
// with FIFO order among equals; dequeue only ever takes the head. Not safe
// for concurrent use; the controller guards it with its own lock.
type waitQueue struct {
	items []*queuedOperation
}

func newWaitQueue() *waitQueue {
	return &waitQueue{}
}

// push inserts the operation before the first entry with a strictly lower
// priority class. Equal priorities keep arrival order (stable insertion), so
// ordering is decided at insert time, not at dequeue time.
func (q *waitQueue) push(op *queuedOperation) {
	at := len(q.items)

	for i, item := range q.items {
		if op.priority < item.priority {
			at = i

			break
		}
	}

	q.items = append(q.items, nil)
	copy(q.items[at+1:], q.items[at:])
	q.items[at] = op
}

// head returns the next operation to promote without removing it.
func (q *waitQueue) head() *queuedOperation {
	if len(q.items) == 0 {
		return nil
	}

	return q.items[0]
}

// popHead removes and returns the head of the queue.
func (q *waitQueue) popHead() *queuedOperation {
	op := q.head()
	if op == nil {
		return nil
	}

	q.items = q.items[1:]

	return op
}

// remove drops the operation with the given id, reporting whether it was
// still queued. Used for cancellation by the waiter itself.
func (q *waitQueue) remove(id string) bool {
	for i, item := range q.items {
		if item.id == id {
			q.items = append(q.items[:i], q.items[i+1:]...)

			return true
		}
	}

	return false
}

// expire removes every entry older than maxAge and returns them so the
// controller can wake their waiters with an eviction error.
func (q *waitQueue) expire(now time.Time, maxAge time.Duration) []*queuedOperation {
	var expired []*queuedOperation

	kept := q.items[:0]

	for _, item := range q.items {
		if now.Sub(item.enqueuedAt) > maxAge {
			expired = append(expired, item)

			continue
		}

		kept = append(kept, item)
	}

	q.items = kept

	return expired
}

func (q *waitQueue) len() int {
	return len(q.items)
}
