package feed

import (
	"sync"

	"github.com/developerxnoxs/xnoxs-feed/internal/model"
)

const initialQueueCap = 16

// barQueue is the unbounded FIFO between the orchestrator and one consumer
// goroutine. Send never blocks; Receive blocks until an item arrives or the
// queue is closed and drained.
type barQueue struct {
	mu    sync.Mutex
	ready *sync.Cond

	buf    []model.Bar
	head   int
	count  int
	closed bool
}

func newBarQueue() *barQueue {
	q := &barQueue{buf: make([]model.Bar, initialQueueCap)}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Send enqueues a bar. Returns false once the queue is closed.
func (q *barQueue) Send(b model.Bar) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if q.count == len(q.buf) {
		q.growLocked()
	}
	q.buf[(q.head+q.count)%len(q.buf)] = b
	q.count++
	q.ready.Signal()
	return true
}

// Receive dequeues the oldest bar, blocking while the queue is empty.
// ok is false only after Close, once every queued bar has been drained.
func (q *barQueue) Receive() (model.Bar, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.ready.Wait()
	}
	if q.count == 0 {
		return model.Bar{}, false
	}

	b := q.buf[q.head]
	q.buf[q.head] = model.Bar{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return b, true
}

// Close marks the queue closed and wakes any blocked receiver. Queued bars
// remain receivable until drained. Idempotent.
func (q *barQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.ready.Broadcast()
}

// Len returns the number of queued bars.
func (q *barQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *barQueue) growLocked() {
	next := make([]model.Bar, len(q.buf)*2)
	for i := 0; i < q.count; i++ {
		next[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = next
	q.head = 0
}
