package engine

import (
	"sync/atomic"

	"github.com/justyntemme/oneshot/pkg/process"
)

// TriggerQueue is a bounded lock-free single-producer/single-consumer ring
// for trigger events crossing from the control thread to the audio thread.
// The producer is the control/UI thread; the consumer is the audio thread,
// which drains it at block start. When full, Push drops the event and
// reports it; the audio thread never blocks and the producer never spins.
type TriggerQueue struct {
	buf  []process.Event
	mask uint64
	head atomic.Uint64 // next slot to read
	tail atomic.Uint64 // next slot to write
}

// NewTriggerQueue creates a queue holding at least size events. Size is
// rounded up to a power of two.
func NewTriggerQueue(size int) *TriggerQueue {
	n := 1
	for n < size {
		n <<= 1
	}
	return &TriggerQueue{
		buf:  make([]process.Event, n),
		mask: uint64(n - 1),
	}
}

// Push enqueues an event from the producer side. Returns false when full.
func (q *TriggerQueue) Push(ev process.Event) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.buf)) {
		return false
	}
	q.buf[tail&q.mask] = ev
	q.tail.Store(tail + 1)
	return true
}

// Pop dequeues an event from the consumer side. Returns false when empty.
func (q *TriggerQueue) Pop() (process.Event, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return process.Event{}, false
	}
	ev := q.buf[head&q.mask]
	q.head.Store(head + 1)
	return ev, true
}

// Len returns the number of queued events. Approximate under concurrency.
func (q *TriggerQueue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}
