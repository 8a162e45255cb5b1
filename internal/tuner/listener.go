package tuner

import (
	"sync"
	"sync/atomic"
)

// Listener receives every completed detection cycle, in capture order. It is
// called on the capture goroutine; implementations that do real work should
// hand the result off (see Queue) rather than block the next read.
//
// raw is the window the result was computed from. Ownership passes to the
// listener; the engine allocates a new window for the next cycle.
type Listener interface {
	OnDetection(r Result, raw []int16)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(r Result, raw []int16)

// OnDetection implements Listener.
func (f ListenerFunc) OnDetection(r Result, raw []int16) {
	f(r, raw)
}

// Delivery is one result with its raw window as queued by Queue.
type Delivery struct {
	Result
	Raw []int16
}

// Queue is a bounded Listener that never blocks the capture loop. When the
// consumer falls behind the oldest undelivered result is dropped, so what
// remains is always the newest results in capture order.
type Queue struct {
	mu      sync.Mutex
	ch      chan Delivery
	dropped atomic.Uint64
}

// NewQueue creates a queue holding up to capacity undelivered results.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Delivery, capacity)}
}

// OnDetection implements Listener.
func (q *Queue) OnDetection(r Result, raw []int16) {
	q.mu.Lock()
	defer q.mu.Unlock()

	d := Delivery{Result: r, Raw: raw}
	for {
		select {
		case q.ch <- d:
			return
		default:
		}

		// Full: make room by discarding the oldest
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

// C returns the channel results are delivered on.
func (q *Queue) C() <-chan Delivery {
	return q.ch
}

// Dropped returns how many results were discarded because the consumer fell
// behind.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
