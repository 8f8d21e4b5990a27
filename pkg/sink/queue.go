package sink

import (
	"slices"
	"sync"
	"time"
)

// DefaultQueueSize is the capacity of a queue created with NewQueue.
const DefaultQueueSize = 1000

// Input is a raw message received from a device, stamped on arrival.
type Input struct {
	Message   []byte
	Timestamp time.Time
}

// Queue hands messages from a device goroutine to the host loop. It is
// bounded; when full, the oldest message is discarded.
type Queue struct {
	items   []Input
	maxSize int
	dropped int
	mu      sync.Mutex
}

// NewQueue creates a queue with DefaultQueueSize capacity.
func NewQueue() *Queue {
	return NewQueueWithSize(DefaultQueueSize)
}

// NewQueueWithSize creates a queue holding at most maxSize messages.
// A non-positive size selects DefaultQueueSize.
func NewQueueWithSize(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = DefaultQueueSize
	}
	return &Queue{
		items:   make([]Input, 0, maxSize),
		maxSize: maxSize,
	}
}

// Push copies msg into the queue, stamping it with the current time.
func (q *Queue) Push(msg []byte) {
	q.PushInput(Input{Message: msg, Timestamp: time.Now()})
}

// PushInput adds in to the queue. A zero timestamp is replaced with the
// current time and the message bytes are copied.
func (q *Queue) PushInput(in Input) {
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}
	in.Message = slices.Clone(in.Message)

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.maxSize {
		q.items = q.items[1:]
		q.dropped++
	}
	q.items = append(q.items, in)
}

// Pop removes and returns the oldest message.
func (q *Queue) Pop() (Input, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Input{}, false
	}
	in := q.items[0]
	q.items = q.items[1:]
	return in, true
}

// Peek returns the oldest message without removing it.
func (q *Queue) Peek() (Input, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Input{}, false
	}
	return q.items[0], true
}

// Drain removes and returns every queued message, oldest first.
func (q *Queue) Drain() []Input {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = make([]Input, 0, q.maxSize)
	return out
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many messages were discarded because the queue was full.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Clear removes every queued message.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
}

// Send implements Sink so a queue can stand in for a device.
func (q *Queue) Send(msg []byte) error {
	if len(msg) == 0 {
		return ErrEmptyMessage
	}
	q.Push(msg)
	return nil
}
