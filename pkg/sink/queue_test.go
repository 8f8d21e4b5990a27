package sink

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Push([]byte{0x90, 60, 100})
	q.Push([]byte{0x80, 60, 0})

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
	peek, ok := q.Peek()
	if !ok || peek.Message[0] != 0x90 {
		t.Fatalf("Peek() = %v, %v", peek, ok)
	}
	first, _ := q.Pop()
	second, _ := q.Pop()
	if first.Message[0] != 0x90 || second.Message[0] != 0x80 {
		t.Errorf("Pop order = % X, % X", first.Message, second.Message)
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on empty queue returned ok")
	}
}

func TestQueueCopiesMessage(t *testing.T) {
	q := NewQueue()
	buf := []byte{0x90, 60, 100}
	q.Push(buf)
	buf[1] = 0

	in, _ := q.Pop()
	if !bytes.Equal(in.Message, []byte{0x90, 60, 100}) {
		t.Errorf("queued message changed with caller buffer: % X", in.Message)
	}
}

func TestQueueStampsInputs(t *testing.T) {
	q := NewQueue()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	q.PushInput(Input{Message: []byte{0xF8}, Timestamp: at})
	q.PushInput(Input{Message: []byte{0xF8}})

	kept, _ := q.Pop()
	stamped, _ := q.Pop()
	if !kept.Timestamp.Equal(at) {
		t.Errorf("timestamp = %v, want %v", kept.Timestamp, at)
	}
	if stamped.Timestamp.IsZero() {
		t.Error("zero timestamp was not replaced")
	}
}

func TestQueueDropsOldest(t *testing.T) {
	q := NewQueueWithSize(3)
	for i := byte(0); i < 5; i++ {
		q.Push([]byte{0x90, i, 100})
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	if q.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", q.Dropped())
	}
	for i, in := range q.Drain() {
		if want := byte(i + 2); in.Message[1] != want {
			t.Errorf("entry %d key = %d, want %d", i, in.Message[1], want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len() after Drain = %d, want 0", q.Len())
	}
}

func TestQueueSizeDefaults(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"zero", 0, DefaultQueueSize},
		{"negative", -4, DefaultQueueSize},
		{"custom", 16, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewQueueWithSize(tt.size).maxSize; got != tt.want {
				t.Errorf("maxSize = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueueClearAndSend(t *testing.T) {
	q := NewQueue()
	if err := q.Send(nil); err != ErrEmptyMessage {
		t.Errorf("Send(nil) error = %v, want ErrEmptyMessage", err)
	}
	if err := q.Send([]byte{0xFA}); err != nil {
		t.Fatal(err)
	}
	q.Clear()
	if q.Len() != 0 {
		t.Errorf("Len() after Clear = %d", q.Len())
	}
}

func TestQueueConcurrentProducer(t *testing.T) {
	q := NewQueueWithSize(10000)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			q.Push([]byte{0xF8})
		}
	}()

	got := 0
	for got < 500 {
		got += len(q.Drain())
	}
	wg.Wait()
	if q.Len() != 0 {
		t.Errorf("Len() = %d after draining everything", q.Len())
	}
}

// The queue keeps the newest min(n, size) messages in arrival order.
func TestQueueKeepsNewestProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("queue keeps the newest messages in order", prop.ForAll(
		func(size, n int) bool {
			q := NewQueueWithSize(size)
			for i := 0; i < n; i++ {
				q.Push([]byte{byte(i)})
			}
			kept := min(n, size)
			items := q.Drain()
			if len(items) != kept || q.Dropped() != n-kept {
				return false
			}
			for i, in := range items {
				if in.Message[0] != byte(n-kept+i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 32),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
