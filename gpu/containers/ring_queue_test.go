package containers

import (
	"errors"
	"testing"
)

func TestRingQueueFIFOOrder(t *testing.T) {
	rq := NewRingQueue[uint32](3)
	for i := uint32(0); i < 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	for want := uint32(0); want < 3; want++ {
		got, err := rq.Dequeue()
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if got != want {
			t.Errorf("dequeue = %d, want %d", got, want)
		}
	}
}

func TestRingQueueFull(t *testing.T) {
	rq := NewRingQueue[int](2)
	rq.Enqueue(1)
	rq.Enqueue(2)
	if err := rq.Enqueue(3); !errors.Is(err, ErrQueueFull) {
		t.Errorf("enqueue on full queue = %v, want ErrQueueFull", err)
	}
	if !rq.IsFull() {
		t.Errorf("queue with %d/%d items should report full", rq.Len(), rq.Cap())
	}
}

func TestRingQueueEmpty(t *testing.T) {
	rq := NewRingQueue[int](2)
	if _, err := rq.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("dequeue on empty queue = %v, want ErrQueueEmpty", err)
	}
	if _, err := rq.Peek(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("peek on empty queue = %v, want ErrQueueEmpty", err)
	}
}

func TestRingQueueWrapAround(t *testing.T) {
	rq := NewRingQueue[int](2)
	rq.Enqueue(1)
	rq.Enqueue(2)
	rq.Dequeue()
	if err := rq.Enqueue(3); err != nil {
		t.Fatalf("enqueue after wrap: %v", err)
	}
	if got, _ := rq.Peek(); got != 2 {
		t.Errorf("peek = %d, want 2", got)
	}
	rq.Dequeue()
	if got, _ := rq.Dequeue(); got != 3 {
		t.Errorf("dequeue = %d, want 3", got)
	}
}
