// ABOUTME: Tests for the SPSC ring buffer
// ABOUTME: Tests ordering, capacity limits, peeking and concurrent handoff
package ringbuf

import (
	"sync"
	"testing"
)

func TestPushPopOrder(t *testing.T) {
	p, c := New[int](4)

	for i := 0; i < 4; i++ {
		if !p.Push(i) {
			t.Fatalf("push %d failed on non-full queue", i)
		}
	}

	for i := 0; i < 4; i++ {
		v, ok := c.Pop()
		if !ok {
			t.Fatalf("pop %d failed on non-empty queue", i)
		}
		if v != i {
			t.Errorf("expected %d, got %d", i, v)
		}
	}

	if _, ok := c.Pop(); ok {
		t.Error("expected pop on empty queue to fail")
	}
}

func TestPushFullReturnsFalse(t *testing.T) {
	p, c := New[int](2)

	p.Push(1)
	p.Push(2)

	if !p.Full() {
		t.Error("expected queue to report full")
	}
	if p.Push(3) {
		t.Error("expected push on full queue to fail")
	}
	if p.Free() != 0 {
		t.Errorf("expected 0 free slots, got %d", p.Free())
	}

	c.Pop()
	if !p.Push(3) {
		t.Error("expected push to succeed after pop")
	}
}

func TestPeek(t *testing.T) {
	p, c := New[string](8)
	p.Push("a")
	p.Push("b")

	if v, ok := c.Peek(0); !ok || v != "a" {
		t.Errorf("expected a at 0, got %q (%v)", v, ok)
	}
	if v, ok := c.Peek(1); !ok || v != "b" {
		t.Errorf("expected b at 1, got %q (%v)", v, ok)
	}
	if _, ok := c.Peek(2); ok {
		t.Error("expected peek past the end to fail")
	}
	if c.Len() != 2 {
		t.Errorf("peek must not consume, len=%d", c.Len())
	}
}

func TestWrapAround(t *testing.T) {
	p, c := New[int](3)

	for round := 0; round < 10; round++ {
		p.Push(round)
		p.Push(round + 100)
		a, _ := c.Pop()
		b, _ := c.Pop()
		if a != round || b != round+100 {
			t.Fatalf("round %d: got %d, %d", round, a, b)
		}
	}
}

func TestConcurrentHandoff(t *testing.T) {
	const n = 100000
	p, c := New[int](64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; {
			if p.Push(i) {
				i++
			}
		}
	}()

	next := 0
	for next < n {
		v, ok := c.Pop()
		if !ok {
			continue
		}
		if v != next {
			t.Fatalf("expected %d, got %d", next, v)
		}
		next++
	}
	wg.Wait()
}
