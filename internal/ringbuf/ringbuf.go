// ABOUTME: Bounded lock-free single-producer/single-consumer queue
// ABOUTME: Hands values between the decode, control and audio goroutines without blocking
package ringbuf

import "sync/atomic"

// ring is the storage shared by one Producer and one Consumer.
// head is written only by the consumer, tail only by the producer.
type ring[T any] struct {
	buffer []T
	size   uint64
	head   atomic.Uint64
	tail   atomic.Uint64
}

// Producer is the write end of a queue. It must be used from one goroutine at a time.
type Producer[T any] struct {
	r *ring[T]
}

// Consumer is the read end of a queue. It must be used from one goroutine at a time.
type Consumer[T any] struct {
	r *ring[T]
}

// New creates a queue holding at most capacity values
func New[T any](capacity int) (*Producer[T], *Consumer[T]) {
	if capacity < 1 {
		capacity = 1
	}
	r := &ring[T]{
		buffer: make([]T, capacity),
		size:   uint64(capacity),
	}
	return &Producer[T]{r: r}, &Consumer[T]{r: r}
}

// Push appends v, returning false without blocking if the queue is full
func (p *Producer[T]) Push(v T) bool {
	tail := p.r.tail.Load()
	if tail-p.r.head.Load() == p.r.size {
		return false
	}
	p.r.buffer[tail%p.r.size] = v
	p.r.tail.Store(tail + 1)
	return true
}

// Full reports whether a Push would currently fail
func (p *Producer[T]) Full() bool {
	return p.r.tail.Load()-p.r.head.Load() == p.r.size
}

// Free returns the number of slots available to the producer
func (p *Producer[T]) Free() int {
	return int(p.r.size - (p.r.tail.Load() - p.r.head.Load()))
}

// Cap returns the queue capacity
func (p *Producer[T]) Cap() int {
	return int(p.r.size)
}

// Pop removes and returns the oldest value
func (c *Consumer[T]) Pop() (T, bool) {
	var zero T
	head := c.r.head.Load()
	if head == c.r.tail.Load() {
		return zero, false
	}
	idx := head % c.r.size
	v := c.r.buffer[idx]
	c.r.buffer[idx] = zero
	c.r.head.Store(head + 1)
	return v, true
}

// Peek returns the value i positions from the front without removing it
func (c *Consumer[T]) Peek(i int) (T, bool) {
	var zero T
	head := c.r.head.Load()
	if i < 0 || head+uint64(i) >= c.r.tail.Load() {
		return zero, false
	}
	return c.r.buffer[(head+uint64(i))%c.r.size], true
}

// Len returns the number of values available to the consumer
func (c *Consumer[T]) Len() int {
	return int(c.r.tail.Load() - c.r.head.Load())
}

// Empty reports whether there is nothing to pop
func (c *Consumer[T]) Empty() bool {
	return c.Len() == 0
}
