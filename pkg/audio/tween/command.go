// ABOUTME: Lock-free command handoff for parameter changes
// ABOUTME: The control goroutine writes, the audio goroutine reads only the latest command
package tween

import "sync/atomic"

// ValueChange asks a parameter to move to Target
type ValueChange[T any] struct {
	Target T
	Tween  Tween
}

type slot[T any] struct {
	pending atomic.Pointer[ValueChange[T]]
}

// CommandWriter is held by a handle on the control side
type CommandWriter[T any] struct {
	s *slot[T]
}

// CommandReader is held by the audio-side owner of the parameter
type CommandReader[T any] struct {
	s *slot[T]
}

// NewCommandPair creates a connected writer and reader.
// Commands written between two reads collapse to the most recent one.
func NewCommandPair[T any]() (*CommandWriter[T], *CommandReader[T]) {
	s := &slot[T]{}
	return &CommandWriter[T]{s: s}, &CommandReader[T]{s: s}
}

// Write queues a change, replacing any change not yet read
func (w *CommandWriter[T]) Write(target T, tw Tween) {
	w.s.pending.Store(&ValueChange[T]{Target: target, Tween: tw})
}

// Read takes the pending change, if any
func (r *CommandReader[T]) Read() (ValueChange[T], bool) {
	cmd := r.s.pending.Swap(nil)
	if cmd == nil {
		return ValueChange[T]{}, false
	}
	return *cmd, true
}
