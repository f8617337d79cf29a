// ABOUTME: Cross-goroutine sound state
// ABOUTME: Single-word atomics written by the audio and decode goroutines and read by control code
package playback

import (
	"math"
	"sync/atomic"
)

// Shared is the state of one sound visible to every goroutine.
// Each field is independently meaningful, so no lock ties them together.
type Shared struct {
	position         atomic.Uint64
	state            atomic.Uint32
	reachedEnd       atomic.Bool
	encounteredError atomic.Bool
	released         atomic.Bool
}

// NewShared creates state for a playing sound at position seconds
func NewShared(position float64) *Shared {
	s := &Shared{}
	s.SetPosition(position)
	return s
}

// Position returns the last published position in seconds
func (s *Shared) Position() float64 {
	return math.Float64frombits(s.position.Load())
}

// SetPosition publishes a position in seconds
func (s *Shared) SetPosition(seconds float64) {
	s.position.Store(math.Float64bits(seconds))
}

// State returns the last published playback state
func (s *Shared) State() State {
	return State(s.state.Load())
}

// SetState publishes a playback state
func (s *Shared) SetState(state State) {
	s.state.Store(uint32(state))
}

// ReachedEnd reports whether the decoder has produced its last frame
func (s *Shared) ReachedEnd() bool {
	return s.reachedEnd.Load()
}

// SetReachedEnd marks the source exhausted
func (s *Shared) SetReachedEnd() {
	s.reachedEnd.Store(true)
}

// EncounteredError reports whether decoding failed
func (s *Shared) EncounteredError() bool {
	return s.encounteredError.Load()
}

// SetEncounteredError marks the source failed
func (s *Shared) SetEncounteredError() {
	s.encounteredError.Store(true)
}

// Released reports whether the mixer has dropped the sound
func (s *Shared) Released() bool {
	return s.released.Load()
}

// Release marks the sound dropped so helper goroutines can exit
func (s *Shared) Release() {
	s.released.Store(true)
}
