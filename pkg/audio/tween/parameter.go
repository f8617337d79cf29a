// ABOUTME: Tweened parameter values
// ABOUTME: Moves a value toward a target over wall-clock time driven by per-buffer deltas
package tween

import (
	"time"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

// Tween describes a transition to a new value
type Tween struct {
	Duration time.Duration
	Easing   Easing
}

// Immediate is a zero-length tween. The change still ramps across one buffer.
var Immediate = Tween{}

// Lerper interpolates between two values of T
type Lerper[T any] func(a, b T, amount float64) T

// Parameter is a value that smoothly transitions toward a target.
// It is owned by the audio goroutine; other goroutines change it through a CommandWriter.
type Parameter[T any] struct {
	lerp     Lerper[T]
	value    T
	previous T

	tweening bool
	start    T
	target   T
	duration float64
	elapsed  float64
	easing   Easing
}

// NewParameter creates a parameter resting at initial
func NewParameter[T any](initial T, lerp Lerper[T]) *Parameter[T] {
	return &Parameter[T]{
		lerp:     lerp,
		value:    initial,
		previous: initial,
	}
}

// NewFloat creates a float64 parameter
func NewFloat(initial float64) *Parameter[float64] {
	return NewParameter(initial, audio.Lerp)
}

// NewDecibels creates a volume parameter interpolated in decibel space
func NewDecibels(initial audio.Decibels) *Parameter[audio.Decibels] {
	return NewParameter(initial, audio.LerpDecibels)
}

// Value returns the value after the most recent Update
func (p *Parameter[T]) Value() T {
	return p.value
}

// PreviousValue returns the value before the most recent Update
func (p *Parameter[T]) PreviousValue() T {
	return p.previous
}

// InterpolatedValue blends between the previous and current value.
// amount is the position within the buffer that the last Update covered.
func (p *Parameter[T]) InterpolatedValue(amount float64) T {
	return p.lerp(p.previous, p.value, amount)
}

// Tweening reports whether a transition is in progress
func (p *Parameter[T]) Tweening() bool {
	return p.tweening
}

// Target returns the value the parameter is moving toward
func (p *Parameter[T]) Target() T {
	if p.tweening {
		return p.target
	}
	return p.value
}

// Set starts a transition from the current value to target
func (p *Parameter[T]) Set(target T, tw Tween) {
	p.tweening = true
	p.start = p.value
	p.target = target
	p.duration = tw.Duration.Seconds()
	p.elapsed = 0
	p.easing = tw.Easing
}

// ReadCommand applies the most recent pending command, if any
func (p *Parameter[T]) ReadCommand(r *CommandReader[T]) {
	if r == nil {
		return
	}
	if cmd, ok := r.Read(); ok {
		p.Set(cmd.Target, cmd.Tween)
	}
}

// Update advances the transition by dt seconds and reports whether it just finished
func (p *Parameter[T]) Update(dt float64) bool {
	p.previous = p.value
	if !p.tweening {
		return false
	}
	p.elapsed += dt
	if p.elapsed >= p.duration {
		p.value = p.target
		p.tweening = false
		return true
	}
	p.value = p.lerp(p.start, p.target, p.easing.Apply(p.elapsed/p.duration))
	return false
}
