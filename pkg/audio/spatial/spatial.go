// ABOUTME: Listener pose, binaural ear gains and distance attenuation
// ABOUTME: Evaluated per output slot by spatial tracks
package spatial

import (
	"math"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/tween"
)

const earDistance = 0.1

var (
	earAngle = math.Pi / 6

	leftEarOffset  = Vec3{X: -earDistance}
	rightEarOffset = Vec3{X: earDistance}

	// Ears point sideways and slightly forward
	leftEarDirection  = Vec3{X: -math.Cos(earAngle), Z: -math.Sin(earAngle)}
	rightEarDirection = Vec3{X: math.Cos(earAngle), Z: -math.Sin(earAngle)}
)

// ListenerInfo is the listener pose for the current buffer and the one before it
type ListenerInfo struct {
	Position            Vec3
	Orientation         Quat
	PreviousPosition    Vec3
	PreviousOrientation Quat
}

// StaticListener returns a listener that has not moved since the last buffer
func StaticListener(position Vec3, orientation Quat) ListenerInfo {
	return ListenerInfo{
		Position:            position,
		Orientation:         orientation,
		PreviousPosition:    position,
		PreviousOrientation: orientation,
	}
}

// Interpolate returns the pose at fraction amount through the buffer
func (l *ListenerInfo) Interpolate(amount float64) (Vec3, Quat) {
	return LerpVec3(l.PreviousPosition, l.Position, amount),
		Nlerp(l.PreviousOrientation, l.Orientation, amount)
}

// EarGains returns the left and right gains in [0, 1] for an emitter heard
// by a listener at position with the given orientation
func EarGains(position Vec3, orientation Quat, emitter Vec3) (left, right float64) {
	left = earGain(position.Add(orientation.Rotate(leftEarOffset)), orientation.Rotate(leftEarDirection), emitter)
	right = earGain(position.Add(orientation.Rotate(rightEarOffset)), orientation.Rotate(rightEarDirection), emitter)
	return left, right
}

func earGain(ear, direction, emitter Vec3) float64 {
	toEmitter := emitter.Sub(ear).Normalize()
	return (toEmitter.Dot(direction) + 1) / 2
}

// BlendGain moves gain toward unity as strength drops to zero
func BlendGain(gain, strength float64) float64 {
	return 1 + (gain-1)*strength
}

// Pan collapses frame to mono and applies per-ear gains blended by strength
func Pan(frame audio.Frame, left, right, strength float64) audio.Frame {
	mono := frame.AsMono()
	return mono.Mul(audio.Frame{
		Left:  float32(BlendGain(left, strength)),
		Right: float32(BlendGain(right, strength)),
	})
}

// DistanceRange is the distance at which an emitter is loudest and quietest
type DistanceRange struct {
	Min float64
	Max float64
}

// DefaultDistanceRange matches a room-scale scene
var DefaultDistanceRange = DistanceRange{Min: 1, Max: 100}

// Attenuation describes how volume falls off with distance
type Attenuation struct {
	Range  DistanceRange
	Easing tween.Easing
}

// Gain returns the amplitude for an emitter at distance.
// The curve runs in decibels from unity at Range.Min to silence at Range.Max.
func (a Attenuation) Gain(distance float64) float64 {
	span := a.Range.Max - a.Range.Min
	var relative float64
	if span <= 0 {
		if distance > a.Range.Min {
			relative = 1
		}
	} else {
		relative = math.Min(math.Max((distance-a.Range.Min)/span, 0), 1)
	}
	level := audio.LerpDecibels(audio.Silence, audio.Identity, a.Easing.Apply(1-relative))
	return level.Amplitude()
}
