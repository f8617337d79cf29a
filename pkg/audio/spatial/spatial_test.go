// ABOUTME: Tests for spatial math
// ABOUTME: Tests rotations, ear gains, blending and attenuation
package spatial

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRotateQuarterTurn(t *testing.T) {
	// Turning left by 90 degrees around +Y maps forward (-Z) to -X
	q := FromAxisAngle(Vec3{Y: 1}, math.Pi/2)
	got := q.Rotate(Vec3{Z: -1})
	if !approx(got.X, -1) || !approx(got.Y, 0) || !approx(got.Z, 0) {
		t.Errorf("expected (-1, 0, 0), got %+v", got)
	}
}

func TestNlerpEndpoints(t *testing.T) {
	a := IdentityQuat
	b := FromAxisAngle(Vec3{Y: 1}, math.Pi/2)

	if got := Nlerp(a, b, 0); !approx(got.W, a.W) || !approx(got.Y, a.Y) {
		t.Errorf("expected start rotation, got %+v", got)
	}
	if got := Nlerp(a, b, 1); !approx(got.W, b.W) || !approx(got.Y, b.Y) {
		t.Errorf("expected end rotation, got %+v", got)
	}
}

func TestListenerInterpolate(t *testing.T) {
	l := ListenerInfo{
		Position:            Vec3{X: 10},
		Orientation:         IdentityQuat,
		PreviousPosition:    Vec3{},
		PreviousOrientation: IdentityQuat,
	}
	pos, _ := l.Interpolate(0.5)
	if !approx(pos.X, 5) {
		t.Errorf("expected x=5 halfway through the buffer, got %f", pos.X)
	}
}

func TestEarGainsEmitterToTheLeft(t *testing.T) {
	left, right := EarGains(Vec3{}, IdentityQuat, Vec3{X: -5})
	if left <= right {
		t.Errorf("expected left gain > right gain, got left=%f right=%f", left, right)
	}

	blendedLeft, blendedRight := BlendGain(left, 1), BlendGain(right, 1)
	if blendedLeft <= blendedRight {
		t.Errorf("expected blended left > right, got %f and %f", blendedLeft, blendedRight)
	}
}

func TestEarGainsFollowOrientation(t *testing.T) {
	// Listener turned to face -X: an emitter at -X is straight ahead
	q := FromAxisAngle(Vec3{Y: 1}, math.Pi/2)
	left, right := EarGains(Vec3{}, q, Vec3{X: -5})
	if math.Abs(left-right) > 1e-3 {
		t.Errorf("expected balanced gains for emitter ahead, got left=%f right=%f", left, right)
	}
}

func TestZeroStrengthIsUnity(t *testing.T) {
	positions := []Vec3{{X: -5}, {X: 5}, {Z: 3}, {Y: 2, Z: -7}}
	for _, p := range positions {
		left, right := EarGains(Vec3{}, IdentityQuat, p)
		if BlendGain(left, 0) != 1 || BlendGain(right, 0) != 1 {
			t.Errorf("expected unity gains at strength 0 for %+v", p)
		}
	}
}

func TestAttenuationGain(t *testing.T) {
	a := Attenuation{Range: DistanceRange{Min: 1, Max: 10}}

	tests := []struct {
		name     string
		distance float64
		expected float64
	}{
		{"inside min distance", 0.5, 1},
		{"at min distance", 1, 1},
		{"at max distance", 10, 0},
		{"beyond max distance", 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Gain(tt.distance); !approx(got, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}

	mid := a.Gain(5.5)
	if mid <= 0 || mid >= 1 {
		t.Errorf("expected partial gain halfway, got %f", mid)
	}
	if a.Gain(3) <= a.Gain(7) {
		t.Error("expected gain to fall with distance")
	}
}
