// ABOUTME: Frame interpolation helpers
// ABOUTME: Linear and 4-point cubic interpolation used by resampling and streaming playback
package audio

// Lerp linearly interpolates between a and b
func Lerp(a, b, amount float64) float64 {
	return a + (b-a)*amount
}

// LerpFrame linearly interpolates between two frames
func LerpFrame(a, b Frame, amount float32) Frame {
	return Frame{
		Left:  a.Left + (b.Left-a.Left)*amount,
		Right: a.Right + (b.Right-a.Right)*amount,
	}
}

// CubicInterpolate performs 4-point Hermite interpolation.
// x is the fractional position between y1 and y2 (0 <= x <= 1);
// y0..y3 are four consecutive samples. x=0 yields y1 and x=1 yields y2.
func CubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	c0 := y1
	c1 := (y2 - y0) * 0.5
	c2 := y0 - y1*2.5 + y2*2 - y3*0.5
	c3 := (y3-y0)*0.5 + (y1-y2)*1.5
	return ((c3*x+c2)*x+c1)*x + c0
}

// InterpolateFrame interpolates between b and c using a and d as outer taps
func InterpolateFrame(a, b, c, d Frame, x float32) Frame {
	return Frame{
		Left:  CubicInterpolate(a.Left, b.Left, c.Left, d.Left, x),
		Right: CubicInterpolate(a.Right, b.Right, c.Right, d.Right, x),
	}
}
