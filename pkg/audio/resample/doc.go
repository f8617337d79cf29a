// ABOUTME: Audio resampling package using 4-point interpolation
// ABOUTME: Holds the sliding window of source frames used to play at a different device rate
// Package resample provides the interpolation window used when a sound's
// sample rate differs from the output device rate.
//
// The caller owns the fractional playback position. Each time the position
// crosses a whole source frame it pushes the next frame into the window, and
// each output slot reads an interpolated frame at the current fraction.
//
// Example:
//
//	r := resample.New(0)
//	out := r.Output(frac)
//	frac += sourceRate * dt
//	for frac >= 1 {
//		frac--
//		r.Push(nextFrame, index)
//	}
package resample
