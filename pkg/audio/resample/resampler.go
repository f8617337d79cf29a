// ABOUTME: Four-frame history window for cubic resampling
// ABOUTME: Tracks which source frame is current and whether the window holds only silence
package resample

import "github.com/Resonate-Protocol/resonate-mixer/pkg/audio"

// Resampler keeps the four most recent source frames
type Resampler struct {
	frames [4]audio.Frame
	// indices holds the source index of each frame, or -1 for silence
	indices [4]int64
}

// New creates a window filled with silence. startIndex is reported by
// CurrentIndex until real frames reach the interpolated position.
func New(startIndex int64) *Resampler {
	r := &Resampler{}
	r.Reset(startIndex)
	return r
}

// Reset refills the window with silence
func (r *Resampler) Reset(startIndex int64) {
	for i := range r.frames {
		r.frames[i] = audio.Zero
		r.indices[i] = -1
	}
	r.indices[1] = startIndex
}

// Push shifts the window and appends a frame read from the given source index.
// Pass a negative index when pushing silence past the end of the source.
func (r *Resampler) Push(frame audio.Frame, index int64) {
	copy(r.frames[:3], r.frames[1:])
	copy(r.indices[:3], r.indices[1:])
	r.frames[3] = frame
	r.indices[3] = index
}

// Output interpolates between the two inner frames at fraction x
func (r *Resampler) Output(x float32) audio.Frame {
	return audio.InterpolateFrame(r.frames[0], r.frames[1], r.frames[2], r.frames[3], x)
}

// CurrentIndex returns the source index of the frame being played
func (r *Resampler) CurrentIndex() int64 {
	return r.indices[1]
}

// OutputtingSilence reports whether every frame in the window is silence
func (r *Resampler) OutputtingSilence() bool {
	for _, idx := range r.indices {
		if idx >= 0 {
			return false
		}
	}
	return true
}
