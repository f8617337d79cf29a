// ABOUTME: Root of the mixing graph
// ABOUTME: Runs the main track in fixed blocks and interleaves the result for the device
package engine

import (
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/spatial"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/track"
)

// Renderer drives the main track from the device callback
type Renderer struct {
	mainTrack *track.Track
	listener  *listener

	dt          float64
	pendingRate atomic.Int64
	frames      []audio.Frame
}

// NewRenderer creates a renderer for a stream at sampleRate that mixes in
// blocks of blockSize frames. The listener starts at the origin facing -Z.
func NewRenderer(mainTrack *track.Track, sampleRate, blockSize int) (*Renderer, *ListenerHandle) {
	if blockSize <= 0 {
		blockSize = track.DefaultBlockSize
	}
	l, lh := newListener(spatial.Vec3{}, spatial.IdentityQuat)
	r := &Renderer{
		mainTrack: mainTrack,
		listener:  l,
		dt:        1 / float64(sampleRate),
		frames:    make([]audio.Frame, blockSize),
	}
	return r, lh
}

// OnChangeSampleRate takes effect at the start of the next buffer.
// Sounds keep the resampling decision they made when they started.
func (r *Renderer) OnChangeSampleRate(sampleRate int) {
	if sampleRate > 0 {
		r.pendingRate.Store(int64(sampleRate))
	}
}

// OnStartProcessing applies pending commands once per device buffer
func (r *Renderer) OnStartProcessing() {
	if rate := r.pendingRate.Swap(0); rate > 0 {
		r.dt = 1 / float64(rate)
	}
	r.listener.readCommands()
	r.mainTrack.OnStartProcessing()
}

// Process fills an interleaved device buffer
func (r *Renderer) Process(out []float32, channels int) {
	if channels <= 0 {
		return
	}
	r.OnStartProcessing()

	total := len(out) / channels
	for start := 0; start < total; start += len(r.frames) {
		n := min(len(r.frames), total-start)
		block := r.frames[:n]

		pose := r.listener.update(r.dt * float64(n))
		r.mainTrack.Process(block, r.dt, pose, nil)
		interleave(out[start*channels:(start+n)*channels], block, channels)
	}
	clear(out[total*channels:])
}

func interleave(out []float32, frames []audio.Frame, channels int) {
	for i, f := range frames {
		slot := out[i*channels : (i+1)*channels]
		switch channels {
		case 1:
			slot[0] = (f.Left + f.Right) / 2
		default:
			slot[0] = f.Left
			slot[1] = f.Right
			clear(slot[2:])
		}
	}
}
