// ABOUTME: Test helpers for sound tests
// ABOUTME: Ramp generators and decoders that fail or end early
package sound

import (
	"errors"
	"io"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

func ramp(n int) []audio.Frame {
	frames := make([]audio.Frame, n)
	for i := range frames {
		v := float32(i+1) / float32(n+1)
		frames[i] = audio.Frame{Left: v, Right: -v}
	}
	return frames
}

// shortDecoder claims numFrames but returns io.EOF after available frames
type shortDecoder struct {
	sampleRate int
	numFrames  int64
	available  int64
	cursor     int64
}

func (d *shortDecoder) SampleRate() int  { return d.sampleRate }
func (d *shortDecoder) NumFrames() int64 { return d.numFrames }

func (d *shortDecoder) Decode() ([]audio.Frame, error) {
	if d.cursor >= d.available {
		return nil, io.EOF
	}
	end := min(d.cursor+8, d.available)
	chunk := make([]audio.Frame, end-d.cursor)
	for i := range chunk {
		chunk[i] = audio.FromMono(float32(d.cursor+int64(i)) / 1000)
	}
	d.cursor = end
	return chunk, nil
}

func (d *shortDecoder) Seek(index int64) (int64, error) {
	d.cursor = min(index, d.available)
	return d.cursor, nil
}

func (d *shortDecoder) Close() error { return nil }

var errCorrupt = errors.New("corrupt frame header")

// brokenDecoder fails every Decode
type brokenDecoder struct {
	closed bool
}

func (d *brokenDecoder) SampleRate() int                 { return 48000 }
func (d *brokenDecoder) NumFrames() int64                { return 1000 }
func (d *brokenDecoder) Decode() ([]audio.Frame, error)  { return nil, errCorrupt }
func (d *brokenDecoder) Seek(index int64) (int64, error) { return index, nil }
func (d *brokenDecoder) Close() error {
	d.closed = true
	return nil
}
