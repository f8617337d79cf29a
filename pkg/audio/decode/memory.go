// ABOUTME: In-memory decoder
// ABOUTME: Serves frames already held in memory in fixed-size chunks
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

// MemoryDecoder serves frames from a slice
type MemoryDecoder struct {
	sampleRate  int
	frames      []audio.Frame
	chunkFrames int
	cursor      int64
}

// NewMemory creates a decoder over frames. chunkFrames <= 0 uses DefaultChunkFrames.
func NewMemory(sampleRate int, frames []audio.Frame, chunkFrames int) *MemoryDecoder {
	if chunkFrames <= 0 {
		chunkFrames = DefaultChunkFrames
	}
	return &MemoryDecoder{
		sampleRate:  sampleRate,
		frames:      frames,
		chunkFrames: chunkFrames,
	}
}

// SampleRate returns the sample rate the frames were recorded at
func (d *MemoryDecoder) SampleRate() int { return d.sampleRate }

// NumFrames returns the number of frames held
func (d *MemoryDecoder) NumFrames() int64 { return int64(len(d.frames)) }

// Decode returns a copy of the next chunk
func (d *MemoryDecoder) Decode() ([]audio.Frame, error) {
	if d.cursor >= int64(len(d.frames)) {
		return nil, io.EOF
	}
	end := min(d.cursor+int64(d.chunkFrames), int64(len(d.frames)))
	chunk := make([]audio.Frame, end-d.cursor)
	copy(chunk, d.frames[d.cursor:end])
	d.cursor = end
	return chunk, nil
}

// Seek moves exactly to index
func (d *MemoryDecoder) Seek(index int64) (int64, error) {
	if index < 0 || index > int64(len(d.frames)) {
		return d.cursor, fmt.Errorf("%w: %d of %d", ErrSeekOutOfRange, index, len(d.frames))
	}
	d.cursor = index
	return index, nil
}

// Close releases decoder resources
func (d *MemoryDecoder) Close() error {
	return nil
}
