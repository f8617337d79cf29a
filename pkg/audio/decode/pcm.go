// ABOUTME: Raw PCM audio decoder
// ABOUTME: Decodes headerless 16-bit and 24-bit little-endian PCM
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

// PCMDecoder decodes headerless PCM audio
type PCMDecoder struct {
	r             io.ReadSeeker
	format        audio.Format
	bytesPerFrame int
	numFrames     int64
	buf           []byte
}

// NewPCM creates a raw PCM decoder. The format must describe the data exactly.
func NewPCM(r io.ReadSeeker, format audio.Format) (*PCMDecoder, error) {
	if format.Codec != "" && format.Codec != "pcm" {
		return nil, fmt.Errorf("%w: invalid codec for PCM decoder: %s", ErrUnsupportedFormat, format.Codec)
	}
	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("%w: unsupported bit depth: %d (supported: 16, 24)", ErrUnsupportedFormat, format.BitDepth)
	}
	if format.Channels < 1 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, format.Channels, format.SampleRate)
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("pcm seek failed: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("pcm seek failed: %w", err)
	}

	bytesPerFrame := format.Channels * format.BitDepth / 8
	return &PCMDecoder{
		r:             r,
		format:        format,
		bytesPerFrame: bytesPerFrame,
		numFrames:     size / int64(bytesPerFrame),
		buf:           make([]byte, DefaultChunkFrames*bytesPerFrame),
	}, nil
}

// SampleRate returns the configured sample rate
func (d *PCMDecoder) SampleRate() int { return d.format.SampleRate }

// NumFrames returns the total frame count from the data size
func (d *PCMDecoder) NumFrames() int64 { return d.numFrames }

// Decode returns the next chunk of frames
func (d *PCMDecoder) Decode() ([]audio.Frame, error) {
	n, err := io.ReadFull(d.r, d.buf)
	frameCount := n / d.bytesPerFrame
	if frameCount == 0 {
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("pcm decode error: %w", err)
		}
		return nil, io.EOF
	}

	frames := make([]audio.Frame, frameCount)
	sample := make([]float32, min(d.format.Channels, 2))
	for i := range frames {
		base := i * d.bytesPerFrame
		for ch := range sample {
			sample[ch] = d.sampleAt(base + ch*d.format.BitDepth/8)
		}
		frames[i] = toFrame(sample)
	}
	return frames, nil
}

func (d *PCMDecoder) sampleAt(offset int) float32 {
	if d.format.BitDepth == 24 {
		b := [3]byte{d.buf[offset], d.buf[offset+1], d.buf[offset+2]}
		return audio.SampleFromInt(audio.SampleFrom24Bit(b), 24)
	}
	return audio.SampleFromInt(int32(int16(binary.LittleEndian.Uint16(d.buf[offset:]))), 16)
}

// Seek moves to the given frame
func (d *PCMDecoder) Seek(index int64) (int64, error) {
	if index < 0 || index > d.numFrames {
		return 0, fmt.Errorf("%w: %d of %d", ErrSeekOutOfRange, index, d.numFrames)
	}
	offset, err := d.r.Seek(index*int64(d.bytesPerFrame), io.SeekStart)
	if err != nil {
		return 0, fmt.Errorf("pcm seek failed: %w", err)
	}
	return offset / int64(d.bytesPerFrame), nil
}

// Close releases decoder resources
func (d *PCMDecoder) Close() error {
	return nil
}
