// ABOUTME: Ogg Vorbis audio decoder
// ABOUTME: Decodes Vorbis streams through jfreymuth/oggvorbis
package decode

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

// VorbisDecoder decodes Ogg Vorbis audio
type VorbisDecoder struct {
	reader   *oggvorbis.Reader
	channels int
	buf      []float32
}

// NewVorbis creates a Vorbis decoder reading from r
func NewVorbis(r io.ReadSeeker) (*VorbisDecoder, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create vorbis decoder: %w", err)
	}
	channels := reader.Channels()
	if channels < 1 {
		return nil, fmt.Errorf("%w: vorbis stream has no channels", ErrInvalidFile)
	}

	return &VorbisDecoder{
		reader:   reader,
		channels: channels,
		buf:      make([]float32, DefaultChunkFrames*channels),
	}, nil
}

// SampleRate returns the source sample rate
func (d *VorbisDecoder) SampleRate() int { return d.reader.SampleRate() }

// NumFrames returns the total frame count
func (d *VorbisDecoder) NumFrames() int64 { return d.reader.Length() }

// Decode returns the next chunk of frames
func (d *VorbisDecoder) Decode() ([]audio.Frame, error) {
	n, err := d.reader.Read(d.buf)
	frameCount := n / d.channels
	if frameCount == 0 {
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("vorbis decode error: %w", err)
		}
		return nil, io.EOF
	}

	frames := make([]audio.Frame, frameCount)
	for i := range frames {
		frames[i] = toFrame(d.buf[i*d.channels : i*d.channels+min(d.channels, 2)])
	}
	return frames, nil
}

// Seek moves to the given frame
func (d *VorbisDecoder) Seek(index int64) (int64, error) {
	if index < 0 || index > d.NumFrames() {
		return 0, fmt.Errorf("%w: %d of %d", ErrSeekOutOfRange, index, d.NumFrames())
	}
	if err := d.reader.SetPosition(index); err != nil {
		return 0, fmt.Errorf("vorbis seek failed: %w", err)
	}
	return d.reader.Position(), nil
}

// Close releases decoder resources
func (d *VorbisDecoder) Close() error {
	return nil
}
