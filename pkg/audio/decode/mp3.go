// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 audio to stereo frames with byte-offset seeking
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

// go-mp3 always produces 16-bit little-endian stereo
const mp3BytesPerFrame = 4

// MP3Decoder decodes MP3 audio
type MP3Decoder struct {
	decoder *mp3.Decoder
	buf     []byte
}

// NewMP3 creates an MP3 decoder reading from r
func NewMP3(r io.ReadSeeker) (*MP3Decoder, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	return &MP3Decoder{
		decoder: decoder,
		buf:     make([]byte, DefaultChunkFrames*mp3BytesPerFrame),
	}, nil
}

// SampleRate returns the source sample rate
func (d *MP3Decoder) SampleRate() int { return d.decoder.SampleRate() }

// NumFrames returns the total frame count
func (d *MP3Decoder) NumFrames() int64 { return d.decoder.Length() / mp3BytesPerFrame }

// Decode returns the next chunk of frames
func (d *MP3Decoder) Decode() ([]audio.Frame, error) {
	n, err := io.ReadFull(d.decoder, d.buf)
	frameCount := n / mp3BytesPerFrame
	if frameCount == 0 {
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("mp3 decode error: %w", err)
		}
		return nil, io.EOF
	}

	frames := make([]audio.Frame, frameCount)
	for i := range frames {
		left := int16(binary.LittleEndian.Uint16(d.buf[i*4:]))
		right := int16(binary.LittleEndian.Uint16(d.buf[i*4+2:]))
		frames[i] = audio.Frame{
			Left:  audio.SampleFromInt(int32(left), 16),
			Right: audio.SampleFromInt(int32(right), 16),
		}
	}
	return frames, nil
}

// Seek moves to the given frame
func (d *MP3Decoder) Seek(index int64) (int64, error) {
	if index < 0 || index > d.NumFrames() {
		return 0, fmt.Errorf("%w: %d of %d", ErrSeekOutOfRange, index, d.NumFrames())
	}
	offset, err := d.decoder.Seek(index*mp3BytesPerFrame, io.SeekStart)
	if err != nil {
		return 0, fmt.Errorf("mp3 seek failed: %w", err)
	}
	return offset / mp3BytesPerFrame, nil
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
