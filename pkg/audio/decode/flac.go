// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC frames through mewkiz/flac with seek table support
package decode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

// FLACDecoder decodes FLAC audio
type FLACDecoder struct {
	stream   *flac.Stream
	bitDepth int
}

// NewFLAC creates a FLAC decoder reading from r
func NewFLAC(r io.ReadSeeker) (*FLACDecoder, error) {
	stream, err := flac.NewSeek(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create flac decoder: %w", err)
	}
	if stream.Info.NChannels < 1 {
		stream.Close()
		return nil, fmt.Errorf("%w: FLAC has no channels", ErrInvalidFile)
	}

	return &FLACDecoder{
		stream:   stream,
		bitDepth: int(stream.Info.BitsPerSample),
	}, nil
}

// SampleRate returns the source sample rate
func (d *FLACDecoder) SampleRate() int { return int(d.stream.Info.SampleRate) }

// NumFrames returns the total frame count from the stream info block
func (d *FLACDecoder) NumFrames() int64 { return int64(d.stream.Info.NSamples) }

// Decode returns the samples of the next FLAC frame
func (d *FLACDecoder) Decode() ([]audio.Frame, error) {
	frame, err := d.stream.ParseNext()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("flac decode error: %w", err)
	}
	if len(frame.Subframes) == 0 {
		return nil, fmt.Errorf("%w: FLAC frame without subframes", ErrInvalidFile)
	}

	left := frame.Subframes[0].Samples
	right := left
	if len(frame.Subframes) > 1 {
		right = frame.Subframes[1].Samples
	}

	frames := make([]audio.Frame, len(left))
	for i := range frames {
		frames[i] = audio.Frame{
			Left:  audio.SampleFromInt(left[i], d.bitDepth),
			Right: audio.SampleFromInt(right[i], d.bitDepth),
		}
	}
	return frames, nil
}

// Seek moves to the start of the FLAC frame containing index
func (d *FLACDecoder) Seek(index int64) (int64, error) {
	if index < 0 || index >= d.NumFrames() {
		return 0, fmt.Errorf("%w: %d of %d", ErrSeekOutOfRange, index, d.NumFrames())
	}
	actual, err := d.stream.Seek(uint64(index))
	if err != nil {
		return 0, fmt.Errorf("flac seek failed: %w", err)
	}
	return int64(actual), nil
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return d.stream.Close()
}
