// ABOUTME: WAV audio decoder
// ABOUTME: Decodes integer PCM WAV files through go-audio/wav
package decode

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

const wavFormatPCM = 1

// WAVDecoder decodes PCM WAV data
type WAVDecoder struct {
	dec        *wav.Decoder
	buf        *goaudio.IntBuffer
	channels   int
	bitDepth   int
	sampleRate int
	numFrames  int64
	cursor     int64
}

// NewWAV creates a WAV decoder reading from r
func NewWAV(r io.ReadSeeker) (*WAVDecoder, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a WAV file", ErrInvalidFile)
	}
	dec.ReadInfo()
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV audio format %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return nil, fmt.Errorf("%w: %d-bit WAV (supported: 16, 24, 32)", ErrUnsupportedFormat, bitDepth)
	}
	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("%w: WAV has no channels", ErrInvalidFile)
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to find WAV data chunk: %w", err)
	}

	bytesPerFrame := int64(channels * bitDepth / 8)
	return &WAVDecoder{
		dec: dec,
		buf: &goaudio.IntBuffer{
			Data:   make([]int, DefaultChunkFrames*channels),
			Format: dec.Format(),
		},
		channels:   channels,
		bitDepth:   bitDepth,
		sampleRate: int(dec.SampleRate),
		numFrames:  int64(dec.PCMSize) / bytesPerFrame,
	}, nil
}

// SampleRate returns the source sample rate
func (d *WAVDecoder) SampleRate() int { return d.sampleRate }

// NumFrames returns the total frame count from the data chunk size
func (d *WAVDecoder) NumFrames() int64 { return d.numFrames }

// Decode returns the next chunk of frames
func (d *WAVDecoder) Decode() ([]audio.Frame, error) {
	n, err := d.dec.PCMBuffer(d.buf)
	frameCount := n / d.channels
	if frameCount == 0 {
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("wav decode error: %w", err)
		}
		return nil, io.EOF
	}

	frames := make([]audio.Frame, frameCount)
	sample := make([]float32, min(d.channels, 2))
	for i := range frames {
		base := i * d.channels
		for ch := range sample {
			sample[ch] = audio.SampleFromInt(int32(d.buf.Data[base+ch]), d.bitDepth)
		}
		frames[i] = toFrame(sample)
	}
	d.cursor += int64(frameCount)
	return frames, nil
}

// Seek rewinds to the start of the data chunk and skips whole chunks up to index
func (d *WAVDecoder) Seek(index int64) (int64, error) {
	if index < 0 || index > d.numFrames {
		return d.cursor, fmt.Errorf("%w: %d of %d", ErrSeekOutOfRange, index, d.numFrames)
	}
	if err := d.dec.Rewind(); err != nil {
		return d.cursor, fmt.Errorf("wav rewind failed: %w", err)
	}
	d.cursor = 0

	chunk := int64(len(d.buf.Data) / d.channels)
	for d.cursor+chunk <= index {
		n, err := d.dec.PCMBuffer(d.buf)
		if n == 0 {
			if err != nil && err != io.EOF {
				return d.cursor, fmt.Errorf("wav seek failed: %w", err)
			}
			break
		}
		d.cursor += int64(n / d.channels)
	}
	return d.cursor, nil
}

// Close releases decoder resources
func (d *WAVDecoder) Close() error {
	return nil
}
