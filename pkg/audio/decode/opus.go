// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes Opus files through libopusfile, always at 48 kHz
package decode

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/hraban/opus.v2"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

const (
	opusSampleRate = 48000
	// Largest Opus packet is 120ms at 48 kHz
	opusMaxFrameSize = 5760
	opusHeadProbe    = 512
)

var opusHeadMagic = []byte("OpusHead")

// OpusDecoder decodes Ogg Opus audio
type OpusDecoder struct {
	src       io.ReadSeeker
	stream    *opus.Stream
	channels  int
	numFrames int64
	cursor    int64
	pcm       []int16
}

// NewOpus creates an Opus decoder reading from r.
// The frame count is found by decoding the whole stream once.
func NewOpus(r io.ReadSeeker) (*OpusDecoder, error) {
	channels, err := opusChannels(r)
	if err != nil {
		return nil, err
	}

	d := &OpusDecoder{
		src:      r,
		channels: channels,
		pcm:      make([]int16, opusMaxFrameSize*channels),
	}
	if err := d.reopen(); err != nil {
		return nil, err
	}

	for {
		n, err := d.stream.Read(d.pcm)
		if n == 0 || err != nil {
			if err != nil && err != io.EOF {
				d.stream.Close()
				return nil, fmt.Errorf("opus decode error: %w", err)
			}
			break
		}
		d.numFrames += int64(n)
	}

	if err := d.reopen(); err != nil {
		return nil, err
	}
	return d, nil
}

// opusChannels reads the channel count from the OpusHead packet
func opusChannels(r io.ReadSeeker) (int, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("opus seek failed: %w", err)
	}
	head := make([]byte, opusHeadProbe)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("failed to read opus header: %w", err)
	}
	head = head[:n]

	idx := bytes.Index(head, opusHeadMagic)
	if idx < 0 || idx+9 >= len(head) {
		return 0, fmt.Errorf("%w: missing OpusHead", ErrInvalidFile)
	}
	channels := int(head[idx+9])
	if channels < 1 {
		return 0, fmt.Errorf("%w: opus stream has no channels", ErrInvalidFile)
	}
	return channels, nil
}

// isOggOpus reports whether an Ogg file carries Opus rather than Vorbis
func isOggOpus(r io.ReadSeeker) (bool, error) {
	head := make([]byte, opusHeadProbe)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return false, fmt.Errorf("failed to read ogg header: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return false, fmt.Errorf("ogg seek failed: %w", err)
	}
	return bytes.Contains(head[:n], opusHeadMagic), nil
}

func (d *OpusDecoder) reopen() error {
	if d.stream != nil {
		d.stream.Close()
		d.stream = nil
	}
	if _, err := d.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("opus seek failed: %w", err)
	}
	stream, err := opus.NewStream(d.src)
	if err != nil {
		return fmt.Errorf("failed to create opus stream: %w", err)
	}
	d.stream = stream
	d.cursor = 0
	return nil
}

// SampleRate returns 48000, the only rate libopusfile decodes to
func (d *OpusDecoder) SampleRate() int { return opusSampleRate }

// NumFrames returns the total frame count
func (d *OpusDecoder) NumFrames() int64 { return d.numFrames }

// Decode returns the next decoded packet
func (d *OpusDecoder) Decode() ([]audio.Frame, error) {
	n, err := d.stream.Read(d.pcm)
	if n == 0 {
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("opus decode error: %w", err)
		}
		return nil, io.EOF
	}

	frames := make([]audio.Frame, n)
	sample := make([]float32, min(d.channels, 2))
	for i := range frames {
		base := i * d.channels
		for ch := range sample {
			sample[ch] = audio.SampleFromInt(int32(d.pcm[base+ch]), 16)
		}
		frames[i] = toFrame(sample)
	}
	d.cursor += int64(n)
	return frames, nil
}

// Seek restarts the stream and skips whole packets up to index
func (d *OpusDecoder) Seek(index int64) (int64, error) {
	if index < 0 || index > d.numFrames {
		return d.cursor, fmt.Errorf("%w: %d of %d", ErrSeekOutOfRange, index, d.numFrames)
	}
	if index < d.cursor {
		if err := d.reopen(); err != nil {
			return 0, err
		}
	}
	for d.cursor+opusMaxFrameSize <= index {
		n, err := d.stream.Read(d.pcm)
		if n == 0 {
			if err != nil && err != io.EOF {
				return d.cursor, fmt.Errorf("opus seek failed: %w", err)
			}
			break
		}
		d.cursor += int64(n)
	}
	return d.cursor, nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	if d.stream == nil {
		return nil
	}
	err := d.stream.Close()
	d.stream = nil
	return err
}
