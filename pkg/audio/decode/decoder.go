// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for all seekable chunked audio decoders
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

// DefaultChunkFrames is the number of frames most decoders return per Decode call
const DefaultChunkFrames = 1024

// Decoder decodes an audio source into stereo frames
type Decoder interface {
	// SampleRate returns the source sample rate in Hz
	SampleRate() int

	// NumFrames returns the total number of decodable frames
	NumFrames() int64

	// Decode returns the next chunk of frames starting at the decode cursor.
	// It returns io.EOF when no frames remain.
	Decode() ([]audio.Frame, error)

	// Seek moves the decode cursor as close to index as the container allows
	// and returns the index actually reached
	Seek(index int64) (int64, error)

	// Close releases decoder resources
	Close() error
}

// Open picks a decoder from the file extension
func Open(path string) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	var d Decoder
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		d, err = NewWAV(f)
	case ".mp3":
		d, err = NewMP3(f)
	case ".flac":
		d, err = NewFLAC(f)
	case ".opus":
		d, err = NewOpus(f)
	case ".ogg", ".oga":
		var opus bool
		opus, err = isOggOpus(f)
		if err == nil {
			if opus {
				d, err = NewOpus(f)
			} else {
				d, err = NewVorbis(f)
			}
		}
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return &fileDecoder{Decoder: d, file: f}, nil
}

// fileDecoder closes the underlying file along with the decoder
type fileDecoder struct {
	Decoder
	file *os.File
}

func (d *fileDecoder) Close() error {
	err := d.Decoder.Close()
	if cerr := d.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadAll decodes every remaining frame
func ReadAll(d Decoder) ([]audio.Frame, error) {
	frames := make([]audio.Frame, 0, max(d.NumFrames(), 0))
	for {
		chunk, err := d.Decode()
		frames = append(frames, chunk...)
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
	}
}

// toFrame builds a stereo frame from one interleaved frame of samples
func toFrame(samples []float32) audio.Frame {
	if len(samples) == 1 {
		return audio.FromMono(samples[0])
	}
	return audio.Frame{Left: samples[0], Right: samples[1]}
}
