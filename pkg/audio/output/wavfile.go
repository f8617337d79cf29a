// ABOUTME: WAV file render output
// ABOUTME: Writes the mixed stream to a PCM WAV file instead of a device
package output

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

const wavFormatPCM = 1

// WAVFileOptions configures offline rendering
type WAVFileOptions struct {
	SampleRate int
	BitDepth   int
	BufferSize int
	// Duration stops rendering once this much audio is written; 0 renders until Close
	Duration time.Duration
	// Realtime paces rendering like a device; otherwise it runs as fast as possible
	Realtime bool
}

// WAVFile renders streams into a file
type WAVFile struct {
	path   string
	opts   WAVFileOptions
	logger *log.Logger

	mu   sync.Mutex
	done chan struct{}
}

// NewWAVFile creates a backend writing to path
func NewWAVFile(path string, opts WAVFileOptions, logger *log.Logger) *WAVFile {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 48000
	}
	if opts.BitDepth != 24 {
		opts.BitDepth = 16
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WAVFile{
		path:   path,
		opts:   opts,
		logger: logger.WithPrefix("wav"),
		done:   make(chan struct{}),
	}
}

// Name returns "wav"
func (w *WAVFile) Name() string { return "wav" }

// Devices returns the output file as the only device
func (w *WAVFile) Devices() ([]Device, error) {
	dev, _ := w.DefaultDevice()
	return []Device{dev}, nil
}

// DefaultDevice returns the output file
func (w *WAVFile) DefaultDevice() (Device, error) {
	return Device{ID: w.path, Name: w.path, Default: true}, nil
}

// DefaultConfig returns the configured render format
func (w *WAVFile) DefaultConfig(dev Device) (StreamConfig, error) {
	format := FormatS16
	if w.opts.BitDepth == 24 {
		format = FormatS24
	}
	return StreamConfig{
		SampleRate: w.opts.SampleRate,
		Channels:   2,
		BufferSize: w.opts.BufferSize,
		Format:     format,
	}, nil
}

// Done is closed once Duration of audio has been written
func (w *WAVFile) Done() <-chan struct{} {
	return w.done
}

// BuildStream creates the file and a stream that encodes every rendered buffer
func (w *WAVFile) BuildStream(dev Device, cfg StreamConfig, data DataCallback, onErr ErrorCallback) (Stream, error) {
	def, _ := w.DefaultConfig(dev)
	cfg = withDefaults(cfg)
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	cfg.Format = def.Format

	f, err := os.Create(w.path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", w.path, err)
	}

	enc := wav.NewEncoder(f, cfg.SampleRate, w.opts.BitDepth, cfg.Channels, wavFormatPCM)
	intBuf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: cfg.Channels, SampleRate: cfg.SampleRate},
		Data:           make([]int, cfg.BufferSize*cfg.Channels),
		SourceBitDepth: w.opts.BitDepth,
	}

	var limit int64
	if w.opts.Duration > 0 {
		limit = int64(w.opts.Duration.Seconds() * float64(cfg.SampleRate))
	}

	s := &wavFileStream{file: f, enc: enc}
	var written int64
	sink := func(buf []float32) bool {
		frames := len(buf) / cfg.Channels
		if limit > 0 && written+int64(frames) > limit {
			frames = int(limit - written)
		}
		n := frames * cfg.Channels
		for i, sample := range buf[:n] {
			if w.opts.BitDepth == 24 {
				intBuf.Data[i] = int(audio.SampleToInt24(sample))
			} else {
				intBuf.Data[i] = int(audio.SampleToInt16(sample))
			}
		}
		intBuf.Data = intBuf.Data[:n]
		err := enc.Write(intBuf)
		intBuf.Data = intBuf.Data[:cap(intBuf.Data)]
		if err != nil {
			if onErr != nil {
				onErr(&BackendError{Backend: "wav", Err: err})
			}
			w.finish()
			return false
		}

		written += int64(frames)
		if limit > 0 && written >= limit {
			w.finish()
			return false
		}
		return true
	}
	s.clockStream = newClockStream(cfg, data, w.opts.Realtime, sink)

	w.logger.Info("Rendering to file", "path", w.path, "rate", cfg.SampleRate, "bits", w.opts.BitDepth)
	return s, nil
}

func (w *WAVFile) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}

// Close does nothing; streams finalize their own files
func (w *WAVFile) Close() error { return nil }

type wavFileStream struct {
	*clockStream
	file      *os.File
	enc       *wav.Encoder
	closeOnce sync.Once
}

// Close stops rendering and finalizes the WAV header
func (s *wavFileStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.clockStream.Close()
		if encErr := s.enc.Close(); encErr != nil {
			err = fmt.Errorf("failed to finalize wav: %w", encErr)
		}
		if closeErr := s.file.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	})
	return err
}
