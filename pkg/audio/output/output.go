// ABOUTME: Audio output interface definitions
// ABOUTME: Common types shared by every playback backend
package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// BackendEnv overrides the backend chosen by configuration
const BackendEnv = "RESONATE_MIXER_BACKEND"

// SampleFormat is the sample encoding the device receives
type SampleFormat int

const (
	FormatF32 SampleFormat = iota
	FormatS16
	FormatS24
	FormatS32
)

// BytesPerSample returns the encoded size of one sample
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatS16:
		return 2
	case FormatS24:
		return 3
	default:
		return 4
	}
}

// String returns the format name
func (f SampleFormat) String() string {
	switch f {
	case FormatS16:
		return "S16"
	case FormatS24:
		return "S24"
	case FormatS32:
		return "S32"
	default:
		return "F32"
	}
}

// ParseFormat parses f32, s16, s24 or s32
func ParseFormat(name string) (SampleFormat, error) {
	switch strings.ToLower(name) {
	case "", "f32":
		return FormatF32, nil
	case "s16":
		return FormatS16, nil
	case "s24":
		return FormatS24, nil
	case "s32":
		return FormatS32, nil
	default:
		return FormatF32, fmt.Errorf("%w: sample format %q", ErrNotSupported, name)
	}
}

// Device identifies an output device
type Device struct {
	ID      string
	Name    string
	Default bool
}

// StreamConfig describes the stream to open
type StreamConfig struct {
	// SampleRate in Hz; 0 lets the device pick its native rate
	SampleRate int
	Channels   int
	// BufferSize in frames; 0 lets the backend choose
	BufferSize int
	Format     SampleFormat
}

// DataCallback fills out with interleaved samples. It runs on the audio thread.
type DataCallback func(out []float32, channels int)

// ErrorCallback receives asynchronous stream errors
type ErrorCallback func(err error)

// Stream is an open output stream
type Stream interface {
	// Play starts calling the data callback
	Play() error

	// SampleRate returns the rate the device actually runs at
	SampleRate() int

	// Config returns the configuration the stream was opened with
	Config() StreamConfig

	// Close stops the stream and releases the device
	Close() error
}

// Backend builds streams on one audio API
type Backend interface {
	Name() string
	Devices() ([]Device, error)
	DefaultDevice() (Device, error)
	DefaultConfig(dev Device) (StreamConfig, error)
	BuildStream(dev Device, cfg StreamConfig, data DataCallback, onErr ErrorCallback) (Stream, error)
	Close() error
}

// Names lists the backends New accepts
var Names = []string{"malgo", "oto", "portaudio", "null"}

// New creates a backend by name. The BackendEnv environment variable wins over name.
func New(name string, logger *log.Logger) (Backend, error) {
	if env := os.Getenv(BackendEnv); env != "" {
		name = env
	}
	if logger == nil {
		logger = log.Default()
	}

	switch strings.ToLower(name) {
	case "", "malgo":
		return NewMalgo(logger)
	case "oto":
		return NewOto(logger), nil
	case "portaudio":
		return NewPortAudio(logger)
	case "null":
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("%w: backend %q", ErrNotSupported, name)
	}
}

func withDefaults(cfg StreamConfig) StreamConfig {
	if cfg.Channels <= 0 {
		cfg.Channels = 2
	}
	return cfg
}
