// ABOUTME: Engine manager
// ABOUTME: Opens the output, builds the main track and exposes play and track controls
package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/sound"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/stream"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/track"
)

// Config holds engine configuration
type Config struct {
	// Backend names an output backend (see output.Names); empty uses malgo
	Backend string

	// Output is used instead of Backend when set. The engine does not close it.
	Output output.Backend

	// Device is matched against device IDs and names; empty uses the default device
	Device string

	// SampleRate, Channels and BufferSize override the device defaults when non-zero
	SampleRate int
	Channels   int
	BufferSize int
	Format     output.SampleFormat

	// BlockSize is the number of frames mixed at once (default: 512)
	BlockSize int

	// MainTrack configures the root of the mixing graph
	MainTrack track.Builder

	// PollInterval is how often the stream is checked for device loss
	PollInterval time.Duration

	Logger *log.Logger
}

// Manager plays sounds on an output device
type Manager struct {
	config      Config
	logger      *log.Logger
	backend     output.Backend
	ownsBackend bool
	device      string

	renderer   *Renderer
	controller *stream.Controller
	mainTrack  *track.Handle
	listener   *ListenerHandle
	closed     atomic.Bool
}

// New opens the output stream and starts mixing
func New(config Config) (*Manager, error) {
	if config.BlockSize <= 0 {
		config.BlockSize = track.DefaultBlockSize
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	logger := config.Logger.WithPrefix("engine")

	backend := config.Output
	ownsBackend := false
	if backend == nil {
		b, err := output.New(config.Backend, config.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create output backend: %w", err)
		}
		backend = b
		ownsBackend = true
	}

	m, err := start(config, logger, backend)
	if err != nil {
		if ownsBackend {
			backend.Close()
		}
		return nil, err
	}
	m.ownsBackend = ownsBackend
	return m, nil
}

func start(config Config, logger *log.Logger, backend output.Backend) (*Manager, error) {
	device, err := findDevice(backend, config.Device)
	if err != nil {
		return nil, err
	}

	lookup := output.Device{}
	if device != nil {
		lookup = *device
	} else if lookup, err = backend.DefaultDevice(); err != nil {
		return nil, fmt.Errorf("failed to find default device: %w", err)
	}
	defaults, err := backend.DefaultConfig(lookup)
	if err != nil {
		return nil, fmt.Errorf("failed to query device config: %w", err)
	}
	sampleRate := config.SampleRate
	if sampleRate <= 0 {
		sampleRate = defaults.SampleRate
	}

	main, mainHandle := track.New(config.MainTrack, config.BlockSize)
	renderer, listener := NewRenderer(main, sampleRate, config.BlockSize)

	controller, err := stream.Start(renderer, backend, stream.Config{
		Device: device,
		Stream: output.StreamConfig{
			SampleRate: config.SampleRate,
			Channels:   config.Channels,
			BufferSize: config.BufferSize,
			Format:     config.Format,
		},
		SampleRate:   sampleRate,
		PollInterval: config.PollInterval,
		Logger:       config.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start output stream: %w", err)
	}

	logger.Info("engine started",
		"backend", backend.Name(),
		"device", lookup.Name,
		"sample_rate", controller.SampleRate(),
		"block_size", config.BlockSize)

	return &Manager{
		config:     config,
		logger:     logger,
		backend:    backend,
		device:     lookup.Name,
		renderer:   renderer,
		controller: controller,
		mainTrack:  mainHandle,
		listener:   listener,
	}, nil
}

// findDevice returns nil when name is empty
func findDevice(backend output.Backend, name string) (*output.Device, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := backend.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	for _, d := range devices {
		if d.ID == name || strings.EqualFold(d.Name, name) {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
}

// Play starts a sound on the main track
func (m *Manager) Play(data sound.Data) (*sound.Handle, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	return m.mainTrack.Play(data)
}

// AddSubTrack adds a track under the main track
func (m *Manager) AddSubTrack(b track.Builder) (*track.Handle, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	return m.mainTrack.AddSubTrack(b)
}

// AddSpatialSubTrack adds an emitter track under the main track
func (m *Manager) AddSpatialSubTrack(s track.SpatialSettings, b track.Builder) (*track.Handle, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	return m.mainTrack.AddSpatialSubTrack(s, b)
}

// MainTrack returns the root track handle
func (m *Manager) MainTrack() *track.Handle {
	return m.mainTrack
}

// Listener returns the scene listener handle
func (m *Manager) Listener() *ListenerHandle {
	return m.listener
}

// SampleRate returns the rate of the current output stream
func (m *Manager) SampleRate() int {
	return m.controller.SampleRate()
}

// Restarts returns how many times the output recovered from device loss
func (m *Manager) Restarts() int {
	return m.controller.Restarts()
}

// StreamState reports whether an output stream is open
func (m *Manager) StreamState() stream.State {
	return m.controller.State()
}

// Backend returns the output backend name
func (m *Manager) Backend() string {
	return m.backend.Name()
}

// Device returns the name of the device the engine started on
func (m *Manager) Device() string {
	return m.device
}

// Close stops the output stream. Sounds still playing are cut off.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := m.controller.Close()
	// The stream is gone, so the graph can be torn down from here
	m.renderer.mainTrack.Release()
	if m.ownsBackend {
		if cerr := m.backend.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	m.logger.Info("engine closed")
	return err
}
