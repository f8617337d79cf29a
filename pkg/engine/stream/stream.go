// ABOUTME: Output stream manager
// ABOUTME: Opens the device stream, watches for device loss and restarts with the same renderer
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/output"
)

const (
	// DefaultPollInterval is how often stream errors are checked
	DefaultPollInterval = 500 * time.Millisecond

	errorQueueSize = 16
)

// Renderer produces the samples a stream plays
type Renderer interface {
	// Process fills out with interleaved samples; it runs on the audio thread
	Process(out []float32, channels int)

	// OnChangeSampleRate is called before a stream at a new rate starts
	OnChangeSampleRate(sampleRate int)
}

// State is the manager state
type State int32

const (
	// Idle means the manager holds the renderer and no stream is open
	Idle State = iota
	// Running means a stream owns the renderer
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Config selects the device and stream settings
type Config struct {
	// Device is opened first; nil uses the default device.
	// Restarts always use the default device.
	Device *output.Device

	// Stream fields left zero are taken from the device default
	Stream output.StreamConfig

	// SampleRate is the rate the renderer is currently set up for
	SampleRate int

	PollInterval time.Duration
	Logger       *log.Logger
}

// Controller stops the manager and reports its status
type Controller struct {
	cancel context.CancelFunc
	done   chan struct{}

	state      atomic.Int32
	sampleRate atomic.Int64
	restarts   atomic.Int64
}

// Close stops the stream and waits for the manager to exit
func (c *Controller) Close() error {
	c.cancel()
	<-c.done
	return nil
}

// State returns whether a stream is currently open
func (c *Controller) State() State {
	return State(c.state.Load())
}

// SampleRate returns the rate of the most recent stream
func (c *Controller) SampleRate() int {
	return int(c.sampleRate.Load())
}

// Restarts returns how many times the stream was rebuilt after device loss
func (c *Controller) Restarts() int {
	return int(c.restarts.Load())
}

// Start opens the initial stream. Failing to open it is returned here;
// later failures are logged and retried on every poll.
func Start(r Renderer, backend output.Backend, cfg Config) (*Controller, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctl := &Controller{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m := &manager{
		backend:        backend,
		cfg:            cfg,
		logger:         cfg.Logger.WithPrefix("stream"),
		ctl:            ctl,
		renderer:       r,
		lastSampleRate: cfg.SampleRate,
	}

	result := make(chan error, 1)
	go m.run(ctx, result)

	if err := <-result; err != nil {
		cancel()
		<-ctl.done
		return nil, err
	}
	return ctl, nil
}

type manager struct {
	backend output.Backend
	cfg     Config
	logger  *log.Logger
	ctl     *Controller

	// renderer is held while idle; live is set while running
	renderer       Renderer
	live           *liveStream
	lastSampleRate int
}

type liveStream struct {
	stream output.Stream
	guard  *guard
	errs   chan error
}

func (m *manager) run(ctx context.Context, result chan<- error) {
	defer close(m.ctl.done)

	err := m.open(m.cfg.Device)
	result <- err
	if err != nil {
		return
	}

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if m.live != nil {
				m.stop()
			}
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *manager) poll() {
	if m.live == nil {
		if err := m.open(nil); err != nil {
			m.logger.Debug("output still unavailable", "err", err)
			return
		}
		m.logger.Info("output stream reopened", "sample_rate", m.lastSampleRate)
		return
	}

	restart := false
	for drained := false; !drained; {
		select {
		case err := <-m.live.errs:
			if errors.Is(err, output.ErrDeviceNotAvailable) {
				restart = true
				continue
			}
			m.logger.Warn("stream error", "err", err)
		default:
			drained = true
		}
	}
	if !restart {
		return
	}

	m.logger.Warn("output device lost, restarting stream")
	m.stop()
	m.ctl.restarts.Add(1)
	if err := m.open(nil); err != nil {
		m.logger.Error("failed to reopen output stream", "err", err)
		return
	}
	m.logger.Info("output stream restarted", "sample_rate", m.lastSampleRate)
}

// open builds and starts a stream on dev, or on the default device when dev is nil
func (m *manager) open(dev *output.Device) error {
	var device output.Device
	if dev != nil {
		device = *dev
	} else {
		d, err := m.backend.DefaultDevice()
		if err != nil {
			return fmt.Errorf("failed to find default device: %w", err)
		}
		device = d
	}

	cfg, err := m.streamConfig(device)
	if err != nil {
		return err
	}

	g := newGuard(m.renderer)
	errs := make(chan error, errorQueueSize)
	onErr := func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	stream, err := m.backend.BuildStream(device, cfg, g.process, onErr)
	if err != nil {
		return fmt.Errorf("failed to build stream on %s: %w", device.Name, err)
	}

	rate := stream.SampleRate()
	if rate != m.lastSampleRate {
		m.logger.Debug("sample rate changed", "from", m.lastSampleRate, "to", rate)
		m.renderer.OnChangeSampleRate(rate)
		m.lastSampleRate = rate
	}

	if err := stream.Play(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	m.renderer = nil
	m.live = &liveStream{stream: stream, guard: g, errs: errs}
	m.ctl.sampleRate.Store(int64(rate))
	m.ctl.state.Store(int32(Running))
	m.logger.Debug("stream running", "device", device.Name, "sample_rate", rate, "buffer_size", cfg.BufferSize)
	return nil
}

func (m *manager) streamConfig(device output.Device) (output.StreamConfig, error) {
	cfg := m.cfg.Stream
	def, err := m.backend.DefaultConfig(device)
	if err != nil {
		return cfg, fmt.Errorf("failed to query device config: %w", err)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = def.Channels
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return cfg, nil
}

// stop closes the live stream and takes the renderer back
func (m *manager) stop() {
	live := m.live
	if err := live.stream.Close(); err != nil {
		m.logger.Warn("failed to close stream", "err", err)
	}
	live.guard.release()
	m.renderer = <-live.guard.back
	m.live = nil
	m.ctl.state.Store(int32(Idle))
}
