// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo for callback-driven playback with device loss detection
package output

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"
)

// Frames to preallocate for the callback scratch buffer when the config leaves it open
const defaultCallbackFrames = 4096

// Malgo is the miniaudio backend
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	logger   *log.Logger
}

// NewMalgo initializes a miniaudio context
func NewMalgo(logger *log.Logger) (*Malgo, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("malgo")

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("miniaudio", "message", message)
	})
	if err != nil {
		return nil, &BackendError{Backend: "malgo", Err: fmt.Errorf("failed to initialize malgo context: %w", err)}
	}

	return &Malgo{malgoCtx: ctx, logger: logger}, nil
}

// Name returns "malgo"
func (m *Malgo) Name() string { return "malgo" }

func (m *Malgo) playbackDevices() ([]malgo.DeviceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx == nil {
		return nil, &BackendError{Backend: "malgo", Err: fmt.Errorf("context closed")}
	}
	infos, err := m.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		return nil, &BackendError{Backend: "malgo", Err: fmt.Errorf("failed to enumerate devices: %w", err)}
	}
	return infos, nil
}

// Devices lists playback devices
func (m *Malgo) Devices() ([]Device, error) {
	infos, err := m.playbackDevices()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(infos))
	for i := range infos {
		devices = append(devices, Device{
			ID:      infos[i].ID.String(),
			Name:    infos[i].Name(),
			Default: infos[i].IsDefault != 0,
		})
	}
	return devices, nil
}

// DefaultDevice returns the system default playback device
func (m *Malgo) DefaultDevice() (Device, error) {
	devices, err := m.Devices()
	if err != nil {
		return Device{}, err
	}
	if len(devices) == 0 {
		return Device{}, ErrNoDevice
	}
	for _, d := range devices {
		if d.Default {
			return d, nil
		}
	}
	return devices[0], nil
}

// DefaultConfig asks for stereo float at the device's native rate
func (m *Malgo) DefaultConfig(dev Device) (StreamConfig, error) {
	return StreamConfig{
		SampleRate: 0,
		Channels:   2,
		Format:     FormatF32,
	}, nil
}

// BuildStream opens a playback device. Playback starts with Play.
func (m *Malgo) BuildStream(dev Device, cfg StreamConfig, data DataCallback, onErr ErrorCallback) (Stream, error) {
	cfg = withDefaults(cfg)

	var format malgo.FormatType
	switch cfg.Format {
	case FormatS16:
		format = malgo.FormatS16
	case FormatS24:
		format = malgo.FormatS24
	case FormatS32:
		format = malgo.FormatS32
	default:
		format = malgo.FormatF32
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.BufferSize)
	deviceConfig.Alsa.NoMMap = 1

	if dev.ID != "" {
		infos, err := m.playbackDevices()
		if err != nil {
			return nil, err
		}
		found := false
		for i := range infos {
			if infos[i].ID.String() == dev.ID {
				deviceConfig.Playback.DeviceID = infos[i].ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotAvailable, dev.Name)
		}
	}

	frames := cfg.BufferSize
	if frames <= 0 {
		frames = defaultCallbackFrames
	}
	s := &malgoStream{
		cfg:     cfg,
		data:    data,
		onErr:   onErr,
		scratch: make([]float32, frames*cfg.Channels),
	}

	callbacks := malgo.DeviceCallbacks{
		Data: s.onData,
		Stop: s.onStop,
	}

	m.mu.Lock()
	if m.malgoCtx == nil {
		m.mu.Unlock()
		return nil, &BackendError{Backend: "malgo", Err: fmt.Errorf("context closed")}
	}
	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize playback device: %v", ErrDeviceNotAvailable, err)
	}

	s.device = device
	s.sampleRate = int(device.SampleRate())

	m.logger.Info("Audio output initialized",
		"device", dev.Name, "rate", s.sampleRate, "channels", cfg.Channels, "format", cfg.Format)

	return s, nil
}

// Close releases the miniaudio context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.logger.Warn("malgo context uninit error", "err", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

type malgoStream struct {
	device     *malgo.Device
	cfg        StreamConfig
	sampleRate int
	data       DataCallback
	onErr      ErrorCallback
	scratch    []float32
	closing    atomic.Bool
}

// onData runs on the miniaudio thread
func (s *malgoStream) onData(pOutput, _ []byte, frameCount uint32) {
	n := int(frameCount) * s.cfg.Channels
	if n > len(s.scratch) {
		s.scratch = make([]float32, n)
	}
	buf := s.scratch[:n]
	clear(buf)
	s.data(buf, s.cfg.Channels)
	Encode(s.cfg.Format, pOutput, buf)
}

// onStop fires on explicit stops and when the device goes away
func (s *malgoStream) onStop() {
	if s.closing.Load() {
		return
	}
	if s.onErr != nil {
		s.onErr(ErrDeviceNotAvailable)
	}
}

func (s *malgoStream) Play() error {
	if err := s.device.Start(); err != nil {
		return &BackendError{Backend: "malgo", Err: fmt.Errorf("failed to start device: %w", err)}
	}
	return nil
}

func (s *malgoStream) SampleRate() int { return s.sampleRate }

func (s *malgoStream) Config() StreamConfig { return s.cfg }

func (s *malgoStream) Close() error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	s.device.Uninit()
	return nil
}
