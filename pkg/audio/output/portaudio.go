//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform callback-driven output using PortAudio
package output

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

// PortAudio is the PortAudio backend
type PortAudio struct {
	logger *log.Logger
}

// NewPortAudio initializes PortAudio
func NewPortAudio(logger *log.Logger) (Backend, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, &BackendError{Backend: "portaudio", Err: fmt.Errorf("failed to initialize portaudio: %w", err)}
	}
	return &PortAudio{logger: logger.WithPrefix("portaudio")}, nil
}

// Name returns "portaudio"
func (p *PortAudio) Name() string { return "portaudio" }

// Devices lists devices with output channels
func (p *PortAudio) Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, &BackendError{Backend: "portaudio", Err: err}
	}
	def, _ := portaudio.DefaultOutputDevice()

	var devices []Device
	for _, info := range infos {
		if info.MaxOutputChannels < 1 {
			continue
		}
		devices = append(devices, Device{
			ID:      info.Name,
			Name:    info.Name,
			Default: def != nil && def.Name == info.Name,
		})
	}
	return devices, nil
}

// DefaultDevice returns the default output device
func (p *PortAudio) DefaultDevice() (Device, error) {
	info, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return Device{}, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	return Device{ID: info.Name, Name: info.Name, Default: true}, nil
}

// DefaultConfig uses the device's default rate
func (p *PortAudio) DefaultConfig(dev Device) (StreamConfig, error) {
	info, err := p.lookup(dev)
	if err != nil {
		return StreamConfig{}, err
	}
	return StreamConfig{
		SampleRate: int(info.DefaultSampleRate),
		Channels:   min(2, info.MaxOutputChannels),
		Format:     FormatF32,
	}, nil
}

func (p *PortAudio) lookup(dev Device) (*portaudio.DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, &BackendError{Backend: "portaudio", Err: err}
	}
	for _, info := range infos {
		if info.Name == dev.ID && info.MaxOutputChannels > 0 {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotAvailable, dev.Name)
}

// BuildStream opens a float32 output stream on dev
func (p *PortAudio) BuildStream(dev Device, cfg StreamConfig, data DataCallback, onErr ErrorCallback) (Stream, error) {
	cfg = withDefaults(cfg)
	cfg.Format = FormatF32

	info, err := p.lookup(dev)
	if err != nil {
		return nil, err
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = int(info.DefaultSampleRate)
	}

	params := portaudio.HighLatencyParameters(nil, info)
	params.Output.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = cfg.BufferSize

	channels := cfg.Channels
	stream, err := portaudio.OpenStream(params, func(out []float32) {
		clear(out)
		data(out, channels)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open stream: %v", ErrDeviceNotAvailable, err)
	}

	p.logger.Info("Audio output initialized", "device", dev.Name, "rate", cfg.SampleRate, "channels", cfg.Channels)
	return &portAudioStream{stream: stream, cfg: cfg}, nil
}

// Close terminates PortAudio
func (p *PortAudio) Close() error {
	return portaudio.Terminate()
}

type portAudioStream struct {
	stream *portaudio.Stream
	cfg    StreamConfig
}

func (s *portAudioStream) Play() error { return s.stream.Start() }

func (s *portAudioStream) SampleRate() int { return s.cfg.SampleRate }

func (s *portAudioStream) Config() StreamConfig { return s.cfg }

func (s *portAudioStream) Close() error {
	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		return err
	}
	return s.stream.Close()
}
