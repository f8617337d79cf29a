// ABOUTME: Null audio output
// ABOUTME: Renders on a real-time software clock and discards the samples
package output

const (
	nullSampleRate = 48000
	nullBufferSize = 512
)

// Null renders without a device, for headless hosts and tests
type Null struct{}

// NewNull creates a null backend
func NewNull() *Null {
	return &Null{}
}

// Name returns "null"
func (n *Null) Name() string { return "null" }

// Devices returns the single virtual device
func (n *Null) Devices() ([]Device, error) {
	dev, _ := n.DefaultDevice()
	return []Device{dev}, nil
}

// DefaultDevice returns the virtual device
func (n *Null) DefaultDevice() (Device, error) {
	return Device{ID: "null", Name: "Null output", Default: true}, nil
}

// DefaultConfig returns 48 kHz stereo float in 512-frame buffers
func (n *Null) DefaultConfig(dev Device) (StreamConfig, error) {
	return StreamConfig{SampleRate: nullSampleRate, Channels: 2, BufferSize: nullBufferSize, Format: FormatF32}, nil
}

// BuildStream creates a clock-driven stream
func (n *Null) BuildStream(dev Device, cfg StreamConfig, data DataCallback, onErr ErrorCallback) (Stream, error) {
	cfg = withDefaults(cfg)
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = nullSampleRate
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = nullBufferSize
	}
	return newClockStream(cfg, data, true, nil), nil
}

// Close does nothing
func (n *Null) Close() error { return nil }
