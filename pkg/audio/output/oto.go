// ABOUTME: Oto-based audio output implementation
// ABOUTME: Feeds an oto player from a reader that pulls frames through the data callback
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

const (
	otoDefaultRate   = 48000
	otoErrorInterval = 100 * time.Millisecond
)

// Oto is the oto backend. oto allows one context per process, so the first
// stream fixes the sample rate and channel count for the life of the backend.
type Oto struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	sampleRate int
	channels   int
	format     SampleFormat
	logger     *log.Logger
}

// NewOto creates an oto backend. The oto context is created with the first stream.
func NewOto(logger *log.Logger) *Oto {
	if logger == nil {
		logger = log.Default()
	}
	return &Oto{logger: logger.WithPrefix("oto")}
}

// Name returns "oto"
func (o *Oto) Name() string { return "oto" }

// Devices returns the single system output oto drives
func (o *Oto) Devices() ([]Device, error) {
	return []Device{{ID: "default", Name: "System default", Default: true}}, nil
}

// DefaultDevice returns the system output
func (o *Oto) DefaultDevice() (Device, error) {
	return Device{ID: "default", Name: "System default", Default: true}, nil
}

// DefaultConfig returns the format of the existing context, or 48 kHz stereo float
func (o *Oto) DefaultConfig(dev Device) (StreamConfig, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		return StreamConfig{SampleRate: o.sampleRate, Channels: o.channels, Format: o.format}, nil
	}
	return StreamConfig{SampleRate: otoDefaultRate, Channels: 2, Format: FormatF32}, nil
}

// BuildStream creates a player pulling from data
func (o *Oto) BuildStream(dev Device, cfg StreamConfig, data DataCallback, onErr ErrorCallback) (Stream, error) {
	cfg = withDefaults(cfg)
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = otoDefaultRate
	}
	// oto takes 16-bit integer or 32-bit float
	if cfg.Format != FormatS16 {
		cfg.Format = FormatF32
	}

	if err := o.ensureContext(cfg); err != nil {
		return nil, err
	}

	o.mu.Lock()
	cfg.SampleRate, cfg.Channels, cfg.Format = o.sampleRate, o.channels, o.format
	ctx := o.otoCtx
	o.mu.Unlock()

	s := &otoStream{
		cfg:   cfg,
		onErr: onErr,
		done:  make(chan struct{}),
	}
	s.reader = &callbackReader{
		data:     data,
		format:   cfg.Format,
		channels: cfg.Channels,
	}
	s.player = ctx.NewPlayer(s.reader)
	if cfg.BufferSize > 0 {
		s.player.SetBufferSize(cfg.BufferSize * cfg.Channels * cfg.Format.BytesPerSample())
	}

	o.logger.Info("Audio output initialized", "rate", cfg.SampleRate, "channels", cfg.Channels, "format", cfg.Format)
	return s, nil
}

func (o *Oto) ensureContext(cfg StreamConfig) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if o.sampleRate != cfg.SampleRate || o.channels != cfg.Channels {
			o.logger.Warn("oto cannot reinitialize, keeping existing format",
				"rate", o.sampleRate, "channels", o.channels,
				"requested_rate", cfg.SampleRate, "requested_channels", cfg.Channels)
		}
		return nil
	}

	format := oto.FormatFloat32LE
	if cfg.Format == FormatS16 {
		format = oto.FormatSignedInt16LE
	}
	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       format,
	}
	if cfg.BufferSize > 0 {
		op.BufferSize = time.Duration(cfg.BufferSize) * time.Second / time.Duration(cfg.SampleRate)
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("%w: failed to create oto context: %v", ErrDeviceNotAvailable, err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = cfg.SampleRate
	o.channels = cfg.Channels
	o.format = cfg.Format
	return nil
}

// Close suspends the shared context
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			return &BackendError{Backend: "oto", Err: err}
		}
	}
	return nil
}

// callbackReader answers oto's reads by calling the data callback
type callbackReader struct {
	data     DataCallback
	format   SampleFormat
	channels int
	scratch  []float32
}

func (r *callbackReader) Read(p []byte) (int, error) {
	frameBytes := r.channels * r.format.BytesPerSample()
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	n := frames * r.channels
	if n > len(r.scratch) {
		r.scratch = make([]float32, n)
	}
	buf := r.scratch[:n]
	clear(buf)
	r.data(buf, r.channels)
	Encode(r.format, p, buf)
	return frames * frameBytes, nil
}

type otoStream struct {
	cfg       StreamConfig
	player    *oto.Player
	reader    *callbackReader
	onErr     ErrorCallback
	done      chan struct{}
	closeOnce sync.Once
}

func (s *otoStream) Play() error {
	s.player.Play()
	go s.watchErrors()
	return nil
}

// watchErrors polls the player since oto has no error callback
func (s *otoStream) watchErrors() {
	ticker := time.NewTicker(otoErrorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.player.Err(); err != nil {
				if s.onErr != nil {
					s.onErr(&BackendError{Backend: "oto", Err: err})
				}
				return
			}
		}
	}
}

func (s *otoStream) SampleRate() int { return s.cfg.SampleRate }

func (s *otoStream) Config() StreamConfig { return s.cfg }

func (s *otoStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.player.Close()
	})
	return err
}
