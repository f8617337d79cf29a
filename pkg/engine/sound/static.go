// ABOUTME: In-memory sound playback
// ABOUTME: Plays decoded frames directly or through the cubic resampler
package sound

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/resample"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/playback"
)

// StaticData is fully decoded audio. Frames are shared read-only between sounds.
type StaticData struct {
	SampleRate int
	Frames     []audio.Frame
	Settings   Settings
}

// StaticFromFile decodes a whole file into memory
func StaticFromFile(path string, settings Settings) (*StaticData, error) {
	d, err := decode.Open(path)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	return StaticFromDecoder(d, settings)
}

// StaticFromDecoder reads every remaining frame of d
func StaticFromDecoder(d decode.Decoder, settings Settings) (*StaticData, error) {
	frames, err := decode.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sound: %w", err)
	}
	return &StaticData{SampleRate: d.SampleRate(), Frames: frames, Settings: settings}, nil
}

// WithSettings returns a copy sharing the same frames
func (d *StaticData) WithSettings(settings Settings) *StaticData {
	c := *d
	c.Settings = settings
	return &c
}

// Duration returns the length of the audio
func (d *StaticData) Duration() time.Duration {
	if d.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(d.Frames)) * time.Second / time.Duration(d.SampleRate)
}

// Split creates a sound playing the data and its handle
func (d *StaticData) Split() (Sound, *Handle, error) {
	if d.SampleRate <= 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, d.SampleRate)
	}
	numFrames := int64(len(d.Frames))
	loop, err := d.Settings.region(d.SampleRate, numFrames)
	if err != nil {
		return nil, nil, err
	}

	transport := playback.NewTransport(numFrames, d.Settings.startFrame(d.SampleRate), loop)
	c, h := newCore(d.Settings, false, float64(transport.Position)/float64(d.SampleRate))
	s := &StaticSound{
		core:      c,
		data:      d,
		transport: transport,
		resampler: resample.New(transport.Position),
	}
	return s, h, nil
}

// StaticSound plays a StaticData
type StaticSound struct {
	core
	data      *StaticData
	transport playback.Transport
	resampler *resample.Resampler
	// frac is the position between the two inner resampler frames
	frac float64
}

// OnStartProcessing applies commands and publishes the position
func (s *StaticSound) OnStartProcessing() {
	s.readCommands()
	index := s.transport.Position
	if s.resampling {
		if current := s.resampler.CurrentIndex(); current >= 0 {
			index = current
		}
	}
	s.shared.SetPosition(float64(index) / float64(s.data.SampleRate))
}

// Process renders the next buffer
func (s *StaticSound) Process(out []audio.Frame, dt float64) {
	if !s.advance(dt, len(out)) {
		silence(out)
		return
	}
	s.decideResampling(dt, s.data.SampleRate)

	if s.resampling {
		s.processResampled(out, dt)
		if !s.transport.Playing && s.resampler.OutputtingSilence() {
			s.shared.SetReachedEnd()
			s.finish()
		}
		return
	}

	s.processDirect(out)
	if !s.transport.Playing {
		s.shared.SetReachedEnd()
		s.finish()
	}
}

func (s *StaticSound) processDirect(out []audio.Frame) {
	for i := range out {
		frame := audio.Zero
		if s.transport.Playing {
			frame = s.data.Frames[s.transport.Position]
			s.transport.Increment()
		}
		out[i] = frame.Scale(s.gain(i, len(out)))
	}
}

func (s *StaticSound) processResampled(out []audio.Frame, dt float64) {
	step := float64(s.data.SampleRate) * dt
	for i := range out {
		out[i] = s.resampler.Output(float32(s.frac)).Scale(s.gain(i, len(out)))
		s.frac += step
		for s.frac >= 1 {
			s.frac--
			s.pushNext()
		}
	}
}

func (s *StaticSound) pushNext() {
	if !s.transport.Playing {
		s.resampler.Push(audio.Zero, -1)
		return
	}
	s.resampler.Push(s.data.Frames[s.transport.Position], s.transport.Position)
	s.transport.Increment()
}
