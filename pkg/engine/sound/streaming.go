// ABOUTME: Streaming sound playback
// ABOUTME: Plays frames decoded ahead of time by a DecodeScheduler goroutine
package sound

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/Resonate-Protocol/resonate-mixer/internal/ringbuf"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/resample"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/playback"
)

// StreamingData plays a decoder without loading it into memory.
// It can be split once; the decoder moves to the scheduler goroutine.
type StreamingData struct {
	Decoder  decode.Decoder
	Settings Settings
	// QueueCapacity in frames; 0 uses DefaultQueueCapacity and
	// values below MinQueueCapacity are raised to it
	QueueCapacity int
	Logger        *log.Logger
}

// StreamingFromFile opens path for streaming
func StreamingFromFile(path string, settings Settings) (*StreamingData, error) {
	d, err := decode.Open(path)
	if err != nil {
		return nil, err
	}
	return &StreamingData{Decoder: d, Settings: settings}, nil
}

// Split starts the decode goroutine and returns the sound and its handle
func (d *StreamingData) Split() (Sound, *Handle, error) {
	sound, handle, scheduler, err := d.split()
	if err != nil {
		return nil, nil, err
	}
	go scheduler.Run()
	return sound, handle, nil
}

func (d *StreamingData) split() (*StreamingSound, *Handle, *DecodeScheduler, error) {
	if d.Decoder == nil {
		return nil, nil, nil, fmt.Errorf("streaming data has no decoder")
	}
	sampleRate := d.Decoder.SampleRate()
	if sampleRate <= 0 {
		return nil, nil, nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}
	numFrames := d.Decoder.NumFrames()
	loop, err := d.Settings.region(sampleRate, numFrames)
	if err != nil {
		return nil, nil, nil, err
	}

	capacity := d.QueueCapacity
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	capacity = max(capacity, MinQueueCapacity)
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}

	transport := playback.NewTransport(numFrames, d.Settings.startFrame(sampleRate), loop)
	c, h := newCore(d.Settings, true, float64(transport.Position)/float64(sampleRate))

	producer, consumer := ringbuf.New[TimestampedFrame](capacity)
	// The front of the queue is always the previous frame
	producer.Push(TimestampedFrame{Frame: audio.Zero, Index: 0})

	scheduler := newDecodeScheduler(d.Decoder, transport, producer, c.shared,
		logger.With("sound", h.ID().String()))
	s := &StreamingSound{
		core:         c,
		sampleRate:   sampleRate,
		frames:       consumer,
		resampler:    resample.New(transport.Position),
		currentIndex: transport.Position,
	}
	return s, h, scheduler, nil
}

// StreamingSound plays frames from the scheduler queue
type StreamingSound struct {
	core
	sampleRate   int
	frames       *ringbuf.Consumer[TimestampedFrame]
	resampler    *resample.Resampler
	frac         float64
	currentIndex int64
	// seedPopped is set once the zero frame pushed by split leaves the queue
	seedPopped   bool
}

// OnStartProcessing applies commands and publishes the position
func (s *StreamingSound) OnStartProcessing() {
	s.readCommands()
	if s.resampling {
		if current := s.resampler.CurrentIndex(); current >= 0 {
			s.currentIndex = current
		}
	} else if front, ok := s.frames.Peek(0); ok && s.seedPopped {
		s.currentIndex = front.Index
	}
	s.shared.SetPosition(float64(s.currentIndex) / float64(s.sampleRate))
}

// Process renders the next buffer
func (s *StreamingSound) Process(out []audio.Frame, dt float64) {
	if !s.advance(dt, len(out)) {
		silence(out)
		return
	}
	if s.shared.EncounteredError() {
		silence(out)
		s.finish()
		return
	}
	if s.frames.Len() < 2 && !s.shared.ReachedEnd() {
		// Underrun: the decoder is behind, wait for it
		silence(out)
		return
	}
	s.decideResampling(dt, s.sampleRate)

	if s.resampling {
		s.processResampled(out, dt)
	} else {
		s.processDirect(out)
	}

	if s.shared.ReachedEnd() && s.frames.Len() <= 1 && (!s.resampling || s.resampler.OutputtingSilence()) {
		s.finish()
	}
}

func (s *StreamingSound) processDirect(out []audio.Frame) {
	for i := range out {
		if s.frames.Len() < 2 {
			out[i] = audio.Zero
			continue
		}
		s.frames.Pop()
		s.seedPopped = true
		next, _ := s.frames.Peek(0)
		out[i] = next.Frame.Scale(s.gain(i, len(out)))
	}
}

func (s *StreamingSound) processResampled(out []audio.Frame, dt float64) {
	step := float64(s.sampleRate) * dt
	for i := range out {
		out[i] = s.resampler.Output(float32(s.frac)).Scale(s.gain(i, len(out)))
		s.frac += step
		for s.frac >= 1 {
			s.frac--
			s.pushNext()
		}
	}
}

func (s *StreamingSound) pushNext() {
	if s.frames.Len() < 2 {
		s.resampler.Push(audio.Zero, -1)
		return
	}
	s.frames.Pop()
	s.seedPopped = true
	next, _ := s.frames.Peek(0)
	s.resampler.Push(next.Frame, next.Index)
}
