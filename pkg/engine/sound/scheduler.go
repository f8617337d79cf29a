// ABOUTME: Background decoding for streaming sounds
// ABOUTME: Keeps a bounded frame queue filled ahead of playback and handles loop and error recovery
package sound

import (
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Resonate-Protocol/resonate-mixer/internal/ringbuf"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/playback"
)

const (
	// DefaultQueueCapacity lets the decoder run well ahead of playback
	DefaultQueueCapacity = 32768
	// MinQueueCapacity holds the seed frame plus one decoded frame
	MinQueueCapacity = 2

	waitInterval = time.Millisecond

	// Indices further ahead of the decoder than this are reached by seeking
	seekAheadFrames = 48000
)

// NextStep tells the decode loop what to do after one step
type NextStep int

const (
	// Continue means one frame was queued
	Continue NextStep = iota
	// Wait means the queue is full
	Wait
	// End means the goroutine should exit
	End
)

func (n NextStep) String() string {
	switch n {
	case Continue:
		return "continue"
	case Wait:
		return "wait"
	default:
		return "end"
	}
}

// TimestampedFrame is a decoded frame tagged with its source index
type TimestampedFrame struct {
	Frame audio.Frame
	Index int64
}

// DecodeScheduler decodes one streaming sound on its own goroutine
type DecodeScheduler struct {
	decoder   decode.Decoder
	transport playback.Transport
	frames    *ringbuf.Producer[TimestampedFrame]
	shared    *playback.Shared
	logger    *log.Logger

	chunk      []audio.Frame
	chunkStart int64
	// cursor is the index of the first frame the next Decode returns
	cursor int64
}

func newDecodeScheduler(d decode.Decoder, transport playback.Transport, frames *ringbuf.Producer[TimestampedFrame], shared *playback.Shared, logger *log.Logger) *DecodeScheduler {
	return &DecodeScheduler{
		decoder:   d,
		transport: transport,
		frames:    frames,
		shared:    shared,
		logger:    logger,
	}
}

// Run decodes until the sound ends, fails or is dropped, then closes the decoder
func (s *DecodeScheduler) Run() {
	defer func() {
		if err := s.decoder.Close(); err != nil {
			s.logger.Warn("decoder close failed", "err", err)
		}
	}()

	for {
		switch s.Step() {
		case Continue:
		case Wait:
			time.Sleep(waitInterval)
		case End:
			return
		}
	}
}

// Step queues at most one frame
func (s *DecodeScheduler) Step() NextStep {
	if s.shared.State() == playback.Stopped || s.shared.Released() {
		return End
	}
	if s.frames.Full() {
		return Wait
	}
	if !s.transport.Playing {
		s.shared.SetReachedEnd()
		return End
	}

	frame, err := s.frameAtIndex(s.transport.Position)
	if isEOF(err) && s.transport.Loop != nil {
		// One retry from the loop start; a second EOF means the loop is unreachable
		s.transport.Seek(s.transport.Loop.Start)
		frame, err = s.frameAtIndex(s.transport.Position)
	}
	if err != nil {
		s.logger.Error("streaming sound decode failed", "index", s.transport.Position, "err", err)
		s.shared.SetEncounteredError()
		return End
	}

	s.frames.Push(TimestampedFrame{Frame: frame, Index: s.transport.Position})
	s.transport.Increment()
	return Continue
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// frameAtIndex returns the frame at index, seeking and decoding as needed
func (s *DecodeScheduler) frameAtIndex(index int64) (audio.Frame, error) {
	if frame, ok := s.cached(index); ok {
		return frame, nil
	}

	if index < s.cursor || index >= s.cursor+seekAheadFrames {
		actual, err := s.decoder.Seek(index)
		if err != nil {
			return audio.Zero, err
		}
		if actual > index {
			// The container landed past the target; start over from the top
			if actual, err = s.decoder.Seek(0); err != nil {
				return audio.Zero, err
			}
		}
		s.cursor = actual
		s.chunk = nil
	}

	for {
		chunk, err := s.decoder.Decode()
		if err != nil {
			return audio.Zero, err
		}
		s.chunk = chunk
		s.chunkStart = s.cursor
		s.cursor += int64(len(chunk))
		if frame, ok := s.cached(index); ok {
			return frame, nil
		}
	}
}

func (s *DecodeScheduler) cached(index int64) (audio.Frame, bool) {
	if index >= s.chunkStart && index < s.chunkStart+int64(len(s.chunk)) {
		return s.chunk[index-s.chunkStart], true
	}
	return audio.Zero, false
}
