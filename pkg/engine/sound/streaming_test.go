// ABOUTME: Tests for streaming sounds and the decode scheduler
// ABOUTME: Drives the scheduler step by step instead of on its goroutine
package sound

import (
	"math"
	"testing"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/tween"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/playback"
)

func splitStreaming(t *testing.T, data *StreamingData) (*StreamingSound, *Handle, *DecodeScheduler) {
	t.Helper()
	s, h, sched, err := data.split()
	if err != nil {
		t.Fatalf("failed to split: %v", err)
	}
	return s, h, sched
}

// drain runs the scheduler until it ends or limit steps pass
func drain(sched *DecodeScheduler, limit int) NextStep {
	var step NextStep
	for i := 0; i < limit; i++ {
		if step = sched.Step(); step != Continue {
			return step
		}
	}
	return step
}

func TestSchedulerBackpressure(t *testing.T) {
	data := &StreamingData{Decoder: decode.NewMemory(48000, ramp(100), 16), QueueCapacity: 8}
	_, _, sched := splitStreaming(t, data)

	// One slot already holds the seed frame
	for i := 0; i < 7; i++ {
		if step := sched.Step(); step != Continue {
			t.Fatalf("step %d: expected continue, got %v", i, step)
		}
	}
	if step := sched.Step(); step != Wait {
		t.Errorf("expected wait on a full queue, got %v", step)
	}
}

func TestStreamingPlaysDecodedFrames(t *testing.T) {
	frames := ramp(20)
	data := &StreamingData{Decoder: decode.NewMemory(48000, frames, 6), QueueCapacity: 64}
	s, h, sched := splitStreaming(t, data)

	if step := drain(sched, 100); step != End {
		t.Fatalf("expected the scheduler to end, got %v", step)
	}
	if !h.ReachedEnd() {
		t.Fatal("expected reached end after decoding every frame")
	}

	out := make([]audio.Frame, 32)
	s.OnStartProcessing()
	s.Process(out, 1.0/48000)

	for i := 0; i < 20; i++ {
		if out[i] != frames[i] {
			t.Fatalf("slot %d: expected %+v, got %+v", i, frames[i], out[i])
		}
	}
	for i := 20; i < 32; i++ {
		if out[i] != audio.Zero {
			t.Fatalf("slot %d: expected silence, got %+v", i, out[i])
		}
	}
	if !s.Finished() {
		t.Error("expected the sound to finish")
	}
	if h.State() != playback.Stopped {
		t.Errorf("expected stopped, got %v", h.State())
	}
}

func TestStreamingUnderrunIsSilent(t *testing.T) {
	data := &StreamingData{Decoder: decode.NewMemory(48000, ramp(20), 6), QueueCapacity: 64}
	s, _, _ := splitStreaming(t, data)

	out := make([]audio.Frame, 16)
	for i := range out {
		out[i] = audio.FromMono(1)
	}
	s.OnStartProcessing()
	s.Process(out, 1.0/48000)

	for i, f := range out {
		if f != audio.Zero {
			t.Fatalf("slot %d: expected silence during underrun, got %+v", i, f)
		}
	}
	if s.Finished() {
		t.Error("underrun must not finish the sound")
	}
}

func TestStreamingPosition(t *testing.T) {
	data := &StreamingData{Decoder: decode.NewMemory(1000, ramp(500), 64), QueueCapacity: 1024}
	s, h, sched := splitStreaming(t, data)
	drain(sched, 1000)

	out := make([]audio.Frame, 100)
	s.OnStartProcessing()
	s.Process(out, 1.0/1000)
	s.OnStartProcessing()

	// The front of the queue is the last frame played
	if math.Abs(h.Position()-0.099) > 1e-9 {
		t.Errorf("expected position 0.099, got %f", h.Position())
	}
}

func TestSchedulerLoopsOnEOF(t *testing.T) {
	d := &shortDecoder{sampleRate: 1000, numFrames: 100, available: 50}
	data := &StreamingData{Decoder: d, QueueCapacity: 256, Settings: Settings{LoopRegion: &LoopRegion{}}}
	s, h, sched := splitStreaming(t, data)

	for i := 0; i < 50; i++ {
		if step := sched.Step(); step != Continue {
			t.Fatalf("step %d: expected continue, got %v", i, step)
		}
	}

	// The decoder ends early; the loop region takes over in the same step
	if step := sched.Step(); step != Continue {
		t.Fatalf("expected continue after looping, got %v", step)
	}
	if sched.transport.Position != 1 {
		t.Errorf("expected transport one past the loop start, got %d", sched.transport.Position)
	}
	if step := sched.Step(); step != Continue {
		t.Fatalf("expected decoding to resume, got %v", step)
	}
	if h.EncounteredError() {
		t.Error("loop recovery must not flag an error")
	}

	// Seed, 50 frames, then the loop start
	queued, ok := s.frames.Peek(51)
	if !ok || queued.Index != 0 {
		t.Errorf("expected the loop start frame after the last decodable frame, got %+v", queued)
	}
}

func TestSchedulerUnreachableLoopStartIsAnError(t *testing.T) {
	// The loop starts at frame 50 but the decoder runs dry after 10
	d := &shortDecoder{sampleRate: 1000, numFrames: 100, available: 10}
	data := &StreamingData{Decoder: d, QueueCapacity: 256, Settings: Settings{LoopRegion: &LoopRegion{Start: 0.05}}}
	s, h, sched := splitStreaming(t, data)

	if step := drain(sched, 1000); step != End {
		t.Fatalf("expected end, got %v", step)
	}
	if !h.EncounteredError() {
		t.Error("expected an unreachable loop start to flag an error")
	}
	if got := s.frames.Len(); got != 11 {
		t.Errorf("expected seed plus 10 frames queued, got %d", got)
	}

	s.OnStartProcessing()
	s.Process(make([]audio.Frame, 8), 1.0/1000)
	if !s.Finished() {
		t.Error("expected the sound to finish")
	}
}

func TestSchedulerEOFWithoutLoopIsAnError(t *testing.T) {
	d := &shortDecoder{sampleRate: 1000, numFrames: 100, available: 50}
	data := &StreamingData{Decoder: d, QueueCapacity: 256}
	_, h, sched := splitStreaming(t, data)

	if step := drain(sched, 200); step != End {
		t.Fatalf("expected end, got %v", step)
	}
	if !h.EncounteredError() {
		t.Error("expected an unexpected end of stream to flag an error")
	}
}

func TestStreamingDecodeFailure(t *testing.T) {
	d := &brokenDecoder{}
	data := &StreamingData{Decoder: d, QueueCapacity: 16}
	s, h, sched := splitStreaming(t, data)

	sched.Run()
	if !d.closed {
		t.Error("expected Run to close the decoder")
	}
	if !h.EncounteredError() {
		t.Fatal("expected error flag")
	}

	out := make([]audio.Frame, 8)
	s.OnStartProcessing()
	s.Process(out, 1.0/48000)
	for _, f := range out {
		if f != audio.Zero {
			t.Fatal("expected silence after a decode error")
		}
	}
	if !s.Finished() {
		t.Error("expected the sound to finish after a decode error")
	}
}

func TestSchedulerEndsWhenReleased(t *testing.T) {
	data := &StreamingData{Decoder: decode.NewMemory(48000, ramp(100), 16), QueueCapacity: 64}
	s, _, sched := splitStreaming(t, data)

	s.Release()
	if step := sched.Step(); step != End {
		t.Errorf("expected end after release, got %v", step)
	}
}

func TestSchedulerEndsWhenStopped(t *testing.T) {
	data := &StreamingData{Decoder: decode.NewMemory(48000, ramp(100), 16), QueueCapacity: 64}
	s, h, sched := splitStreaming(t, data)

	h.Stop(tween.Immediate)
	s.OnStartProcessing()
	s.Process(make([]audio.Frame, 8), 1.0/48000)

	if step := sched.Step(); step != End {
		t.Errorf("expected end once the sound stopped, got %v", step)
	}
}

func TestStreamingResampled(t *testing.T) {
	frames := make([]audio.Frame, 1000)
	for i := range frames {
		frames[i] = audio.FromMono(0.25)
	}
	data := &StreamingData{Decoder: decode.NewMemory(24000, frames, 128), QueueCapacity: 2048}
	s, _, sched := splitStreaming(t, data)
	drain(sched, 2000)

	out := make([]audio.Frame, 100)
	produced := 0
	for i := 0; i < 100 && !s.Finished(); i++ {
		s.OnStartProcessing()
		s.Process(out, 1.0/48000)
		produced += len(out)
		if i == 5 && math.Abs(float64(out[50].Left)-0.25) > 1e-5 {
			t.Errorf("expected steady 0.25, got %f", out[50].Left)
		}
	}
	if !s.Finished() {
		t.Fatal("resampled stream never finished")
	}
	if produced < 2000 || produced > 2200 {
		t.Errorf("expected about 2000 output frames, got %d", produced)
	}
}

func TestStreamingWithoutDecoder(t *testing.T) {
	if _, _, err := (&StreamingData{}).Split(); err == nil {
		t.Error("expected error without a decoder")
	}
}

func TestStreamingSmallQueueCapacity(t *testing.T) {
	frames := ramp(20)
	data := &StreamingData{Decoder: decode.NewMemory(48000, frames, 6), QueueCapacity: 1}
	s, h, sched := splitStreaming(t, data)

	if got := sched.frames.Cap(); got != MinQueueCapacity {
		t.Fatalf("expected capacity raised to %d, got %d", MinQueueCapacity, got)
	}

	var played []audio.Frame
	out := make([]audio.Frame, 4)
	step := Continue
	for i := 0; i < 200 && !s.Finished(); i++ {
		if step != End {
			step = sched.Step()
		}
		s.OnStartProcessing()
		s.Process(out, 1.0/48000)
		for _, f := range out {
			if f != audio.Zero {
				played = append(played, f)
			}
		}
	}

	if !s.Finished() {
		t.Fatal("expected the sound to finish")
	}
	if !h.ReachedEnd() {
		t.Error("expected reached end")
	}
	if len(played) != len(frames) {
		t.Fatalf("expected %d frames played, got %d", len(frames), len(played))
	}
	for i := range frames {
		if played[i] != frames[i] {
			t.Errorf("frame %d: expected %+v, got %+v", i, frames[i], played[i])
		}
	}
}

func TestStreamingPositionBeforePlayback(t *testing.T) {
	data := &StreamingData{
		Decoder:       decode.NewMemory(1000, ramp(5000), 64),
		Settings:      Settings{StartPosition: 2},
		QueueCapacity: 1024,
	}
	s, h, sched := splitStreaming(t, data)

	if h.Position() != 2 {
		t.Errorf("expected position 2 after split, got %f", h.Position())
	}
	s.OnStartProcessing()
	if h.Position() != 2 {
		t.Errorf("expected position 2 before decoding, got %f", h.Position())
	}

	drain(sched, 500)
	s.OnStartProcessing()
	if h.Position() != 2 {
		t.Errorf("expected position 2 before playback, got %f", h.Position())
	}

	s.Process(make([]audio.Frame, 100), 1.0/1000)
	s.OnStartProcessing()
	if math.Abs(h.Position()-2.099) > 1e-9 {
		t.Errorf("expected position 2.099, got %f", h.Position())
	}
}
