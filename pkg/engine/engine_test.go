// ABOUTME: Tests for the engine manager and renderer
// ABOUTME: Renders through the null and WAV file backends and drives the renderer directly
package engine

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/spatial"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/tween"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/sound"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/track"
)

func constant(sampleRate, n int, value float32) *sound.StaticData {
	frames := make([]audio.Frame, n)
	for i := range frames {
		frames[i] = audio.FromMono(value)
	}
	return &sound.StaticData{SampleRate: sampleRate, Frames: frames}
}

func TestRendererInterleaves(t *testing.T) {
	main, h := track.New(track.Builder{}, 16)
	r, _ := NewRenderer(main, 48000, 16)
	if _, err := h.Play(&sound.StaticData{SampleRate: 48000, Frames: []audio.Frame{{Left: 0.25, Right: -0.5}}}); err != nil {
		t.Fatalf("failed to play: %v", err)
	}

	tests := []struct {
		name     string
		channels int
		expected []float32
	}{
		{"mono", 1, []float32{-0.125}},
		{"stereo", 2, []float32{0.25, -0.5}},
		{"extra channels are silent", 4, []float32{0.25, -0.5, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]float32, tt.channels)
			interleave(out, []audio.Frame{{Left: 0.25, Right: -0.5}}, tt.channels)
			for i := range out {
				if out[i] != tt.expected[i] {
					t.Errorf("channel %d: expected %f, got %f", i, tt.expected[i], out[i])
				}
			}
		})
	}

	out := make([]float32, 8)
	r.Process(out, 2)
	if out[0] != 0.25 || out[1] != -0.5 || out[2] != 0 {
		t.Errorf("unexpected output %v", out)
	}
}

func TestRendererSplitsBlocks(t *testing.T) {
	main, h := track.New(track.Builder{}, 16)
	r, _ := NewRenderer(main, 48000, 16)
	if _, err := h.Play(constant(48000, 1000, 0.5)); err != nil {
		t.Fatalf("failed to play: %v", err)
	}

	out := make([]float32, 50*2)
	r.Process(out, 2)
	for i, v := range out {
		if v != 0.5 {
			t.Fatalf("sample %d: expected 0.5, got %f", i, v)
		}
	}
}

func TestRendererSampleRateChange(t *testing.T) {
	main, _ := track.New(track.Builder{}, 16)
	r, _ := NewRenderer(main, 48000, 16)

	r.OnChangeSampleRate(44100)
	if r.dt != 1.0/48000 {
		t.Error("rate change must wait for the next buffer")
	}
	r.Process(make([]float32, 32), 2)
	if r.dt != 1.0/44100 {
		t.Errorf("expected dt 1/44100, got %f", r.dt)
	}
}

func TestListenerMovesSpatialTracks(t *testing.T) {
	main, h := track.New(track.Builder{}, 64)
	r, listener := NewRenderer(main, 48000, 64)

	emitter, err := h.AddSpatialSubTrack(track.SpatialSettings{Position: spatial.Vec3{X: -5}, Strength: 1}, track.Builder{})
	if err != nil {
		t.Fatalf("failed to add emitter: %v", err)
	}
	if _, err := emitter.Play(constant(48000, 48000, 0.5)); err != nil {
		t.Fatalf("failed to play: %v", err)
	}

	out := make([]float32, 64*2)
	r.Process(out, 2)
	if out[64] <= out[65] {
		t.Fatalf("expected emitter on the left, got L=%f R=%f", out[64], out[65])
	}

	// Turning around puts the emitter on the right
	listener.SetOrientation(spatial.FromAxisAngle(spatial.Vec3{Y: 1}, math.Pi), tween.Immediate)
	r.Process(out, 2)
	r.Process(out, 2)
	if out[64] >= out[65] {
		t.Errorf("expected emitter on the right after turning, got L=%f R=%f", out[64], out[65])
	}
}

func TestManagerPlaysOnNullBackend(t *testing.T) {
	m, err := New(Config{Output: output.NewNull(), PollInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("failed to start engine: %v", err)
	}

	h, err := m.Play(constant(48000, 48000, 0.1))
	if err != nil {
		t.Fatalf("failed to play: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Position() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("sound position never advanced")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if m.SampleRate() != 48000 {
		t.Errorf("expected 48000, got %d", m.SampleRate())
	}
	if m.Backend() != "null" {
		t.Errorf("expected null backend, got %s", m.Backend())
	}

	if err := m.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	if _, err := m.Play(constant(48000, 10, 0)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
}

func TestManagerUnknownDevice(t *testing.T) {
	_, err := New(Config{Output: output.NewNull(), Device: "missing"})
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestManagerRendersToWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.wav")
	wavOut := output.NewWAVFile(path, output.WAVFileOptions{
		SampleRate: 8000,
		BufferSize: 256,
		Duration:   300 * time.Millisecond,
		Realtime:   true,
	}, nil)

	m, err := New(Config{Output: wavOut, BlockSize: 128})
	if err != nil {
		t.Fatalf("failed to start engine: %v", err)
	}
	if _, err := m.Play(constant(8000, 8000, 0.5)); err != nil {
		t.Fatalf("failed to play: %v", err)
	}

	select {
	case <-wavOut.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("render did not finish")
	}
	m.Close()

	d, err := decode.Open(path)
	if err != nil {
		t.Fatalf("failed to open render: %v", err)
	}
	defer d.Close()
	frames, err := decode.ReadAll(d)
	if err != nil {
		t.Fatalf("failed to read render: %v", err)
	}

	if len(frames) != 2400 {
		t.Fatalf("expected 2400 frames, got %d", len(frames))
	}
	if got := frames[2000].Left; math.Abs(float64(got)-0.5) > 1e-3 {
		t.Errorf("expected the sound in the render, got %f", got)
	}
}
