// ABOUTME: Audio output tests
// ABOUTME: Tests sample encoding, backend selection and the device-less backends
package output

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

func TestBackendsImplementBackend(t *testing.T) {
	var _ Backend = (*Malgo)(nil)
	var _ Backend = (*Oto)(nil)
	var _ Backend = (*Null)(nil)
	var _ Backend = (*WAVFile)(nil)
}

func TestEncode(t *testing.T) {
	src := []float32{0.5, -1, 2}

	t.Run("S16", func(t *testing.T) {
		dst := make([]byte, len(src)*2)
		Encode(FormatS16, dst, src)
		expected := []int16{16383, -32767, 32767}
		for i, e := range expected {
			if got := int16(binary.LittleEndian.Uint16(dst[i*2:])); got != e {
				t.Errorf("sample %d: expected %d, got %d", i, e, got)
			}
		}
	})

	t.Run("S24", func(t *testing.T) {
		dst := make([]byte, len(src)*3)
		Encode(FormatS24, dst, src)
		// clipped +2 becomes full scale 0x7FFFFF
		if dst[6] != 0xFF || dst[7] != 0xFF || dst[8] != 0x7F {
			t.Errorf("expected full scale, got % x", dst[6:9])
		}
	})

	t.Run("S32", func(t *testing.T) {
		dst := make([]byte, len(src)*4)
		Encode(FormatS32, dst, src)
		if got := int32(binary.LittleEndian.Uint32(dst[4:])); got != -math.MaxInt32 {
			t.Errorf("expected %d, got %d", -math.MaxInt32, got)
		}
	})

	t.Run("F32", func(t *testing.T) {
		dst := make([]byte, len(src)*4)
		Encode(FormatF32, dst, src)
		if got := math.Float32frombits(binary.LittleEndian.Uint32(dst)); got != 0.5 {
			t.Errorf("expected 0.5, got %f", got)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected SampleFormat
		wantErr  bool
	}{
		{"", FormatF32, false},
		{"f32", FormatF32, false},
		{"S16", FormatS16, false},
		{"s24", FormatS24, false},
		{"s32", FormatS32, false},
		{"u8", FormatF32, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestBackendErrorUnwraps(t *testing.T) {
	inner := errors.New("xrun")
	err := error(&BackendError{Backend: "test", Err: inner})
	if !errors.Is(err, inner) {
		t.Error("expected BackendError to unwrap to its cause")
	}
	var be *BackendError
	if !errors.As(err, &be) || be.Backend != "test" {
		t.Error("expected errors.As to find the BackendError")
	}
}

func TestNewUnknownBackend(t *testing.T) {
	t.Setenv(BackendEnv, "")
	if _, err := New("carrier-pigeon", nil); !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
}

func TestNewHonoursEnvironment(t *testing.T) {
	t.Setenv(BackendEnv, "null")
	b, err := New("malgo", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Name() != "null" {
		t.Errorf("expected env to select null backend, got %s", b.Name())
	}
}

func TestNullStreamDrivesCallback(t *testing.T) {
	b := NewNull()
	dev, _ := b.DefaultDevice()
	cfg, _ := b.DefaultConfig(dev)
	cfg.BufferSize = 64

	var calls atomic.Int32
	stream, err := b.BuildStream(dev, cfg, func(out []float32, channels int) {
		if channels != 2 || len(out) != 128 {
			t.Errorf("unexpected buffer shape: %d samples, %d channels", len(out), channels)
		}
		calls.Add(1)
	}, nil)
	if err != nil {
		t.Fatalf("failed to build stream: %v", err)
	}
	if err := stream.Play(); err != nil {
		t.Fatalf("failed to play: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	stream.Close()

	if calls.Load() < 3 {
		t.Errorf("expected the clock to call back repeatedly, got %d calls", calls.Load())
	}

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != after {
		t.Error("callback still running after Close")
	}
}

func TestWAVFileRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.wav")
	b := NewWAVFile(path, WAVFileOptions{SampleRate: 8000, BufferSize: 100, Duration: 250 * time.Millisecond}, nil)

	dev, _ := b.DefaultDevice()
	cfg, _ := b.DefaultConfig(dev)
	stream, err := b.BuildStream(dev, cfg, func(out []float32, channels int) {
		for i := range out {
			out[i] = 0.5
		}
	}, nil)
	if err != nil {
		t.Fatalf("failed to build stream: %v", err)
	}
	if err := stream.Play(); err != nil {
		t.Fatalf("failed to play: %v", err)
	}

	select {
	case <-b.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("render did not finish")
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("failed to close stream: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open render: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("failed to decode render: %v", err)
	}
	if dec.SampleRate != 8000 || dec.NumChans != 2 {
		t.Errorf("unexpected format: %d Hz, %d channels", dec.SampleRate, dec.NumChans)
	}
	if frames := len(buf.Data) / 2; frames != 2000 {
		t.Errorf("expected 2000 frames for 250ms at 8kHz, got %d", frames)
	}
	if buf.Data[0] != 16383 {
		t.Errorf("expected first sample 16383, got %d", buf.Data[0])
	}
}
