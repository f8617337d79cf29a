// ABOUTME: Tests for audio decoders
// ABOUTME: Tests WAV, raw PCM and in-memory decoding, seeking and format detection
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

func writeTestWAV(t *testing.T, frames int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ramp.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create wav: %v", err)
	}
	defer f.Close()

	data := make([]int, frames*2)
	for i := 0; i < frames; i++ {
		data[i*2] = i
		data[i*2+1] = -i
	}

	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close wav encoder: %v", err)
	}
	return path
}

func TestOpenWAV(t *testing.T) {
	path := writeTestWAV(t, 3000)

	d, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open wav: %v", err)
	}
	defer d.Close()

	if d.SampleRate() != 44100 {
		t.Errorf("expected sample rate 44100, got %d", d.SampleRate())
	}
	if d.NumFrames() != 3000 {
		t.Errorf("expected 3000 frames, got %d", d.NumFrames())
	}

	frames, err := ReadAll(d)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(frames) != 3000 {
		t.Fatalf("expected 3000 decoded frames, got %d", len(frames))
	}

	expected := audio.SampleFromInt(1234, 16)
	if frames[1234].Left != expected || frames[1234].Right != -expected {
		t.Errorf("expected frame 1234 = (%f, %f), got %+v", expected, -expected, frames[1234])
	}
}

func TestWAVSeek(t *testing.T) {
	path := writeTestWAV(t, 3000)

	d, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open wav: %v", err)
	}
	defer d.Close()

	if _, err := ReadAll(d); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	actual, err := d.Seek(2500)
	if err != nil {
		t.Fatalf("seek failed: %v", err)
	}
	if actual > 2500 {
		t.Fatalf("seek overshot: reached %d", actual)
	}

	chunk, err := d.Decode()
	if err != nil {
		t.Fatalf("decode after seek failed: %v", err)
	}
	offset := 2500 - actual
	if offset >= int64(len(chunk)) {
		t.Fatalf("chunk starting at %d does not cover 2500", actual)
	}
	expected := audio.SampleFromInt(2500, 16)
	if chunk[offset].Left != expected {
		t.Errorf("expected %f at frame 2500, got %f", expected, chunk[offset].Left)
	}

	if _, err := d.Seek(5000); !errors.Is(err, ErrSeekOutOfRange) {
		t.Errorf("expected ErrSeekOutOfRange, got %v", err)
	}
}

func TestNewWAVInvalid(t *testing.T) {
	_, err := NewWAV(bytes.NewReader([]byte("definitely not a riff file")))
	if !errors.Is(err, ErrInvalidFile) {
		t.Errorf("expected ErrInvalidFile, got %v", err)
	}
}

func TestPCM16Bit(t *testing.T) {
	raw := new(bytes.Buffer)
	samples := []int16{16384, -16384, 0, 32767}
	for _, s := range samples {
		binary.Write(raw, binary.LittleEndian, s)
	}

	d, err := NewPCM(bytes.NewReader(raw.Bytes()), audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	if d.NumFrames() != 2 {
		t.Fatalf("expected 2 frames, got %d", d.NumFrames())
	}

	frames, err := d.Decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if frames[0].Left != 0.5 || frames[0].Right != -0.5 {
		t.Errorf("expected (0.5, -0.5), got %+v", frames[0])
	}

	if _, err := d.Decode(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestPCM24BitMono(t *testing.T) {
	// 0x400000 is half of full scale in 24-bit
	raw := []byte{0x00, 0x00, 0x40, 0x00, 0x00, 0xC0}

	d, err := NewPCM(bytes.NewReader(raw), audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 24})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	frames, err := d.Decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0] != audio.FromMono(0.5) {
		t.Errorf("expected mono 0.5 on both channels, got %+v", frames[0])
	}
	if frames[1] != audio.FromMono(-0.5) {
		t.Errorf("expected mono -0.5 on both channels, got %+v", frames[1])
	}
}

func TestNewPCMRejectsFormat(t *testing.T) {
	tests := []struct {
		name   string
		format audio.Format
	}{
		{"wrong codec", audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16}},
		{"8 bit", audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 8}},
		{"no channels", audio.Format{SampleRate: 48000, Channels: 0, BitDepth: 16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPCM(bytes.NewReader(nil), tt.format)
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("expected ErrUnsupportedFormat, got %v", err)
			}
		})
	}
}

func TestMemoryDecoder(t *testing.T) {
	frames := make([]audio.Frame, 10)
	for i := range frames {
		frames[i] = audio.FromMono(float32(i))
	}
	d := NewMemory(48000, frames, 4)

	chunk, err := d.Decode()
	if err != nil || len(chunk) != 4 {
		t.Fatalf("expected first chunk of 4, got %d (%v)", len(chunk), err)
	}

	if _, err := d.Seek(8); err != nil {
		t.Fatalf("seek failed: %v", err)
	}
	chunk, err = d.Decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(chunk) != 2 || chunk[0].Left != 8 {
		t.Errorf("expected frames 8 and 9, got %+v", chunk)
	}

	if _, err := d.Decode(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestOpenUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestCodecsRejectGarbage(t *testing.T) {
	garbage := bytes.Repeat([]byte{0x13, 0x37}, 64)

	if _, err := NewFLAC(bytes.NewReader(garbage)); err == nil {
		t.Error("expected flac error for garbage input")
	}
	if _, err := NewVorbis(bytes.NewReader(garbage)); err == nil {
		t.Error("expected vorbis error for garbage input")
	}
	if _, err := NewOpus(bytes.NewReader(garbage)); !errors.Is(err, ErrInvalidFile) {
		t.Errorf("expected ErrInvalidFile from opus, got %v", err)
	}
}
