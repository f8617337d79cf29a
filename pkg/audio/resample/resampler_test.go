// ABOUTME: Tests for the resampling window
// ABOUTME: Tests shifting, interpolation anchors and silence detection
package resample

import (
	"testing"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

func TestPushShiftsWindow(t *testing.T) {
	r := New(0)
	for i := 0; i < 4; i++ {
		r.Push(audio.FromMono(float32(i)), int64(i))
	}

	if got := r.Output(0); got.Left != 1 {
		t.Errorf("expected inner frame 1 at x=0, got %f", got.Left)
	}
	if got := r.Output(1); got.Left < 1.999 || got.Left > 2.001 {
		t.Errorf("expected inner frame 2 at x=1, got %f", got.Left)
	}
	if r.CurrentIndex() != 1 {
		t.Errorf("expected current index 1, got %d", r.CurrentIndex())
	}
}

func TestOutputtingSilence(t *testing.T) {
	r := New(5)
	if r.OutputtingSilence() {
		t.Error("fresh window carries the start index and should not report silence")
	}

	r.Push(audio.FromMono(0.5), 5)
	for i := 0; i < 3; i++ {
		if r.OutputtingSilence() {
			t.Fatalf("window still holds a real frame after %d silent pushes", i)
		}
		r.Push(audio.Zero, -1)
	}
	r.Push(audio.Zero, -1)
	if !r.OutputtingSilence() {
		t.Error("expected window to be silent after four silent pushes")
	}
}

func TestReset(t *testing.T) {
	r := New(0)
	r.Push(audio.FromMono(1), 0)
	r.Reset(10)

	if r.CurrentIndex() != 10 {
		t.Errorf("expected current index 10, got %d", r.CurrentIndex())
	}
	if got := r.Output(0.5); got != audio.Zero {
		t.Errorf("expected silence after reset, got %+v", got)
	}
}
