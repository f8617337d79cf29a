// ABOUTME: Playback position tracker
// ABOUTME: Advances one source frame at a time and wraps inside an optional loop region
package playback

// Region is a half-open range of source frames [Start, End)
type Region struct {
	Start int64
	End   int64
}

// Transport tracks the next source frame to play.
// Position stays below NumFrames while Playing is true.
type Transport struct {
	Position  int64
	Playing   bool
	NumFrames int64
	Loop      *Region
}

// NewTransport starts at position. A loop region is clamped to the sound.
func NewTransport(numFrames, position int64, loop *Region) Transport {
	t := Transport{NumFrames: numFrames}
	if loop != nil {
		r := *loop
		r.End = min(r.End, numFrames)
		if r.End <= 0 {
			r.End = numFrames
		}
		r.Start = max(r.Start, 0)
		if r.Start < r.End {
			t.Loop = &r
		}
	}
	t.Seek(position)
	return t
}

// Seek jumps to index. Seeking past the end stops playback unless a loop
// region can take over.
func (t *Transport) Seek(index int64) {
	index = max(index, 0)
	if t.Loop != nil && index >= t.Loop.End {
		index = t.Loop.Start
	}
	if index >= t.NumFrames {
		t.Position = t.NumFrames
		t.Playing = false
		return
	}
	t.Position = index
	t.Playing = true
}

// Increment moves to the next frame
func (t *Transport) Increment() {
	if !t.Playing {
		return
	}
	t.Position++
	if t.Loop != nil && t.Position >= t.Loop.End {
		t.Position = t.Loop.Start
		return
	}
	if t.Position >= t.NumFrames {
		t.Playing = false
	}
}
