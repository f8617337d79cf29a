// ABOUTME: Mixing graph node
// ABOUTME: Sums sounds and sub-tracks, spatializes the mix and applies volume and fades
package track

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/resonate-mixer/internal/ringbuf"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/spatial"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/tween"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/playback"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/sound"
)

// Emitter is a spatial position over one buffer
type Emitter struct {
	Previous spatial.Vec3
	Current  spatial.Vec3
}

// At returns the position at fraction amount through the buffer
func (e *Emitter) At(amount float64) spatial.Vec3 {
	if e == nil {
		return spatial.Vec3{}
	}
	return spatial.LerpVec3(e.Previous, e.Current, amount)
}

// shared is the track state visible to handles
type shared struct {
	state        atomic.Uint32
	removed      atomic.Bool
	numSounds    atomic.Int32
	numSubTracks atomic.Int32
}

type spatialState struct {
	position    *tween.Parameter[spatial.Vec3]
	positionCmd *tween.CommandReader[spatial.Vec3]
	strength    *tween.Parameter[float64]
	strengthCmd *tween.CommandReader[float64]
	attenuation *spatial.Attenuation
	emitter     Emitter
}

// Track is a node in the mixing graph. It is owned by the audio goroutine.
type Track struct {
	id     uuid.UUID
	shared *shared
	parent *shared

	volume    *tween.Parameter[audio.Decibels]
	volumeCmd *tween.CommandReader[audio.Decibels]
	state     *playback.StateManager
	stopCmd   *playback.StopReader
	spatial   *spatialState

	persistUntilSoundsFinish bool

	sounds       []sound.Sound
	subTracks    []*Track
	newSounds    *ringbuf.Consumer[sound.Sound]
	newSubTracks *ringbuf.Consumer[*Track]

	scratch []audio.Frame
}

// New creates a root track and its handle. Every buffer passed to Process
// is mixed in blocks of at most blockSize frames.
func New(b Builder, blockSize int) (*Track, *Handle) {
	return newTrack(b, blockSize, nil)
}

func newTrack(b Builder, blockSize int, parent *shared) (*Track, *Handle) {
	b = b.withDefaults()
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	volumeW, volumeR := tween.NewCommandPair[audio.Decibels]()
	stopW, stopR := playback.NewStopCommand()
	soundsP, soundsC := ringbuf.New[sound.Sound](b.SoundCapacity)
	subTracksP, subTracksC := ringbuf.New[*Track](b.SubTrackCapacity)

	t := &Track{
		id:                       uuid.New(),
		shared:                   &shared{},
		parent:                   parent,
		volume:                   tween.NewDecibels(b.Volume),
		volumeCmd:                volumeR,
		state:                    playback.NewStateManager(nil),
		stopCmd:                  stopR,
		persistUntilSoundsFinish: b.PersistUntilSoundsFinish,
		sounds:                   make([]sound.Sound, 0, b.SoundCapacity),
		subTracks:                make([]*Track, 0, b.SubTrackCapacity),
		newSounds:                soundsC,
		newSubTracks:             subTracksC,
		scratch:                  make([]audio.Frame, blockSize),
	}
	h := &Handle{
		id:               t.id,
		shared:           t.shared,
		volume:           volumeW,
		stop:             stopW,
		sounds:           soundsP,
		subTracks:        subTracksP,
		soundCapacity:    b.SoundCapacity,
		subTrackCapacity: b.SubTrackCapacity,
		blockSize:        blockSize,
	}

	if s := b.Spatial; s != nil {
		positionW, positionR := tween.NewCommandPair[spatial.Vec3]()
		strengthW, strengthR := tween.NewCommandPair[float64]()
		t.spatial = &spatialState{
			position:    tween.NewParameter(s.Position, spatial.LerpVec3),
			positionCmd: positionR,
			strength:    tween.NewFloat(clampStrength(s.Strength)),
			strengthCmd: strengthR,
			attenuation: s.Attenuation,
		}
		h.position = positionW
		h.strength = strengthW
	}
	return t, h
}

// ID identifies the track
func (t *Track) ID() uuid.UUID { return t.id }

// OnStartProcessing applies commands, adopts queued children and drops the
// ones that are done, depth first
func (t *Track) OnStartProcessing() {
	t.volume.ReadCommand(t.volumeCmd)
	t.state.ReadCommands(t.stopCmd)
	if s := t.spatial; s != nil {
		s.position.ReadCommand(s.positionCmd)
		if cmd, ok := s.strengthCmd.Read(); ok {
			s.strength.Set(clampStrength(cmd.Target), cmd.Tween)
		}
	}

	for {
		s, ok := t.newSounds.Pop()
		if !ok {
			break
		}
		t.sounds = append(t.sounds, s)
	}
	for {
		sub, ok := t.newSubTracks.Pop()
		if !ok {
			break
		}
		t.subTracks = append(t.subTracks, sub)
	}

	for _, s := range t.sounds {
		s.OnStartProcessing()
	}
	kept := t.sounds[:0]
	for _, s := range t.sounds {
		if s.Finished() {
			releaseSound(s)
			t.shared.numSounds.Add(-1)
			continue
		}
		kept = append(kept, s)
	}
	clear(t.sounds[len(kept):])
	t.sounds = kept

	for _, sub := range t.subTracks {
		sub.OnStartProcessing()
	}
	keptTracks := t.subTracks[:0]
	for _, sub := range t.subTracks {
		if sub.shouldBeRemoved() {
			sub.Release()
			continue
		}
		keptTracks = append(keptTracks, sub)
	}
	clear(t.subTracks[len(keptTracks):])
	t.subTracks = keptTracks
}

func (t *Track) shouldBeRemoved() bool {
	if t.state.State() == playback.Stopped {
		return true
	}
	if !t.shared.removed.Load() {
		return false
	}
	return !t.persistUntilSoundsFinish || t.shared.numSounds.Load() == 0
}

// Release drops every child and frees the slot in the parent.
// It must only run once nothing processes the track.
func (t *Track) Release() {
	for _, s := range t.sounds {
		releaseSound(s)
	}
	clear(t.sounds)
	t.sounds = t.sounds[:0]
	for {
		s, ok := t.newSounds.Pop()
		if !ok {
			break
		}
		releaseSound(s)
	}
	for _, sub := range t.subTracks {
		sub.Release()
	}
	clear(t.subTracks)
	t.subTracks = t.subTracks[:0]
	for {
		sub, ok := t.newSubTracks.Pop()
		if !ok {
			break
		}
		sub.Release()
	}

	t.shared.state.Store(uint32(playback.Stopped))
	if t.parent != nil {
		t.parent.numSubTracks.Add(-1)
	}
}

func releaseSound(s sound.Sound) {
	if r, ok := s.(sound.Releaser); ok {
		r.Release()
	}
}

// Process mixes the track into out. listener is nil when nothing in the
// scene listens; parent is the position of the nearest spatial ancestor.
func (t *Track) Process(out []audio.Frame, dt float64, listener *spatial.ListenerInfo, parent *Emitter) {
	for len(out) > len(t.scratch) {
		t.processBlock(out[:len(t.scratch)], dt, listener, parent)
		out = out[len(t.scratch):]
	}
	t.processBlock(out, dt, listener, parent)
}

func (t *Track) processBlock(out []audio.Frame, dt float64, listener *spatial.ListenerInfo, parent *Emitter) {
	n := len(out)
	if n == 0 {
		return
	}
	elapsed := dt * float64(n)
	t.volume.Update(elapsed)
	t.state.Update(elapsed)
	t.shared.state.Store(uint32(t.state.State()))
	if s := t.spatial; s != nil {
		s.position.Update(elapsed)
		s.strength.Update(elapsed)
	}

	clear(out)
	if !t.state.Advancing() {
		return
	}

	emitter := t.emitter(parent)
	scratch := t.scratch[:n]
	for _, sub := range t.subTracks {
		sub.Process(scratch, dt, listener, emitter)
		mixInto(out, scratch)
		clear(scratch)
	}
	for _, s := range t.sounds {
		s.Process(scratch, dt)
		mixInto(out, scratch)
		clear(scratch)
	}

	if t.spatial != nil && listener != nil {
		t.spatialize(out, listener, emitter)
	}

	for i := range out {
		amount := float64(i) / float64(n)
		gain := t.volume.InterpolatedValue(amount).Amplitude() * t.state.InterpolatedFade(amount)
		out[i] = out[i].Scale(float32(gain))
	}
}

// emitter returns the absolute position children see
func (t *Track) emitter(parent *Emitter) *Emitter {
	s := t.spatial
	if s == nil {
		return parent
	}
	s.emitter = Emitter{
		Previous: s.position.PreviousValue(),
		Current:  s.position.Value(),
	}
	if parent != nil {
		s.emitter.Previous = s.emitter.Previous.Add(parent.Previous)
		s.emitter.Current = s.emitter.Current.Add(parent.Current)
	}
	return &s.emitter
}

// spatialize pans and attenuates out using the listener pose at each slot
func (t *Track) spatialize(out []audio.Frame, listener *spatial.ListenerInfo, emitter *Emitter) {
	s := t.spatial
	n := len(out)
	for i := range out {
		amount := float64(i) / float64(n)
		position := emitter.At(amount)
		listenerPosition, orientation := listener.Interpolate(amount)

		left, right := spatial.EarGains(listenerPosition, orientation, position)
		frame := spatial.Pan(out[i], left, right, s.strength.InterpolatedValue(amount))
		if s.attenuation != nil {
			frame = frame.Scale(float32(s.attenuation.Gain(listenerPosition.Distance(position))))
		}
		out[i] = frame
	}
}

func mixInto(out, in []audio.Frame) {
	for i := range out {
		out[i] = out[i].Add(in[i])
	}
}

func clampStrength(v float64) float64 {
	return min(max(v, 0), 1)
}
