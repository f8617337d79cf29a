// ABOUTME: Control-side track handle
// ABOUTME: Queues sounds and sub-tracks and sends volume, stop and spatial commands
package track

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/resonate-mixer/internal/ringbuf"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/spatial"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/tween"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/playback"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/sound"
)

// Handle controls a track from any goroutine
type Handle struct {
	id     uuid.UUID
	shared *shared

	volume   *tween.CommandWriter[audio.Decibels]
	stop     *playback.StopCommand
	position *tween.CommandWriter[spatial.Vec3]
	strength *tween.CommandWriter[float64]

	// mu serializes producers; each queue has a single consumer
	mu               sync.Mutex
	sounds           *ringbuf.Producer[sound.Sound]
	subTracks        *ringbuf.Producer[*Track]
	soundCapacity    int
	subTrackCapacity int
	blockSize        int
}

// ID identifies the track
func (h *Handle) ID() uuid.UUID { return h.id }

// Play starts a sound on this track
func (h *Handle) Play(data sound.Data) (*sound.Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.checkAlive(); err != nil {
		return nil, err
	}
	if int(h.shared.numSounds.Load()) >= h.soundCapacity {
		return nil, ErrSoundLimitReached
	}

	s, sh, err := data.Split()
	if err != nil {
		return nil, err
	}
	if !h.sounds.Push(s) {
		releaseSound(s)
		return nil, ErrSoundLimitReached
	}
	h.shared.numSounds.Add(1)
	return sh, nil
}

// AddSubTrack creates a child track
func (h *Handle) AddSubTrack(b Builder) (*Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.checkAlive(); err != nil {
		return nil, err
	}
	if int(h.shared.numSubTracks.Load()) >= h.subTrackCapacity {
		return nil, ErrSubTrackLimitReached
	}

	t, th := newTrack(b, h.blockSize, h.shared)
	if !h.subTracks.Push(t) {
		return nil, ErrSubTrackLimitReached
	}
	h.shared.numSubTracks.Add(1)
	return th, nil
}

// AddSpatialSubTrack creates a child track that emits from a point in the scene
func (h *Handle) AddSpatialSubTrack(s SpatialSettings, b Builder) (*Handle, error) {
	b.Spatial = &s
	return h.AddSubTrack(b)
}

func (h *Handle) checkAlive() error {
	if h.shared.removed.Load() || playback.State(h.shared.state.Load()) == playback.Stopped {
		return ErrTrackRemoved
	}
	return nil
}

// SetVolume tweens the track volume
func (h *Handle) SetVolume(db audio.Decibels, tw tween.Tween) {
	h.volume.Write(db, tw)
}

// Stop fades the track out; once silent it leaves the graph with its children
func (h *Handle) Stop(tw tween.Tween) {
	h.stop.Write(struct{}{}, tw)
}

// SetPosition moves a spatial track. It does nothing on other tracks.
func (h *Handle) SetPosition(p spatial.Vec3, tw tween.Tween) {
	if h.position != nil {
		h.position.Write(p, tw)
	}
}

// SetSpatializationStrength changes how strongly a spatial track is panned.
// Values are clamped to [0, 1].
func (h *Handle) SetSpatializationStrength(strength float64, tw tween.Tween) {
	if h.strength != nil {
		h.strength.Write(strength, tw)
	}
}

// Spatial reports whether the track emits from a position
func (h *Handle) Spatial() bool { return h.position != nil }

// Remove detaches the track from its parent
func (h *Handle) Remove() {
	h.shared.removed.Store(true)
}

// State returns the track playback state
func (h *Handle) State() playback.State {
	return playback.State(h.shared.state.Load())
}

// NumSounds returns how many sounds are queued or playing
func (h *Handle) NumSounds() int {
	return int(h.shared.numSounds.Load())
}

// NumSubTracks returns how many child tracks are queued or attached
func (h *Handle) NumSubTracks() int {
	return int(h.shared.numSubTracks.Load())
}
