// ABOUTME: Mixer application orchestration
// ABOUTME: Owns the engine, tracks started sounds and serves the TUI and remote control
package app

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Resonate-Protocol/resonate-mixer/internal/remote"
	"github.com/Resonate-Protocol/resonate-mixer/internal/scene"
	"github.com/Resonate-Protocol/resonate-mixer/internal/ui"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/spatial"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/tween"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/playback"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/sound"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/track"
)

// Config holds mixer configuration
type Config struct {
	Engine engine.Config

	// Open creates decoders for scene and remote files; nil uses decode.Open
	Open func(path string) (decode.Decoder, error)

	// VolumeFade smooths main volume changes from the TUI and remote
	VolumeFade time.Duration

	Logger *log.Logger
}

// Mixer is a running engine plus the bookkeeping the CLI surfaces need
type Mixer struct {
	config Config
	engine *engine.Manager
	scenes *scene.Player
	logger *log.Logger

	mu     sync.Mutex
	sounds []*entry
	tracks []*track.Handle
	volume audio.Decibels
}

type entry struct {
	id       uuid.UUID
	name     string
	duration time.Duration
	handle   *sound.Handle
}

// New starts the engine
func New(config Config) (*Mixer, error) {
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	if config.Engine.Logger == nil {
		config.Engine.Logger = config.Logger
	}

	e, err := engine.New(config.Engine)
	if err != nil {
		return nil, err
	}

	return &Mixer{
		config: config,
		engine: e,
		scenes: scene.NewPlayer(config.Open, config.Logger),
		logger: config.Logger.WithPrefix("mixer"),
		volume: config.Engine.MainTrack.Volume,
	}, nil
}

// Engine returns the underlying engine
func (m *Mixer) Engine() *engine.Manager {
	return m.engine
}

// LoadScene starts every sound in s
func (m *Mixer) LoadScene(s *scene.Scene) error {
	playing, tracks, err := m.scenes.Apply(s, m.engine, m.engine.Listener())

	m.mu.Lock()
	for _, p := range playing {
		m.sounds = append(m.sounds, &entry{id: p.Handle.ID(), name: p.Name, duration: p.Duration, handle: p.Handle})
	}
	m.tracks = append(m.tracks, tracks...)
	m.mu.Unlock()

	m.logger.Info("Scene loaded", "sounds", len(playing), "tracks", len(tracks))
	return err
}

// Play starts a single file on the main track
func (m *Mixer) Play(req remote.PlayRequest) (remote.Played, error) {
	snd := scene.Sound{
		File:      req.File,
		Streaming: req.Streaming,
		Volume:    audio.Decibels(req.VolumeDB),
		Start:     req.Start,
		FadeIn:    millis(req.FadeInMs),
	}
	if req.Loop != nil {
		snd.Loop = &scene.Loop{Start: req.Loop.Start, End: req.Loop.End}
	}

	playing, _, err := m.scenes.Apply(&scene.Scene{Sounds: []scene.Sound{snd}}, m.engine, nil)
	if err != nil {
		return remote.Played{}, err
	}

	p := playing[0]
	m.mu.Lock()
	m.sounds = append(m.sounds, &entry{id: p.Handle.ID(), name: p.Name, duration: p.Duration, handle: p.Handle})
	m.mu.Unlock()

	return remote.Played{SoundID: p.Handle.ID().String(), Name: p.Name, Duration: p.Duration.Seconds()}, nil
}

// Stop stops one sound, or every sound and track when req.SoundID is empty
func (m *Mixer) Stop(req remote.StopRequest) error {
	tw := tween.Tween{Duration: millis(req.FadeMs)}
	if req.SoundID == "" {
		m.StopAll(tw)
		return nil
	}

	e, err := m.find(req.SoundID)
	if err != nil {
		return err
	}
	e.handle.Stop(tw)
	return nil
}

// StopAll fades out every sound and sub-track
func (m *Mixer) StopAll(tw tween.Tween) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.sounds {
		e.handle.Stop(tw)
	}
	for _, t := range m.tracks {
		t.Stop(tw)
	}
	m.logger.Info("Stopping all sounds", "count", len(m.sounds))
}

// SetVolume changes a sound's volume, or the main track's when req.SoundID is empty
func (m *Mixer) SetVolume(req remote.VolumeRequest) error {
	tw := tween.Tween{Duration: millis(req.FadeMs)}
	db := audio.Decibels(req.VolumeDB)
	if req.SoundID == "" {
		m.SetMainVolume(db, tw)
		return nil
	}

	e, err := m.find(req.SoundID)
	if err != nil {
		return err
	}
	e.handle.SetVolume(db, tw)
	return nil
}

// SetMainVolume tweens the main track volume
func (m *Mixer) SetMainVolume(db audio.Decibels, tw tween.Tween) {
	m.mu.Lock()
	m.volume = db
	m.mu.Unlock()

	m.engine.MainTrack().SetVolume(db, tw)
	m.logger.Debug("Main volume", "db", float64(db))
}

// SetListener moves and turns the listener
func (m *Mixer) SetListener(req remote.ListenerRequest) error {
	tw := tween.Tween{Duration: millis(req.FadeMs)}
	listener := m.engine.Listener()
	listener.SetPosition(spatial.Vec3{X: req.Position[0], Y: req.Position[1], Z: req.Position[2]}, tw)
	listener.SetOrientation(spatial.FromAxisAngle(spatial.Vec3{Y: 1}, req.Yaw*math.Pi/180), tw)
	return nil
}

func (m *Mixer) find(id string) (*entry, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", remote.ErrSoundNotFound, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.sounds {
		if e.id == parsed {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", remote.ErrSoundNotFound, id)
}

// prune forgets sounds that have stopped. Caller holds mu.
func (m *Mixer) prune() {
	kept := m.sounds[:0]
	for _, e := range m.sounds {
		if e.handle.State() != playback.Stopped {
			kept = append(kept, e)
		}
	}
	clear(m.sounds[len(kept):])
	m.sounds = kept

	tracks := m.tracks[:0]
	for _, t := range m.tracks {
		if t.State() != playback.Stopped {
			tracks = append(tracks, t)
		}
	}
	clear(m.tracks[len(tracks):])
	m.tracks = tracks
}

// Active returns how many sounds are still playing or fading out
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune()
	return len(m.sounds)
}

// Status reports the engine and every live sound
func (m *Mixer) Status() remote.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune()

	status := remote.Status{
		Backend:     m.engine.Backend(),
		Device:      m.engine.Device(),
		SampleRate:  m.engine.SampleRate(),
		StreamState: m.engine.StreamState().String(),
		Restarts:    m.engine.Restarts(),
		VolumeDB:    float64(m.volume),
		Sounds:      make([]remote.SoundStatus, 0, len(m.sounds)),
	}
	for _, e := range m.sounds {
		status.Sounds = append(status.Sounds, remote.SoundStatus{
			ID:        e.id.String(),
			Name:      e.name,
			Position:  e.handle.Position(),
			Duration:  e.duration.Seconds(),
			State:     e.handle.State().String(),
			Streaming: e.handle.Streaming(),
			Error:     e.handle.EncounteredError(),
		})
	}
	return status
}

// UIStatus converts Status for the TUI
func (m *Mixer) UIStatus() ui.StatusMsg {
	s := m.Status()
	msg := ui.StatusMsg{
		Backend:     s.Backend,
		Device:      s.Device,
		SampleRate:  s.SampleRate,
		StreamState: s.StreamState,
		Restarts:    s.Restarts,
		Sounds:      make([]ui.SoundStatus, 0, len(s.Sounds)),
	}
	for _, snd := range s.Sounds {
		msg.Sounds = append(msg.Sounds, ui.SoundStatus{
			Name:      snd.Name,
			Position:  snd.Position,
			Duration:  snd.Duration,
			State:     snd.State,
			Streaming: snd.Streaming,
			Error:     snd.Error,
		})
	}
	return msg
}

// HandleControls applies TUI key commands until quit or done closes
func (m *Mixer) HandleControls(controls *ui.Controls, done <-chan struct{}) {
	for {
		select {
		case db := <-controls.Volume:
			m.SetMainVolume(db, tween.Tween{Duration: m.config.VolumeFade})
		case <-controls.StopAll:
			m.StopAll(tween.Tween{Duration: m.config.VolumeFade})
		case <-done:
			return
		}
	}
}

// Close stops the engine
func (m *Mixer) Close() error {
	return m.engine.Close()
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
