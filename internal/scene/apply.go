// ABOUTME: Scene playback
// ABOUTME: Builds the track tree and starts every sound of a scene on a mixer target
package scene

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/spatial"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/tween"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/sound"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/track"
)

// Target is anything sounds and sub-tracks can be added to.
// Both the engine manager and track handles qualify.
type Target interface {
	Play(data sound.Data) (*sound.Handle, error)
	AddSubTrack(b track.Builder) (*track.Handle, error)
	AddSpatialSubTrack(s track.SpatialSettings, b track.Builder) (*track.Handle, error)
}

// ListenerTarget receives the listener pose
type ListenerTarget interface {
	SetPosition(p spatial.Vec3, tw tween.Tween)
	SetOrientation(q spatial.Quat, tw tween.Tween)
}

// Playing is a started sound
type Playing struct {
	Name     string
	Duration time.Duration
	Handle   *sound.Handle
}

// Player starts scenes. Apply never writes to the Player, so one Player
// can serve concurrent callers.
type Player struct {
	// Open creates decoders; nil uses decode.Open
	Open   func(path string) (decode.Decoder, error)
	Logger *log.Logger
}

// NewPlayer returns a Player with open and logger defaulted
func NewPlayer(open func(path string) (decode.Decoder, error), logger *log.Logger) *Player {
	if open == nil {
		open = decode.Open
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Player{Open: open, Logger: logger}
}

// Apply builds the scene under target and returns the started sounds.
// Sounds started before a failure keep playing.
func (p *Player) Apply(s *Scene, target Target, listener ListenerTarget) ([]Playing, []*track.Handle, error) {
	open, logger := p.Open, p.Logger
	if open == nil {
		open = decode.Open
	}
	if logger == nil {
		logger = log.Default()
	}

	if s.Listener != nil && listener != nil {
		pos, _ := vector(s.Listener.Position)
		listener.SetPosition(pos, tween.Immediate)
		listener.SetOrientation(spatial.FromAxisAngle(spatial.Vec3{Y: 1}, s.Listener.Yaw*math.Pi/180), tween.Immediate)
	}

	a := applier{open: open, logger: logger, dir: s.dir}
	err := a.add(target, s.Sounds, s.Tracks)
	return a.playing, a.tracks, err
}

type applier struct {
	open    func(path string) (decode.Decoder, error)
	logger  *log.Logger
	dir     string
	playing []Playing
	tracks  []*track.Handle
}

func (a *applier) add(target Target, sounds []Sound, tracks []Track) error {
	for _, snd := range sounds {
		if err := a.play(target, snd); err != nil {
			return err
		}
	}
	for _, t := range tracks {
		handle, err := a.addTrack(target, t)
		if err != nil {
			return fmt.Errorf("failed to add track %q: %w", t.Name, err)
		}
		a.tracks = append(a.tracks, handle)
		if err := a.add(handle, t.Sounds, t.Tracks); err != nil {
			return err
		}
	}
	return nil
}

func (a *applier) addTrack(target Target, t Track) (*track.Handle, error) {
	b := track.Builder{Volume: t.Volume, PersistUntilSoundsFinish: t.Persist}
	if t.Spatial == nil {
		return target.AddSubTrack(b)
	}

	pos, err := vector(t.Spatial.Position)
	if err != nil {
		return nil, err
	}
	settings := track.DefaultSpatialSettings(pos)
	if t.Spatial.Strength != nil {
		settings.Strength = *t.Spatial.Strength
	}
	if att := t.Spatial.Attenuation; att != nil {
		easing, err := tween.ParseEasing(att.Easing)
		if err != nil {
			return nil, err
		}
		settings.Attenuation = &spatial.Attenuation{
			Range:  spatial.DistanceRange{Min: att.Min, Max: att.Max},
			Easing: easing,
		}
	}
	return target.AddSpatialSubTrack(settings, b)
}

func (a *applier) play(target Target, snd Sound) error {
	path := snd.File
	if a.dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(a.dir, path)
	}

	settings := sound.Settings{Volume: snd.Volume, StartPosition: snd.Start}
	if snd.Loop != nil {
		settings.LoopRegion = &sound.LoopRegion{Start: snd.Loop.Start, End: snd.Loop.End}
	}
	if snd.FadeIn > 0 {
		settings.FadeIn = &tween.Tween{Duration: snd.FadeIn}
	}

	d, err := a.open(path)
	if err != nil {
		return err
	}

	var data sound.Data
	var duration time.Duration
	if snd.Streaming {
		data = &sound.StreamingData{Decoder: d, Settings: settings, Logger: a.logger}
		if rate := d.SampleRate(); rate > 0 {
			duration = time.Duration(d.NumFrames()) * time.Second / time.Duration(rate)
		}
	} else {
		static, err := sound.StaticFromDecoder(d, settings)
		d.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		data = static
		duration = static.Duration()
	}

	handle, err := target.Play(data)
	if err != nil {
		if snd.Streaming {
			d.Close()
		}
		return fmt.Errorf("failed to play %s: %w", path, err)
	}

	a.logger.Debug("Sound started", "file", path, "streaming", snd.Streaming, "id", handle.ID())
	a.playing = append(a.playing, Playing{Name: snd.Label(), Duration: duration, Handle: handle})
	return nil
}
