// ABOUTME: YAML scene description
// ABOUTME: Parses and validates listener, track and sound definitions for the CLI
package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/spatial"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/tween"
)

var (
	ErrNoFile        = errors.New("sound has no file")
	ErrBadVector     = errors.New("position needs 3 components")
	ErrBadStrength   = errors.New("spatialization strength must be within [0, 1]")
	ErrBadAttenuator = errors.New("attenuation max must not be below min")
)

// Scene is the top-level document
type Scene struct {
	Listener *Listener `yaml:"listener"`
	Sounds   []Sound   `yaml:"sounds"`
	Tracks   []Track   `yaml:"tracks"`

	// dir resolves relative sound paths
	dir string
}

// Listener places the listener. Yaw is in degrees, positive turns left.
type Listener struct {
	Position []float64 `yaml:"position"`
	Yaw      float64   `yaml:"yaw"`
}

// Track describes a sub-track and everything under it
type Track struct {
	Name    string         `yaml:"name"`
	Volume  audio.Decibels `yaml:"volume"`
	Persist bool           `yaml:"persist"`
	Spatial *Spatial       `yaml:"spatial"`
	Sounds  []Sound        `yaml:"sounds"`
	Tracks  []Track        `yaml:"tracks"`
}

// Spatial turns a track into an emitter
type Spatial struct {
	Position    []float64    `yaml:"position"`
	Strength    *float64     `yaml:"strength"`
	Attenuation *Attenuation `yaml:"attenuation"`
}

// Attenuation is the distance falloff of an emitter
type Attenuation struct {
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Easing string  `yaml:"easing"`
}

// Sound is one file to play
type Sound struct {
	Name      string         `yaml:"name"`
	File      string         `yaml:"file"`
	Streaming bool           `yaml:"streaming"`
	Volume    audio.Decibels `yaml:"volume"`
	Start     float64        `yaml:"start"`
	Loop      *Loop          `yaml:"loop"`
	FadeIn    time.Duration  `yaml:"fade_in"`
}

// Loop is a loop region in seconds; end 0 loops to the end of the file
type Loop struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// Load reads a scene file. Sound paths are relative to the file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// Parse decodes and validates a scene document
func Parse(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// FromFiles builds a scene playing each file once on the main track
func FromFiles(files []string, streaming bool) *Scene {
	s := &Scene{}
	for _, f := range files {
		s.Sounds = append(s.Sounds, Sound{File: f, Streaming: streaming})
	}
	return s
}

// Validate checks every track and sound
func (s *Scene) Validate() error {
	if s.Listener != nil && s.Listener.Position != nil {
		if _, err := vector(s.Listener.Position); err != nil {
			return fmt.Errorf("listener: %w", err)
		}
	}
	for i, snd := range s.Sounds {
		if err := snd.validate(); err != nil {
			return fmt.Errorf("sounds[%d]: %w", i, err)
		}
	}
	for i, t := range s.Tracks {
		if err := t.validate(); err != nil {
			return fmt.Errorf("tracks[%d]: %w", i, err)
		}
	}
	return nil
}

func (t Track) validate() error {
	if t.Spatial != nil {
		if _, err := vector(t.Spatial.Position); err != nil {
			return err
		}
		if st := t.Spatial.Strength; st != nil && (*st < 0 || *st > 1) {
			return fmt.Errorf("%w: %g", ErrBadStrength, *st)
		}
		if a := t.Spatial.Attenuation; a != nil {
			if a.Max < a.Min {
				return fmt.Errorf("%w: %g < %g", ErrBadAttenuator, a.Max, a.Min)
			}
			if _, err := tween.ParseEasing(a.Easing); err != nil {
				return err
			}
		}
	}
	for i, snd := range t.Sounds {
		if err := snd.validate(); err != nil {
			return fmt.Errorf("sounds[%d]: %w", i, err)
		}
	}
	for i, child := range t.Tracks {
		if err := child.validate(); err != nil {
			return fmt.Errorf("tracks[%d]: %w", i, err)
		}
	}
	return nil
}

func (s Sound) validate() error {
	if s.File == "" {
		return ErrNoFile
	}
	return nil
}

// Label names the sound for display
func (s Sound) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return filepath.Base(s.File)
}

func vector(v []float64) (spatial.Vec3, error) {
	if len(v) == 0 {
		return spatial.Vec3{}, nil
	}
	if len(v) != 3 {
		return spatial.Vec3{}, fmt.Errorf("%w, got %d", ErrBadVector, len(v))
	}
	return spatial.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}
