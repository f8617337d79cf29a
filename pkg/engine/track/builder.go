// ABOUTME: Track construction settings
// ABOUTME: Capacities, initial volume, removal policy and spatial configuration
package track

import (
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/spatial"
)

const (
	DefaultSoundCapacity    = 128
	DefaultSubTrackCapacity = 128
	DefaultBlockSize        = 512

	// DefaultSpatializationStrength keeps some of the signal in both ears
	DefaultSpatializationStrength = 0.75
)

// Builder configures a new track
type Builder struct {
	Volume           audio.Decibels
	SoundCapacity    int
	SubTrackCapacity int
	// PersistUntilSoundsFinish keeps a removed track alive until its sounds end
	PersistUntilSoundsFinish bool
	// Spatial makes the track an emitter; nil leaves the signal unpanned
	Spatial *SpatialSettings
}

// SpatialSettings places a track in the scene
type SpatialSettings struct {
	// Position is relative to the nearest spatial ancestor
	Position spatial.Vec3
	// Strength in [0, 1]; 0 sends the same signal to both ears
	Strength float64
	// Attenuation scales volume by distance; nil disables it
	Attenuation *spatial.Attenuation
}

// DefaultSpatialSettings returns settings with distance attenuation enabled
func DefaultSpatialSettings(position spatial.Vec3) SpatialSettings {
	return SpatialSettings{
		Position:    position,
		Strength:    DefaultSpatializationStrength,
		Attenuation: &spatial.Attenuation{Range: spatial.DefaultDistanceRange},
	}
}

func (b Builder) withDefaults() Builder {
	if b.SoundCapacity <= 0 {
		b.SoundCapacity = DefaultSoundCapacity
	}
	if b.SubTrackCapacity <= 0 {
		b.SubTrackCapacity = DefaultSubTrackCapacity
	}
	return b
}
