// ABOUTME: Sound capability, settings and handles
// ABOUTME: Shared volume, fade and command plumbing used by static and streaming sounds
package sound

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/tween"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/playback"
)

// A rate mismatch below this many Hz plays without resampling
const rateEpsilon = 0.01

// Sound is a playable unit owned by a track on the audio goroutine
type Sound interface {
	// OnStartProcessing runs once per device buffer before Process
	OnStartProcessing()

	// Process fills out; dt is the duration of one output frame in seconds
	Process(out []audio.Frame, dt float64)

	// Finished reports whether the sound has stopped for good
	Finished() bool
}

// Releaser is implemented by sounds that need to know when their track drops them
type Releaser interface {
	Release()
}

// Data can be turned into a sound and the handle controlling it
type Data interface {
	Split() (Sound, *Handle, error)
}

// LoopRegion is a loop range in seconds. End 0 means the end of the sound.
type LoopRegion struct {
	Start float64
	End   float64
}

// Settings configures a sound when it starts
type Settings struct {
	Volume audio.Decibels
	// StartPosition is in seconds
	StartPosition float64
	LoopRegion    *LoopRegion
	FadeIn        *tween.Tween
}

// region converts the loop region to frame indices
func (s Settings) region(sampleRate int, numFrames int64) (*playback.Region, error) {
	if s.LoopRegion == nil {
		return nil, nil
	}
	start := int64(math.Round(s.LoopRegion.Start * float64(sampleRate)))
	end := numFrames
	if s.LoopRegion.End > 0 {
		end = int64(math.Round(s.LoopRegion.End * float64(sampleRate)))
	}
	if start < 0 || end <= start || start >= numFrames {
		return nil, fmt.Errorf("%w: %.3fs to %.3fs", ErrInvalidLoopRegion, s.LoopRegion.Start, s.LoopRegion.End)
	}
	return &playback.Region{Start: start, End: end}, nil
}

func (s Settings) startFrame(sampleRate int) int64 {
	return int64(math.Round(s.StartPosition * float64(sampleRate)))
}

// Handle controls a playing sound from any goroutine
type Handle struct {
	id        uuid.UUID
	shared    *playback.Shared
	volume    *tween.CommandWriter[audio.Decibels]
	stop      *playback.StopCommand
	streaming bool
}

// ID identifies the sound in logs and remote commands
func (h *Handle) ID() uuid.UUID { return h.id }

// Streaming reports whether the sound is decoded on the fly
func (h *Handle) Streaming() bool { return h.streaming }

// SetVolume tweens the volume to db
func (h *Handle) SetVolume(db audio.Decibels, tw tween.Tween) {
	h.volume.Write(db, tw)
}

// Stop fades the sound out over tw and then stops it
func (h *Handle) Stop(tw tween.Tween) {
	h.stop.Write(struct{}{}, tw)
}

// Position returns the playback position in seconds
func (h *Handle) Position() float64 { return h.shared.Position() }

// State returns the playback state
func (h *Handle) State() playback.State { return h.shared.State() }

// ReachedEnd reports whether the source has been fully read
func (h *Handle) ReachedEnd() bool { return h.shared.ReachedEnd() }

// EncounteredError reports whether decoding failed
func (h *Handle) EncounteredError() bool { return h.shared.EncounteredError() }

// core is the state both sound kinds share
type core struct {
	shared    *playback.Shared
	volume    *tween.Parameter[audio.Decibels]
	volumeCmd *tween.CommandReader[audio.Decibels]
	stopCmd   *playback.StopReader
	state     *playback.StateManager

	resampleDecided bool
	resampling      bool
}

func newCore(settings Settings, streaming bool, position float64) (core, *Handle) {
	volumeW, volumeR := tween.NewCommandPair[audio.Decibels]()
	stopW, stopR := playback.NewStopCommand()
	shared := playback.NewShared(position)

	c := core{
		shared:    shared,
		volume:    tween.NewDecibels(settings.Volume),
		volumeCmd: volumeR,
		stopCmd:   stopR,
		state:     playback.NewStateManager(settings.FadeIn),
	}
	h := &Handle{
		id:        uuid.New(),
		shared:    shared,
		volume:    volumeW,
		stop:      stopW,
		streaming: streaming,
	}
	return c, h
}

func (c *core) readCommands() {
	c.volume.ReadCommand(c.volumeCmd)
	c.state.ReadCommands(c.stopCmd)
}

// advance moves the volume and fade forward by one buffer and reports
// whether the sound should produce audio
func (c *core) advance(dt float64, frames int) bool {
	elapsed := dt * float64(frames)
	c.volume.Update(elapsed)
	c.state.Update(elapsed)
	c.shared.SetState(c.state.State())
	return c.state.Advancing()
}

// decideResampling fixes the path for the rest of the sound's life
func (c *core) decideResampling(dt float64, sampleRate int) {
	if c.resampleDecided {
		return
	}
	c.resampleDecided = true
	c.resampling = math.Abs(1/dt-float64(sampleRate)) > rateEpsilon
}

// gain returns volume times fade for slot i of n
func (c *core) gain(i, n int) float32 {
	amount := float64(i) / float64(n)
	return float32(c.volume.InterpolatedValue(amount).Amplitude() * c.state.InterpolatedFade(amount))
}

func (c *core) finish() {
	c.state.Finish()
	c.shared.SetState(playback.Stopped)
}

// Release marks the sound stopped for its handle and lets a decode goroutine exit.
// Tracks call it when they drop the sound, finished or not.
func (c *core) Release() {
	c.shared.SetState(playback.Stopped)
	c.shared.Release()
}

// Finished reports whether the sound has stopped
func (c *core) Finished() bool {
	return c.state.State() == playback.Stopped
}

func silence(out []audio.Frame) {
	clear(out)
}
