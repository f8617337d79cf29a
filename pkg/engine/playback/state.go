// ABOUTME: Playback state machine with fade-out
// ABOUTME: Moves Playing to Stopping to Stopped while a fade volume tweens to zero
package playback

import (
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/tween"
)

// State is the playback state of a sound or track
type State uint32

const (
	Playing State = iota
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StopCommand is the writer half of a stop request slot
type StopCommand = tween.CommandWriter[struct{}]

// StopReader is the reader half of a stop request slot
type StopReader = tween.CommandReader[struct{}]

// NewStopCommand creates a stop request slot
func NewStopCommand() (*StopCommand, *StopReader) {
	return tween.NewCommandPair[struct{}]()
}

// StateManager owns the fade volume and the state derived from it
type StateManager struct {
	state State
	fade  *tween.Parameter[float64]
}

// NewStateManager starts playing. A non-nil fadeIn ramps the fade volume up from zero.
func NewStateManager(fadeIn *tween.Tween) *StateManager {
	m := &StateManager{state: Playing}
	if fadeIn != nil {
		m.fade = tween.NewFloat(0)
		m.fade.Set(1, *fadeIn)
	} else {
		m.fade = tween.NewFloat(1)
	}
	return m
}

// State returns the current state
func (m *StateManager) State() State {
	return m.state
}

// Advancing reports whether the owner should keep producing audio
func (m *StateManager) Advancing() bool {
	return m.state != Stopped
}

// Stop begins a fade-out. A zero-length fade stops immediately.
func (m *StateManager) Stop(tw tween.Tween) {
	if m.state == Stopped {
		return
	}
	if tw.Duration <= 0 {
		m.fade = tween.NewFloat(0)
		m.state = Stopped
		return
	}
	m.fade.Set(0, tw)
	m.state = Stopping
}

// Finish stops immediately, used when the source runs out
func (m *StateManager) Finish() {
	m.state = Stopped
}

// ReadCommands applies a pending stop request
func (m *StateManager) ReadCommands(stop *StopReader) {
	if stop == nil {
		return
	}
	if cmd, ok := stop.Read(); ok {
		m.Stop(cmd.Tween)
	}
}

// Update advances the fade by dt seconds
func (m *StateManager) Update(dt float64) {
	finished := m.fade.Update(dt)
	if m.state == Stopping && finished {
		m.state = Stopped
	}
}

// Fade returns the fade volume after the last Update
func (m *StateManager) Fade() float64 {
	return m.fade.Value()
}

// InterpolatedFade returns the fade volume at fraction amount through the last buffer
func (m *StateManager) InterpolatedFade(amount float64) float64 {
	return m.fade.InterpolatedValue(amount)
}
