// ABOUTME: Scene listener
// ABOUTME: Tweened position and orientation read by spatial tracks
package engine

import (
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/spatial"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/tween"
)

// listener is owned by the renderer
type listener struct {
	position       *tween.Parameter[spatial.Vec3]
	positionCmd    *tween.CommandReader[spatial.Vec3]
	orientation    *tween.Parameter[spatial.Quat]
	orientationCmd *tween.CommandReader[spatial.Quat]
	info           spatial.ListenerInfo
}

// ListenerHandle moves the listener from any goroutine
type ListenerHandle struct {
	position    *tween.CommandWriter[spatial.Vec3]
	orientation *tween.CommandWriter[spatial.Quat]
}

func newListener(position spatial.Vec3, orientation spatial.Quat) (*listener, *ListenerHandle) {
	positionW, positionR := tween.NewCommandPair[spatial.Vec3]()
	orientationW, orientationR := tween.NewCommandPair[spatial.Quat]()
	l := &listener{
		position:       tween.NewParameter(position, spatial.LerpVec3),
		positionCmd:    positionR,
		orientation:    tween.NewParameter(orientation.Normalize(), spatial.Nlerp),
		orientationCmd: orientationR,
	}
	return l, &ListenerHandle{position: positionW, orientation: orientationW}
}

func (l *listener) readCommands() {
	l.position.ReadCommand(l.positionCmd)
	l.orientation.ReadCommand(l.orientationCmd)
}

// update advances the pose by dt seconds and returns it for one block
func (l *listener) update(dt float64) *spatial.ListenerInfo {
	l.position.Update(dt)
	l.orientation.Update(dt)
	l.info = spatial.ListenerInfo{
		Position:            l.position.Value(),
		Orientation:         l.orientation.Value(),
		PreviousPosition:    l.position.PreviousValue(),
		PreviousOrientation: l.orientation.PreviousValue(),
	}
	return &l.info
}

// SetPosition moves the listener
func (h *ListenerHandle) SetPosition(p spatial.Vec3, tw tween.Tween) {
	h.position.Write(p, tw)
}

// SetOrientation turns the listener. The identity rotation faces -Z.
func (h *ListenerHandle) SetOrientation(q spatial.Quat, tw tween.Tween) {
	h.orientation.Write(q.Normalize(), tw)
}
