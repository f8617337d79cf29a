// ABOUTME: Remote control errors
// ABOUTME: Sentinels shared by the server, client and mixer implementations
package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrSoundNotFound is returned by a Mixer for unknown sound IDs
	ErrSoundNotFound = errors.New("sound not found")

	ErrNotConnected = errors.New("not connected")
	ErrHandshake    = errors.New("handshake failed")
)

// RemoteError is an error reported by the mixer
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Code, e.Message)
}

// Is lets errors.Is match not_found against ErrSoundNotFound
func (e *RemoteError) Is(target error) bool {
	return target == ErrSoundNotFound && e.Code == CodeNotFound
}
