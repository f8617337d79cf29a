// ABOUTME: Stream error taxonomy
// ABOUTME: Tagged errors passed to stream error callbacks and returned by backends
package output

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceNotAvailable means the device was unplugged or otherwise lost
	ErrDeviceNotAvailable = errors.New("output device not available")

	// ErrStreamInvalidated means the stream must be rebuilt, for example after a format change
	ErrStreamInvalidated = errors.New("output stream invalidated")

	// ErrBufferUnderrun means the device ran out of samples
	ErrBufferUnderrun = errors.New("output buffer underrun")

	// ErrNoDevice means no output device exists
	ErrNoDevice = errors.New("no output device")

	// ErrNotSupported means the backend or option is not available in this build
	ErrNotSupported = errors.New("not supported")
)

// BackendError wraps a backend-specific failure
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend error: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
