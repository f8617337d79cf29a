//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// NewPortAudio reports that PortAudio support is not compiled in
func NewPortAudio(logger *log.Logger) (Backend, error) {
	return nil, fmt.Errorf("%w: PortAudio support not enabled (build with -tags portaudio)", ErrNotSupported)
}
