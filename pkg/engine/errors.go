// ABOUTME: Engine error values
// ABOUTME: Errors returned by the Manager
package engine

import "errors"

var (
	// ErrClosed is returned by a Manager after Close
	ErrClosed = errors.New("engine closed")
	// ErrDeviceNotFound is returned when Config.Device matches no device
	ErrDeviceNotFound = errors.New("output device not found")
)
