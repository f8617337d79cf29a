// ABOUTME: Sentinel errors for sounds
// ABOUTME: Returned when sound settings do not fit the source
package sound

import "errors"

var (
	// ErrInvalidLoopRegion is returned when a loop region is empty or reversed
	ErrInvalidLoopRegion = errors.New("invalid loop region")

	// ErrInvalidSampleRate is returned for sources without a positive sample rate
	ErrInvalidSampleRate = errors.New("invalid sample rate")
)
