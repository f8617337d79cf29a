// ABOUTME: Track error values
// ABOUTME: Returned by handles when a capacity is exhausted
package track

import "errors"

var (
	// ErrSoundLimitReached is returned when a track already holds its sound capacity
	ErrSoundLimitReached = errors.New("track sound limit reached")
	// ErrSubTrackLimitReached is returned when a track already holds its sub-track capacity
	ErrSubTrackLimitReached = errors.New("track sub-track limit reached")
)

// ErrTrackRemoved is returned when adding to a track that left the graph
var ErrTrackRemoved = errors.New("track removed")
