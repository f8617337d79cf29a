// ABOUTME: Playback package documentation
// ABOUTME: Position tracking, stop/fade state and cross-goroutine sound state
// Package playback holds the state every playable unit shares: a Transport
// that walks sample indices with loop wraparound, a StateManager for the
// Playing/Stopping/Stopped fade machine, and Shared, the lock-free view of a
// sound that control goroutines poll.
package playback
