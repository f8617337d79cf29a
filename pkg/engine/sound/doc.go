// ABOUTME: Sound package documentation
// ABOUTME: Playable units mixed by tracks and the handles that control them
// Package sound implements the two playable units a track mixes.
//
// StaticSound plays frames held in memory. StreamingSound plays frames a
// DecodeScheduler goroutine decodes ahead of time into a bounded lock-free
// queue. Both are created from Data with Split, which also returns the Handle
// the control goroutine keeps.
//
// Sounds run on the audio goroutine: Process never blocks or allocates. Handle
// methods may be called from any goroutine.
package sound
