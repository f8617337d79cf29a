// ABOUTME: Track package documentation
// ABOUTME: Nested mixing graph nodes with volume, fades and optional spatialization
// Package track implements the mixing graph.
//
// A Track owns sounds and nested sub-tracks. Once per device buffer the audio
// goroutine calls OnStartProcessing on the root track, which picks up sounds
// and sub-tracks queued by handles and drops the ones that finished. Process
// then mixes every child into the output, pans and attenuates the result when
// the track is spatial, and applies the track volume.
//
// Handles live on the control side. They never touch a Track directly; new
// children travel through bounded queues and parameter changes through
// latest-wins command slots.
package track
