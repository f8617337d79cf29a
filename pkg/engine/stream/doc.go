// ABOUTME: Stream package documentation
// ABOUTME: Keeps an output stream alive across device changes
// Package stream owns the connection to the audio device.
//
// Start opens a stream on a backend and runs a manager goroutine that polls
// for asynchronous stream errors. When the device disappears the manager
// closes the stream, takes the renderer back, and opens a new stream on the
// current default device with the same renderer, so every sound keeps its
// position.
package stream
