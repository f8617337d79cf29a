// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Backend and Stream interfaces and their implementations
// Package output connects a pull-model render callback to an audio device.
//
// A Backend enumerates devices and builds Streams. Each Stream calls the data
// callback on the device's real-time thread with an interleaved float buffer
// to fill, and reports asynchronous failures through the error callback. A
// device that disappears is reported as ErrDeviceNotAvailable.
//
// Backends: malgo (miniaudio, default), oto, PortAudio (build with -tags
// portaudio), null (software clock, no device) and WAV file rendering.
//
// Example:
//
//	backend, err := output.New("malgo", logger)
//	dev, err := backend.DefaultDevice()
//	cfg, err := backend.DefaultConfig(dev)
//	stream, err := backend.BuildStream(dev, cfg, render, onError)
//	err = stream.Play()
package output
