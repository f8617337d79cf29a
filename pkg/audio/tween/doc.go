// ABOUTME: Tween package documentation
// ABOUTME: Smoothly changing parameters shared between control and audio goroutines
// Package tween provides parameters that move toward a target value over time.
//
// A Parameter lives on the audio goroutine and is advanced once per buffer with
// Update. The control goroutine never touches it directly: it writes through a
// CommandWriter and the audio goroutine applies the newest command with
// ReadCommand at the start of each buffer.
//
// Example:
//
//	volume := tween.NewDecibels(audio.Identity)
//	w, r := tween.NewCommandPair[audio.Decibels]()
//	w.Write(-12, tween.Tween{Duration: time.Second})
//	volume.ReadCommand(r)
//	volume.Update(bufferSeconds)
package tween
