// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Frame, Decibels, interpolation and sample conversion functions
// Package audio provides fundamental audio types used throughout the mixer.
//
// This package defines:
//   - Frame: one stereo sample pair with mixing and volume helpers
//   - Decibels: volume levels with amplitude conversion
//   - CubicInterpolate / InterpolateFrame: the 4-point window used by resampling
//
// It also provides utilities for converting float samples to device formats:
//   - float ↔ 16/24/32-bit integer conversions with clipping
//   - int32 ↔ packed 24-bit byte conversions
//
// Example:
//
//	mixed := audio.Frame{Left: 0.5, Right: 0.5}.Add(other)
//	out := mixed.Scale(float32(audio.Decibels(-6).Amplitude()))
package audio
