// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides the Decoder interface and implementations for WAV, MP3, FLAC, Vorbis, Opus and raw PCM
// Package decode provides seekable audio decoders.
//
// Supports: WAV (16/24/32-bit PCM), MP3, FLAC, Ogg Vorbis, Ogg Opus,
// headerless PCM and in-memory frames.
//
// Every decoder produces stereo float frames in chunks. Mono sources are
// duplicated to both channels and sources with more than two channels keep
// the first two. Decode returns io.EOF once the source is exhausted.
//
// Example:
//
//	d, err := decode.Open("music.flac")
//	frames, err := d.Decode()
//	actual, err := d.Seek(44100)
package decode
