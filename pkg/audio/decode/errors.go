// ABOUTME: Sentinel errors for the decode package
// ABOUTME: Checked with errors.Is by callers choosing a decoder
package decode

import "errors"

var (
	// ErrUnsupportedFormat is returned for codecs or sample layouts no decoder handles
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrInvalidFile is returned when a file does not match its container
	ErrInvalidFile = errors.New("invalid audio file")

	// ErrSeekOutOfRange is returned when seeking past the end of the source
	ErrSeekOutOfRange = errors.New("seek out of range")
)
