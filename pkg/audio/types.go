// ABOUTME: Audio type definitions
// ABOUTME: Defines stereo frames, stream formats, and sample conversions
package audio

import "math"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes an audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Frame is one stereo sample pair
type Frame struct {
	Left  float32
	Right float32
}

// Zero is a silent frame
var Zero = Frame{}

// FromMono creates a frame with the same value on both channels
func FromMono(value float32) Frame {
	return Frame{Left: value, Right: value}
}

// Add mixes two frames
func (f Frame) Add(other Frame) Frame {
	return Frame{Left: f.Left + other.Left, Right: f.Right + other.Right}
}

// Sub subtracts other from f
func (f Frame) Sub(other Frame) Frame {
	return Frame{Left: f.Left - other.Left, Right: f.Right - other.Right}
}

// Scale multiplies both channels by amount (volume)
func (f Frame) Scale(amount float32) Frame {
	return Frame{Left: f.Left * amount, Right: f.Right * amount}
}

// Mul multiplies each channel by the matching channel of gains
func (f Frame) Mul(gains Frame) Frame {
	return Frame{Left: f.Left * gains.Left, Right: f.Right * gains.Right}
}

// AsMono collapses the frame to the average of both channels
func (f Frame) AsMono() Frame {
	return FromMono((f.Left + f.Right) / 2)
}

// SampleToInt16 converts a float sample in [-1, 1] to int16, clipping out-of-range values
func SampleToInt16(sample float32) int16 {
	return int16(clip(sample) * math.MaxInt16)
}

// SampleToInt24 converts a float sample in [-1, 1] to the 24-bit range stored in an int32
func SampleToInt24(sample float32) int32 {
	return int32(float64(clip(sample)) * Max24Bit)
}

// SampleToInt32 converts a float sample in [-1, 1] to int32
func SampleToInt32(sample float32) int32 {
	return int32(float64(clip(sample)) * math.MaxInt32)
}

// SampleFromInt converts an integer PCM sample of the given bit depth to float
func SampleFromInt(sample int32, bitDepth int) float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		bitDepth = 16
	}
	return float32(float64(sample) / float64(int64(1)<<(bitDepth-1)))
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	// Take lower 24 bits, pack little-endian
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF // Set upper 8 bits to 1 for negative values
	}
	return val
}

// clip clamps a sample to [-1, 1] to prevent integer overflow
func clip(sample float32) float32 {
	if sample > 1 {
		return 1
	}
	if sample < -1 {
		return -1
	}
	return sample
}
