// ABOUTME: Float to device sample encoding
// ABOUTME: Packs float samples into little-endian F32, S16, S24 and S32 buffers
package output

import (
	"encoding/binary"
	"math"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

// Encode writes src into dst in the given format. dst must hold len(src) samples.
func Encode(format SampleFormat, dst []byte, src []float32) {
	switch format {
	case FormatS16:
		write16Bit(dst, src)
	case FormatS24:
		write24Bit(dst, src)
	case FormatS32:
		write32Bit(dst, src)
	default:
		writeFloat(dst, src)
	}
}

func writeFloat(output []byte, samples []float32) {
	for i, sample := range samples {
		binary.LittleEndian.PutUint32(output[i*4:], math.Float32bits(sample))
	}
}

func write16Bit(output []byte, samples []float32) {
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.SampleToInt16(sample)))
	}
}

// 24-bit samples are packed into 3 bytes
func write24Bit(output []byte, samples []float32) {
	for i, sample := range samples {
		b := audio.SampleTo24Bit(audio.SampleToInt24(sample))
		copy(output[i*3:i*3+3], b[:])
	}
}

func write32Bit(output []byte, samples []float32) {
	for i, sample := range samples {
		binary.LittleEndian.PutUint32(output[i*4:], uint32(audio.SampleToInt32(sample)))
	}
}
