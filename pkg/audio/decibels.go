// ABOUTME: Decibel volume type
// ABOUTME: Converts between decibels and linear amplitude
package audio

import "math"

// Decibels is a volume level relative to unity gain
type Decibels float64

const (
	// Identity leaves the signal unchanged
	Identity Decibels = 0
	// Silence is the level at and below which output is treated as zero amplitude
	Silence Decibels = -60
)

// Amplitude converts the level to a linear gain factor
func (d Decibels) Amplitude() float64 {
	if d <= Silence {
		return 0
	}
	return math.Pow(10, float64(d)/20)
}

// FromAmplitude converts a linear gain factor to decibels
func FromAmplitude(amplitude float64) Decibels {
	if amplitude <= 0 {
		return Silence
	}
	db := Decibels(20 * math.Log10(amplitude))
	if db < Silence {
		return Silence
	}
	return db
}

// LerpDecibels interpolates between two levels in decibel space
func LerpDecibels(a, b Decibels, amount float64) Decibels {
	return Decibels(Lerp(float64(a), float64(b), amount))
}
