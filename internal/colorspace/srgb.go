package colorspace

import (
	"math"
	"sync"
)

// sRGB transfer function constants (IEC 61966-2-1).
const (
	srgbLinearThreshold  = 0.04045
	linearSrgbThreshold  = 0.0031308
	srgbLinearSlope      = 12.92
	srgbGamma            = 2.4
	srgbOffset           = 0.055
	srgbScale            = 1.055
	srgb8DecodeTableSize = 256
)

// srgbToLinear converts an sRGB-encoded value in [0,1] to linear intensity.
func srgbToLinear(v float64) float64 {
	if v <= srgbLinearThreshold {
		return v / srgbLinearSlope
	}
	return math.Pow((v+srgbOffset)/srgbScale, srgbGamma)
}

// linearToSrgb converts a linear intensity in [0,1] to its sRGB encoding.
func linearToSrgb(v float64) float64 {
	if v <= linearSrgbThreshold {
		return v * srgbLinearSlope
	}
	return srgbScale*math.Pow(v, 1/srgbGamma) - srgbOffset
}

var (
	srgb8TableOnce sync.Once
	srgb8Table     []float32
)

// srgb8DecodeTable returns the shared 256-entry sRGB-to-linear decode table
// for 8-bit channels. Built once, read-only thereafter.
func srgb8DecodeTable() []float32 {
	srgb8TableOnce.Do(func() {
		srgb8Table = make([]float32, srgb8DecodeTableSize)
		for i := range srgb8Table {
			srgb8Table[i] = float32(srgbToLinear(float64(i) / maxUint8))
		}
	})
	return srgb8Table
}
