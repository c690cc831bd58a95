package colorspace

import "math"

// IEEE 754 binary16 layout: 1 sign bit, 5 exponent bits (bias 15), 10
// mantissa bits.
const (
	halfSignMask     = 0x8000
	halfExpMask      = 0x1F
	halfMantMask     = 0x3FF
	halfExpBias      = 15
	halfMantBits     = 10
	halfInfExp       = 31
	float32ExpBias   = 127
	float32MantBits  = 23
	halfMantShift    = float32MantBits - halfMantBits
	halfMinDenormExp = -10
)

// halfToFloat32 expands a binary16 value to float32, handling zeros,
// denormals, infinities and NaN.
func halfToFloat32(h uint16) float32 {
	bits := uint32(h)
	sign := bits >> 15
	exp := (bits >> halfMantBits) & halfExpMask
	mant := bits & halfMantMask

	switch {
	case exp == 0:
		if mant == 0 {
			return math.Float32frombits(sign << 31)
		}
		// Denormal: renormalize into float32 range.
		e := uint32(1)
		for mant&(1<<halfMantBits) == 0 {
			mant <<= 1
			e--
		}
		mant &= halfMantMask
		exp = e + float32ExpBias - halfExpBias
	case exp == halfInfExp:
		if mant == 0 {
			return math.Float32frombits((sign << 31) | 0x7F800000)
		}
		return math.Float32frombits((sign << 31) | 0x7FC00000 | (mant << halfMantShift))
	default:
		exp = exp + float32ExpBias - halfExpBias
	}
	return math.Float32frombits((sign << 31) | (exp << float32MantBits) | (mant << halfMantShift))
}

// float32ToHalf narrows a float32 to binary16 with round-to-nearest-even,
// overflowing to infinity and underflowing to zero.
func float32ToHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & halfSignMask)
	exp := int((bits>>float32MantBits)&0xFF) - float32ExpBias + halfExpBias
	mant := bits & 0x7FFFFF

	switch {
	case exp <= 0:
		if exp < halfMinDenormExp {
			return sign // underflow to signed zero
		}
		mant = (mant | 0x800000) >> uint(1-exp)
		// Round to nearest even.
		if mant&0x1000 != 0 && (mant&0x2FFF) != 0 {
			mant += 0x2000
		}
		return sign | uint16(mant>>halfMantShift)
	case exp >= halfInfExp:
		if int((bits>>float32MantBits)&0xFF) == 0xFF && mant != 0 {
			return sign | (halfInfExp << halfMantBits) | 0x200 // NaN
		}
		return sign | (halfInfExp << halfMantBits) // infinity
	default:
		h := sign | uint16(exp)<<halfMantBits | uint16(mant>>halfMantShift)
		// Round to nearest even on the truncated bits.
		rem := mant & ((1 << halfMantShift) - 1)
		halfway := uint32(1) << (halfMantShift - 1)
		if rem > halfway || (rem == halfway && h&1 != 0) {
			h++ // mantissa carry may roll into the exponent, which is correct
		}
		return h
	}
}
