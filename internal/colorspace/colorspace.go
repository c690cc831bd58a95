// Package colorspace converts pixel rows between their buffer-native
// encoding and the engine's working representation: interleaved linear
// float32 samples, optionally weighted by alpha.
//
// Decoding normalizes integer samples by their maximum representable value,
// undoes the sRGB transfer on gamma-encoded color channels and expands
// half-float samples. Encoding applies the inverse transform, resolves the
// zero-alpha division policy and clamps so that no representable-range or
// NaN violations can reach the output buffer.
package colorspace

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DataType enumerates the per-channel storage representations.
type DataType int

const (
	// Uint8 is an 8-bit unsigned channel, normalized by 255.
	Uint8 DataType = iota
	// Uint16 is a 16-bit unsigned channel, normalized by 65535.
	Uint16
	// Float16 is an IEEE 754 binary16 channel.
	Float16
	// Float32 is an IEEE 754 binary32 channel, stored as-is.
	Float32
)

// Channel storage sizes in bytes.
const (
	bytesUint8   = 1
	bytesUint16  = 2
	bytesFloat16 = 2
	bytesFloat32 = 4
)

const (
	// MaxChannels is the largest supported channel count.
	MaxChannels = 4

	maxUint8  = 255.0
	maxUint16 = 65535.0

	// zeroAlphaThreshold separates "fully transparent" from merely small
	// convolved alpha when unpremultiplying.
	zeroAlphaThreshold = 0.0
)

// Format describes the encoding of one pixel buffer.
type Format struct {
	// Channels is the interleaved channel count (1..MaxChannels).
	Channels int

	// DataType is the per-channel storage representation.
	DataType DataType

	// SRGB marks color channels as sRGB gamma-encoded. The alpha channel,
	// if any, is always linear.
	SRGB bool

	// AlphaIndex is the channel holding alpha, or -1 when the layout has
	// no alpha semantics.
	AlphaIndex int

	// Premultiplied marks color channels as already multiplied by alpha.
	Premultiplied bool
}

// ChannelBytes returns the storage size of one channel sample.
func (f Format) ChannelBytes() int {
	switch f.DataType {
	case Uint8:
		return bytesUint8
	case Uint16:
		return bytesUint16
	case Float16:
		return bytesFloat16
	case Float32:
		return bytesFloat32
	}
	return 0
}

// PixelBytes returns the storage size of one interleaved pixel.
func (f Format) PixelBytes() int {
	return f.Channels * f.ChannelBytes()
}

// Validate checks the descriptor for internal consistency.
func (f Format) Validate() error {
	if f.Channels < 1 || f.Channels > MaxChannels {
		return fmt.Errorf("channel count %d outside 1..%d", f.Channels, MaxChannels)
	}
	if f.ChannelBytes() == 0 {
		return fmt.Errorf("unknown data type %d", f.DataType)
	}
	if f.AlphaIndex < -1 || f.AlphaIndex >= f.Channels {
		return fmt.Errorf("alpha index %d outside layout with %d channels", f.AlphaIndex, f.Channels)
	}
	if f.Premultiplied && f.AlphaIndex < 0 {
		return fmt.Errorf("premultiplied layout requires an alpha channel")
	}
	return nil
}

// HasAlpha reports whether the layout declares alpha semantics.
func (f Format) HasAlpha() bool { return f.AlphaIndex >= 0 }

// Decoder converts native rows to linear float32 working rows.
// The conversion strategy is selected once at construction, keeping the
// per-pixel loop free of representation branches.
type Decoder struct {
	fmt      Format
	weighted bool
	decode   func(d *Decoder, dst []float32, src []byte, width int)
	lut      []float32 // 8-bit sRGB decode table, nil otherwise
}

// NewDecoder builds a decoder for the format. When alphaWeighted is set and
// the layout declares non-premultiplied alpha, decoded color channels are
// multiplied by alpha so that filtering blends energy correctly.
func NewDecoder(f Format, alphaWeighted bool) *Decoder {
	d := &Decoder{fmt: f, weighted: alphaWeighted}
	switch f.DataType {
	case Uint8:
		if f.SRGB {
			d.lut = srgb8DecodeTable()
			d.decode = decodeUint8SRGB
		} else {
			d.decode = decodeUint8
		}
	case Uint16:
		if f.SRGB {
			d.decode = decodeUint16SRGB
		} else {
			d.decode = decodeUint16
		}
	case Float16:
		d.decode = decodeFloat16
	case Float32:
		d.decode = decodeFloat32
	}
	return d
}

// DecodeRow converts width interleaved pixels from src into dst, which must
// hold width*Channels samples.
func (d *Decoder) DecodeRow(dst []float32, src []byte, width int) {
	d.decode(d, dst, src, width)
	if d.fmt.SRGB && d.fmt.DataType != Uint8 {
		d.linearizeColors(dst, width)
	}
	if d.weighted && d.fmt.HasAlpha() && !d.fmt.Premultiplied {
		d.premultiply(dst, width)
	}
}

func (d *Decoder) linearizeColors(dst []float32, width int) {
	ch := d.fmt.Channels
	for x := 0; x < width; x++ {
		base := x * ch
		for c := 0; c < ch; c++ {
			if c == d.fmt.AlphaIndex {
				continue
			}
			dst[base+c] = float32(srgbToLinear(float64(dst[base+c])))
		}
	}
}

func (d *Decoder) premultiply(dst []float32, width int) {
	ch := d.fmt.Channels
	ai := d.fmt.AlphaIndex
	for x := 0; x < width; x++ {
		base := x * ch
		a := dst[base+ai]
		for c := 0; c < ch; c++ {
			if c != ai {
				dst[base+c] *= a
			}
		}
	}
}

func decodeUint8(d *Decoder, dst []float32, src []byte, width int) {
	n := width * d.fmt.Channels
	for i := 0; i < n; i++ {
		dst[i] = float32(src[i]) / maxUint8
	}
}

func decodeUint8SRGB(d *Decoder, dst []float32, src []byte, width int) {
	ch := d.fmt.Channels
	ai := d.fmt.AlphaIndex
	for x := 0; x < width; x++ {
		base := x * ch
		for c := 0; c < ch; c++ {
			if c == ai {
				dst[base+c] = float32(src[base+c]) / maxUint8
			} else {
				dst[base+c] = d.lut[src[base+c]]
			}
		}
	}
}

func decodeUint16(d *Decoder, dst []float32, src []byte, width int) {
	n := width * d.fmt.Channels
	for i := 0; i < n; i++ {
		dst[i] = float32(binary.LittleEndian.Uint16(src[i*2:])) / maxUint16
	}
}

func decodeUint16SRGB(d *Decoder, dst []float32, src []byte, width int) {
	// Transfer undone afterwards by linearizeColors.
	decodeUint16(d, dst, src, width)
}

func decodeFloat16(d *Decoder, dst []float32, src []byte, width int) {
	n := width * d.fmt.Channels
	for i := 0; i < n; i++ {
		dst[i] = halfToFloat32(binary.LittleEndian.Uint16(src[i*2:]))
	}
}

func decodeFloat32(d *Decoder, dst []float32, src []byte, width int) {
	n := width * d.fmt.Channels
	for i := 0; i < n; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}

// Encoder converts linear float32 working rows into native output rows,
// optionally reordering channels between source and destination layouts.
type Encoder struct {
	fmt           Format
	workingPremul bool
	quality       bool
	lo, hi        float32
	chanMap       []int // dst channel j reads working channel chanMap[j]
	srcAlpha      int   // alpha position in the working row, or -1
	encode        func(e *Encoder, dst []byte, src []float32, width int)
}

// NewEncoder builds an encoder for the destination format.
//
// workingPremul states whether the working rows carry alpha-weighted color
// (either because the source was premultiplied or because the decoder
// weighted it); the encoder premultiplies or unpremultiplies as needed to
// match the destination layout. chanMap must have one entry per destination
// channel, naming the working (source-order) channel it reads; nil means
// identity. quality selects the zero-alpha policy: the quality path
// propagates color from the nearest pixel with nonzero alpha, the fast path
// emits zero color. lo and hi clamp float outputs; integer outputs always
// clamp to their representable range.
func NewEncoder(f Format, workingPremul, quality bool, lo, hi float32, chanMap []int) *Encoder {
	if chanMap == nil {
		chanMap = make([]int, f.Channels)
		for i := range chanMap {
			chanMap[i] = i
		}
	}
	srcAlpha := -1
	if f.AlphaIndex >= 0 {
		srcAlpha = chanMap[f.AlphaIndex]
	}
	e := &Encoder{
		fmt:           f,
		workingPremul: workingPremul,
		quality:       quality,
		lo:            lo,
		hi:            hi,
		chanMap:       chanMap,
		srcAlpha:      srcAlpha,
	}
	switch f.DataType {
	case Uint8:
		e.encode = encodeUint8
	case Uint16:
		e.encode = encodeUint16
	case Float16:
		e.encode = encodeFloat16
	case Float32:
		e.encode = encodeFloat32
	}
	return e
}

// EncodeRow converts width working pixels from src into dst. src is scratch
// owned by the caller and is modified in place (unpremultiplication and
// zero-alpha fixup happen before the native conversion).
func (e *Encoder) EncodeRow(dst []byte, src []float32, width int) {
	if e.srcAlpha >= 0 {
		switch {
		case e.workingPremul && !e.fmt.Premultiplied:
			e.unpremultiply(src, width)
		case !e.workingPremul && e.fmt.Premultiplied:
			e.premultiply(src, width)
		}
	}
	e.encode(e, dst, src, width)
}

// premultiply weights color by alpha when the destination layout wants
// associated alpha but the working rows carry straight color.
func (e *Encoder) premultiply(src []float32, width int) {
	ch := e.fmt.Channels
	ai := e.srcAlpha
	for x := 0; x < width; x++ {
		base := x * ch
		a := src[base+ai]
		for c := 0; c < ch; c++ {
			if c != ai {
				src[base+c] *= a
			}
		}
	}
}

// unpremultiply divides color by convolved alpha, applying the configured
// zero-alpha policy where the division is undefined.
func (e *Encoder) unpremultiply(src []float32, width int) {
	ch := e.fmt.Channels
	ai := e.srcAlpha
	zeroes := -1 // first zero-alpha pixel, -1 when none seen
	for x := 0; x < width; x++ {
		base := x * ch
		a := src[base+ai]
		if a > zeroAlphaThreshold {
			inv := 1.0 / a
			for c := 0; c < ch; c++ {
				if c != ai {
					src[base+c] *= inv
				}
			}
			continue
		}
		// Undefined division; fixed up below.
		for c := 0; c < ch; c++ {
			if c != ai {
				src[base+c] = 0
			}
		}
		src[base+ai] = 0
		if zeroes < 0 {
			zeroes = x
		}
	}
	if zeroes >= 0 && e.quality {
		e.fixZeroAlpha(src, width)
	}
}

// fixZeroAlpha replaces the color of fully transparent pixels with the color
// of the nearest pixel in the row that has nonzero alpha, avoiding black
// fringes when the output is later composited.
func (e *Encoder) fixZeroAlpha(src []float32, width int) {
	ch := e.fmt.Channels
	ai := e.srcAlpha
	for x := 0; x < width; x++ {
		if src[x*ch+ai] > zeroAlphaThreshold {
			continue
		}
		for d := 1; d < width; d++ {
			var donor = -1
			if x-d >= 0 && src[(x-d)*ch+ai] > zeroAlphaThreshold {
				donor = x - d
			} else if x+d < width && src[(x+d)*ch+ai] > zeroAlphaThreshold {
				donor = x + d
			}
			if donor < 0 {
				continue
			}
			for c := 0; c < ch; c++ {
				if c != ai {
					src[x*ch+c] = src[donor*ch+c]
				}
			}
			break
		}
	}
}

// clamp32 bounds v to [lo, hi] and never returns NaN.
func clamp32(v, lo, hi float32) float32 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sample returns the working value feeding destination channel c of pixel x,
// clamped to [0,1] and gamma-encoded when the channel needs it.
func (e *Encoder) sample(src []float32, x, c int) float64 {
	v := float64(clamp32(src[x*e.fmt.Channels+e.chanMap[c]], 0, 1))
	if e.fmt.SRGB && c != e.fmt.AlphaIndex {
		v = linearToSrgb(v)
	}
	return v
}

func encodeUint8(e *Encoder, dst []byte, src []float32, width int) {
	ch := e.fmt.Channels
	for x := 0; x < width; x++ {
		for c := 0; c < ch; c++ {
			dst[x*ch+c] = uint8(e.sample(src, x, c)*maxUint8 + 0.5)
		}
	}
}

func encodeUint16(e *Encoder, dst []byte, src []float32, width int) {
	ch := e.fmt.Channels
	for x := 0; x < width; x++ {
		for c := 0; c < ch; c++ {
			binary.LittleEndian.PutUint16(dst[(x*ch+c)*2:],
				uint16(e.sample(src, x, c)*maxUint16+0.5))
		}
	}
}

// floatSample is like sample but clamps to the configured float range
// instead of [0,1].
func (e *Encoder) floatSample(src []float32, x, c int) float32 {
	v := clamp32(src[x*e.fmt.Channels+e.chanMap[c]], e.lo, e.hi)
	if e.fmt.SRGB && c != e.fmt.AlphaIndex {
		v = float32(linearToSrgb(float64(v)))
	}
	return v
}

func encodeFloat16(e *Encoder, dst []byte, src []float32, width int) {
	ch := e.fmt.Channels
	for x := 0; x < width; x++ {
		for c := 0; c < ch; c++ {
			binary.LittleEndian.PutUint16(dst[(x*ch+c)*2:],
				float32ToHalf(e.floatSample(src, x, c)))
		}
	}
}

func encodeFloat32(e *Encoder, dst []byte, src []float32, width int) {
	ch := e.fmt.Channels
	for x := 0; x < width; x++ {
		for c := 0; c < ch; c++ {
			binary.LittleEndian.PutUint32(dst[(x*ch+c)*4:],
				math.Float32bits(e.floatSample(src, x, c)))
		}
	}
}
