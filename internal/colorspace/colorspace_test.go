package colorspace

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelgrid/go-image-resampler/internal/testutil"
)

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr bool
	}{
		{
			name:   "gray8",
			format: Format{Channels: 1, DataType: Uint8, AlphaIndex: -1},
		},
		{
			name:   "rgba float",
			format: Format{Channels: 4, DataType: Float32, AlphaIndex: 3},
		},
		{
			name:   "premultiplied srgb",
			format: Format{Channels: 4, DataType: Uint8, SRGB: true, AlphaIndex: 3, Premultiplied: true},
		},
		{
			name:    "zero channels",
			format:  Format{Channels: 0, DataType: Uint8, AlphaIndex: -1},
			wantErr: true,
		},
		{
			name:    "too many channels",
			format:  Format{Channels: 5, DataType: Uint8, AlphaIndex: -1},
			wantErr: true,
		},
		{
			name:    "alpha outside layout",
			format:  Format{Channels: 3, DataType: Uint8, AlphaIndex: 3},
			wantErr: true,
		},
		{
			name:    "premultiplied without alpha",
			format:  Format{Channels: 3, DataType: Uint8, AlphaIndex: -1, Premultiplied: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFormatSizes(t *testing.T) {
	assert.Equal(t, 1, Format{Channels: 1, DataType: Uint8}.ChannelBytes())
	assert.Equal(t, 2, Format{Channels: 1, DataType: Uint16}.ChannelBytes())
	assert.Equal(t, 2, Format{Channels: 1, DataType: Float16}.ChannelBytes())
	assert.Equal(t, 4, Format{Channels: 1, DataType: Float32}.ChannelBytes())
	assert.Equal(t, 16, Format{Channels: 4, DataType: Float32}.PixelBytes())
}

// Every 8-bit sRGB code must survive a decode/encode round trip exactly;
// the point-filter identity guarantee depends on it.
func TestSRGB8RoundTrip(t *testing.T) {
	f := Format{Channels: 1, DataType: Uint8, SRGB: true, AlphaIndex: -1}
	dec := NewDecoder(f, false)
	enc := NewEncoder(f, false, true, 0, 1, nil)

	src := make([]byte, 256)
	for i := range src {
		src[i] = byte(i)
	}
	work := make([]float32, 256)
	dec.DecodeRow(work, src, 256)
	testutil.AssertNoNaNOrInf(t, work)
	testutil.AssertAllInRange(t, work, 0, 1)

	dst := make([]byte, 256)
	enc.EncodeRow(dst, work, 256)
	assert.Equal(t, src, dst)
}

func TestLinearUint8RoundTrip(t *testing.T) {
	f := Format{Channels: 1, DataType: Uint8, AlphaIndex: -1}
	dec := NewDecoder(f, false)
	enc := NewEncoder(f, false, true, 0, 1, nil)

	src := make([]byte, 256)
	for i := range src {
		src[i] = byte(i)
	}
	work := make([]float32, 256)
	dec.DecodeRow(work, src, 256)
	dst := make([]byte, 256)
	enc.EncodeRow(dst, work, 256)
	assert.Equal(t, src, dst)
}

func TestUint16RoundTrip(t *testing.T) {
	f := Format{Channels: 1, DataType: Uint16, AlphaIndex: -1}
	dec := NewDecoder(f, false)
	enc := NewEncoder(f, false, true, 0, 1, nil)

	values := []uint16{0, 1, 255, 256, 32767, 32768, 65534, 65535}
	src := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(src[i*2:], v)
	}
	work := make([]float32, len(values))
	dec.DecodeRow(work, src, len(values))
	dst := make([]byte, len(src))
	enc.EncodeRow(dst, work, len(values))
	assert.Equal(t, src, dst)
}

func TestFloat32PassThrough(t *testing.T) {
	f := Format{Channels: 1, DataType: Float32, AlphaIndex: -1}
	dec := NewDecoder(f, false)
	enc := NewEncoder(f, false, true, 0, 1, nil)

	values := []float32{0, 0.25, 0.5, 1.0}
	src := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(src[i*4:], math.Float32bits(v))
	}
	work := make([]float32, len(values))
	dec.DecodeRow(work, src, len(values))
	assert.Equal(t, values, work)

	dst := make([]byte, len(src))
	enc.EncodeRow(dst, work, len(values))
	assert.Equal(t, src, dst)
}

func TestSRGBTransferEndpoints(t *testing.T) {
	assert.InDelta(t, 0.0, srgbToLinear(0.0), 1e-12)
	assert.InDelta(t, 1.0, srgbToLinear(1.0), 1e-12)
	assert.InDelta(t, 0.0, linearToSrgb(0.0), 1e-12)
	assert.InDelta(t, 1.0, linearToSrgb(1.0), 1e-12)

	// Mid-gray: sRGB 0.5 is about 21.4% linear.
	assert.InDelta(t, 0.2140, srgbToLinear(0.5), 1e-4)

	for _, s := range []float64{0.001, 0.04, 0.2, 0.5, 0.9} {
		assert.InDelta(t, s, linearToSrgb(srgbToLinear(s)), 1e-12, "s=%f", s)
	}
}

func TestDecoderAlphaWeighting(t *testing.T) {
	f := Format{Channels: 4, DataType: Uint8, AlphaIndex: 3}
	src := []byte{255, 255, 255, 128}

	weighted := make([]float32, 4)
	NewDecoder(f, true).DecodeRow(weighted, src, 1)
	a := float32(128.0 / 255.0)
	assert.InDelta(t, float64(a), float64(weighted[0]), 1e-6)
	assert.InDelta(t, float64(a), float64(weighted[3]), 1e-6, "alpha itself stays straight")

	straight := make([]float32, 4)
	NewDecoder(f, false).DecodeRow(straight, src, 1)
	assert.InDelta(t, 1.0, float64(straight[0]), 1e-6)
}

func TestDecoderPremultipliedInputNotReweighted(t *testing.T) {
	f := Format{Channels: 4, DataType: Uint8, AlphaIndex: 3, Premultiplied: true}
	src := []byte{64, 64, 64, 128}
	work := make([]float32, 4)
	NewDecoder(f, true).DecodeRow(work, src, 1)
	assert.InDelta(t, 64.0/255.0, float64(work[0]), 1e-6)
}

func TestEncoderUnpremultiply(t *testing.T) {
	f := Format{Channels: 4, DataType: Uint8, AlphaIndex: 3}
	enc := NewEncoder(f, true, true, 0, 1, nil)

	// Premultiplied half-intensity red at half alpha.
	work := []float32{0.25, 0, 0, 0.5}
	dst := make([]byte, 4)
	enc.EncodeRow(dst, work, 1)
	assert.Equal(t, byte(128), dst[0])
	assert.Equal(t, byte(0), dst[1])
	assert.Equal(t, byte(128), dst[3])
}

func TestEncoderPremultiply(t *testing.T) {
	f := Format{Channels: 4, DataType: Uint8, AlphaIndex: 3, Premultiplied: true}
	enc := NewEncoder(f, false, true, 0, 1, nil)

	// Straight full red at half alpha becomes half red.
	work := []float32{1, 0, 0, 0.5}
	dst := make([]byte, 4)
	enc.EncodeRow(dst, work, 1)
	assert.Equal(t, byte(128), dst[0])
	assert.Equal(t, byte(128), dst[3])
}

func TestZeroAlphaPolicies(t *testing.T) {
	f := Format{Channels: 4, DataType: Uint8, AlphaIndex: 3}

	// Three premultiplied pixels: green, fully transparent, green.
	row := func() []float32 {
		return []float32{
			0, 0.5, 0, 0.5,
			0, 0, 0, 0,
			0, 0.5, 0, 0.5,
		}
	}

	t.Run("quality propagates neighbor color", func(t *testing.T) {
		dst := make([]byte, 12)
		NewEncoder(f, true, true, 0, 1, nil).EncodeRow(dst, row(), 3)
		assert.Equal(t, byte(0), dst[7], "alpha stays zero")
		assert.Equal(t, byte(255), dst[5], "transparent pixel borrows green")
	})

	t.Run("fast emits zero color", func(t *testing.T) {
		dst := make([]byte, 12)
		NewEncoder(f, true, false, 0, 1, nil).EncodeRow(dst, row(), 3)
		assert.Equal(t, byte(0), dst[4])
		assert.Equal(t, byte(0), dst[5])
		assert.Equal(t, byte(0), dst[7])
	})
}

func TestEncoderChannelMap(t *testing.T) {
	f := Format{Channels: 4, DataType: Uint8, AlphaIndex: 3}
	// BGRA output from RGBA working rows.
	enc := NewEncoder(f, false, true, 0, 1, []int{2, 1, 0, 3})

	work := []float32{1, 0.5, 0, 1}
	dst := make([]byte, 4)
	enc.EncodeRow(dst, work, 1)
	assert.Equal(t, byte(0), dst[0])
	assert.Equal(t, byte(128), dst[1])
	assert.Equal(t, byte(255), dst[2])
	assert.Equal(t, byte(255), dst[3])
}

func TestFloatClampAbsorbsRingingAndNaN(t *testing.T) {
	f := Format{Channels: 1, DataType: Float32, AlphaIndex: -1}
	enc := NewEncoder(f, false, true, 0, 1, nil)

	work := []float32{-0.2, 1.3, float32(math.NaN()), float32(math.Inf(1)), 0.5}
	dst := make([]byte, len(work)*4)
	enc.EncodeRow(dst, work, len(work))

	got := make([]float32, len(work))
	for i := range got {
		got[i] = math.Float32frombits(binary.LittleEndian.Uint32(dst[i*4:]))
	}
	assert.Equal(t, []float32{0, 1, 0, 1, 0.5}, got)
	testutil.AssertNoNaNOrInf(t, got)
}

func TestFloatClampCustomWindow(t *testing.T) {
	f := Format{Channels: 1, DataType: Float32, AlphaIndex: -1}
	enc := NewEncoder(f, false, true, -1, 2, nil)

	work := []float32{-3, 1.5, 2.5}
	dst := make([]byte, len(work)*4)
	enc.EncodeRow(dst, work, len(work))

	got := make([]float32, len(work))
	for i := range got {
		got[i] = math.Float32frombits(binary.LittleEndian.Uint32(dst[i*4:]))
	}
	assert.Equal(t, []float32{-1, 1.5, 2}, got)
}

func TestIntegerEncodeAlwaysClamps(t *testing.T) {
	f := Format{Channels: 1, DataType: Uint8, AlphaIndex: -1}
	// Even a wide float clamp window must not overflow integer outputs.
	enc := NewEncoder(f, false, true, -10, 10, nil)

	work := []float32{-5, 5, float32(math.NaN())}
	dst := make([]byte, 3)
	enc.EncodeRow(dst, work, 3)
	assert.Equal(t, []byte{0, 255, 0}, dst)
}

func TestHalfConversions(t *testing.T) {
	tests := []struct {
		name string
		bits uint16
		want float32
	}{
		{name: "zero", bits: 0x0000, want: 0},
		{name: "one", bits: 0x3C00, want: 1},
		{name: "half", bits: 0x3800, want: 0.5},
		{name: "minus two", bits: 0xC000, want: -2},
		{name: "max finite", bits: 0x7BFF, want: 65504},
		{name: "smallest subnormal", bits: 0x0001, want: 5.9604645e-8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := halfToFloat32(tt.bits)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.bits, float32ToHalf(got), "round trip")
		})
	}

	t.Run("infinity", func(t *testing.T) {
		assert.True(t, math.IsInf(float64(halfToFloat32(0x7C00)), 1))
		assert.True(t, math.IsInf(float64(halfToFloat32(0xFC00)), -1))
		assert.Equal(t, uint16(0x7C00), float32ToHalf(float32(math.Inf(1))))
	})

	t.Run("nan", func(t *testing.T) {
		assert.True(t, math.IsNaN(float64(halfToFloat32(0x7E00))))
		nan := float32ToHalf(float32(math.NaN()))
		assert.True(t, math.IsNaN(float64(halfToFloat32(nan))))
	})

	t.Run("overflow saturates to infinity", func(t *testing.T) {
		assert.Equal(t, uint16(0x7C00), float32ToHalf(1e6))
	})
}

func TestHalfRoundTripThroughCodec(t *testing.T) {
	f := Format{Channels: 1, DataType: Float16, AlphaIndex: -1}
	dec := NewDecoder(f, false)
	enc := NewEncoder(f, false, true, 0, 1, nil)

	values := []uint16{0x0000, 0x3C00, 0x3800, 0x2E66, 0x0400, 0x0001}
	src := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(src[i*2:], v)
	}
	work := make([]float32, len(values))
	dec.DecodeRow(work, src, len(values))
	dst := make([]byte, len(src))
	enc.EncodeRow(dst, work, len(values))
	assert.Equal(t, src, dst)
}

func TestSRGBAlphaStaysLinear(t *testing.T) {
	f := Format{Channels: 4, DataType: Uint8, SRGB: true, AlphaIndex: 3}
	dec := NewDecoder(f, false)

	src := []byte{128, 128, 128, 128}
	work := make([]float32, 4)
	dec.DecodeRow(work, src, 1)

	require.InDelta(t, 0.2140, float64(work[0]), 1e-3, "color is linearized")
	assert.InDelta(t, 128.0/255.0, float64(work[3]), 1e-6, "alpha is not")
}
