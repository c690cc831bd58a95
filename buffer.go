package resampler

import (
	"fmt"

	"github.com/pixelgrid/go-image-resampler/internal/colorspace"
)

// DataType enumerates per-channel storage representations.
type DataType int

const (
	// Uint8 is an 8-bit unsigned channel, normalized by 255.
	Uint8 DataType = iota
	// Uint16 is a 16-bit unsigned little-endian channel, normalized by
	// 65535.
	Uint16
	// Float16 is an IEEE 754 binary16 little-endian channel.
	Float16
	// Float32 is an IEEE 754 binary32 little-endian channel.
	Float32
)

// AlphaNone marks a layout without alpha semantics.
const AlphaNone = -1

// PixelFormat describes channel count, data representation, transfer
// encoding and premultiplication state of a pixel buffer.
type PixelFormat struct {
	// Channels is the interleaved channel count (1 to 4).
	Channels int

	// DataType selects the per-channel storage representation.
	DataType DataType

	// SRGB marks the color channels as sRGB gamma-encoded; they are
	// linearized before filtering and re-encoded afterwards. Alpha is
	// always linear.
	SRGB bool

	// AlphaIndex is the channel carrying alpha, or AlphaNone.
	AlphaIndex int

	// Premultiplied marks color channels as already multiplied by alpha.
	Premultiplied bool
}

// Predefined formats for common buffer layouts.
var (
	// FormatGray8 is single-channel 8-bit linear.
	FormatGray8 = PixelFormat{Channels: 1, DataType: Uint8, AlphaIndex: AlphaNone}

	// FormatRGB8 is 3-channel 8-bit linear without alpha.
	FormatRGB8 = PixelFormat{Channels: 3, DataType: Uint8, AlphaIndex: AlphaNone}

	// FormatRGBA8 is 4-channel 8-bit linear with straight alpha in
	// channel 3.
	FormatRGBA8 = PixelFormat{Channels: 4, DataType: Uint8, AlphaIndex: 3}

	// FormatSRGBA8 is 4-channel 8-bit sRGB with straight alpha in
	// channel 3, matching image.NRGBA content tagged as sRGB.
	FormatSRGBA8 = PixelFormat{Channels: 4, DataType: Uint8, SRGB: true, AlphaIndex: 3}

	// FormatPRGBA8 is 4-channel 8-bit sRGB with premultiplied alpha in
	// the fourth channel, matching the standard library RGBA layout.
	FormatPRGBA8 = PixelFormat{Channels: 4, DataType: Uint8, SRGB: true, AlphaIndex: 3, Premultiplied: true}

	// FormatRGBA16 is 4-channel 16-bit linear with straight alpha.
	FormatRGBA16 = PixelFormat{Channels: 4, DataType: Uint16, AlphaIndex: 3}

	// FormatRGBAF16 is 4-channel half-float linear with straight alpha.
	FormatRGBAF16 = PixelFormat{Channels: 4, DataType: Float16, AlphaIndex: 3}

	// FormatRGBAF32 is 4-channel float linear with straight alpha.
	FormatRGBAF32 = PixelFormat{Channels: 4, DataType: Float32, AlphaIndex: 3}
)

// ChannelBytes returns the storage size of one channel sample.
func (f PixelFormat) ChannelBytes() int { return f.internal().ChannelBytes() }

// PixelBytes returns the storage size of one interleaved pixel.
func (f PixelFormat) PixelBytes() int { return f.internal().PixelBytes() }

// HasAlpha reports whether the layout declares alpha semantics.
func (f PixelFormat) HasAlpha() bool { return f.AlphaIndex >= 0 }

// Validate checks the descriptor for internal consistency.
func (f PixelFormat) Validate() error {
	if err := f.internal().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrParameter, err)
	}
	return nil
}

func (f PixelFormat) internal() colorspace.Format {
	return colorspace.Format{
		Channels:      f.Channels,
		DataType:      colorspace.DataType(f.DataType),
		SRGB:          f.SRGB,
		AlphaIndex:    f.AlphaIndex,
		Premultiplied: f.Premultiplied,
	}
}

// PixelBuffer is a caller-owned raw pixel array. The engine never allocates
// or frees its storage, and never writes to an input buffer.
type PixelBuffer struct {
	// Pix holds the packed pixels. It may be nil on the input side when a
	// pull callback is configured, and on the output side when an output
	// callback is configured.
	Pix []byte

	// Width and Height are the buffer dimensions in pixels.
	Width  int
	Height int

	// Stride is the distance between rows in bytes. Zero means tightly
	// packed (Width * Format.PixelBytes()).
	Stride int

	// Format describes the pixel encoding.
	Format PixelFormat
}

// NewPixelBuffer allocates a tightly packed buffer of the given size.
func NewPixelBuffer(width, height int, format PixelFormat) *PixelBuffer {
	stride := width * format.PixelBytes()
	return &PixelBuffer{
		Pix:    make([]byte, stride*height),
		Width:  width,
		Height: height,
		Stride: stride,
		Format: format,
	}
}

// RowStride returns the effective stride in bytes.
func (b *PixelBuffer) RowStride() int {
	if b.Stride != 0 {
		return b.Stride
	}
	return b.Width * b.Format.PixelBytes()
}

// validate checks dimensions, format and (unless allowNilPix) that Pix is
// large enough for the declared geometry.
func (b *PixelBuffer) validate(allowNilPix bool) error {
	if b == nil {
		return fmt.Errorf("%w: nil pixel buffer", ErrParameter)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrParameter, b.Width, b.Height)
	}
	if err := b.Format.Validate(); err != nil {
		return err
	}
	rowBytes := b.Width * b.Format.PixelBytes()
	stride := b.RowStride()
	if stride < rowBytes {
		return fmt.Errorf("%w: stride %d below row size %d", ErrParameter, stride, rowBytes)
	}
	if b.Pix == nil {
		if allowNilPix {
			return nil
		}
		return fmt.Errorf("%w: buffer has no pixel data", ErrParameter)
	}
	need := stride*(b.Height-1) + rowBytes
	if len(b.Pix) < need {
		return fmt.Errorf("%w: pixel slice holds %d bytes, geometry needs %d", ErrParameter, len(b.Pix), need)
	}
	return nil
}
