package resampler

import (
	"fmt"
	"image"
	"runtime"
	"sync"
)

// Resize is a one-shot helper: it scales src into dst with the default
// filter for the implied ratio, running splits on all available CPUs.
// Both buffers keep their configured layouts, so Resize also performs any
// color space, data type and alpha conversion the descriptors imply.
func Resize(dst, src *PixelBuffer) error {
	return ResizeWith(dst, src, FilterSpec{}, runtime.NumCPU())
}

// ResizeWith is Resize with an explicit filter and split count. A
// parallelism below one runs single threaded.
func ResizeWith(dst, src *PixelBuffer, spec FilterSpec, parallelism int) error {
	r, err := New(src, dst)
	if err != nil {
		return err
	}
	defer r.Release()
	if err := r.SetFilter(AxisBoth, spec); err != nil {
		return err
	}
	if err := r.Build(); err != nil {
		return err
	}
	return runParallel(r, parallelism)
}

// runParallel partitions the built resizer and runs one goroutine per
// split, returning the first split error.
func runParallel(r *Resizer, parallelism int) error {
	if parallelism < minSplitCount {
		parallelism = minSplitCount
	}
	n, err := r.Partition(parallelism)
	if err != nil {
		return err
	}
	if n == 1 {
		return r.Run(0)
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func(idx int) {
			defer wg.Done()
			errs[idx] = r.Run(idx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// BufferFromNRGBA wraps a standard library NRGBA image as a pixel buffer
// without copying. The descriptor marks the buffer as 8-bit sRGB with
// straight alpha, matching NRGBA semantics.
func BufferFromNRGBA(img *image.NRGBA) *PixelBuffer {
	b := img.Bounds()
	return &PixelBuffer{
		Pix:    img.Pix,
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: img.Stride,
		Format: FormatSRGBA8,
	}
}

// NRGBAFromBuffer wraps an 8-bit RGBA pixel buffer as a standard library
// NRGBA image without copying. It returns nil when the buffer's layout is
// not 4-channel uint8 with straight alpha.
func NRGBAFromBuffer(buf *PixelBuffer) *image.NRGBA {
	if buf == nil || buf.Format.Channels != 4 || buf.Format.DataType != Uint8 ||
		buf.Format.AlphaIndex != 3 || buf.Format.Premultiplied {
		return nil
	}
	return &image.NRGBA{
		Pix:    buf.Pix,
		Stride: buf.RowStride(),
		Rect:   image.Rect(0, 0, buf.Width, buf.Height),
	}
}

// ResizeNRGBA scales a standard library NRGBA image to width x height
// using the given filter, resampling in linear light with alpha-weighted
// color. The zero FilterSpec selects the default filter for the ratio.
func ResizeNRGBA(src *image.NRGBA, width, height int, spec FilterSpec) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target dimensions %dx%d must be positive", ErrParameter, width, height)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	if err := ResizeWith(BufferFromNRGBA(dst), BufferFromNRGBA(src), spec, runtime.NumCPU()); err != nil {
		return nil, err
	}
	return dst, nil
}

// ResizeRGBA is ResizeNRGBA for premultiplied RGBA images.
func ResizeRGBA(src *image.RGBA, width, height int, spec FilterSpec) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target dimensions %dx%d must be positive", ErrParameter, width, height)
	}
	srcBounds := src.Bounds()
	srcBuf := &PixelBuffer{
		Pix:    src.Pix,
		Width:  srcBounds.Dx(),
		Height: srcBounds.Dy(),
		Stride: src.Stride,
		Format: FormatPRGBA8,
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	dstBuf := &PixelBuffer{
		Pix:    dst.Pix,
		Width:  width,
		Height: height,
		Stride: dst.Stride,
		Format: FormatPRGBA8,
	}
	if err := ResizeWith(dstBuf, srcBuf, spec, runtime.NumCPU()); err != nil {
		return nil, err
	}
	return dst, nil
}

// ResizeGray scales a standard library Gray image, treating samples as
// sRGB-encoded luminance.
func ResizeGray(src *image.Gray, width, height int, spec FilterSpec) (*image.Gray, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target dimensions %dx%d must be positive", ErrParameter, width, height)
	}
	srcBounds := src.Bounds()
	format := FormatGray8
	format.SRGB = true
	srcBuf := &PixelBuffer{
		Pix:    src.Pix,
		Width:  srcBounds.Dx(),
		Height: srcBounds.Dy(),
		Stride: src.Stride,
		Format: format,
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	dstBuf := &PixelBuffer{
		Pix:    dst.Pix,
		Width:  width,
		Height: height,
		Stride: dst.Stride,
		Format: format,
	}
	if err := ResizeWith(dstBuf, srcBuf, spec, runtime.NumCPU()); err != nil {
		return nil, err
	}
	return dst, nil
}
