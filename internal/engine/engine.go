// Package engine executes the two-pass separable convolution for a resize
// job over disjoint output row ranges ("splits").
//
// A Job is immutable once built: the sampler tables, the decoder/encoder and
// the input buffer are read-only, and each split writes only to its own
// output rows. RunSplit for distinct splits may therefore execute fully
// concurrently with no synchronization, and the fixed ascending-index
// summation order makes the output bit-identical regardless of split count
// or scheduling.
package engine

import (
	"errors"

	"github.com/pixelgrid/go-image-resampler/internal/colorspace"
	"github.com/pixelgrid/go-image-resampler/internal/sampler"
	"github.com/pixelgrid/go-image-resampler/internal/simdops"
)

// ErrAborted is returned by RunSplit when the output callback declines to
// continue. The remaining rows of that split are left unwritten; rows from
// other splits are unaffected.
var ErrAborted = errors.New("resize aborted by output callback")

// Instrument receives execution counters. Implementations must be safe for
// concurrent use; a nil Instrument disables instrumentation.
type Instrument interface {
	AddRowsResized(n int64)
	AddScanlinesDecoded(n int64)
	AddCacheHits(n int64)
	AddCacheMisses(n int64)
}

// PullFunc supplies one input row on demand. It receives the absolute row
// index and the requested column range [x0, x1) and returns the packed
// native pixels for that span.
type PullFunc func(row, x0, x1 int) []byte

// EmitFunc receives one finished output row. The scanline is only valid for
// the duration of the call. Returning false aborts the split.
type EmitFunc func(row int, scanline []byte) bool

// Job aggregates everything one resize execution needs. Built once by the
// public API, then shared read-only by all splits.
type Job struct {
	// Input: either a packed buffer or a pull callback.
	SrcPix    []byte
	SrcStride int
	Pull      PullFunc

	// Output: either a packed buffer or an emit callback.
	DstPix    []byte
	DstStride int
	Emit      EmitFunc

	SrcFormat colorspace.Format
	DstFormat colorspace.Format
	Dec       *colorspace.Decoder
	Enc       *colorspace.Encoder

	// Contribution tables, one per axis. Region-local coordinates.
	HAxis *sampler.Axis
	VAxis *sampler.Axis

	// Region origins inside the source and destination buffers.
	SrcX0, SrcY0 int
	DstX0, DstY0 int

	// VerticalFirst convolves the vertical axis before the horizontal
	// one. Chosen at build time so that the more-downscaling axis runs
	// first, shrinking the intermediate data as early as possible.
	VerticalFirst bool

	Stats Instrument
}

// rowCache holds on-demand intermediate scanlines for the rows of the
// current vertical band. Bands of consecutive output rows overlap for
// continuous filters, so cached rows are reused heavily. Each split owns
// its cache; nothing here is shared.
type rowCache struct {
	rows [][]float32
	tags []int
}

func newRowCache(slots, rowLen int) *rowCache {
	c := &rowCache{
		rows: make([][]float32, slots),
		tags: make([]int, slots),
	}
	for i := range c.rows {
		c.rows[i] = make([]float32, rowLen)
		c.tags[i] = -1
	}
	return c
}

// lookup returns the cached scanline for an input row, or nil and the slot
// to fill on a miss.
func (c *rowCache) lookup(row int) ([]float32, int) {
	slot := row % len(c.tags)
	if c.tags[slot] == row {
		return c.rows[slot], slot
	}
	return nil, slot
}

// RunSplit resamples rowCount output rows starting at rowStart (region-local
// row coordinates). Safe to call concurrently for disjoint row ranges.
func (j *Job) RunSplit(rowStart, rowCount int) error {
	if j.VerticalFirst {
		return j.runVerticalFirst(rowStart, rowCount)
	}
	return j.runHorizontalFirst(rowStart, rowCount)
}

// runHorizontalFirst decodes and horizontally convolves input rows on
// demand into output-width linear scanlines, then vertically convolves the
// cached scanlines per output row.
func (j *Job) runHorizontalFirst(rowStart, rowCount int) error {
	ch := j.SrcFormat.Channels
	outW := j.HAxis.OutputExtent
	band := j.VAxis.MaxTaps
	if band < 1 {
		band = 1
	}

	cache := newRowCache(band, outW*ch)
	decBuf := make([]float32, j.HAxis.InputExtent*ch)
	acc := make([]float32, outW*ch)
	var encBuf []byte
	if j.Emit != nil {
		encBuf = make([]byte, outW*j.DstFormat.PixelBytes())
	}
	ops := simdops.Float32Ops()

	for r := rowStart; r < rowStart+rowCount; r++ {
		e := j.VAxis.Entries[r]
		if e.N == 0 {
			zero(acc)
		}
		for t := 0; t < int(e.N); t++ {
			ir := int(j.VAxis.Index[int(e.Off)+t])
			w := j.VAxis.Weight[int(e.Off)+t]
			row := j.intermediateRow(cache, decBuf, ir)
			if t == 0 {
				ops.Scale(acc, row, w)
			} else {
				axpy(acc, row, w)
			}
		}
		if err := j.writeRow(r, acc, encBuf, outW); err != nil {
			return err
		}
	}
	return nil
}

// runVerticalFirst caches decoded input-width scanlines, vertically
// convolves the band into an input-width intermediate row, then horizontally
// convolves that row down to the output width.
func (j *Job) runVerticalFirst(rowStart, rowCount int) error {
	ch := j.SrcFormat.Channels
	inW := j.HAxis.InputExtent
	outW := j.HAxis.OutputExtent
	band := j.VAxis.MaxTaps
	if band < 1 {
		band = 1
	}

	cache := newRowCache(band, inW*ch)
	vacc := make([]float32, inW*ch)
	rowOut := make([]float32, outW*ch)
	var encBuf []byte
	if j.Emit != nil {
		encBuf = make([]byte, outW*j.DstFormat.PixelBytes())
	}
	ops := simdops.Float32Ops()

	for r := rowStart; r < rowStart+rowCount; r++ {
		e := j.VAxis.Entries[r]
		if e.N == 0 {
			zero(vacc)
		}
		for t := 0; t < int(e.N); t++ {
			ir := int(j.VAxis.Index[int(e.Off)+t])
			w := j.VAxis.Weight[int(e.Off)+t]
			row := j.decodedRow(cache, ir)
			if t == 0 {
				ops.Scale(vacc, row, w)
			} else {
				axpy(vacc, row, w)
			}
		}
		j.hconvolve(rowOut, vacc, ch)
		if err := j.writeRow(r, rowOut, encBuf, outW); err != nil {
			return err
		}
	}
	return nil
}

// intermediateRow returns the horizontally convolved linear scanline for
// input row ir, decoding and convolving on a cache miss.
func (j *Job) intermediateRow(cache *rowCache, decBuf []float32, ir int) []float32 {
	if row, slot := cache.lookup(ir); row != nil {
		j.countCache(true)
		return row
	} else {
		j.countCache(false)
		j.Dec.DecodeRow(decBuf, j.srcRow(ir), j.HAxis.InputExtent)
		if j.Stats != nil {
			j.Stats.AddScanlinesDecoded(1)
		}
		j.hconvolve(cache.rows[slot], decBuf, j.SrcFormat.Channels)
		cache.tags[slot] = ir
		return cache.rows[slot]
	}
}

// decodedRow returns the decoded (not yet horizontally convolved) linear
// scanline for input row ir.
func (j *Job) decodedRow(cache *rowCache, ir int) []float32 {
	if row, slot := cache.lookup(ir); row != nil {
		j.countCache(true)
		return row
	} else {
		j.countCache(false)
		j.Dec.DecodeRow(cache.rows[slot], j.srcRow(ir), j.HAxis.InputExtent)
		if j.Stats != nil {
			j.Stats.AddScanlinesDecoded(1)
		}
		cache.tags[slot] = ir
		return cache.rows[slot]
	}
}

// srcRow returns the native bytes of region-local input row ir.
func (j *Job) srcRow(ir int) []byte {
	abs := j.SrcY0 + ir
	inW := j.HAxis.InputExtent
	bpp := j.SrcFormat.PixelBytes()
	if j.SrcPix != nil {
		off := abs*j.SrcStride + j.SrcX0*bpp
		return j.SrcPix[off : off+inW*bpp]
	}
	return j.Pull(abs, j.SrcX0, j.SrcX0+inW)
}

// hconvolve resamples one linear scanline from input width to output width.
// Single-channel entries with consecutive indices take the SIMD dot-product
// path; everything else runs the strided scalar loop.
func (j *Job) hconvolve(dst, src []float32, ch int) {
	ops := simdops.Float32Ops()
	for x, e := range j.HAxis.Entries {
		if ch == 1 && e.Contiguous && e.N > 0 {
			first := int(j.HAxis.Index[e.Off])
			dst[x] = ops.DotProductUnsafe(
				j.HAxis.Weight[e.Off:e.Off+e.N],
				src[first:first+int(e.N)])
			continue
		}
		base := x * ch
		for c := 0; c < ch; c++ {
			var acc float32
			for t := 0; t < int(e.N); t++ {
				idx := int(j.HAxis.Index[int(e.Off)+t])
				acc += j.HAxis.Weight[int(e.Off)+t] * src[idx*ch+c]
			}
			dst[base+c] = acc
		}
	}
}

// writeRow encodes one finished working scanline into the destination
// buffer, or hands it to the emit callback. work is scratch and is modified
// by the encoder.
func (j *Job) writeRow(r int, work []float32, encBuf []byte, outW int) error {
	outRow := j.DstY0 + r
	if j.DstPix != nil {
		bpp := j.DstFormat.PixelBytes()
		off := outRow*j.DstStride + j.DstX0*bpp
		j.Enc.EncodeRow(j.DstPix[off:off+outW*bpp], work, outW)
	} else {
		j.Enc.EncodeRow(encBuf, work, outW)
		if !j.Emit(outRow, encBuf) {
			return ErrAborted
		}
	}
	if j.Stats != nil {
		j.Stats.AddRowsResized(1)
	}
	return nil
}

func (j *Job) countCache(hit bool) {
	if j.Stats == nil {
		return
	}
	if hit {
		j.Stats.AddCacheHits(1)
	} else {
		j.Stats.AddCacheMisses(1)
	}
}

func axpy(dst, src []float32, w float32) {
	for i, v := range src {
		dst[i] += w * v
	}
}

func zero(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
