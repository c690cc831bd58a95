package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelgrid/go-image-resampler/internal/colorspace"
	"github.com/pixelgrid/go-image-resampler/internal/filter"
	"github.com/pixelgrid/go-image-resampler/internal/sampler"
	"github.com/pixelgrid/go-image-resampler/internal/testutil"
)

var gray8 = colorspace.Format{Channels: 1, DataType: colorspace.Uint8, AlphaIndex: -1}

// patternPixels fills a w x h gray8 buffer with a deterministic pattern
// containing edges, gradients and flat areas.
func patternPixels(w, h int) []byte {
	pix := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix[y*w+x] = byte((x*37 + y*91 + (x^y)*13) % 256)
		}
	}
	return pix
}

// grayJob assembles a buffer-to-buffer gray8 job for the given extents.
func grayJob(t *testing.T, src []byte, inW, inH, outW, outH int, k filter.Kernel) (*Job, []byte) {
	t.Helper()
	hAxis, err := sampler.Build(sampler.Params{
		InputExtent: inW, OutputExtent: outW, Kernel: k, Edge: sampler.EdgeClamp,
	})
	require.NoError(t, err)
	vAxis, err := sampler.Build(sampler.Params{
		InputExtent: inH, OutputExtent: outH, Kernel: k, Edge: sampler.EdgeClamp,
	})
	require.NoError(t, err)

	dst := make([]byte, outW*outH)
	return &Job{
		SrcPix:    src,
		SrcStride: inW,
		DstPix:    dst,
		DstStride: outW,
		SrcFormat: gray8,
		DstFormat: gray8,
		Dec:       colorspace.NewDecoder(gray8, false),
		Enc:       colorspace.NewEncoder(gray8, false, true, 0, 1, nil),
		HAxis:     hAxis,
		VAxis:     vAxis,
	}, dst
}

// Pass order is a performance decision; both orders must land within one
// quantization step of each other.
func TestPassOrderEquivalence(t *testing.T) {
	const inW, inH, outW, outH = 16, 16, 7, 7
	src := patternPixels(inW, inH)

	hFirst, hOut := grayJob(t, src, inW, inH, outW, outH, filter.Mitchell())
	require.NoError(t, hFirst.RunSplit(0, outH))

	vFirst, vOut := grayJob(t, src, inW, inH, outW, outH, filter.Mitchell())
	vFirst.VerticalFirst = true
	require.NoError(t, vFirst.RunSplit(0, outH))

	diff := testutil.MaxAbsDiff(t, hOut, vOut)
	assert.LessOrEqual(t, diff, 1, "pass orders differ by more than one step")
}

func TestSplitInvariance(t *testing.T) {
	const inW, inH, outW, outH = 24, 24, 11, 11
	src := patternPixels(inW, inH)

	whole, wholeOut := grayJob(t, src, inW, inH, outW, outH, filter.CatmullRom())
	require.NoError(t, whole.RunSplit(0, outH))

	pieces, piecesOut := grayJob(t, src, inW, inH, outW, outH, filter.CatmullRom())
	require.NoError(t, pieces.RunSplit(0, 3))
	require.NoError(t, pieces.RunSplit(3, 5))
	require.NoError(t, pieces.RunSplit(8, 3))

	assert.Equal(t, wholeOut, piecesOut, "split boundaries leaked into output")
}

func TestPullCallbackMatchesBuffer(t *testing.T) {
	const inW, inH, outW, outH = 12, 12, 20, 20
	src := patternPixels(inW, inH)

	direct, directOut := grayJob(t, src, inW, inH, outW, outH, filter.Triangle())
	require.NoError(t, direct.RunSplit(0, outH))

	pulled, pulledOut := grayJob(t, src, inW, inH, outW, outH, filter.Triangle())
	pulled.SrcPix = nil
	pulled.SrcStride = 0
	pulled.Pull = func(row, x0, x1 int) []byte {
		return src[row*inW+x0 : row*inW+x1]
	}
	require.NoError(t, pulled.RunSplit(0, outH))

	assert.Equal(t, directOut, pulledOut)
}

func TestEmitCallback(t *testing.T) {
	const inW, inH, outW, outH = 8, 8, 4, 4
	src := patternPixels(inW, inH)

	direct, directOut := grayJob(t, src, inW, inH, outW, outH, filter.Box())
	require.NoError(t, direct.RunSplit(0, outH))

	emitted := make([]byte, outW*outH)
	job, _ := grayJob(t, src, inW, inH, outW, outH, filter.Box())
	job.DstPix = nil
	job.DstStride = 0
	job.Emit = func(row int, scanline []byte) bool {
		copy(emitted[row*outW:], scanline)
		return true
	}
	require.NoError(t, job.RunSplit(0, outH))

	assert.Equal(t, directOut, emitted)
}

func TestEmitAbortStopsSplit(t *testing.T) {
	const inW, inH, outW, outH = 8, 8, 4, 4
	src := patternPixels(inW, inH)

	var rows []int
	job, _ := grayJob(t, src, inW, inH, outW, outH, filter.Box())
	job.DstPix = nil
	job.DstStride = 0
	job.Emit = func(row int, scanline []byte) bool {
		rows = append(rows, row)
		return len(rows) < 2
	}

	err := job.RunSplit(0, outH)
	require.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, []int{0, 1}, rows, "no rows delivered after the abort")
}

type countingStats struct {
	rows, decodes, hits, misses int64
}

func (s *countingStats) AddRowsResized(n int64)      { s.rows += n }
func (s *countingStats) AddScanlinesDecoded(n int64) { s.decodes += n }
func (s *countingStats) AddCacheHits(n int64)        { s.hits += n }
func (s *countingStats) AddCacheMisses(n int64)      { s.misses += n }

func TestInstrumentation(t *testing.T) {
	const inW, inH, outW, outH = 16, 16, 8, 8
	src := patternPixels(inW, inH)

	stats := &countingStats{}
	job, _ := grayJob(t, src, inW, inH, outW, outH, filter.Mitchell())
	job.Stats = stats
	require.NoError(t, job.RunSplit(0, outH))

	assert.Equal(t, int64(outH), stats.rows)
	assert.Equal(t, stats.decodes, stats.misses, "every miss decodes exactly once")
	assert.LessOrEqual(t, stats.decodes, int64(inH), "sequential rows never decode twice")
	assert.Greater(t, stats.hits, int64(0), "overlapping vertical bands must hit the cache")
}

// Offsets place a region inside larger buffers; the engine must read and
// write at the configured origins only.
func TestRegionOffsets(t *testing.T) {
	const (
		fullW, fullH = 20, 20
		inW, inH     = 8, 8
		outW, outH   = 4, 4
		srcX, srcY   = 5, 3
		dstX, dstY   = 2, 7
	)
	full := patternPixels(fullW, fullH)

	// Reference: resize the extracted region with zero origins.
	region := make([]byte, inW*inH)
	for y := 0; y < inH; y++ {
		copy(region[y*inW:], full[(srcY+y)*fullW+srcX:(srcY+y)*fullW+srcX+inW])
	}
	ref, refOut := grayJob(t, region, inW, inH, outW, outH, filter.Triangle())
	require.NoError(t, ref.RunSplit(0, outH))

	job, _ := grayJob(t, full, inW, inH, outW, outH, filter.Triangle())
	job.SrcStride = fullW
	job.SrcX0, job.SrcY0 = srcX, srcY
	bigOut := make([]byte, fullW*fullH)
	job.DstPix = bigOut
	job.DstStride = fullW
	job.DstX0, job.DstY0 = dstX, dstY
	require.NoError(t, job.RunSplit(0, outH))

	for y := 0; y < outH; y++ {
		got := bigOut[(dstY+y)*fullW+dstX : (dstY+y)*fullW+dstX+outW]
		assert.Equal(t, refOut[y*outW:(y+1)*outW], got, "row %d", y)
	}

	// Nothing outside the destination region may be touched.
	for y := 0; y < fullH; y++ {
		for x := 0; x < fullW; x++ {
			inside := x >= dstX && x < dstX+outW && y >= dstY && y < dstY+outH
			if !inside {
				assert.Zero(t, bigOut[y*fullW+x], "stray write at (%d,%d)", x, y)
			}
		}
	}
}
