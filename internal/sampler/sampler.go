// Package sampler builds the per-axis contribution tables that drive the
// separable resampling passes.
//
// For every output coordinate the builder produces an ordered list of
// (input index, weight) contributions. Tables are built once, are immutable
// afterwards and may be read concurrently by any number of splits.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/pixelgrid/go-image-resampler/internal/filter"
)

const (
	// gatherEpsilon widens the gather window slightly so that taps landing
	// exactly on the support boundary are not lost to rounding.
	gatherEpsilon = 1e-4

	// degenerateSum guards the normalization against kernels whose
	// gathered weights cancel out.
	degenerateSum = 1e-12

	// DefaultMaxTaps bounds the contribution count per output coordinate.
	// A ratio that needs more taps than this is degenerate (near-zero
	// output extent) and must be rejected or resized in stages.
	DefaultMaxTaps = 16384
)

// ErrSupportTooLarge is returned when the scaled filter support would
// produce more taps per output coordinate than MaxTaps allows.
var ErrSupportTooLarge = errors.New("filter support too large for scale ratio")

// EdgeMode selects how contributions falling outside the input extent are
// resolved.
type EdgeMode int

const (
	// EdgeClamp folds out-of-range contributions onto the nearest valid
	// index.
	EdgeClamp EdgeMode = iota
	// EdgeReflect mirrors out-of-range indices across the boundary.
	EdgeReflect
	// EdgeWrap applies modular arithmetic to out-of-range indices.
	EdgeWrap
	// EdgeZero drops out-of-range contributions without renormalizing,
	// attenuating output near the edges.
	EdgeZero
)

// Params configures a single-axis build.
type Params struct {
	// InputExtent and OutputExtent are the region sizes in pixels along
	// this axis. Both must be positive.
	InputExtent  int
	OutputExtent int

	// Kernel is the weighting function.
	Kernel filter.Kernel

	// Edge resolves out-of-bounds contributions.
	Edge EdgeMode

	// MaxTaps bounds the contributions per output coordinate.
	// Zero selects DefaultMaxTaps.
	MaxTaps int
}

// Entry locates one output coordinate's contributions inside an Axis.
type Entry struct {
	// Off and N delimit the contribution run in Index/Weight.
	Off int32
	N   int32

	// Contiguous is set when the run covers consecutive input indices,
	// enabling a dot-product fast path in the engine.
	Contiguous bool
}

// Axis is the immutable contribution table for one dimension. Index and
// Weight are parallel slices; each Entry's run is sorted by ascending input
// index, which fixes the summation order and keeps results independent of
// how output rows are partitioned.
type Axis struct {
	InputExtent  int
	OutputExtent int

	// Scale is OutputExtent / InputExtent.
	Scale float64

	Entries []Entry
	Index   []int32
	Weight  []float32

	// MaxTaps is the largest N across entries; the engine sizes its
	// scanline cache from the vertical axis value.
	MaxTaps int
}

// contrib is the scratch representation used while folding edges.
type contrib struct {
	index  int
	weight float64
}

// Build computes the contribution table for one axis.
//
// Mapping follows the pixel-center convention: output coordinate o samples
// the continuous input position (o+0.5)/scale - 0.5, which avoids a
// half-pixel bias at the boundaries. Weights are normalized to sum to 1
// before edge resolution; EdgeZero then drops out-of-range taps without
// renormalizing, so edge sums may be below 1 by design.
func Build(p Params) (*Axis, error) {
	if p.InputExtent <= 0 || p.OutputExtent <= 0 {
		return nil, fmt.Errorf("extents must be positive, got input %d, output %d",
			p.InputExtent, p.OutputExtent)
	}
	maxTaps := p.MaxTaps
	if maxTaps == 0 {
		maxTaps = DefaultMaxTaps
	}

	scale := float64(p.OutputExtent) / float64(p.InputExtent)

	// Built-in kernels are evaluated in kernel units and get the standard
	// downscale stretch here. Custom kernels own their support growth, so
	// they see raw pixel distances and no stretch.
	stretch := 1.0
	if !p.Kernel.Custom {
		stretch = filter.Stretch(scale)
	}

	var radius float64
	if !p.Kernel.Point {
		radius = p.Kernel.Support(scale) * stretch
		if taps := int(math.Ceil(2*radius)) + 1; taps > maxTaps {
			return nil, fmt.Errorf("%w: %d taps needed, limit %d (scale %g)",
				ErrSupportTooLarge, taps, maxTaps, scale)
		}
	}

	ax := &Axis{
		InputExtent:  p.InputExtent,
		OutputExtent: p.OutputExtent,
		Scale:        scale,
		Entries:      make([]Entry, p.OutputExtent),
	}

	// Scratch buffers reused across output coordinates.
	raw := make([]float64, 0, 16)
	idx := make([]int, 0, 16)
	folded := make([]contrib, 0, 16)

	for o := 0; o < p.OutputExtent; o++ {
		center := (float64(o)+0.5)/scale - 0.5

		raw = raw[:0]
		idx = idx[:0]

		if p.Kernel.Point {
			// Nearest input index, single unit weight.
			nearest := int(math.Floor(center + 0.5))
			idx = append(idx, nearest)
			raw = append(raw, 1.0)
		} else {
			first := int(math.Ceil(center - radius - gatherEpsilon))
			last := int(math.Floor(center + radius + gatherEpsilon))
			for i := first; i <= last; i++ {
				w := p.Kernel.At(math.Abs(center-float64(i))/stretch, scale)
				if w == 0 {
					continue
				}
				idx = append(idx, i)
				raw = append(raw, w)
			}
			if len(raw) == 0 {
				// Degenerate kernel; fall back to nearest neighbor.
				idx = append(idx, int(math.Floor(center+0.5)))
				raw = append(raw, 1.0)
			}

			// Normalize against the complete (pre-fold) kernel sum so
			// that EdgeZero attenuation is measured against unity.
			sum := floats.Sum(raw)
			if math.Abs(sum) < degenerateSum {
				raw = raw[:1]
				idx = idx[:1]
				raw[0] = 1.0
			} else {
				floats.Scale(1/sum, raw)
			}
		}

		folded = foldEdges(folded[:0], idx, raw, p.InputExtent, p.Edge)

		off := int32(len(ax.Index))
		contiguous := true
		for t, c := range folded {
			if t > 0 && c.index != folded[t-1].index+1 {
				contiguous = false
			}
			ax.Index = append(ax.Index, int32(c.index))
			ax.Weight = append(ax.Weight, float32(c.weight))
		}
		n := int32(len(folded))
		ax.Entries[o] = Entry{Off: off, N: n, Contiguous: contiguous}
		if int(n) > ax.MaxTaps {
			ax.MaxTaps = int(n)
		}
	}

	return ax, nil
}

// foldEdges resolves out-of-range indices per the edge mode, then merges
// duplicate indices in ascending order so that per-pixel summation is
// deterministic.
func foldEdges(dst []contrib, idx []int, w []float64, n int, mode EdgeMode) []contrib {
	for t, i := range idx {
		resolved, keep := resolveIndex(i, n, mode)
		if !keep {
			continue
		}
		dst = append(dst, contrib{index: resolved, weight: w[t]})
	}

	sort.SliceStable(dst, func(a, b int) bool { return dst[a].index < dst[b].index })

	// Merge runs of equal indices (clamp and reflect can fold several taps
	// onto the same pixel).
	out := dst[:0]
	for _, c := range dst {
		if len(out) > 0 && out[len(out)-1].index == c.index {
			out[len(out)-1].weight += c.weight
			continue
		}
		out = append(out, c)
	}
	return out
}

// resolveIndex maps index i into [0, n) per the edge mode. The second
// result is false when the contribution must be dropped.
func resolveIndex(i, n int, mode EdgeMode) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch mode {
	case EdgeClamp:
		if i < 0 {
			return 0, true
		}
		return n - 1, true
	case EdgeReflect:
		// Mirror across the boundary pixel; repeat until in range to
		// handle supports wider than the image.
		for i < 0 || i >= n {
			if i < 0 {
				i = -i
			}
			if i >= n {
				i = 2*(n-1) - i
			}
			if n == 1 {
				return 0, true
			}
		}
		return i, true
	case EdgeWrap:
		i %= n
		if i < 0 {
			i += n
		}
		return i, true
	case EdgeZero:
		return 0, false
	}
	return 0, false
}
