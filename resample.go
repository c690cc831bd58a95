package resampler

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/pixelgrid/go-image-resampler/internal/colorspace"
	"github.com/pixelgrid/go-image-resampler/internal/engine"
	"github.com/pixelgrid/go-image-resampler/internal/filter"
	"github.com/pixelgrid/go-image-resampler/internal/sampler"
)

// Common errors returned by the resizer.
var (
	// ErrConfiguration indicates an invalid lifecycle transition, such as
	// running before building or mutating parameters while splits execute.
	ErrConfiguration = errors.New("invalid resizer configuration")

	// ErrParameter indicates invalid parameters: non-positive dimensions,
	// mismatched channel counts, or a scale ratio whose filter support is
	// not representable.
	ErrParameter = errors.New("invalid resize parameter")

	// ErrAllocation indicates the sampler tables or intermediate buffers
	// would exceed the configured memory budget. The engine stays
	// configured and may be rebuilt with smaller parameters.
	ErrAllocation = errors.New("resize allocation failure")

	// ErrAborted is returned by Run when the output callback declines to
	// continue; the remaining rows of that split are left unwritten.
	ErrAborted = engine.ErrAborted
)

// EdgeMode governs how filter taps falling outside the input region are
// resolved.
type EdgeMode int

const (
	// EdgeClamp duplicates the nearest edge pixel.
	EdgeClamp EdgeMode = iota
	// EdgeReflect mirrors indices across the boundary.
	EdgeReflect
	// EdgeWrap applies modular arithmetic.
	EdgeWrap
	// EdgeZero drops out-of-bounds taps without renormalizing the rest,
	// attenuating output toward the edges by design.
	EdgeZero
)

func (m EdgeMode) internal() (sampler.EdgeMode, error) {
	switch m {
	case EdgeClamp:
		return sampler.EdgeClamp, nil
	case EdgeReflect:
		return sampler.EdgeReflect, nil
	case EdgeWrap:
		return sampler.EdgeWrap, nil
	case EdgeZero:
		return sampler.EdgeZero, nil
	}
	return 0, fmt.Errorf("%w: unknown edge mode %d", ErrParameter, int(m))
}

// Axis selects which dimension a configuration call applies to.
type Axis int

const (
	// AxisHorizontal applies to the width dimension.
	AxisHorizontal Axis = iota
	// AxisVertical applies to the height dimension.
	AxisVertical
	// AxisBoth applies to both dimensions.
	AxisBoth
)

// InputFunc supplies one input row on demand, as an alternative to a direct
// input buffer. It receives the absolute row index and the requested column
// range [x0, x1) and must return at least (x1-x0) packed native pixels.
// Called concurrently when splits run in parallel.
type InputFunc func(row, x0, x1 int) []byte

// OutputFunc receives one finished output row, as an alternative to a
// direct output buffer. The scanline is only valid for the duration of the
// call. Returning false aborts the split; its remaining rows stay
// unwritten and Run reports ErrAborted.
type OutputFunc func(row int, scanline []byte) bool

type resizerState int

const (
	stateConfigured resizerState = iota
	stateBuilt
	stateFreed
)

// split is one contiguous output row range, region-local.
type split struct {
	start int
	count int
}

// Resizer is a reusable, axis-aligned scale-and-translate resampling
// engine over caller-owned pixel buffers.
//
// Lifecycle: New configures, Build computes the sampler tables, Partition
// divides the output rows into independent splits, Run executes one split,
// Release frees the tables. Run for distinct splits may be called from
// concurrent goroutines; the engine itself spawns none. Every Set* call
// invalidates a previous Build. Identical configuration and input produce
// bit-identical output regardless of split count.
type Resizer struct {
	mu     sync.Mutex
	state  resizerState
	active int // splits currently executing

	input  PixelBuffer
	output PixelBuffer
	pull   InputFunc
	emit   OutputFunc

	hFilter, vFilter FilterSpec
	hEdge, vEdge     EdgeMode

	alphaWeighted bool
	zeroAlphaFast bool

	clampLo, clampHi float32
	chanMap          []int

	inRegion  image.Rectangle // zero = full input
	outRegion image.Rectangle // zero = full output

	stats *Stats

	job    *engine.Job
	splits []split
}

// New creates a configured resizer over the given buffers. The buffers are
// caller-owned; descriptors are copied but pixel storage is referenced.
// Either buffer's Pix may be nil when the corresponding callback is
// configured before Build.
func New(input, output *PixelBuffer) (*Resizer, error) {
	if err := input.validate(true); err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	if err := output.validate(true); err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	return &Resizer{
		input:         *input,
		output:        *output,
		alphaWeighted: true,
		clampLo:       defaultFloatClampLow,
		clampHi:       defaultFloatClampHigh,
	}, nil
}

// mutate runs apply under the configuration guard and invalidates any
// built sampler tables on success.
func (r *Resizer) mutate(apply func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == stateFreed {
		return fmt.Errorf("%w: resizer already released", ErrConfiguration)
	}
	if r.active > 0 {
		return fmt.Errorf("%w: cannot change parameters while splits are running", ErrConfiguration)
	}
	if err := apply(); err != nil {
		return err
	}
	r.state = stateConfigured
	r.job = nil
	r.splits = nil
	return nil
}

// SetFilter selects the reconstruction filter for one or both axes.
func (r *Resizer) SetFilter(axis Axis, spec FilterSpec) error {
	return r.mutate(func() error {
		switch axis {
		case AxisHorizontal:
			r.hFilter = spec
		case AxisVertical:
			r.vFilter = spec
		case AxisBoth:
			r.hFilter = spec
			r.vFilter = spec
		default:
			return fmt.Errorf("%w: unknown axis %d", ErrParameter, int(axis))
		}
		return nil
	})
}

// SetEdgeMode selects the out-of-bounds policy for one or both axes.
func (r *Resizer) SetEdgeMode(axis Axis, mode EdgeMode) error {
	return r.mutate(func() error {
		if _, err := mode.internal(); err != nil {
			return err
		}
		switch axis {
		case AxisHorizontal:
			r.hEdge = mode
		case AxisVertical:
			r.vEdge = mode
		case AxisBoth:
			r.hEdge = mode
			r.vEdge = mode
		default:
			return fmt.Errorf("%w: unknown axis %d", ErrParameter, int(axis))
		}
		return nil
	})
}

// SetAlphaWeighted controls whether non-premultiplied color is weighted by
// alpha before filtering (the default). Disable only when the fourth
// channel carries data without coverage semantics.
func (r *Resizer) SetAlphaWeighted(weighted bool) error {
	return r.mutate(func() error {
		r.alphaWeighted = weighted
		return nil
	})
}

// SetFastZeroAlpha selects the speed-over-quality policy for dividing by a
// convolved alpha of zero: the fast path emits zero color, while the
// default quality path propagates color from the nearest pixel with
// nonzero alpha to avoid dark fringing around fully transparent regions.
func (r *Resizer) SetFastZeroAlpha(fast bool) error {
	return r.mutate(func() error {
		r.zeroAlphaFast = fast
		return nil
	})
}

// SetFloatClamp sets the [low, high] clamp window applied to float outputs
// to absorb ringing from negative-lobe kernels. Defaults to [0, 1].
func (r *Resizer) SetFloatClamp(low, high float32) error {
	return r.mutate(func() error {
		if !(low < high) {
			return fmt.Errorf("%w: clamp window [%g, %g] is empty", ErrParameter, low, high)
		}
		r.clampLo = low
		r.clampHi = high
		return nil
	})
}

// SetChannelMap configures the source-to-destination layout conversion:
// destination channel j reads source channel m[j]. nil restores the
// identity mapping.
func (r *Resizer) SetChannelMap(m []int) error {
	return r.mutate(func() error {
		if m == nil {
			r.chanMap = nil
			return nil
		}
		if len(m) != r.output.Format.Channels {
			return fmt.Errorf("%w: channel map has %d entries, layout has %d channels",
				ErrParameter, len(m), r.output.Format.Channels)
		}
		for j, src := range m {
			if src < 0 || src >= r.input.Format.Channels {
				return fmt.Errorf("%w: channel map entry %d names source channel %d of %d",
					ErrParameter, j, src, r.input.Format.Channels)
			}
		}
		r.chanMap = append([]int(nil), m...)
		return nil
	})
}

// SetInputRegion restricts resampling to a sub-rectangle of the input, in
// pixels. The zero rectangle restores the full input.
func (r *Resizer) SetInputRegion(rect image.Rectangle) error {
	return r.mutate(func() error {
		r.inRegion = rect
		return nil
	})
}

// SetOutputRegion restricts the produced pixels to a sub-rectangle of the
// output, in pixels. The zero rectangle restores the full output.
func (r *Resizer) SetOutputRegion(rect image.Rectangle) error {
	return r.mutate(func() error {
		r.outRegion = rect
		return nil
	})
}

// SetInputRegionNormalized is SetInputRegion with coordinates expressed as
// [0, 1] fractions of the input dimensions, rounded to the pixel grid.
func (r *Resizer) SetInputRegionNormalized(x, y, w, h float64) error {
	return r.SetInputRegion(normalizedRect(x, y, w, h, r.input.Width, r.input.Height))
}

// SetOutputRegionNormalized is SetOutputRegion with coordinates expressed
// as [0, 1] fractions of the output dimensions, rounded to the pixel grid.
func (r *Resizer) SetOutputRegionNormalized(x, y, w, h float64) error {
	return r.SetOutputRegion(normalizedRect(x, y, w, h, r.output.Width, r.output.Height))
}

func normalizedRect(x, y, w, h float64, pw, ph int) image.Rectangle {
	round := func(v float64) int { return int(math.Floor(v + 0.5)) }
	return image.Rect(
		round(x*float64(pw)), round(y*float64(ph)),
		round((x+w)*float64(pw)), round((y+h)*float64(ph)))
}

// SetInputCallback supplies input rows through a pull callback instead of
// the input buffer's Pix slice, enabling streaming or tiled sources.
func (r *Resizer) SetInputCallback(fn InputFunc) error {
	return r.mutate(func() error {
		r.pull = fn
		return nil
	})
}

// SetOutputCallback delivers finished rows through a callback instead of
// writing the output buffer's Pix slice.
func (r *Resizer) SetOutputCallback(fn OutputFunc) error {
	return r.mutate(func() error {
		r.emit = fn
		return nil
	})
}

// SetStats attaches an instrumentation context. nil detaches it.
func (r *Resizer) SetStats(s *Stats) error {
	return r.mutate(func() error {
		r.stats = s
		return nil
	})
}

// Build computes the horizontal and vertical sampler tables for the
// current configuration. Idempotent until a Set* call invalidates it. On
// failure the resizer stays configured (never partially built) and may be
// rebuilt after adjusting parameters.
func (r *Resizer) Build() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.state == stateFreed:
		return fmt.Errorf("%w: resizer already released", ErrConfiguration)
	case r.active > 0:
		return fmt.Errorf("%w: cannot rebuild while splits are running", ErrConfiguration)
	case r.state == stateBuilt:
		return nil
	}
	job, err := r.buildJobLocked()
	if err != nil {
		return err
	}
	r.job = job
	r.splits = []split{{start: 0, count: job.VAxis.OutputExtent}}
	r.state = stateBuilt
	return nil
}

// Partition divides the output rows of the current build into at most
// requested contiguous, disjoint splits covering every row exactly once,
// and returns the actual split count.
func (r *Resizer) Partition(requested int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateBuilt {
		return 0, fmt.Errorf("%w: partition requires a successful build", ErrConfiguration)
	}
	if r.active > 0 {
		return 0, fmt.Errorf("%w: cannot repartition while splits are running", ErrConfiguration)
	}
	if requested < minSplitCount {
		return 0, fmt.Errorf("%w: split count %d below %d", ErrParameter, requested, minSplitCount)
	}
	rows := r.job.VAxis.OutputExtent
	n := requested
	if n > rows {
		n = rows
	}
	splits := make([]split, n)
	base := rows / n
	rem := rows % n
	start := 0
	for i := range splits {
		count := base
		if i < rem {
			count++
		}
		splits[i] = split{start: start, count: count}
		start += count
	}
	r.splits = splits
	return n, nil
}

// SplitCount returns the current number of splits (1 after Build, until
// Partition changes it).
func (r *Resizer) SplitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.splits)
}

// Run executes one split. Distinct splits may run concurrently from
// caller-managed goroutines; each writes only its own output rows and
// reads only the shared immutable tables.
func (r *Resizer) Run(splitIndex int) error {
	r.mu.Lock()
	if r.state != stateBuilt {
		r.mu.Unlock()
		return fmt.Errorf("%w: run requires a successful build", ErrConfiguration)
	}
	if splitIndex < 0 || splitIndex >= len(r.splits) {
		r.mu.Unlock()
		return fmt.Errorf("%w: split index %d outside %d splits", ErrParameter, splitIndex, len(r.splits))
	}
	sp := r.splits[splitIndex]
	job := r.job
	r.active++
	r.mu.Unlock()

	err := job.RunSplit(sp.start, sp.count)

	r.mu.Lock()
	r.active--
	r.mu.Unlock()
	return err
}

// Release frees the sampler tables. Terminal: the resizer cannot be
// reused afterwards. Must not be called while splits are running.
func (r *Resizer) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == stateFreed {
		return nil
	}
	if r.active > 0 {
		return fmt.Errorf("%w: cannot release while splits are running", ErrConfiguration)
	}
	r.job = nil
	r.splits = nil
	r.state = stateFreed
	return nil
}

// buildJobLocked validates the full configuration and assembles the
// immutable execution state.
func (r *Resizer) buildJobLocked() (*engine.Job, error) {
	if r.input.Pix == nil && r.pull == nil {
		return nil, fmt.Errorf("%w: input needs a pixel buffer or an input callback", ErrConfiguration)
	}
	if r.output.Pix == nil && r.emit == nil {
		return nil, fmt.Errorf("%w: output needs a pixel buffer or an output callback", ErrConfiguration)
	}
	if r.pull == nil {
		if err := r.input.validate(false); err != nil {
			return nil, fmt.Errorf("input: %w", err)
		}
	}
	if r.emit == nil {
		if err := r.output.validate(false); err != nil {
			return nil, fmt.Errorf("output: %w", err)
		}
	}
	if r.input.Format.Channels != r.output.Format.Channels {
		return nil, fmt.Errorf("%w: layout conversion needs equal channel counts, got %d and %d",
			ErrParameter, r.input.Format.Channels, r.output.Format.Channels)
	}

	inR, err := resolveRegion(r.inRegion, r.input.Width, r.input.Height, "input")
	if err != nil {
		return nil, err
	}
	outR, err := resolveRegion(r.outRegion, r.output.Width, r.output.Height, "output")
	if err != nil {
		return nil, err
	}

	scaleX := float64(outR.Dx()) / float64(inR.Dx())
	scaleY := float64(outR.Dy()) / float64(inR.Dy())

	hKernel, err := r.hFilter.resolve(scaleX)
	if err != nil {
		return nil, err
	}
	vKernel, err := r.vFilter.resolve(scaleY)
	if err != nil {
		return nil, err
	}
	hEdge, err := r.hEdge.internal()
	if err != nil {
		return nil, err
	}
	vEdge, err := r.vEdge.internal()
	if err != nil {
		return nil, err
	}

	if err := checkSamplerBudget(hKernel, scaleX, outR.Dx(), vKernel, scaleY, outR.Dy()); err != nil {
		return nil, err
	}

	hAxis, err := sampler.Build(sampler.Params{
		InputExtent:  inR.Dx(),
		OutputExtent: outR.Dx(),
		Kernel:       hKernel,
		Edge:         hEdge,
		MaxTaps:      maxSamplerTaps,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: horizontal sampler: %w", ErrParameter, err)
	}
	vAxis, err := sampler.Build(sampler.Params{
		InputExtent:  inR.Dy(),
		OutputExtent: outR.Dy(),
		Kernel:       vKernel,
		Edge:         vEdge,
		MaxTaps:      maxSamplerTaps,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: vertical sampler: %w", ErrParameter, err)
	}

	srcFmt := r.input.Format.internal()
	dstFmt := r.output.Format.internal()
	workingPremul := srcFmt.Premultiplied || (r.alphaWeighted && srcFmt.HasAlpha())

	job := &engine.Job{
		SrcFormat:     srcFmt,
		DstFormat:     dstFmt,
		Dec:           colorspace.NewDecoder(srcFmt, r.alphaWeighted),
		Enc:           colorspace.NewEncoder(dstFmt, workingPremul, !r.zeroAlphaFast, r.clampLo, r.clampHi, r.chanMap),
		HAxis:         hAxis,
		VAxis:         vAxis,
		SrcX0:         inR.Min.X,
		SrcY0:         inR.Min.Y,
		DstX0:         outR.Min.X,
		DstY0:         outR.Min.Y,
		VerticalFirst: scaleY < scaleX,
	}
	if r.pull != nil {
		job.Pull = engine.PullFunc(r.pull)
	} else {
		job.SrcPix = r.input.Pix
		job.SrcStride = r.input.RowStride()
	}
	if r.emit != nil {
		job.Emit = engine.EmitFunc(r.emit)
	} else {
		job.DstPix = r.output.Pix
		job.DstStride = r.output.RowStride()
	}
	if r.stats != nil {
		job.Stats = r.stats
	}
	return job, nil
}

// resolveRegion maps a configured sub-rectangle (zero value = full) onto
// the buffer bounds.
func resolveRegion(rect image.Rectangle, w, h int, side string) (image.Rectangle, error) {
	full := image.Rect(0, 0, w, h)
	if rect == (image.Rectangle{}) {
		return full, nil
	}
	if rect.Empty() || !rect.In(full) {
		return image.Rectangle{}, fmt.Errorf("%w: %s region %v outside buffer %dx%d",
			ErrParameter, side, rect, w, h)
	}
	return rect, nil
}

// checkSamplerBudget rejects builds whose contribution tables would exceed
// the memory budget before allocating them.
func checkSamplerBudget(hk filter.Kernel, scaleX float64, outW int, vk filter.Kernel, scaleY float64, outH int) error {
	total := samplerTableBytes(hk, scaleX, outW) + samplerTableBytes(vk, scaleY, outH)
	if total > maxSamplerBytes {
		return fmt.Errorf("%w: sampler tables need about %d bytes, budget is %d",
			ErrAllocation, total, maxSamplerBytes)
	}
	return nil
}

func samplerTableBytes(k filter.Kernel, scale float64, outExtent int) int64 {
	taps := 1.0
	if !k.Point {
		radius := k.Support(scale)
		if !k.Custom {
			radius *= filter.Stretch(scale)
		}
		taps = math.Ceil(2*radius) + 1
	}
	return int64(taps) * int64(outExtent) * samplerBytesPerTap
}
