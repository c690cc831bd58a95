package resampler

import (
	"fmt"

	"github.com/pixelgrid/go-image-resampler/internal/filter"
)

// FilterKind selects a built-in reconstruction kernel.
type FilterKind int

const (
	// FilterAuto picks Mitchell-Netravali when the axis downsamples and
	// Catmull-Rom when it upsamples.
	FilterAuto FilterKind = iota

	// FilterPoint is nearest-neighbor sampling.
	FilterPoint

	// FilterBox averages with support 0.5.
	FilterBox

	// FilterTriangle is linear interpolation with support 1.
	FilterTriangle

	// FilterCubicBSpline is the cubic B-spline, blurry but ringing-free.
	FilterCubicBSpline

	// FilterCatmullRom is the Catmull-Rom interpolating cubic.
	FilterCatmullRom

	// FilterMitchell is the Mitchell-Netravali cubic.
	FilterMitchell

	// FilterCustom uses the Kernel/Support pair on the FilterSpec.
	FilterCustom
)

// String returns the kind name for logs and flags.
func (k FilterKind) String() string {
	switch k {
	case FilterAuto:
		return "auto"
	case FilterPoint:
		return "point"
	case FilterBox:
		return "box"
	case FilterTriangle:
		return "triangle"
	case FilterCubicBSpline:
		return "bspline"
	case FilterCatmullRom:
		return "catmullrom"
	case FilterMitchell:
		return "mitchell"
	case FilterCustom:
		return "custom"
	}
	return fmt.Sprintf("FilterKind(%d)", int(k))
}

// KernelFunc evaluates a custom kernel at distance x, in input pixels, from
// its center. The axis scale factor is passed so the kernel can adapt when
// downscaling; unlike the built-ins, a custom kernel is never stretched by
// the sampler.
type KernelFunc func(x, scale float64) float64

// SupportFunc returns a custom kernel's support radius for an axis scale
// factor. Growing the support proportionally when downscaling is what turns
// a narrow interpolation kernel into an effective area average at high
// downscale ratios.
type SupportFunc func(scale float64) float64

// FilterSpec selects the reconstruction filter for one axis: a built-in
// kind, or FilterCustom with an explicit Kernel/Support pair. Immutable
// once bound to a built sampler axis.
type FilterSpec struct {
	Kind    FilterKind
	Kernel  KernelFunc
	Support SupportFunc
}

// resolve maps the selection to an internal kernel for the given axis scale.
func (s FilterSpec) resolve(scale float64) (filter.Kernel, error) {
	switch s.Kind {
	case FilterAuto:
		return filter.Default(scale), nil
	case FilterPoint:
		return filter.Point(), nil
	case FilterBox:
		return filter.Box(), nil
	case FilterTriangle:
		return filter.Triangle(), nil
	case FilterCubicBSpline:
		return filter.BSpline(), nil
	case FilterCatmullRom:
		return filter.CatmullRom(), nil
	case FilterMitchell:
		return filter.Mitchell(), nil
	case FilterCustom:
		if s.Kernel == nil || s.Support == nil {
			return filter.Kernel{}, fmt.Errorf("%w: custom filter needs both kernel and support functions", ErrParameter)
		}
		return filter.Custom(s.Kernel, s.Support), nil
	}
	return filter.Kernel{}, fmt.Errorf("%w: unknown filter kind %d", ErrParameter, int(s.Kind))
}
