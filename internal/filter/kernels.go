// Package filter provides the 1D reconstruction kernels used to build
// resampling weight tables.
//
// A kernel is evaluated in its own natural units: At(x) is the weight at
// distance x from the kernel center, and Support is the half-width beyond
// which At is zero. When an axis is downscaled, the sampler stretches the
// kernel by the inverse scale factor so that it integrates over
// proportionally more source pixels; custom kernels receive the axis scale
// factor directly and may implement any support growth they need.
package filter

import "math"

// Kernel support radii for the built-in kernels.
const (
	boxSupport      = 0.5
	triangleSupport = 1.0
	cubicSupport    = 2.0

	// Mitchell-Netravali B/C parameters for the cubic family.
	bsplineB    = 1.0
	bsplineC    = 0.0
	catmullRomB = 0.0
	catmullRomC = 0.5
	mitchellB   = 1.0 / 3.0
	mitchellC   = 1.0 / 3.0

	// hermiteRadius is the support of a (0,0) cubic, which has no
	// second lobe.
	hermiteRadius = 1.0
)

// Kernel is a 1D weighting function with finite support.
//
// Both functions receive the axis scale factor (output extent divided by
// input extent) so that custom kernels can widen their support when
// downscaling. Built-in kernels ignore the scale factor; the sampler applies
// the standard stretch for them.
type Kernel struct {
	// At returns the weight at distance x >= 0 from the center.
	At func(x, scale float64) float64

	// Support returns the half-width of the nonzero domain, in kernel
	// units.
	Support func(scale float64) float64

	// Point marks a nearest-neighbor kernel: the sampler emits a single
	// unit-weight contribution instead of evaluating At.
	Point bool

	// Custom marks a caller-supplied kernel. The sampler skips the
	// standard downscale stretch for it and passes raw pixel distances,
	// leaving support growth to the kernel itself.
	Custom bool
}

// Box returns a box (averaging) kernel with support 0.5.
func Box() Kernel {
	return Kernel{
		At: func(x, scale float64) float64 {
			if x <= boxSupport {
				return 1.0
			}
			return 0.0
		},
		Support: func(scale float64) float64 { return boxSupport },
	}
}

// Triangle returns a triangle (bilinear) kernel with support 1.
func Triangle() Kernel {
	return Kernel{
		At: func(x, scale float64) float64 {
			if x < triangleSupport {
				return triangleSupport - x
			}
			return 0.0
		},
		Support: func(scale float64) float64 { return triangleSupport },
	}
}

// Cubic returns a kernel from the Mitchell-Netravali cubic family with the
// given B and C parameters. (1,0) is the cubic B-spline, (0,0.5) Catmull-Rom
// and (1/3,1/3) the Mitchell-Netravali filter.
func Cubic(b, c float64) Kernel {
	radius := cubicSupport
	if b == 0 && c == 0 {
		radius = hermiteRadius
	}
	return Kernel{
		At: func(x, scale float64) float64 {
			if x < 1.0 {
				return ((12.0-9.0*b-6.0*c)*x*x*x +
					(-18.0+12.0*b+6.0*c)*x*x +
					(6.0 - 2.0*b)) / 6.0
			} else if x < 2.0 {
				return ((-b-6.0*c)*x*x*x +
					(6.0*b+30.0*c)*x*x +
					(-12.0*b-48.0*c)*x +
					(8.0*b + 24.0*c)) / 6.0
			}
			return 0.0
		},
		Support: func(scale float64) float64 { return radius },
	}
}

// BSpline returns the cubic B-spline kernel. It never rings but blurs
// noticeably; useful for heavy downscaling.
func BSpline() Kernel { return Cubic(bsplineB, bsplineC) }

// CatmullRom returns the Catmull-Rom interpolating cubic. Sharp, with mild
// negative lobes.
func CatmullRom() Kernel { return Cubic(catmullRomB, catmullRomC) }

// Mitchell returns the Mitchell-Netravali cubic, a good compromise between
// ringing and blur and the default for downscaling.
func Mitchell() Kernel { return Cubic(mitchellB, mitchellC) }

// Point returns a nearest-neighbor kernel. The sampler resolves it to a
// single unit-weight contribution per output coordinate.
func Point() Kernel {
	return Kernel{
		At:      func(x, scale float64) float64 { return 1.0 },
		Support: func(scale float64) float64 { return 0.0 },
		Point:   true,
	}
}

// Custom wraps a caller-supplied weight/support function pair. Both are
// parameterized by the axis scale factor, so a custom kernel controls its
// own support growth when downscaling.
func Custom(at func(x, scale float64) float64, support func(scale float64) float64) Kernel {
	return Kernel{At: at, Support: support, Custom: true}
}

// Stretch returns the kernel-space stretch factor for an axis scale factor:
// 1 when upscaling, 1/scale when downscaling. The sampler divides pixel
// distances by this factor before evaluating the kernel, which turns a
// narrow interpolation kernel into an effective area average at high
// downscale ratios.
func Stretch(scale float64) float64 {
	if scale >= 1.0 {
		return 1.0
	}
	return 1.0 / scale
}

// Default returns the default kernel for an axis scale factor: the wider
// Mitchell-Netravali cubic when downscaling (to suppress aliasing) and the
// sharper Catmull-Rom when upscaling or copying.
func Default(scale float64) Kernel {
	if scale < 1.0 {
		return Mitchell()
	}
	return CatmullRom()
}

// Sinc is the mathematical sinc function sin(pi*x)/(pi*x), exposed for
// custom windowed-sinc kernels.
func Sinc(x float64) float64 {
	if math.Abs(x) < 1e-9 {
		return 1.0
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}
