package resampler

// Float output clamp defaults. Integer outputs always clamp to their
// representable range; float outputs clamp to a configurable window to
// absorb ringing from negative-lobe kernels.
const (
	defaultFloatClampLow  = 0.0
	defaultFloatClampHigh = 1.0
)

// Sampler build limits.
const (
	// maxSamplerTaps bounds the contribution count per output coordinate.
	// Scale ratios needing more taps are degenerate and must be resized
	// in stages.
	maxSamplerTaps = 16384

	// maxSamplerBytes caps the total contribution-table allocation for
	// one build. Exceeding it fails the build with ErrAllocation, leaving
	// the engine configured and safe to retry with smaller parameters.
	maxSamplerBytes = 256 << 20

	// samplerBytesPerTap is the table cost of one contribution
	// (int32 index plus float32 weight).
	samplerBytesPerTap = 8
)

// Split limits.
const (
	// minSplitCount is the smallest partition: the whole output as one
	// split.
	minSplitCount = 1
)
