// Command analyze-kernel prints the spatial taps and the frequency
// response of a resampling filter at a given scale factor.
//
// Usage:
//
//	analyze-kernel -filter mitchell -scale 0.5
//	analyze-kernel -filter bspline -scale 0.25 -points 4096
//
// The frequency response shows how well the stretched kernel suppresses
// frequencies above the output Nyquist rate when downscaling; energy left
// there aliases into the result.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/pixelgrid/go-image-resampler/internal/filter"
)

const (
	// samplesPerPixel is the spatial sampling density of the kernel.
	samplesPerPixel = 64

	// defaultPoints is the FFT length; zero-padding beyond the kernel
	// support refines the frequency grid.
	defaultPoints = 2048

	// responseRows is how many frequency bins the table prints.
	responseRows = 16

	dbFloor = -120.0
)

func main() {
	var (
		name   = flag.String("filter", "mitchell", "Filter: box, triangle, bspline, catmullrom, mitchell")
		scale  = flag.Float64("scale", 0.5, "Axis scale factor (output/input)")
		points = flag.Int("points", defaultPoints, "FFT length")
	)
	flag.Parse()

	k, err := kernelByName(*name)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *scale <= 0 {
		log.Fatalf("scale must be positive, got %g", *scale)
	}

	stretch := filter.Stretch(*scale)
	radius := k.Support(*scale) * stretch

	fmt.Printf("=== %s at scale %g ===\n", *name, *scale)
	fmt.Printf("Support: %.2f kernel units, %.2f pixels after stretch\n", k.Support(*scale), radius)
	fmt.Printf("Taps per output pixel: about %d\n\n", int(math.Ceil(2*radius))+1)

	printTapProfile(k, *scale, stretch, radius)
	printFrequencyResponse(k, *scale, stretch, radius, *points)
}

// kernelByName resolves a flag value to a kernel.
func kernelByName(s string) (filter.Kernel, error) {
	switch strings.ToLower(s) {
	case "box":
		return filter.Box(), nil
	case "triangle", "bilinear":
		return filter.Triangle(), nil
	case "bspline":
		return filter.BSpline(), nil
	case "catmullrom", "catmull-rom":
		return filter.CatmullRom(), nil
	case "mitchell":
		return filter.Mitchell(), nil
	}
	return filter.Kernel{}, fmt.Errorf("unknown filter %q", s)
}

// printTapProfile prints the normalized weights at whole-pixel distances,
// the values an axis-aligned resize actually uses.
func printTapProfile(k filter.Kernel, scale, stretch, radius float64) {
	var weights []float64
	var sum float64
	for i := -int(math.Ceil(radius)); i <= int(math.Ceil(radius)); i++ {
		w := k.At(math.Abs(float64(i))/stretch, scale)
		weights = append(weights, w)
		sum += w
	}
	fmt.Println("Pixel-aligned taps (normalized):")
	for i, w := range weights {
		d := i - len(weights)/2
		if w == 0 && d != 0 {
			continue
		}
		fmt.Printf("  %+3d: %+.6f\n", d, w/sum)
	}
	fmt.Println()
}

// printFrequencyResponse samples the stretched kernel densely, transforms
// it and reports the magnitude response against the output Nyquist rate.
func printFrequencyResponse(k filter.Kernel, scale, stretch, radius float64, points int) {
	dx := 1.0 / samplesPerPixel
	n := int(2*radius/dx) + 1
	if n > points {
		points = n
	}

	samples := make([]float64, points)
	var sum float64
	for i := 0; i < n; i++ {
		x := -radius + float64(i)*dx
		w := k.At(math.Abs(x)/stretch, scale)
		samples[i] = w
		sum += w
	}
	if sum == 0 {
		log.Fatalf("kernel integrates to zero")
	}
	for i := range samples {
		samples[i] /= sum
	}

	fft := fourier.NewFFT(points)
	coeffs := fft.Coefficients(nil, samples)

	// Output Nyquist in cycles per input pixel; only meaningful when
	// downscaling.
	outNyquist := scale / 2
	if scale >= 1 {
		outNyquist = 0.5
	}

	fmt.Println("Frequency response (cycles/pixel):")
	var worstStopband = dbFloor
	maxBin := points / 2
	for bin := 0; bin <= maxBin; bin++ {
		freq := fft.Freq(bin) * samplesPerPixel
		mag := cmplx.Abs(coeffs[bin])
		db := dbFloor
		if mag > 0 {
			db = 20 * math.Log10(mag)
			if db < dbFloor {
				db = dbFloor
			}
		}
		if freq > outNyquist && db > worstStopband {
			worstStopband = db
		}
		if bin%(maxBin/responseRows) == 0 && freq <= 2*outNyquist {
			marker := ""
			if freq <= outNyquist {
				marker = "  (passband)"
			}
			fmt.Printf("  %6.4f: %7.2f dB%s\n", freq, db, marker)
		}
	}
	fmt.Printf("\nWorst response above output Nyquist (%.4f c/px): %.2f dB\n", outNyquist, worstStopband)
}
