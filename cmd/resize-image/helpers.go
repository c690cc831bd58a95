package main

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	xdraw "golang.org/x/image/draw"

	resampler "github.com/pixelgrid/go-image-resampler"
)

// envDefault returns the environment value for key, or fallback when unset.
func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntDefault is envDefault for integer values; unparseable values fall
// back too.
func envIntDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseFilter maps a flag value onto a filter spec.
func parseFilter(s string) (resampler.FilterSpec, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return resampler.FilterSpec{}, nil
	case "point", "nearest":
		return resampler.FilterSpec{Kind: resampler.FilterPoint}, nil
	case "box":
		return resampler.FilterSpec{Kind: resampler.FilterBox}, nil
	case "triangle", "bilinear":
		return resampler.FilterSpec{Kind: resampler.FilterTriangle}, nil
	case "bspline":
		return resampler.FilterSpec{Kind: resampler.FilterCubicBSpline}, nil
	case "catmullrom", "catmull-rom":
		return resampler.FilterSpec{Kind: resampler.FilterCatmullRom}, nil
	case "mitchell":
		return resampler.FilterSpec{Kind: resampler.FilterMitchell}, nil
	}
	return resampler.FilterSpec{}, fmt.Errorf("unknown filter %q", s)
}

// targetSize resolves the output dimensions from the width/height/scale
// flags, deriving a missing dimension from the source aspect ratio.
func targetSize(srcW, srcH, width, height int, scale float64) (int, int, error) {
	switch {
	case width > 0 && height > 0:
		return width, height, nil
	case width > 0:
		return width, atLeastOne(float64(srcH) * float64(width) / float64(srcW)), nil
	case height > 0:
		return atLeastOne(float64(srcW) * float64(height) / float64(srcH)), height, nil
	case scale > 0:
		return atLeastOne(float64(srcW) * scale), atLeastOne(float64(srcH) * scale), nil
	}
	return 0, 0, fmt.Errorf("need -width, -height or -scale")
}

func atLeastOne(v float64) int {
	n := int(math.Floor(v + 0.5))
	if n < 1 {
		return 1
	}
	return n
}

// baselineDiff resizes src with x/image/draw Catmull-Rom to dst's size and
// returns the largest per-channel difference against dst. x/image/draw
// resamples in the encoded domain, so a nonzero diff is expected; the number
// is a sanity signal, not an error measure.
func baselineDiff(src, dst *image.NRGBA) int {
	ref := image.NewNRGBA(dst.Rect)
	xdraw.CatmullRom.Scale(ref, ref.Rect, src, src.Bounds(), xdraw.Src, nil)
	max := 0
	for i := range ref.Pix {
		d := int(ref.Pix[i]) - int(dst.Pix[i])
		if d < 0 {
			d = -d
		}
		if d > max {
			max = d
		}
	}
	return max
}

// encoderFor picks the output encoder from the file extension.
func encoderFor(path string, jpegQuality int) (imgio.Encoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return imgio.PNGEncoder(), nil
	case ".jpg", ".jpeg":
		return imgio.JPEGEncoder(jpegQuality), nil
	case ".bmp":
		return imgio.BMPEncoder(), nil
	}
	return nil, fmt.Errorf("unsupported output extension %q", filepath.Ext(path))
}
