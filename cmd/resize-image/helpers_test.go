package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	resampler "github.com/pixelgrid/go-image-resampler"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want resampler.FilterKind
	}{
		{in: "auto", want: resampler.FilterAuto},
		{in: "point", want: resampler.FilterPoint},
		{in: "nearest", want: resampler.FilterPoint},
		{in: "box", want: resampler.FilterBox},
		{in: "bilinear", want: resampler.FilterTriangle},
		{in: "bspline", want: resampler.FilterCubicBSpline},
		{in: "catmull-rom", want: resampler.FilterCatmullRom},
		{in: "Mitchell", want: resampler.FilterMitchell},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			spec, err := parseFilter(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.Kind)
		})
	}

	_, err := parseFilter("gaussian")
	assert.Error(t, err)
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		scale         float64
		wantW, wantH  int
		wantErr       bool
	}{
		{name: "explicit", width: 640, height: 480, wantW: 640, wantH: 480},
		{name: "width keeps aspect", width: 400, wantW: 400, wantH: 300},
		{name: "height keeps aspect", height: 150, wantW: 200, wantH: 150},
		{name: "uniform scale", scale: 0.5, wantW: 400, wantH: 300},
		{name: "tiny scale floors at one", scale: 0.0001, wantW: 1, wantH: 1},
		{name: "nothing given", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := targetSize(800, 600, tt.width, tt.height, tt.scale)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestEncoderFor(t *testing.T) {
	for _, ext := range []string{"out.png", "out.jpg", "out.JPEG", "out.bmp"} {
		_, err := encoderFor(ext, 90)
		assert.NoError(t, err, ext)
	}
	_, err := encoderFor("out.webp", 90)
	assert.Error(t, err)
}
