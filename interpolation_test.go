package goraster

import (
	"errors"
	"image"
	"math"
	"testing"
)

// rampRaster holds x + 10*y in band 0 and a constant 5 in band 1.
func rampRaster() *Raster {
	r := NewRaster(image.Rect(0, 0, 8, 8), 2)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			r.Set(0, x, y, float64(x+10*y))
			r.Set(1, x, y, 5)
		}
	}
	return r
}

func TestSampler_PixelCenters(t *testing.T) {
	src := rampRaster()
	for _, ip := range []*Interpolation{Nearest, Bilinear, Bicubic, Lanczos} {
		t.Run(ip.Name(), func(t *testing.T) {
			s := newSampler(ip, src)
			dst := make([]float64, 2)
			for _, p := range []image.Point{{0, 0}, {3, 4}, {7, 7}} {
				s.sample(float64(p.X)+0.5, float64(p.Y)+0.5, dst)
				want := float64(p.X + 10*p.Y)
				if math.Abs(dst[0]-want) > 1e-9 || math.Abs(dst[1]-5) > 1e-9 {
					t.Errorf("At %v: Expected [%g 5], got %v", p, want, dst)
				}
			}
		})
	}
}

func TestSampler_Nearest(t *testing.T) {
	s := newSampler(Nearest, rampRaster())
	dst := make([]float64, 2)
	s.sample(1.7, 2.2, dst)
	if dst[0] != 21 {
		t.Errorf("Expected 21, got %g", dst[0])
	}
	s.sample(-0.5, 9.5, dst)
	if dst[0] != 70 {
		t.Errorf("Expected clamped edge sample 70, got %g", dst[0])
	}
}

func TestSampler_Bilinear(t *testing.T) {
	s := newSampler(Bilinear, rampRaster())
	dst := make([]float64, 2)

	s.sample(2, 1.5, dst)
	if math.Abs(dst[0]-11.5) > 1e-12 {
		t.Errorf("Expected 11.5 between pixel centers, got %g", dst[0])
	}
	s.sample(2, 2, dst)
	if math.Abs(dst[0]-16.5) > 1e-12 {
		t.Errorf("Expected 16.5 between four pixels, got %g", dst[0])
	}
	s.sample(0.1, 0.5, dst)
	if dst[0] != 0 {
		t.Errorf("Expected the edge sample to be replicated, got %g", dst[0])
	}
}

func TestSampler_SkipsNaN(t *testing.T) {
	src := NewRaster(image.Rect(0, 0, 4, 1), 1)
	src.Set(0, 1, 0, 10)
	src.Set(0, 2, 0, math.NaN())
	s := newSampler(Bilinear, src)
	dst := make([]float64, 1)
	s.sample(2, 0.5, dst)
	if dst[0] != 10 {
		t.Errorf("Expected NaN neighbor to be skipped, got %g", dst[0])
	}

	all := NewRaster(image.Rect(0, 0, 2, 1), 1)
	all.Set(0, 0, 0, math.NaN())
	all.Set(0, 1, 0, math.NaN())
	s = newSampler(Bicubic, all)
	s.sample(1, 0.5, dst)
	if !math.IsNaN(dst[0]) {
		t.Errorf("Expected NaN when every tap is NaN, got %g", dst[0])
	}
}

func TestInterpolation_ForTolerance(t *testing.T) {
	tests := []struct {
		ip        *Interpolation
		tolerance float64
		want      *Interpolation
	}{
		{Lanczos, 0, Lanczos},
		{Lanczos, 0.125, Bicubic},
		{Lanczos, 0.3, Bilinear},
		{Bicubic, 0.5, Nearest},
		{Bilinear, 0.49, Bilinear},
		{Nearest, 10, Nearest},
	}
	for _, tt := range tests {
		if got := tt.ip.forTolerance(tt.tolerance); got != tt.want {
			t.Errorf("%v with tolerance %g: Expected %v, got %v", tt.ip, tt.tolerance, tt.want, got)
		}
	}
}

func TestNewInterpolation(t *testing.T) {
	box, err := NewInterpolation("box", 0.5, func(float64) float64 { return 1 })
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if box.Name() != "box" || box.Support() != 0.5 || box.margin() != 1 {
		t.Errorf("Unexpected interpolation %v support %g margin %d", box, box.Support(), box.margin())
	}
	s := newSampler(box, rampRaster())
	dst := make([]float64, 2)
	s.sample(3.25, 0.5, dst)
	if dst[0] != 3 {
		t.Errorf("Expected 3, got %g", dst[0])
	}

	for _, support := range []float64{0, -1, 9, math.NaN()} {
		_, err := NewInterpolation("bad", support, func(float64) float64 { return 1 })
		var argErr *ArgumentError
		if !errors.As(err, &argErr) {
			t.Errorf("Expected ArgumentError for support %g, got %v", support, err)
		}
	}
	if _, err := NewInterpolation("nil", 1, nil); err == nil {
		t.Errorf("Expected error for a nil kernel")
	}
}
