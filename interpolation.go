package goraster

import (
	"fmt"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// maxSupport bounds the kernel radius of custom interpolations.
const maxSupport = 8

// Interpolation is a separable resampling kernel with a fixed support.
// Instances are compared by identity.
type Interpolation struct {
	name    string
	support float64
	weight  func(t float64) float64 // called with 0 <= t < support

	// cheaper is the variant substituted when the caller accepts a
	// positional error of at least tolerance pixels.
	cheaper   *Interpolation
	tolerance float64
}

var (
	// Nearest copies the sample of the pixel containing the point.
	Nearest = &Interpolation{name: "nearest"}

	// Bilinear interpolates linearly between the four nearest pixels.
	Bilinear = &Interpolation{
		name:      "bilinear",
		support:   draw.BiLinear.Support,
		weight:    draw.BiLinear.At,
		cheaper:   Nearest,
		tolerance: 0.5,
	}

	// Bicubic uses the Catmull-Rom cubic kernel over 4x4 pixels.
	Bicubic = &Interpolation{
		name:      "bicubic",
		support:   draw.CatmullRom.Support,
		weight:    draw.CatmullRom.At,
		cheaper:   Bilinear,
		tolerance: 0.25,
	}

	// Lanczos uses the 3-lobed Lanczos kernel over 6x6 pixels.
	Lanczos = &Interpolation{
		name:      "lanczos",
		support:   imaging.Lanczos.Support,
		weight:    imaging.Lanczos.Kernel,
		cheaper:   Bicubic,
		tolerance: 0.125,
	}
)

// NewInterpolation returns a custom separable interpolation. The kernel is
// evaluated at distances in [0, support) and treated as zero beyond.
func NewInterpolation(name string, support float64, kernel func(t float64) float64) (*Interpolation, error) {
	if kernel == nil {
		return nil, errNilArgument("kernel")
	}
	if !(support > 0 && support <= maxSupport) {
		return nil, &ArgumentError{Arg: "support", Reason: fmt.Sprintf("%g is not in (0, %d]", support, maxSupport)}
	}
	return &Interpolation{name: name, support: support, weight: kernel}, nil
}

// Name returns the name given at construction
func (ip *Interpolation) Name() string { return ip.name }

// Support returns the kernel radius in pixels. Nearest has a support of 0.
func (ip *Interpolation) Support() float64 { return ip.support }

func (ip *Interpolation) String() string { return ip.name }

// margin returns the number of pixels the kernel reads on each side of
// the pixel containing the sample point.
func (ip *Interpolation) margin() int {
	return int(math.Ceil(ip.support))
}

// forTolerance returns the cheapest variant whose error stays within
// tolerance pixels.
func (ip *Interpolation) forTolerance(tolerance float64) *Interpolation {
	for ip.cheaper != nil && tolerance >= ip.tolerance {
		ip = ip.cheaper
	}
	return ip
}

// sampler interpolates samples from one source raster. It is not safe for
// concurrent use; each tile computation creates its own.
type sampler struct {
	ip     *Interpolation
	src    *Raster
	wx, wy []float64
	sum    []float64
	wsum   []float64
}

func newSampler(ip *Interpolation, src *Raster) *sampler {
	taps := 2*ip.margin() + 1
	bands := src.Bands()
	return &sampler{
		ip:   ip,
		src:  src,
		wx:   make([]float64, taps),
		wy:   make([]float64, taps),
		sum:  make([]float64, bands),
		wsum: make([]float64, bands),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// weights fills w with the kernel weights of the taps starting at first
// for a sample at continuous index u, where pixel i is centered on i.
func (s *sampler) weights(w []float64, first int, u float64) {
	for k := range w {
		d := math.Abs(float64(first+k) - u)
		if d < s.ip.support {
			w[k] = s.ip.weight(d)
		} else {
			w[k] = 0
		}
	}
}

// sample writes into dst the interpolated samples at (sx, sy), expressed in
// pixel coordinates where pixel (i, j) covers [i, i+1) x [j, j+1). Taps
// outside the raster replicate the edge samples and NaN samples are left
// out of the weighted sum.
func (s *sampler) sample(sx, sy float64, dst []float64) {
	r := s.src.Rect
	if s.ip.support == 0 {
		x := clampInt(int(math.Floor(sx)), r.Min.X, r.Max.X-1)
		y := clampInt(int(math.Floor(sy)), r.Min.Y, r.Max.Y-1)
		s.src.pixel(x, y, dst)
		return
	}

	u, v := sx-0.5, sy-0.5
	m := s.ip.margin()
	x0 := int(math.Floor(u)) - m + 1
	y0 := int(math.Floor(v)) - m + 1
	s.weights(s.wx, x0, u)
	s.weights(s.wy, y0, v)

	clear(s.sum)
	clear(s.wsum)
	for j, wy := range s.wy {
		if wy == 0 {
			continue
		}
		y := clampInt(y0+j, r.Min.Y, r.Max.Y-1)
		for i, wx := range s.wx {
			w := wx * wy
			if w == 0 {
				continue
			}
			x := clampInt(x0+i, r.Min.X, r.Max.X-1)
			base := (y-r.Min.Y)*s.src.ScanlineStride + (x-r.Min.X)*s.src.PixelStride
			for b, off := range s.src.BandOffsets {
				val := s.src.Data[base+off]
				if math.IsNaN(val) {
					continue
				}
				s.sum[b] += w * val
				s.wsum[b] += w
			}
		}
	}
	for b := range dst {
		if s.wsum[b] == 0 {
			dst[b] = math.NaN()
		} else {
			dst[b] = s.sum[b] / s.wsum[b]
		}
	}
}
