package goraster

import (
	"fmt"
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/tingold/goraster/internal/canonical"
)

var recoloredImages canonical.Set[RecoloredImage, *RecoloredImage]

// RecoloredImage exposes the samples of its source unchanged under a
// different color model.
type RecoloredImage struct {
	source RasterImage
	cm     ColorModel
}

// recolor returns source viewed through cm. No wrapper is created when cm
// already is the color model of source, and an existing recoloring is
// replaced rather than stacked.
func recolor(source RasterImage, cm ColorModel) RasterImage {
	for {
		if source.ColorModel().Equal(cm) {
			return source
		}
		r, ok := source.(*RecoloredImage)
		if !ok {
			break
		}
		source = r.source
	}
	return recoloredImages.Unique(&RecoloredImage{source: source, cm: cm})
}

// Bounds returns the bounds of the source
func (r *RecoloredImage) Bounds() image.Rectangle { return r.source.Bounds() }

// Layout returns the layout of the source
func (r *RecoloredImage) Layout() SampleLayout { return r.source.Layout() }

// ColorModel returns the replacement color model
func (r *RecoloredImage) ColorModel() ColorModel { return r.cm }

// Tile returns the source tile unchanged
func (r *RecoloredImage) Tile(tx, ty int) (*Raster, error) { return r.source.Tile(tx, ty) }

// Property delegates to the source
func (r *RecoloredImage) Property(name string) (any, error) { return r.source.Property(name) }

// PropertyNames delegates to the source
func (r *RecoloredImage) PropertyNames() []string { return r.source.PropertyNames() }

// Sources returns the source image
func (r *RecoloredImage) Sources() []RasterImage { return []RasterImage{r.source} }

// Equal reports whether both images recolor the same source identically
func (r *RecoloredImage) Equal(o *RecoloredImage) bool {
	return sameImage(r.source, o.source) && r.cm.Equal(o.cm)
}

// Hash returns a hash consistent with Equal
func (r *RecoloredImage) Hash() uint64 {
	h := canonical.NewHasher().String("recolor").Identity(r.source)
	r.cm.hash(h)
	return h.Sum()
}

func (r *RecoloredImage) reentrantTiles() bool { return reentrant(r.source) }

// StretchModifier customizes StretchColorRamp.
type StretchModifier func(*stretchOptions) error

type stretchOptions struct {
	min, max float64 // NaN when not given
	stdDev   float64 // 0 when not given
	stats    *Statistics
	aoi      orb.Geometry
}

// StretchRange maps min to the darkest and max to the brightest color.
func StretchRange(min, max float64) StretchModifier {
	return func(o *stretchOptions) error {
		if !isFinite(min) || !isFinite(max) || min >= max {
			return &ArgumentError{Arg: "range", Reason: fmt.Sprintf("[%g, %g] is not a valid range", min, max)}
		}
		o.min, o.max = min, max
		return nil
	}
}

// StretchMinimum sets the value mapped to the darkest color.
func StretchMinimum(v float64) StretchModifier {
	return func(o *stretchOptions) error {
		if !isFinite(v) {
			return &ArgumentError{Arg: "minimum", Reason: fmt.Sprintf("%g is not finite", v)}
		}
		o.min = v
		return nil
	}
}

// StretchMaximum sets the value mapped to the brightest color.
func StretchMaximum(v float64) StretchModifier {
	return func(o *stretchOptions) error {
		if !isFinite(v) {
			return &ArgumentError{Arg: "maximum", Reason: fmt.Sprintf("%g is not finite", v)}
		}
		o.max = v
		return nil
	}
}

// StretchStdDev narrows the bounds that are not given explicitly to the
// mean plus or minus k standard deviations.
func StretchStdDev(k float64) StretchModifier {
	return func(o *stretchOptions) error {
		if !(k > 0) || math.IsInf(k, 0) {
			return &ArgumentError{Arg: "multStdDev", Reason: fmt.Sprintf("%g is not a positive number", k)}
		}
		o.stdDev = k
		return nil
	}
}

// StretchStatistics uses s instead of computing statistics of the source.
func StretchStatistics(s Statistics) StretchModifier {
	return func(o *stretchOptions) error {
		o.stats = &s
		return nil
	}
}

// StretchArea computes the statistics over aoi, in pixel coordinates.
func StretchArea(aoi orb.Geometry) StretchModifier {
	return func(o *stretchOptions) error {
		o.aoi = aoi
		return nil
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// stretchRange resolves the [min, max] range of a stretch. stats is called
// only when a bound is missing.
func (o *stretchOptions) stretchRange(stats func() (Statistics, error)) (float64, float64, error) {
	lo, hi := o.min, o.max
	if !math.IsNaN(lo) && !math.IsNaN(hi) {
		return lo, hi, nil
	}
	var s Statistics
	if o.stats != nil {
		s = *o.stats
	} else {
		var err error
		if s, err = stats(); err != nil {
			return 0, 0, err
		}
	}
	if math.IsNaN(lo) {
		lo = s.Minimum()
		if o.stdDev > 0 {
			lo = math.Max(lo, s.Mean()-o.stdDev*s.StandardDeviation(true))
		}
	}
	if math.IsNaN(hi) {
		hi = s.Maximum()
		if o.stdDev > 0 {
			hi = math.Min(hi, s.Mean()+o.stdDev*s.StandardDeviation(true))
		}
	}
	return lo, hi, nil
}
