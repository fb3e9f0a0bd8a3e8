package coverage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/tingold/goraster"
	"github.com/tingold/goraster/internal/canonical"
	"seehuhn.de/go/geom/vec"
)

const (
	// defaultTileSize is the pixel size of map tiles
	defaultTileSize = 256

	// edgeSamples is the number of points sampled along each edge of a grid
	// when projecting its envelope through a non-linear operation.
	edgeSamples = 16

	// pixelEpsilon absorbs rounding errors when snapping to pixel indices
	pixelEpsilon = 1e-6
)

// Processor resamples coverages to other grid geometries. Image work is
// delegated to a goraster.Processor whose configuration applies.
type Processor struct {
	images *goraster.Processor
	finder OperationFinder
}

// Option configures a Processor. Nil values are ignored.
type Option func(*Processor)

// WithImageProcessor sets the processor resampling the images
func WithImageProcessor(p *goraster.Processor) Option {
	return func(c *Processor) {
		if p != nil {
			c.images = p
		}
	}
}

// WithOperationFinder sets the function finding coordinate operations
func WithOperationFinder(f OperationFinder) Option {
	return func(c *Processor) {
		if f != nil {
			c.finder = f
		}
	}
}

// NewProcessor returns a coverage processor using a default image processor
// and DefaultOperationFinder, unless changed by opts.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	if p.images == nil {
		p.images = goraster.NewProcessor()
	}
	if p.finder == nil {
		p.finder = DefaultOperationFinder
	}
	return p
}

// ImageProcessor returns the processor resampling the images
func (p *Processor) ImageProcessor() *goraster.Processor { return p.images }

// Interpolation returns the interpolation of the image processor
func (p *Processor) Interpolation() *goraster.Interpolation { return p.images.Interpolation() }

// SetInterpolation sets the interpolation of the image processor
func (p *Processor) SetInterpolation(ip *goraster.Interpolation) error {
	return p.images.SetInterpolation(ip)
}

// Resample returns source on the target grid. Fields left unspecified in
// target are completed from source: the CRS defaults to the source CRS, the
// resolution to the source resolution at its center and the extent to the
// source envelope. A coverage resampled earlier is resampled from its own
// source. Source is returned when the completed grid equals its grid.
func (p *Processor) Resample(source *GridCoverage, target GridGeometry) (*GridCoverage, error) {
	if source == nil {
		return nil, &goraster.ArgumentError{Arg: "source", Reason: "must not be nil"}
	}
	if source.source != nil {
		source = source.source
	}
	if !source.Geometry.IsComplete() {
		return nil, &goraster.ArgumentError{Arg: "source", Reason: "grid geometry is incomplete"}
	}
	completed, err := p.complete(source.Geometry, target)
	if err != nil {
		return nil, err
	}
	if completed.Equal(source.Geometry) {
		return source, nil
	}
	toSource, err := p.pixelTransform(completed, source.Geometry)
	if err != nil {
		return nil, err
	}
	img, err := p.images.Resample(source.Image, completed.Extent, toSource)
	if err != nil {
		return nil, err
	}
	p.images.Logger().LogAttrs(context.Background(), slog.LevelDebug, "resampled coverage",
		slog.String("source", source.Geometry.String()),
		slog.String("target", completed.String()))
	return &GridCoverage{Geometry: completed, Image: img, source: source}, nil
}

// ResampleToTile returns the map tile covering tile, size pixels wide, in
// Web Mercator. Sources must be in EPSG:4326 or EPSG:3857. A size of zero
// or less selects 256 pixels.
func (p *Processor) ResampleToTile(source *GridCoverage, tile maptile.Tile, size int) (*GridCoverage, error) {
	if size <= 0 {
		size = defaultTileSize
	}
	if source == nil {
		return nil, &goraster.ArgumentError{Arg: "source", Reason: "must not be nil"}
	}
	if crs := source.Geometry.CRS; crs != EPSG4326 && crs != EPSG3857 {
		return nil, fmt.Errorf("unsupported projection %s, only %s and %s are supported: %w",
			crs, EPSG4326, EPSG3857, ErrNotConvertible)
	}
	bound, err := wgs84ToMercatorBound(tile.Bound())
	if err != nil {
		return nil, err
	}
	sx := (bound.Max[0] - bound.Min[0]) / float64(size)
	sy := (bound.Max[1] - bound.Min[1]) / float64(size)
	return p.Resample(source, GridGeometry{
		Extent:    image.Rect(0, 0, size, size),
		GridToCRS: goraster.NewAffine(sx, 0, 0, -sy, bound.Min[0], bound.Max[1]),
		CRS:       EPSG3857,
	})
}

// complete fills the unspecified fields of target from source.
func (p *Processor) complete(source, target GridGeometry) (GridGeometry, error) {
	if target.CRS == "" {
		target.CRS = source.CRS
	}
	if target.GridToCRS != nil && !target.Extent.Empty() {
		return target, nil
	}
	op, err := p.finder(source.CRS, target.CRS)
	if err != nil {
		return GridGeometry{}, err
	}
	env, err := projectEnvelope(source, op)
	if err != nil {
		return GridGeometry{}, err
	}
	switch {
	case target.GridToCRS != nil:
		inv, err := target.GridToCRS.Inverse()
		if err != nil {
			return GridGeometry{}, &goraster.ArgumentError{Arg: "target", Reason: err.Error()}
		}
		pix := transformBound(env, inv)
		target.Extent = image.Rect(
			int(math.Floor(pix.Min[0]+pixelEpsilon)), int(math.Floor(pix.Min[1]+pixelEpsilon)),
			int(math.Ceil(pix.Max[0]-pixelEpsilon)), int(math.Ceil(pix.Max[1]-pixelEpsilon)))
	case !target.Extent.Empty():
		e := target.Extent
		sx := (env.Max[0] - env.Min[0]) / float64(e.Dx())
		sy := (env.Max[1] - env.Min[1]) / float64(e.Dy())
		target.GridToCRS = goraster.NewAffine(sx, 0, 0, -sy,
			env.Min[0]-sx*float64(e.Min.X), env.Max[1]+sy*float64(e.Min.Y))
	default:
		sx, sy, err := resolutionAtCenter(source, op)
		if err != nil {
			return GridGeometry{}, err
		}
		w := int(math.Ceil((env.Max[0]-env.Min[0])/sx - pixelEpsilon))
		h := int(math.Ceil((env.Max[1]-env.Min[1])/sy - pixelEpsilon))
		target.Extent = image.Rect(0, 0, max(w, 1), max(h, 1))
		target.GridToCRS = goraster.NewAffine(sx, 0, 0, -sy, env.Min[0], env.Max[1])
	}
	if target.Extent.Empty() {
		return GridGeometry{}, &goraster.ArgumentError{Arg: "target", Reason: "grid does not intersect the source"}
	}
	return target, nil
}

// pixelTransform returns the transform from target pixels to source pixels.
func (p *Processor) pixelTransform(target, source GridGeometry) (goraster.PixelTransform, error) {
	op, err := p.finder(target.CRS, source.CRS)
	if err != nil {
		return nil, err
	}
	crsToGrid, err := source.GridToCRS.Inverse()
	if err != nil {
		return nil, &goraster.ArgumentError{Arg: "source", Reason: err.Error()}
	}
	t, err := goraster.Concatenate(target.GridToCRS, op)
	if err != nil {
		return nil, err
	}
	return goraster.Concatenate(t, crsToGrid)
}

// projectEnvelope returns the bounds of the source grid projected by op.
// Points sampled along the edges catch the curvature of non-linear
// operations; points outside the domain of op are skipped.
func projectEnvelope(source GridGeometry, op goraster.PixelTransform) (orb.Bound, error) {
	e := source.Extent
	var points orb.MultiPoint
	add := func(x, y float64) error {
		c, _ := source.PixelToCRS(x, y)
		q, err := op.Apply(vec.Vec2{X: c[0], Y: c[1]})
		if err != nil {
			if errors.Is(err, goraster.ErrTransformDomain) {
				return nil
			}
			return err
		}
		if !math.IsNaN(q.X) && !math.IsNaN(q.Y) && !math.IsInf(q.X, 0) && !math.IsInf(q.Y, 0) {
			points = append(points, orb.Point{q.X, q.Y})
		}
		return nil
	}
	x0, y0, x1, y1 := float64(e.Min.X), float64(e.Min.Y), float64(e.Max.X), float64(e.Max.Y)
	for i := 0; i <= edgeSamples; i++ {
		f := float64(i) / edgeSamples
		x, y := x0+f*(x1-x0), y0+f*(y1-y0)
		for _, pt := range [4][2]float64{{x, y0}, {x, y1}, {x0, y}, {x1, y}} {
			if err := add(pt[0], pt[1]); err != nil {
				return orb.Bound{}, err
			}
		}
	}
	if len(points) == 0 {
		return orb.Bound{}, fmt.Errorf("source envelope: %w", goraster.ErrTransformDomain)
	}
	return points.Bound(), nil
}

// resolutionAtCenter returns the size in target CRS units of the source
// pixel at the center of the source grid.
func resolutionAtCenter(source GridGeometry, op goraster.PixelTransform) (float64, float64, error) {
	e := source.Extent
	cx := float64(e.Min.X+e.Max.X) / 2
	cy := float64(e.Min.Y+e.Max.Y) / 2
	var q [3]vec.Vec2
	for i, d := range [3][2]float64{{0, 0}, {1, 0}, {0, 1}} {
		c, _ := source.PixelToCRS(cx+d[0], cy+d[1])
		v, err := op.Apply(vec.Vec2{X: c[0], Y: c[1]})
		if err != nil {
			return 0, 0, err
		}
		q[i] = v
	}
	sx := math.Hypot(q[1].X-q[0].X, q[1].Y-q[0].Y)
	sy := math.Hypot(q[2].X-q[0].X, q[2].Y-q[0].Y)
	if !(sx > 0) || !(sy > 0) || math.IsInf(sx, 0) || math.IsInf(sy, 0) {
		return 0, 0, &goraster.ArgumentError{Arg: "source", Reason: "degenerate resolution"}
	}
	return sx, sy, nil
}

// transformBound returns the bounds of b mapped by an affine transform.
func transformBound(b orb.Bound, t *goraster.Affine) orb.Bound {
	var points orb.MultiPoint
	for _, c := range [4]orb.Point{b.Min, {b.Max[0], b.Min[1]}, b.Max, {b.Min[0], b.Max[1]}} {
		q, _ := t.Apply(vec.Vec2{X: c[0], Y: c[1]})
		points = append(points, orb.Point{q.X, q.Y})
	}
	return points.Bound()
}

// Equal reports whether both processors resample identically. Operation
// finders are functions and are not compared.
func (p *Processor) Equal(o *Processor) bool {
	return o != nil && p.images.Equal(o.images)
}

// Hash returns a hash consistent with Equal
func (p *Processor) Hash() uint64 {
	return canonical.NewHasher().String("coverage").Uint64(p.images.Hash()).Sum()
}

// Clone returns a processor with a copy of the image processor
func (p *Processor) Clone() *Processor {
	return &Processor{images: p.images.Clone(), finder: p.finder}
}
