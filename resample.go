package goraster

import (
	"errors"
	"image"
	"math"
	"slices"

	"github.com/tingold/goraster/internal/canonical"
	"seehuhn.de/go/geom/vec"
)

const (
	defaultTileSize = 256
	maxTileSize     = 1024
)

var resampledImages canonical.Set[ResampledImage, *ResampledImage]

// derivedLayout returns the layout of an image computed from a source with
// layout l. Source tiles that are too large to compute at once are split.
func derivedLayout(l SampleLayout) SampleLayout {
	if l.TileWidth <= 0 || l.TileWidth > maxTileSize {
		l.TileWidth = defaultTileSize
	}
	if l.TileHeight <= 0 || l.TileHeight > maxTileSize {
		l.TileHeight = defaultTileSize
	}
	return l
}

// DefaultFillValue returns the value used for pixels that cannot be computed
// when no fill value is configured: NaN for floating point samples, 0 otherwise.
func DefaultFillValue(t SampleType) float64 {
	if t.IsFloat() {
		return math.NaN()
	}
	return 0
}

// resolveFillValues returns one fill value per band. NaN or missing entries
// of configured select the default of the sample type.
func resolveFillValues(configured []float64, l SampleLayout) []float64 {
	fill := make([]float64, l.Bands)
	for b := range fill {
		if b < len(configured) && !math.IsNaN(configured[b]) {
			fill[b] = l.Type.Clamp(configured[b])
		} else {
			fill[b] = DefaultFillValue(l.Type)
		}
	}
	return fill
}

// equalFloats compares two slices element-wise, NaN being equal to NaN.
func equalFloats(a, b []float64) bool {
	return slices.EqualFunc(a, b, func(x, y float64) bool {
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	})
}

// ResampledImage is the source image warped onto a new pixel grid. The value
// of pixel (x, y) is the interpolation of the source at toSource applied to
// the pixel center (x+0.5, y+0.5). Points falling outside the source pixel
// area, or outside the domain of the transform, get the fill value.
type ResampledImage struct {
	source   RasterImage
	bounds   image.Rectangle
	toSource PixelTransform
	interp   *Interpolation
	fill     []float64
	layout   SampleLayout
	tiles    *computedTiles
}

func newResampledImage(source RasterImage, bounds image.Rectangle, toSource PixelTransform,
	interp *Interpolation, fillValues []float64) *ResampledImage {
	r := &ResampledImage{
		source:   source,
		bounds:   bounds,
		toSource: toSource,
		interp:   interp,
		layout:   derivedLayout(source.Layout()),
	}
	r.fill = resolveFillValues(fillValues, r.layout)
	nx, ny := NumTiles(r)
	r.tiles = newComputedTiles(nx*ny, r.computeTile)
	return r
}

// Bounds returns the target pixel bounds
func (r *ResampledImage) Bounds() image.Rectangle { return r.bounds }

// Layout returns the layout of the source with possibly smaller tiles
func (r *ResampledImage) Layout() SampleLayout { return r.layout }

// ColorModel returns the color model of the source
func (r *ResampledImage) ColorModel() ColorModel { return r.source.ColorModel() }

// Property returns nil: resampled images define no property.
func (r *ResampledImage) Property(string) (any, error) { return nil, nil }

// PropertyNames returns nil
func (r *ResampledImage) PropertyNames() []string { return nil }

// Sources returns the source image
func (r *ResampledImage) Sources() []RasterImage { return []RasterImage{r.source} }

// Source returns the image being resampled
func (r *ResampledImage) Source() RasterImage { return r.source }

// ToSource returns the transform from target to source pixel coordinates
func (r *ResampledImage) ToSource() PixelTransform { return r.toSource }

// Interpolation returns the interpolation in use
func (r *ResampledImage) Interpolation() *Interpolation { return r.interp }

// FillValues returns the fill value of each band
func (r *ResampledImage) FillValues() []float64 { return slices.Clone(r.fill) }

// Tile returns tile (tx, ty), computing it on first request.
func (r *ResampledImage) Tile(tx, ty int) (*Raster, error) {
	return r.tiles.tile(r, tx, ty)
}

func (r *ResampledImage) computeTile(tx, ty int) (*Raster, error) {
	rect := tileRect(r.bounds, r.layout, tx, ty)
	out := NewRaster(rect, r.layout.Bands)
	n := rect.Dx() * rect.Dy()

	// Source coordinates of every pixel center, NaN for fill pixels.
	coords := getSamples(2 * n)
	defer putSamples(coords)

	sb := r.source.Bounds()
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	inside := 0
	i := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			p, err := r.toSource.Apply(vec.Vec2{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			switch {
			case errors.Is(err, ErrTransformDomain):
				p = vec.Vec2{X: math.NaN(), Y: math.NaN()}
			case err != nil:
				return nil, err
			case !(p.X >= float64(sb.Min.X) && p.X < float64(sb.Max.X) &&
				p.Y >= float64(sb.Min.Y) && p.Y < float64(sb.Max.Y)):
				p = vec.Vec2{X: math.NaN(), Y: math.NaN()}
			default:
				inside++
				minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
				minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
			}
			coords[i], coords[i+1] = p.X, p.Y
			i += 2
		}
	}

	if inside == 0 {
		r.fillAll(out)
		return out, nil
	}

	m := r.interp.margin()
	region := image.Rect(
		int(math.Floor(minX))-m, int(math.Floor(minY))-m,
		int(math.Floor(maxX))+m+1, int(math.Floor(maxY))+m+1,
	).Intersect(sb)
	bands := r.layout.Bands
	buf := getSamples(region.Dx() * region.Dy() * bands)
	defer putSamples(buf)
	src := newRasterOver(buf, region, bands)
	if err := readRegionInto(r.source, src); err != nil {
		return nil, err
	}

	smp := newSampler(r.interp, src)
	px := make([]float64, bands)
	integer := !r.layout.Type.IsFloat()
	i = 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			sx, sy := coords[i], coords[i+1]
			i += 2
			base := out.Index(0, x, y)
			if math.IsNaN(sx) {
				copy(out.Data[base:base+bands], r.fill)
				continue
			}
			smp.sample(sx, sy, px)
			for b, v := range px {
				if integer || r.layout.Type == Float32 {
					v = r.layout.Type.Clamp(v)
				}
				out.Data[base+b] = v
			}
		}
	}
	return out, nil
}

func (r *ResampledImage) fillAll(out *Raster) {
	bands := len(r.fill)
	for i := 0; i < len(out.Data); i += bands {
		copy(out.Data[i:i+bands], r.fill)
	}
}

// Equal reports whether both images resample the same source identically
func (r *ResampledImage) Equal(o *ResampledImage) bool {
	return sameImage(r.source, o.source) && r.bounds == o.bounds && r.interp == o.interp &&
		r.layout == o.layout && equalFloats(r.fill, o.fill) && equalTransforms(r.toSource, o.toSource)
}

// Hash returns a hash consistent with Equal
func (r *ResampledImage) Hash() uint64 {
	h := canonical.NewHasher().String("resample").Identity(r.source).
		Int(r.bounds.Min.X).Int(r.bounds.Min.Y).Int(r.bounds.Max.X).Int(r.bounds.Max.Y).
		Identity(r.interp).Floats(r.fill)
	hashTransform(h, r.toSource)
	return h.Sum()
}

func (r *ResampledImage) reentrantTiles() bool { return reentrant(r.source) }
