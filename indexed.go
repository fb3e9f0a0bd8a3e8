package goraster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/tingold/goraster/internal/canonical"
)

const (
	// rampEntries is the number of palette entries given to a range
	// interpolated across several colors.
	rampEntries = 64

	maxPaletteSize = 1 << 16
)

// ColorRange assigns colors to the sample values in [Min, Max]. A single
// color paints the whole range; several colors are interpolated from Min to
// Max in CIE L*a*b* space.
type ColorRange struct {
	Min, Max float64
	Colors   []color.Color
}

// Category is a named range of sample values, such as a land cover class.
type Category struct {
	Name     string
	Min, Max float64
}

// indexRange is a validated ColorRange with its position in the palette.
type indexRange struct {
	min, max float64
	first    int // palette index of the first entry
	entries  int
}

var indexedImages canonical.Set[IndexedImage, *IndexedImage]

// IndexedImage is a single-band rendition of one band of its source where
// each sample is a palette index. Palette index 0 is transparent and used
// for NaN or unmapped samples. The image is meant for display only.
type IndexedImage struct {
	source  RasterImage
	band    int
	ranges  []indexRange
	palette color.Palette
	layout  SampleLayout
	tiles   *computedTiles
}

// buildPalette validates ranges and interpolates their colors.
func buildPalette(ranges []ColorRange) ([]indexRange, color.Palette, error) {
	if len(ranges) == 0 {
		return nil, nil, &ArgumentError{Arg: "colors", Reason: "no color range"}
	}
	sorted := slices.Clone(ranges)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	palette := color.Palette{color.NRGBA{}}
	out := make([]indexRange, 0, len(sorted))
	for i, r := range sorted {
		if !isFinite(r.Min) || !isFinite(r.Max) || r.Min > r.Max {
			return nil, nil, &ArgumentError{Arg: "colors", Reason: fmt.Sprintf("[%g, %g] is not a valid range", r.Min, r.Max)}
		}
		if i > 0 && r.Min < sorted[i-1].Max {
			return nil, nil, &ArgumentError{Arg: "colors",
				Reason: fmt.Sprintf("range [%g, %g] overlaps [%g, %g]", r.Min, r.Max, sorted[i-1].Min, sorted[i-1].Max)}
		}
		if len(r.Colors) == 0 {
			return nil, nil, &ArgumentError{Arg: "colors", Reason: fmt.Sprintf("no color for range [%g, %g]", r.Min, r.Max)}
		}
		entries := 1
		if len(r.Colors) > 1 {
			entries = max(rampEntries, len(r.Colors))
		}
		if len(palette)+entries > maxPaletteSize {
			return nil, nil, &ArgumentError{Arg: "colors", Reason: fmt.Sprintf("more than %d palette entries", maxPaletteSize)}
		}
		out = append(out, indexRange{min: r.Min, max: r.Max, first: len(palette), entries: entries})
		for e := 0; e < entries; e++ {
			t := 0.0
			if entries > 1 {
				t = float64(e) / float64(entries-1)
			}
			palette = append(palette, rampColor(r.Colors, t))
		}
	}
	return out, palette, nil
}

// rampColor returns the color at position t in [0, 1] along controls.
func rampColor(controls []color.Color, t float64) color.NRGBA {
	if len(controls) == 1 {
		return toNRGBA(controls[0])
	}
	pos := t * float64(len(controls)-1)
	i := min(int(pos), len(controls)-2)
	f := pos - float64(i)
	a, b := toNRGBA(controls[i]), toNRGBA(controls[i+1])
	alpha := uint8(math.Round(float64(a.A)*(1-f) + float64(b.A)*f))
	if alpha == 0 {
		return color.NRGBA{}
	}
	ca, okA := colorful.MakeColor(opaque(a))
	cb, okB := colorful.MakeColor(opaque(b))
	if !okA || !okB {
		return color.NRGBA{}
	}
	r, g, bl := ca.BlendLab(cb, f).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: bl, A: alpha}
}

func opaque(c color.NRGBA) color.NRGBA {
	c.A = 255
	return c
}

// indexOf returns the palette index of sample v.
func indexOf(ranges []indexRange, v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].min > v }) - 1
	if i < 0 || v > ranges[i].max {
		return 0
	}
	r := &ranges[i]
	if r.entries == 1 || r.max == r.min {
		return r.first
	}
	t := (v - r.min) / (r.max - r.min)
	return r.first + int(math.Round(t*float64(r.entries-1)))
}

func newIndexedImage(source RasterImage, ranges []ColorRange) (*IndexedImage, error) {
	idx, palette, err := buildPalette(ranges)
	if err != nil {
		return nil, err
	}
	band := 0
	if cm := source.ColorModel(); cm.IsSingleBand() && cm.VisibleBand < source.Layout().Bands {
		band = cm.VisibleBand
	}
	layout := derivedLayout(source.Layout())
	layout.Bands = 1
	layout.Type = Uint8
	if len(palette) > 256 {
		layout.Type = Uint16
	}
	img := &IndexedImage{
		source:  source,
		band:    band,
		ranges:  idx,
		palette: palette,
		layout:  layout,
	}
	nx, ny := NumTiles(img)
	img.tiles = newComputedTiles(nx*ny, img.computeTile)
	return img, nil
}

// Bounds returns the bounds of the source
func (m *IndexedImage) Bounds() image.Rectangle { return m.source.Bounds() }

// Layout returns a single-band integer layout
func (m *IndexedImage) Layout() SampleLayout { return m.layout }

// ColorModel returns the palette color model
func (m *IndexedImage) ColorModel() ColorModel { return IndexedModel(m.palette) }

// Palette returns the colors indexed by the samples
func (m *IndexedImage) Palette() color.Palette { return slices.Clone(m.palette) }

// Property returns nil: palette indices have no statistics worth exposing.
func (m *IndexedImage) Property(string) (any, error) { return nil, nil }

// PropertyNames returns nil
func (m *IndexedImage) PropertyNames() []string { return nil }

// Sources returns the source image
func (m *IndexedImage) Sources() []RasterImage { return []RasterImage{m.source} }

// Tile returns tile (tx, ty), computing it on first request.
func (m *IndexedImage) Tile(tx, ty int) (*Raster, error) {
	return m.tiles.tile(m, tx, ty)
}

func (m *IndexedImage) computeTile(tx, ty int) (*Raster, error) {
	rect := tileRect(m.Bounds(), m.layout, tx, ty)
	bands := m.source.Layout().Bands
	buf := getSamples(rect.Dx() * rect.Dy() * bands)
	defer putSamples(buf)
	src := newRasterOver(buf, rect, bands)
	if err := readRegionInto(m.source, src); err != nil {
		return nil, err
	}
	out := NewRaster(rect, 1)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			out.SetUnchecked(0, x, y, float64(indexOf(m.ranges, src.AtUnchecked(m.band, x, y))))
		}
	}
	return out, nil
}

// Equal reports whether both images index the same source identically
func (m *IndexedImage) Equal(o *IndexedImage) bool {
	return sameImage(m.source, o.source) && m.band == o.band && m.layout == o.layout &&
		slices.Equal(m.ranges, o.ranges) && IndexedModel(m.palette).Equal(IndexedModel(o.palette))
}

// Hash returns a hash consistent with Equal
func (m *IndexedImage) Hash() uint64 {
	h := canonical.NewHasher().String("indexed").Identity(m.source).Int(m.band).Int(len(m.ranges))
	for _, r := range m.ranges {
		h.Float(r.min).Float(r.max).Int(r.first).Int(r.entries)
	}
	IndexedModel(m.palette).hash(h)
	return h.Sum()
}

func (m *IndexedImage) reentrantTiles() bool { return reentrant(m.source) }
