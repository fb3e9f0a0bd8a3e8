package goraster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/tingold/goraster/internal/canonical"
)

// ColorKind identifies how samples are turned into colors
type ColorKind uint8

const (
	ColorUnknown ColorKind = iota // no color interpretation
	ColorGray                     // one visible band mapped to a gray ramp
	ColorRGB                      // bands 0, 1, 2 as red, green, blue
	ColorRGBA                     // bands 0, 1, 2, 3 as red, green, blue, alpha
	ColorIndexed                  // one visible band holding palette indices
)

func (k ColorKind) String() string {
	switch k {
	case ColorUnknown:
		return "unknown"
	case ColorGray:
		return "gray"
	case ColorRGB:
		return "rgb"
	case ColorRGBA:
		return "rgba"
	case ColorIndexed:
		return "indexed"
	default:
		return fmt.Sprintf("ColorKind(%d)", uint8(k))
	}
}

// ColorModel describes the color interpretation of an image's samples.
// For gray and RGB kinds, samples in [Min, Max] are stretched linearly over
// the full intensity range. For the indexed kind, the visible band holds
// indices into Palette, unless Max > Min in which case samples in
// [Min, Max] are stretched over the whole palette.
type ColorModel struct {
	Kind        ColorKind
	VisibleBand int
	Min, Max    float64
	Palette     color.Palette
}

// GrayModel returns a gray ramp over [min, max] applied to one band.
func GrayModel(band int, min, max float64) ColorModel {
	return ColorModel{Kind: ColorGray, VisibleBand: band, Min: min, Max: max}
}

// IndexedModel returns a palette color model on band 0.
func IndexedModel(palette color.Palette) ColorModel {
	return ColorModel{Kind: ColorIndexed, Palette: palette}
}

// DefaultColorModel returns the color model assumed for a layout: gray for
// one band or an unusual band count, RGB for three bands and RGBA for four.
// The ramp covers the value range of the sample type.
func DefaultColorModel(l SampleLayout) ColorModel {
	min, max := l.Type.Range()
	kind := ColorGray
	switch l.Bands {
	case 3:
		kind = ColorRGB
	case 4:
		kind = ColorRGBA
	}
	return ColorModel{Kind: kind, Min: min, Max: max}
}

// Equal reports whether both models interpret samples identically
func (cm ColorModel) Equal(o ColorModel) bool {
	if cm.Kind != o.Kind || cm.VisibleBand != o.VisibleBand || cm.Min != o.Min || cm.Max != o.Max {
		return false
	}
	if len(cm.Palette) != len(o.Palette) {
		return false
	}
	for i := range cm.Palette {
		if toNRGBA(cm.Palette[i]) != toNRGBA(o.Palette[i]) {
			return false
		}
	}
	return true
}

func (cm ColorModel) hash(h *canonical.Hasher) {
	h.Int(int(cm.Kind)).Int(cm.VisibleBand).Float(cm.Min).Float(cm.Max).Int(len(cm.Palette))
	for _, c := range cm.Palette {
		n := toNRGBA(c)
		h.Uint64(uint64(n.R)<<24 | uint64(n.G)<<16 | uint64(n.B)<<8 | uint64(n.A))
	}
}

// IsSingleBand reports whether only one band is visible through the model.
func (cm ColorModel) IsSingleBand() bool {
	return cm.Kind == ColorGray || cm.Kind == ColorIndexed
}

func toNRGBA(c color.Color) color.NRGBA {
	if c == nil {
		return color.NRGBA{}
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

// intensity maps v from [Min, Max] to [0, 255].
func (cm ColorModel) intensity(v float64) uint8 {
	if cm.Max <= cm.Min {
		if v >= cm.Max {
			return 255
		}
		return 0
	}
	t := (v - cm.Min) / (cm.Max - cm.Min)
	return uint8(math.Round(math.Max(0, math.Min(1, t)) * 255))
}

// Color returns the color of one pixel given all its samples. Pixels whose
// visible samples are NaN are transparent.
func (cm ColorModel) Color(samples []float64) color.NRGBA {
	band := func(b int) float64 {
		if b < 0 || b >= len(samples) {
			return math.NaN()
		}
		return samples[b]
	}
	switch cm.Kind {
	case ColorGray:
		v := band(cm.VisibleBand)
		if math.IsNaN(v) {
			return color.NRGBA{}
		}
		g := cm.intensity(v)
		return color.NRGBA{R: g, G: g, B: g, A: 255}
	case ColorRGB, ColorRGBA:
		r, g, b := band(0), band(1), band(2)
		if math.IsNaN(r) || math.IsNaN(g) || math.IsNaN(b) {
			return color.NRGBA{}
		}
		c := color.NRGBA{R: cm.intensity(r), G: cm.intensity(g), B: cm.intensity(b), A: 255}
		if cm.Kind == ColorRGBA {
			a := band(3)
			if math.IsNaN(a) {
				return color.NRGBA{}
			}
			c.A = cm.intensity(a)
		}
		return c
	case ColorIndexed:
		v := band(cm.VisibleBand)
		if math.IsNaN(v) || len(cm.Palette) == 0 {
			return color.NRGBA{}
		}
		if cm.Max > cm.Min {
			t := math.Max(0, math.Min(1, (v-cm.Min)/(cm.Max-cm.Min)))
			v = math.Round(t * float64(len(cm.Palette)-1))
		}
		if v < 0 || v >= float64(len(cm.Palette)) {
			return color.NRGBA{}
		}
		return toNRGBA(cm.Palette[int(v)])
	}
	return color.NRGBA{}
}

// Render draws area of img through its color model.
func Render(img RasterImage, area image.Rectangle) (*image.NRGBA, error) {
	if img == nil {
		return nil, errNilArgument("img")
	}
	area = area.Intersect(img.Bounds())
	if area.Empty() {
		return nil, &ArgumentError{Arg: "area", Reason: "does not intersect the image"}
	}
	r, err := ReadRegion(img, area)
	if err != nil {
		return nil, fmt.Errorf("failed to read region %v: %w", area, err)
	}
	cm := img.ColorModel()
	canvas := imaging.New(area.Dx(), area.Dy(), color.Transparent)
	px := make([]float64, r.Bands())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			canvas.SetNRGBA(x-area.Min.X, y-area.Min.Y, cm.Color(r.pixel(x, y, px)))
		}
	}
	return canvas, nil
}

// FromImage copies a standard library image into a four band 8-bit RGBA
// memory image whose bounds start at the origin.
func FromImage(src image.Image, tileSize int) (*MemoryImage, error) {
	if src == nil {
		return nil, errNilArgument("src")
	}
	nrgba := imaging.Clone(src)
	b := nrgba.Bounds()
	m, err := NewMemoryImage(b, SampleLayout{Bands: 4, Type: Uint8, TileWidth: tileSize, TileHeight: tileSize})
	if err != nil {
		return nil, err
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := nrgba.NRGBAAt(x, y)
			m.Set(0, x, y, float64(c.R))
			m.Set(1, x, y, float64(c.G))
			m.Set(2, x, y, float64(c.B))
			m.Set(3, x, y, float64(c.A))
		}
	}
	return m, nil
}
