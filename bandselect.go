package goraster

import (
	"fmt"
	"image"
	"slices"

	"github.com/tingold/goraster/internal/canonical"
)

var bandSelectImages canonical.Set[BandSelectImage, *BandSelectImage]

// BandSelectImage exposes a subset of the bands of its source, possibly
// reordered or repeated. Tiles are views sharing the source storage, so
// writes to the source are visible through this image.
type BandSelectImage struct {
	source RasterImage
	bands  []int
	layout SampleLayout
	cm     ColorModel
}

// selectBands validates bands and returns the matching view of source.
func selectBands(source RasterImage, bands []int) (RasterImage, error) {
	n := source.Layout().Bands
	if len(bands) == 0 {
		return nil, &ArgumentError{Arg: "bands", Reason: "no band selected"}
	}
	for _, b := range bands {
		if b < 0 || b >= n {
			return nil, &ArgumentError{Arg: "bands", Reason: fmt.Sprintf("band %d is out of range [0, %d)", b, n)}
		}
	}
	bands = slices.Clone(bands)
	if s, ok := source.(*BandSelectImage); ok {
		for i, b := range bands {
			bands[i] = s.bands[b]
		}
		source = s.source
		n = source.Layout().Bands
	}
	if isIdentitySelection(bands, n) {
		return source, nil
	}
	layout := source.Layout()
	layout.Bands = len(bands)
	img := &BandSelectImage{
		source: source,
		bands:  bands,
		layout: layout,
		cm:     selectedColorModel(source.ColorModel(), bands, layout),
	}
	return bandSelectImages.Unique(img), nil
}

func isIdentitySelection(bands []int, n int) bool {
	if len(bands) != n {
		return false
	}
	for i, b := range bands {
		if b != i {
			return false
		}
	}
	return true
}

// selectedColorModel derives the color model of a band selection. The
// visible band follows the selection when it is kept; otherwise the
// default model of the new layout applies.
func selectedColorModel(cm ColorModel, bands []int, layout SampleLayout) ColorModel {
	if cm.IsSingleBand() {
		if i := slices.Index(bands, cm.VisibleBand); i >= 0 {
			cm.VisibleBand = i
			return cm
		}
		return DefaultColorModel(layout)
	}
	if cm.Kind == ColorRGB || cm.Kind == ColorRGBA {
		out := DefaultColorModel(layout)
		out.Min, out.Max = cm.Min, cm.Max
		return out
	}
	return DefaultColorModel(layout)
}

// Bounds returns the bounds of the source
func (s *BandSelectImage) Bounds() image.Rectangle { return s.source.Bounds() }

// Layout returns the layout of the source with the selected band count
func (s *BandSelectImage) Layout() SampleLayout { return s.layout }

// ColorModel returns the color model derived for the selected bands
func (s *BandSelectImage) ColorModel() ColorModel { return s.cm }

// Bands returns the selected source band indices
func (s *BandSelectImage) Bands() []int { return slices.Clone(s.bands) }

// Tile returns a view of the source tile restricted to the selected bands
func (s *BandSelectImage) Tile(tx, ty int) (*Raster, error) {
	t, err := s.source.Tile(tx, ty)
	if err != nil {
		return nil, err
	}
	return t.SelectBands(s.bands), nil
}

// Property delegates to the source, except statistics which are
// reordered for the selected bands.
func (s *BandSelectImage) Property(name string) (any, error) {
	v, err := s.source.Property(name)
	if err != nil || name != StatisticsKey {
		return v, err
	}
	stats, ok := v.([]Statistics)
	if !ok {
		return v, nil
	}
	out := make([]Statistics, len(s.bands))
	for i, b := range s.bands {
		if b < len(stats) {
			out[i] = stats[b]
		}
	}
	return out, nil
}

// PropertyNames delegates to the source
func (s *BandSelectImage) PropertyNames() []string { return s.source.PropertyNames() }

// Sources returns the source image
func (s *BandSelectImage) Sources() []RasterImage { return []RasterImage{s.source} }

// Equal reports whether both images select the same bands of the same source
func (s *BandSelectImage) Equal(o *BandSelectImage) bool {
	return sameImage(s.source, o.source) && slices.Equal(s.bands, o.bands)
}

// Hash returns a hash consistent with Equal
func (s *BandSelectImage) Hash() uint64 {
	h := canonical.NewHasher().String("bands").Identity(s.source).Int(len(s.bands))
	for _, b := range s.bands {
		h.Int(b)
	}
	return h.Sum()
}

func (s *BandSelectImage) reentrantTiles() bool { return reentrant(s.source) }
