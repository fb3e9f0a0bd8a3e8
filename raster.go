package goraster

import (
	"fmt"
	"image"
	"math"
)

// SampleType represents the numeric type of the samples stored in a raster
type SampleType uint8

const (
	Uint8   SampleType = iota + 1 // 8-bit unsigned integer
	Int8                          // 8-bit signed integer
	Uint16                        // 16-bit unsigned integer
	Int16                         // 16-bit signed integer
	Uint32                        // 32-bit unsigned integer
	Int32                         // 32-bit signed integer
	Float32                       // 32-bit IEEE floating point
	Float64                       // 64-bit IEEE floating point
)

// IsFloat reports whether the type stores floating point samples
func (t SampleType) IsFloat() bool {
	return t == Float32 || t == Float64
}

// BytesPerSample returns the number of bytes per sample for the type
func (t SampleType) BytesPerSample() int {
	switch t {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 1
	}
}

// Range returns the smallest and largest values representable by the type.
// Floating point types report the [0, 1] range conventionally used for display.
func (t SampleType) Range() (float64, float64) {
	switch t {
	case Uint8:
		return 0, math.MaxUint8
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Uint16:
		return 0, math.MaxUint16
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Uint32:
		return 0, math.MaxUint32
	case Int32:
		return math.MinInt32, math.MaxInt32
	default:
		return 0, 1
	}
}

// Clamp converts v to a value storable by the type. Integer types round half
// away from zero and saturate; NaN becomes 0 for integer types.
func (t SampleType) Clamp(v float64) float64 {
	switch t {
	case Float64:
		return v
	case Float32:
		return float64(float32(v))
	}
	if math.IsNaN(v) {
		return 0
	}
	lo, hi := t.Range()
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (t SampleType) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Int8:
		return "int8"
	case Uint16:
		return "uint16"
	case Int16:
		return "int16"
	case Uint32:
		return "uint32"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("SampleType(%d)", uint8(t))
	}
}

// SampleLayout describes how the samples of an image are organized:
// number of bands, sample type and tile size. Two images have an
// identical sample layout when their layouts compare equal with ==.
type SampleLayout struct {
	Bands      int
	Type       SampleType
	TileWidth  int
	TileHeight int
}

// Raster holds the samples of one tile.
// Data is stored as a flat array in band-interleaved-by-pixel (BIP) format:
// index = (y-Rect.Min.Y)*ScanlineStride + (x-Rect.Min.X)*PixelStride + BandOffsets[band]
// Coordinates are expressed in the pixel space of the owning image.
// Views created by SelectBands share Data with their parent.
type Raster struct {
	Data           []float64
	Rect           image.Rectangle
	PixelStride    int
	ScanlineStride int
	BandOffsets    []int
}

// NewRaster allocates a raster covering rect with the given number of bands.
func NewRaster(rect image.Rectangle, bands int) *Raster {
	return newRasterOver(make([]float64, rect.Dx()*rect.Dy()*bands), rect, bands)
}

func newRasterOver(data []float64, rect image.Rectangle, bands int) *Raster {
	offsets := make([]int, bands)
	for i := range offsets {
		offsets[i] = i
	}
	return &Raster{
		Data:           data,
		Rect:           rect,
		PixelStride:    bands,
		ScanlineStride: rect.Dx() * bands,
		BandOffsets:    offsets,
	}
}

// Bands returns the number of bands visible through this raster
func (r *Raster) Bands() int {
	return len(r.BandOffsets)
}

// Index returns the flat array index for the given band, x, y coordinates.
func (r *Raster) Index(band, x, y int) int {
	return (y-r.Rect.Min.Y)*r.ScanlineStride + (x-r.Rect.Min.X)*r.PixelStride + r.BandOffsets[band]
}

func (r *Raster) contains(band, x, y int) bool {
	return band >= 0 && band < len(r.BandOffsets) && image.Pt(x, y).In(r.Rect)
}

// At returns the value at the specified band, x, y coordinates,
// or NaN when the position is outside the raster.
func (r *Raster) At(band, x, y int) float64 {
	if !r.contains(band, x, y) {
		return math.NaN()
	}
	return r.Data[r.Index(band, x, y)]
}

// Set sets the value at the specified band, x, y coordinates.
// Positions outside the raster are ignored.
func (r *Raster) Set(band, x, y int, value float64) {
	if !r.contains(band, x, y) {
		return
	}
	r.Data[r.Index(band, x, y)] = value
}

// AtUnchecked returns the value without bounds checking (faster but unsafe).
func (r *Raster) AtUnchecked(band, x, y int) float64 {
	return r.Data[r.Index(band, x, y)]
}

// SetUnchecked sets the value without bounds checking (faster but unsafe).
func (r *Raster) SetUnchecked(band, x, y int, value float64) {
	r.Data[r.Index(band, x, y)] = value
}

// GetBand returns a slice of all pixel values for a single band.
// The returned slice is newly allocated.
func (r *Raster) GetBand(band int) []float64 {
	if band < 0 || band >= len(r.BandOffsets) {
		return nil
	}
	result := make([]float64, 0, r.Rect.Dx()*r.Rect.Dy())
	for y := r.Rect.Min.Y; y < r.Rect.Max.Y; y++ {
		for x := r.Rect.Min.X; x < r.Rect.Max.X; x++ {
			result = append(result, r.AtUnchecked(band, x, y))
		}
	}
	return result
}

// GetPixel returns all band values for a single pixel.
func (r *Raster) GetPixel(x, y int) []float64 {
	if !image.Pt(x, y).In(r.Rect) {
		return nil
	}
	return r.pixel(x, y, make([]float64, len(r.BandOffsets)))
}

// pixel copies the samples of (x, y) into dst, which must hold Bands() values.
func (r *Raster) pixel(x, y int, dst []float64) []float64 {
	base := (y-r.Rect.Min.Y)*r.ScanlineStride + (x-r.Rect.Min.X)*r.PixelStride
	for b, off := range r.BandOffsets {
		dst[b] = r.Data[base+off]
	}
	return dst
}

// SelectBands returns a view exposing the given bands in the given order.
// The view shares Data with r, so writes through either are visible in both.
func (r *Raster) SelectBands(bands []int) *Raster {
	offsets := make([]int, len(bands))
	for i, b := range bands {
		offsets[i] = r.BandOffsets[b]
	}
	return &Raster{
		Data:           r.Data,
		Rect:           r.Rect,
		PixelStride:    r.PixelStride,
		ScanlineStride: r.ScanlineStride,
		BandOffsets:    offsets,
	}
}

// copyInto copies the part of r intersecting dst into dst. Both rasters must
// have the same number of bands.
func (r *Raster) copyInto(dst *Raster) {
	area := r.Rect.Intersect(dst.Rect)
	if area.Empty() {
		return
	}
	if r.PixelStride == dst.PixelStride && isDense(r) && isDense(dst) {
		rowLen := area.Dx() * r.PixelStride
		for y := area.Min.Y; y < area.Max.Y; y++ {
			src := r.Index(0, area.Min.X, y)
			out := dst.Index(0, area.Min.X, y)
			copy(dst.Data[out:out+rowLen], r.Data[src:src+rowLen])
		}
		return
	}
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			for b := range r.BandOffsets {
				dst.SetUnchecked(b, x, y, r.AtUnchecked(b, x, y))
			}
		}
	}
}

// isDense reports whether every sample of r's pixels belongs to a visible
// band, in order.
func isDense(r *Raster) bool {
	if len(r.BandOffsets) != r.PixelStride {
		return false
	}
	for i, off := range r.BandOffsets {
		if off != i {
			return false
		}
	}
	return true
}
