package goraster

import (
	"fmt"
	"image"
	"maps"
	"math"
	"reflect"
	"slices"
	"sync"
)

// RasterImage is a grid of pixels addressable by tile.
//
// Tile (tx, ty) covers the rectangle starting at Bounds().Min plus
// (tx*TileWidth, ty*TileHeight), clipped to Bounds(). Implementations must
// allow concurrent calls to Tile when they are used with a parallel
// execution mode.
type RasterImage interface {
	// Bounds returns the pixel bounds of the image.
	Bounds() image.Rectangle

	// Layout returns the number of bands, sample type and tile size.
	Layout() SampleLayout

	// ColorModel returns how samples are interpreted as colors.
	ColorModel() ColorModel

	// Tile returns the samples of the given tile, computing them if needed.
	// The returned raster must not be modified by callers unless the image
	// documents it as writable.
	Tile(tx, ty int) (*Raster, error)

	// Property returns the value of a named property, or nil if the
	// property is undefined. Some properties are computed on first request.
	Property(name string) (any, error)

	// PropertyNames returns the names of the properties the image defines.
	PropertyNames() []string

	// Sources returns the images this image is derived from, if any.
	Sources() []RasterImage
}

// engineImage is implemented by every image produced by this package.
// reentrantTiles reports whether the tile accessor is reentrant and
// reasonably fast, which for derived images depends on their source.
type engineImage interface {
	RasterImage
	reentrantTiles() bool
}

// reentrant reports whether tiles of img may be requested concurrently.
func reentrant(img RasterImage) bool {
	e, ok := img.(engineImage)
	return ok && e.reentrantTiles()
}

// NumTiles returns the number of tiles along x and y.
func NumTiles(img RasterImage) (int, int) {
	b := img.Bounds()
	l := img.Layout()
	if b.Empty() || l.TileWidth <= 0 || l.TileHeight <= 0 {
		return 0, 0
	}
	return (b.Dx() + l.TileWidth - 1) / l.TileWidth, (b.Dy() + l.TileHeight - 1) / l.TileHeight
}

// TileBounds returns the pixel rectangle covered by tile (tx, ty).
func TileBounds(img RasterImage, tx, ty int) image.Rectangle {
	return tileRect(img.Bounds(), img.Layout(), tx, ty)
}

func tileRect(bounds image.Rectangle, l SampleLayout, tx, ty int) image.Rectangle {
	origin := bounds.Min.Add(image.Pt(tx*l.TileWidth, ty*l.TileHeight))
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(l.TileWidth, l.TileHeight))}.Intersect(bounds)
}

// TilesIntersecting returns the range of tile indices intersecting area.
// The returned rectangle holds tile indices, Max being exclusive.
func TilesIntersecting(img RasterImage, area image.Rectangle) image.Rectangle {
	b := img.Bounds()
	l := img.Layout()
	area = area.Intersect(b)
	if area.Empty() || l.TileWidth <= 0 || l.TileHeight <= 0 {
		return image.Rectangle{}
	}
	// Calculate tile indices
	startTileX := (area.Min.X - b.Min.X) / l.TileWidth
	endTileX := (area.Max.X - 1 - b.Min.X) / l.TileWidth
	startTileY := (area.Min.Y - b.Min.Y) / l.TileHeight
	endTileY := (area.Max.Y - 1 - b.Min.Y) / l.TileHeight
	return image.Rect(startTileX, startTileY, endTileX+1, endTileY+1)
}

// tileList flattens a tile index range in row-major order.
func tileList(r image.Rectangle) []image.Point {
	tiles := make([]image.Point, 0, r.Dx()*r.Dy())
	for ty := r.Min.Y; ty < r.Max.Y; ty++ {
		for tx := r.Min.X; tx < r.Max.X; tx++ {
			tiles = append(tiles, image.Pt(tx, ty))
		}
	}
	return tiles
}

// ReadRegion assembles the samples of area from the tiles of img.
// The area is clipped to the image bounds.
func ReadRegion(img RasterImage, area image.Rectangle) (*Raster, error) {
	area = area.Intersect(img.Bounds())
	out := NewRaster(area, img.Layout().Bands)
	if err := readRegionInto(img, out); err != nil {
		return nil, err
	}
	return out, nil
}

// readRegionInto fills dst from the tiles of img intersecting dst.Rect.
func readRegionInto(img RasterImage, dst *Raster) error {
	tiles := TilesIntersecting(img, dst.Rect)
	for ty := tiles.Min.Y; ty < tiles.Max.Y; ty++ {
		for tx := tiles.Min.X; tx < tiles.Max.X; tx++ {
			tile, err := img.Tile(tx, ty)
			if err != nil {
				return err
			}
			// Copy tile data to output
			tile.copyInto(dst)
		}
	}
	return nil
}

// sameImage reports whether a and b are the same image instance.
func sameImage(a, b RasterImage) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// MemoryImage is a fully materialized, writable image. All tiles are
// allocated at construction and Tile returns the backing rasters directly,
// so writes made through Set are visible to every view of the image.
type MemoryImage struct {
	bounds image.Rectangle
	layout SampleLayout
	tiles  []*Raster
	nx     int

	mu         sync.RWMutex
	colorModel ColorModel
	properties map[string]any
}

// NewMemoryImage creates an image filled with zeros. Tile sizes that are not
// positive default to the image size.
func NewMemoryImage(bounds image.Rectangle, layout SampleLayout) (*MemoryImage, error) {
	if bounds.Empty() {
		return nil, &ArgumentError{Arg: "bounds", Reason: "empty rectangle"}
	}
	if layout.Bands <= 0 {
		return nil, &ArgumentError{Arg: "layout", Reason: fmt.Sprintf("invalid band count %d", layout.Bands)}
	}
	if layout.Type == 0 {
		layout.Type = Float64
	}
	if layout.TileWidth <= 0 {
		layout.TileWidth = bounds.Dx()
	}
	if layout.TileHeight <= 0 {
		layout.TileHeight = bounds.Dy()
	}
	m := &MemoryImage{
		bounds:     bounds,
		layout:     layout,
		colorModel: DefaultColorModel(layout),
	}
	var ny int
	m.nx, ny = NumTiles(m)
	m.tiles = make([]*Raster, 0, m.nx*ny)
	for ty := 0; ty < ny; ty++ {
		for tx := 0; tx < m.nx; tx++ {
			m.tiles = append(m.tiles, NewRaster(tileRect(bounds, layout, tx, ty), layout.Bands))
		}
	}
	return m, nil
}

// Bounds returns the pixel bounds of the image
func (m *MemoryImage) Bounds() image.Rectangle { return m.bounds }

// Layout returns the sample layout of the image
func (m *MemoryImage) Layout() SampleLayout { return m.layout }

// ColorModel returns the current color model
func (m *MemoryImage) ColorModel() ColorModel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.colorModel
}

// SetColorModel replaces the color model of the image
func (m *MemoryImage) SetColorModel(cm ColorModel) {
	m.mu.Lock()
	m.colorModel = cm
	m.mu.Unlock()
}

// Tile returns the backing raster of tile (tx, ty).
func (m *MemoryImage) Tile(tx, ty int) (*Raster, error) {
	nx, ny := NumTiles(m)
	if tx < 0 || ty < 0 || tx >= nx || ty >= ny {
		return nil, &TileError{TX: tx, TY: ty, Err: fmt.Errorf("tile outside of %dx%d grid", nx, ny)}
	}
	return m.tiles[ty*m.nx+tx], nil
}

func (m *MemoryImage) tileAt(x, y int) *Raster {
	if !image.Pt(x, y).In(m.bounds) {
		return nil
	}
	tx := (x - m.bounds.Min.X) / m.layout.TileWidth
	ty := (y - m.bounds.Min.Y) / m.layout.TileHeight
	return m.tiles[ty*m.nx+tx]
}

// At returns the sample at the specified band, x, y coordinates,
// or NaN outside the image.
func (m *MemoryImage) At(band, x, y int) float64 {
	if t := m.tileAt(x, y); t != nil {
		return t.At(band, x, y)
	}
	return math.NaN()
}

// Set stores a sample, converted to the image sample type.
func (m *MemoryImage) Set(band, x, y int, value float64) {
	if t := m.tileAt(x, y); t != nil {
		t.Set(band, x, y, m.layout.Type.Clamp(value))
	}
}

// Fill sets every sample of a band to value.
func (m *MemoryImage) Fill(band int, value float64) {
	value = m.layout.Type.Clamp(value)
	for _, t := range m.tiles {
		for y := t.Rect.Min.Y; y < t.Rect.Max.Y; y++ {
			for x := t.Rect.Min.X; x < t.Rect.Max.X; x++ {
				t.Set(band, x, y, value)
			}
		}
	}
}

// Property returns a property previously stored with SetProperty.
func (m *MemoryImage) Property(name string) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.properties[name], nil
}

// SetProperty stores a named property. A nil value removes it.
func (m *MemoryImage) SetProperty(name string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == nil {
		delete(m.properties, name)
		return
	}
	if m.properties == nil {
		m.properties = make(map[string]any)
	}
	m.properties[name] = value
}

// PropertyNames returns the names of the stored properties
func (m *MemoryImage) PropertyNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.properties))
}

// Sources returns nil: a memory image is an original image.
func (m *MemoryImage) Sources() []RasterImage { return nil }

func (m *MemoryImage) reentrantTiles() bool { return true }
