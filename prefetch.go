package goraster

import (
	"image"
	"sync"
)

// PrefetchedImage holds tiles of its source that were computed eagerly.
// Tiles outside the prefetched region are requested from the source.
type PrefetchedImage struct {
	source RasterImage
	region image.Rectangle // tile indices, Max exclusive
	tiles  map[image.Point]*Raster
}

// prefetch computes every source tile intersecting area. It returns nil
// when area selects no tile.
func prefetch(source RasterImage, area image.Rectangle, parallel bool) (*PrefetchedImage, error) {
	region := TilesIntersecting(source, area)
	if region.Empty() {
		return nil, nil
	}
	p := &PrefetchedImage{
		source: source,
		region: region,
		tiles:  make(map[image.Point]*Raster, region.Dx()*region.Dy()),
	}
	var mu sync.Mutex
	failures := forEachTile(tileList(region), parallel, true, func(t image.Point) error {
		r, err := source.Tile(t.X, t.Y)
		if err != nil {
			return err
		}
		mu.Lock()
		p.tiles[t] = r
		mu.Unlock()
		return nil
	})
	if len(failures) > 0 {
		return nil, &OperationError{Op: opPrefetch, Err: failures[0].err}
	}
	return p, nil
}

// Bounds returns the bounds of the source
func (p *PrefetchedImage) Bounds() image.Rectangle { return p.source.Bounds() }

// Layout returns the layout of the source
func (p *PrefetchedImage) Layout() SampleLayout { return p.source.Layout() }

// ColorModel returns the color model of the source
func (p *PrefetchedImage) ColorModel() ColorModel { return p.source.ColorModel() }

// Tile returns the prefetched tile, or asks the source for tiles outside
// the prefetched region.
func (p *PrefetchedImage) Tile(tx, ty int) (*Raster, error) {
	if r, ok := p.tiles[image.Pt(tx, ty)]; ok {
		return r, nil
	}
	return p.source.Tile(tx, ty)
}

// PrefetchedTiles returns the range of tile indices computed eagerly.
func (p *PrefetchedImage) PrefetchedTiles() image.Rectangle { return p.region }

// Property delegates to the source
func (p *PrefetchedImage) Property(name string) (any, error) { return p.source.Property(name) }

// PropertyNames delegates to the source
func (p *PrefetchedImage) PropertyNames() []string { return p.source.PropertyNames() }

// Sources returns the source image
func (p *PrefetchedImage) Sources() []RasterImage { return []RasterImage{p.source} }

// Prefetched tiles are immutable, so only tiles outside the region depend
// on the source being reentrant.
func (p *PrefetchedImage) reentrantTiles() bool {
	nx, ny := NumTiles(p)
	return p.region == image.Rect(0, 0, nx, ny) || reentrant(p.source)
}
