package goraster

import (
	"fmt"
	"image"
	"strconv"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

// TileCacheSize is the maximum number of computed tiles kept by each
// derived image. Evicted tiles are recomputed on the next request.
var TileCacheSize = 128

// computedTiles caches the tiles of a derived image. A tile requested
// concurrently by several goroutines is computed once; the others wait for
// that result. Failed computations are not cached.
type computedTiles struct {
	cache   *lru.Cache
	group   singleflight.Group
	compute func(tx, ty int) (*Raster, error)
}

func newComputedTiles(numTiles int, compute func(tx, ty int) (*Raster, error)) *computedTiles {
	size := min(max(numTiles, 1), max(TileCacheSize, 1))
	cache, err := lru.New(size)
	if err != nil {
		// lru.New only fails for a non-positive size
		panic(err)
	}
	return &computedTiles{cache: cache, compute: compute}
}

// tile returns tile (tx, ty) of img, computing it if it is not cached.
func (c *computedTiles) tile(img RasterImage, tx, ty int) (*Raster, error) {
	nx, ny := NumTiles(img)
	if tx < 0 || ty < 0 || tx >= nx || ty >= ny {
		return nil, &TileError{TX: tx, TY: ty, Err: fmt.Errorf("tile outside of %dx%d grid", nx, ny)}
	}
	key := image.Pt(tx, ty)
	if v, ok := c.cache.Get(key); ok {
		return v.(*Raster), nil
	}
	v, err, _ := c.group.Do(strconv.Itoa(tx)+","+strconv.Itoa(ty), func() (interface{}, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		r, err := c.compute(tx, ty)
		if err != nil {
			return nil, tileError(tx, ty, err)
		}
		c.cache.Add(key, r)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Raster), nil
}

// cached reports whether tile (tx, ty) is currently cached.
func (c *computedTiles) cached(tx, ty int) bool {
	return c.cache.Contains(image.Pt(tx, ty))
}
