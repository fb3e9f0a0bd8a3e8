package goraster

import (
	"sync"
)

// Buffer pools for reducing GC pressure in tile computation hot paths.
// Only scratch buffers are pooled: computed tiles are cached and must never
// be returned here.

// sampleSlicePool pools float64 slices for scratch sample and coordinate data
type sampleSlicePool struct {
	// Pool for typical tile sizes
	tile256 sync.Pool // 256*256*4 = 262144 samples
	tile512 sync.Pool // 512*512*4 = 1048576 samples
}

const (
	tile256Size = 256 * 256 * 4 // 4 bands max for typical case
	tile512Size = 512 * 512 * 4
)

var samplePool = &sampleSlicePool{
	tile256: sync.Pool{
		New: func() interface{} {
			buf := make([]float64, tile256Size)
			return &buf
		},
	},
	tile512: sync.Pool{
		New: func() interface{} {
			buf := make([]float64, tile512Size)
			return &buf
		},
	},
}

// getSamples returns a float64 slice of exactly the requested length.
// The content is not cleared. Call putSamples when done to return it to the pool.
func getSamples(size int) []float64 {
	if size <= tile256Size {
		bufPtr := samplePool.tile256.Get().(*[]float64)
		return (*bufPtr)[:size]
	}
	if size <= tile512Size {
		bufPtr := samplePool.tile512.Get().(*[]float64)
		return (*bufPtr)[:size]
	}
	// For larger slices, allocate directly
	return make([]float64, size)
}

// putSamples returns a slice obtained from getSamples to the pool.
// The slice should not be used after calling this function.
func putSamples(buf []float64) {
	c := cap(buf)
	if c == 0 {
		return
	}

	// Reset slice to full capacity
	buf = buf[:c]

	if c == tile256Size {
		samplePool.tile256.Put(&buf)
	} else if c == tile512Size {
		samplePool.tile512.Put(&buf)
	}
	// Don't pool non-standard sizes
}

// tileWork carries the partial statistics of one tile
type tileWork struct {
	stats []Statistics
}

var tileWorkPool = sync.Pool{
	New: func() interface{} {
		return &tileWork{}
	},
}

// getTileWork returns a tileWork holding bands empty accumulators
func getTileWork(bands int) *tileWork {
	tw := tileWorkPool.Get().(*tileWork)
	if cap(tw.stats) < bands {
		tw.stats = make([]Statistics, bands)
	} else {
		tw.stats = tw.stats[:bands]
		clear(tw.stats)
	}
	return tw
}

// putTileWork returns a tileWork struct to the pool
func putTileWork(tw *tileWork) {
	if tw == nil {
		return
	}
	tileWorkPool.Put(tw)
}
