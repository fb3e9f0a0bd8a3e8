package goraster

import (
	"fmt"
	"image"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ExecutionMode selects whether tiles are computed on the shared worker pool
// or in the calling goroutine.
type ExecutionMode uint8

const (
	// ModeDefault computes in parallel only when the source image is one
	// produced by this package.
	ModeDefault ExecutionMode = iota
	// ModeParallel always computes tiles on the worker pool.
	ModeParallel
	// ModeSequential always computes tiles in the calling goroutine.
	ModeSequential
)

func (m ExecutionMode) String() string {
	switch m {
	case ModeDefault:
		return "DEFAULT"
	case ModeParallel:
		return "PARALLEL"
	case ModeSequential:
		return "SEQUENTIAL"
	default:
		return fmt.Sprintf("ExecutionMode(%d)", uint8(m))
	}
}

func (m ExecutionMode) valid() bool {
	return m <= ModeSequential
}

// ShouldParallelize decides whether tiles of source may be computed
// concurrently under the given mode. Images supplied by callers, and images
// derived from them, are only parallelized when explicitly requested since
// their tile accessor may not be reentrant.
func ShouldParallelize(source RasterImage, mode ExecutionMode) bool {
	switch mode {
	case ModeParallel:
		return true
	case ModeSequential:
		return false
	default:
		return reentrant(source)
	}
}

// workers bounds the number of helper goroutines computing tiles across the
// whole process. The goroutine that starts an operation always works on it
// too, so an operation makes progress even when every slot is taken.
var workers = semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0)))

// forEachTile calls fn for every tile. In parallel mode tiles are distributed
// through an atomic index counter to the calling goroutine plus as many pool
// helpers as are free. When failFast is set the first failure stops the
// distribution of remaining tiles. The failures are returned in the order
// they were observed.
func forEachTile(tiles []image.Point, parallel, failFast bool, fn func(tile image.Point) error) []tileFailure {
	var (
		mu       sync.Mutex
		failures []tileFailure
		stop     atomic.Bool
		next     atomic.Int64
	)
	n := int64(len(tiles))
	work := func() {
		for !stop.Load() {
			i := next.Add(1) - 1
			if i >= n {
				return
			}
			tile := tiles[i]
			if err := safeCall(tile, fn); err != nil {
				mu.Lock()
				failures = append(failures, tileFailure{tile: tile, err: err})
				mu.Unlock()
				if failFast {
					stop.Store(true)
				}
			}
		}
	}

	if !parallel || n <= 1 {
		work()
		return failures
	}

	var g errgroup.Group
	helpers := min(n, int64(runtime.GOMAXPROCS(0))) - 1
	for i := int64(0); i < helpers; i++ {
		if !workers.TryAcquire(1) {
			break
		}
		g.Go(func() error {
			defer workers.Release(1)
			work()
			return nil
		})
	}
	work()
	_ = g.Wait()
	return failures
}

// safeCall runs fn for one tile, converting panics into tile errors.
func safeCall(tile image.Point, fn func(image.Point) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TileError{TX: tile.X, TY: tile.Y, Err: fmt.Errorf("panic recovered: %v\nstack: %s", r, debug.Stack())}
		}
	}()
	if err := fn(tile); err != nil {
		return tileError(tile.X, tile.Y, err)
	}
	return nil
}
