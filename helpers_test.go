package goraster

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
)

// newTestImage returns a memory image whose samples are given by fn.
func newTestImage(t testing.TB, bounds image.Rectangle, layout SampleLayout, fn func(band, x, y int) float64) *MemoryImage {
	t.Helper()
	m, err := NewMemoryImage(bounds, layout)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for b := 0; b < layout.Bands; b++ {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				m.Set(b, x, y, fn(b, x, y))
			}
		}
	}
	return m
}

// gradient is x + 100*y + 10000*band
func gradient(band, x, y int) float64 {
	return float64(x + 100*y + 10000*band)
}

var errTileBroken = errors.New("tile is broken")

// failingImage wraps a memory image and fails the listed tiles. It is a
// caller image: its tile accessor is not known to be reentrant.
type failingImage struct {
	*MemoryImage
	broken map[image.Point]bool
	calls  atomic.Int64
}

func newFailingImage(src *MemoryImage, broken ...image.Point) *failingImage {
	f := &failingImage{MemoryImage: src, broken: make(map[image.Point]bool)}
	for _, p := range broken {
		f.broken[p] = true
	}
	return f
}

func (f *failingImage) Tile(tx, ty int) (*Raster, error) {
	f.calls.Add(1)
	if f.broken[image.Pt(tx, ty)] {
		return nil, errTileBroken
	}
	return f.MemoryImage.Tile(tx, ty)
}

// reentrantTiles hides the promoted method so that the wrapper is treated
// as a caller image.
func (f *failingImage) reentrantTiles() bool { return false }

// captureHandler records the log records it receives.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.records = append(h.records, r.Clone())
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

// count returns the number of records at level
func (h *captureHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

// attr returns the value of attribute key in the first record at level
func (h *captureHandler) attr(level slog.Level, key string) (slog.Value, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.Level != level {
			continue
		}
		var v slog.Value
		found := false
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == key {
				v, found = a.Value, true
				return false
			}
			return true
		})
		return v, found
	}
	return slog.Value{}, false
}
