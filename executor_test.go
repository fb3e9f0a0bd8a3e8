package goraster

import (
	"errors"
	"image"
	"sync"
	"testing"
)

func TestForEachTile(t *testing.T) {
	tiles := tileList(image.Rect(0, 0, 8, 8))
	for _, parallel := range []bool{false, true} {
		var mu sync.Mutex
		seen := make(map[image.Point]int)
		failures := forEachTile(tiles, parallel, false, func(p image.Point) error {
			mu.Lock()
			seen[p]++
			mu.Unlock()
			if p.X == 3 {
				return errTileBroken
			}
			return nil
		})
		if len(seen) != 64 {
			t.Errorf("parallel=%v: Expected 64 tiles visited, got %d", parallel, len(seen))
		}
		for p, n := range seen {
			if n != 1 {
				t.Errorf("parallel=%v: Expected tile %v once, got %d", parallel, p, n)
			}
		}
		if len(failures) != 8 {
			t.Errorf("parallel=%v: Expected 8 failures, got %d", parallel, len(failures))
		}
		for _, f := range failures {
			var te *TileError
			if !errors.As(f.err, &te) || te.TX != f.tile.X || te.TY != f.tile.Y {
				t.Errorf("Expected TileError for %v, got %v", f.tile, f.err)
			}
		}
	}
}

func TestForEachTile_FailFast(t *testing.T) {
	tiles := tileList(image.Rect(0, 0, 10, 10))
	visited := 0
	failures := forEachTile(tiles, false, true, func(p image.Point) error {
		visited++
		if p == image.Pt(2, 0) {
			return errTileBroken
		}
		return nil
	})
	if len(failures) != 1 || visited != 3 {
		t.Errorf("Expected to stop after the first failure, got %d failures after %d tiles", len(failures), visited)
	}
}

func TestForEachTile_RecoversPanics(t *testing.T) {
	failures := forEachTile(tileList(image.Rect(0, 0, 2, 1)), true, false, func(p image.Point) error {
		if p.X == 1 {
			panic("boom")
		}
		return nil
	})
	if len(failures) != 1 || failures[0].tile != image.Pt(1, 0) {
		t.Fatalf("Expected the panic to fail tile (1, 0), got %v", failures)
	}
	var te *TileError
	if !errors.As(failures[0].err, &te) {
		t.Errorf("Expected TileError, got %v", failures[0].err)
	}
}

func TestExecutionMode_String(t *testing.T) {
	for mode, want := range map[ExecutionMode]string{
		ModeDefault:      "DEFAULT",
		ModeParallel:     "PARALLEL",
		ModeSequential:   "SEQUENTIAL",
		ExecutionMode(9): "ExecutionMode(9)",
	} {
		if mode.String() != want {
			t.Errorf("Expected %s, got %s", want, mode.String())
		}
	}
}
