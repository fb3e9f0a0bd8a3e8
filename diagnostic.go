package goraster

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"reflect"

	"github.com/tingold/goraster/internal/canonical"
)

// Diagnostic summarizes all tile failures of one operation on one image.
// Exactly one Diagnostic is produced per (image, operation) pair, whatever
// the number of failed tiles.
type Diagnostic struct {
	Operation   string
	Image       string
	Cause       error         // first failure, kept as representative cause
	FailedTiles []image.Point // tile indices, in the order failures were observed
}

// AffectedTileCount returns the number of tiles that could not be computed
func (d *Diagnostic) AffectedTileCount() int {
	return len(d.FailedTiles)
}

func (d *Diagnostic) String() string {
	return fmt.Sprintf("%s on %s: %d tile(s) failed: %v", d.Operation, d.Image, len(d.FailedTiles), d.Cause)
}

// ErrorAction decides what happens when tiles cannot be computed.
//
// ErrorThrow aborts the operation. Any other action lets the operation
// complete with the tiles that succeeded, then asks IsLoggable whether the
// resulting Diagnostic should be written to the processor's logger.
type ErrorAction interface {
	IsLoggable(d *Diagnostic) bool
}

// ErrorMode is the set of predefined error actions.
type ErrorMode uint8

const (
	// ErrorThrow aborts the operation on the first tile failure.
	ErrorThrow ErrorMode = iota
	// ErrorLog completes the operation and logs one diagnostic.
	ErrorLog
)

// IsLoggable returns true: predefined modes never veto logging.
func (m ErrorMode) IsLoggable(*Diagnostic) bool { return true }

func (m ErrorMode) String() string {
	switch m {
	case ErrorThrow:
		return "THROW"
	case ErrorLog:
		return "LOG"
	default:
		return fmt.Sprintf("ErrorMode(%d)", uint8(m))
	}
}

type filterAction struct {
	fn func(*Diagnostic) bool
}

func (f *filterAction) IsLoggable(d *Diagnostic) bool { return f.fn(d) }

// FilterErrors returns an error action that completes operations with partial
// results and passes each diagnostic to fn. When fn returns false the
// diagnostic is not logged; the partial result is returned either way.
func FilterErrors(fn func(*Diagnostic) bool) ErrorAction {
	return &filterAction{fn: fn}
}

// failOnException reports whether action aborts operations.
func failOnException(action ErrorAction) bool {
	m, ok := action.(ErrorMode)
	return ok && m == ErrorThrow
}

// tileFailure records one failed tile.
type tileFailure struct {
	tile image.Point
	err  error
}

// reporter emits diagnostics for one operation according to an error action.
type reporter struct {
	op     string
	action ErrorAction
	logger *slog.Logger
}

// diagnose builds the single diagnostic for failures, or nil if there are none.
func (r *reporter) diagnose(img RasterImage, failures []tileFailure) *Diagnostic {
	if len(failures) == 0 {
		return nil
	}
	d := &Diagnostic{
		Operation:   r.op,
		Image:       fmt.Sprintf("%T", img),
		Cause:       failures[0].err,
		FailedTiles: make([]image.Point, len(failures)),
	}
	for i, f := range failures {
		d.FailedTiles[i] = f.tile
	}
	return d
}

// report asks the error action about d and logs it when allowed.
func (r *reporter) report(d *Diagnostic) {
	if d == nil || r == nil || r.action == nil {
		return
	}
	if !r.action.IsLoggable(d) {
		return
	}
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.LogAttrs(context.Background(), slog.LevelWarn, "tile computation failed",
		slog.String("operation", d.Operation),
		slog.String("image", d.Image),
		slog.Int("tiles", d.AffectedTileCount()),
		slog.Any("error", d.Cause),
	)
}

// sameAction compares error actions: predefined modes by value, custom
// filters by identity.
func sameAction(a, b ErrorAction) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

func (r reporter) equal(o reporter) bool {
	return r.op == o.op && r.logger == o.logger && sameAction(r.action, o.action)
}

func (r reporter) hash(h *canonical.Hasher) {
	h.String(r.op).Identity(r.logger)
	if m, ok := r.action.(ErrorMode); ok {
		h.Int(int(m))
	} else {
		h.Identity(r.action)
	}
}
