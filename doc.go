// Package goraster derives tiled raster images from other images.
//
// Images are grids of pixels split into tiles. A derived image wraps exactly
// one source image and computes its tiles lazily, on first request:
//
//   - Processor.Resample warps a source onto a new pixel grid through a
//     PixelTransform and an Interpolation.
//   - Processor.Statistics and Processor.GetStatistics compute per-band
//     minimum, maximum, mean and standard deviation.
//   - Processor.StretchColorRamp, Processor.ToIndexedColors and
//     Processor.ToIndexedColorsByCategory change how samples are displayed.
//   - Processor.SelectBands exposes a subset of the bands without copying.
//   - Processor.Prefetch computes tiles eagerly.
//
// Tiles are computed on a worker pool shared by the whole process when the
// execution mode allows it. Images supplied by callers are only read
// concurrently under ModeParallel.
//
// Tile failures are handled according to the processor's ErrorAction:
// ErrorThrow fails the operation, while ErrorLog and FilterErrors complete
// it with the tiles that succeeded and report one Diagnostic per operation
// on the processor's slog.Logger.
//
// Derived images that are equal, having the same source and parameters, are
// shared: requesting the same operation twice returns the same instance as
// long as the first one is still referenced.
package goraster
