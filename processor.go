package goraster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/paulmach/orb"
)

const (
	opGetStatistics    = "getStatistics"
	opStatistics       = "statistics"
	opStretchColorRamp = "stretchColorRamp"
	opPrefetch         = "prefetch"
)

// Processor derives images from other images. It holds a configuration
// that can be changed at any time; every operation works on a snapshot
// taken when it starts, so concurrent reconfiguration never affects an
// operation in progress. A Processor is safe for concurrent use.
type Processor struct {
	mu            sync.Mutex
	interpolation *Interpolation
	fillValues    []float64
	mode          ExecutionMode
	errorAction   ErrorAction
	hints         []Quantity
	logger        *slog.Logger

	snapshot *Config // cleared by every setter
}

// NewProcessor returns a processor using bilinear interpolation, default
// fill values, the ModeDefault execution mode, the ErrorThrow error action
// and the default logger, unless changed by opts.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		interpolation: Bilinear,
		mode:          ModeDefault,
		errorAction:   ErrorThrow,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns a snapshot of the current configuration.
func (p *Processor) Config() *Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snapshot == nil {
		p.snapshot = configs.Unique(&Config{
			interpolation: p.interpolation,
			fillValues:    p.fillValues,
			mode:          p.mode,
			errorAction:   p.errorAction,
			hints:         p.hints,
			logger:        p.logger,
		})
	}
	return p.snapshot
}

func (p *Processor) update(fn func()) {
	p.mu.Lock()
	fn()
	p.snapshot = nil
	p.mu.Unlock()
}

// Interpolation returns the interpolation used for resampling
func (p *Processor) Interpolation() *Interpolation { return p.Config().Interpolation() }

// SetInterpolation sets the interpolation used for resampling
func (p *Processor) SetInterpolation(ip *Interpolation) error {
	if ip == nil {
		return errNilArgument("interpolation")
	}
	p.update(func() { p.interpolation = ip })
	return nil
}

// FillValues returns the fill values, nil meaning the defaults
func (p *Processor) FillValues() []float64 { return p.Config().FillValues() }

// SetFillValues sets the value of pixels that cannot be computed, one per
// band. Missing or NaN elements select the default of the sample type:
// NaN for floating point bands and 0 for integer bands.
func (p *Processor) SetFillValues(values ...float64) {
	values = cloneOrNil(values)
	p.update(func() { p.fillValues = values })
}

// ExecutionMode returns the execution mode
func (p *Processor) ExecutionMode() ExecutionMode { return p.Config().Mode() }

// SetExecutionMode sets whether tiles are computed in parallel
func (p *Processor) SetExecutionMode(mode ExecutionMode) error {
	if !mode.valid() {
		return &ArgumentError{Arg: "mode", Reason: fmt.Sprintf("unknown %v", mode)}
	}
	p.update(func() { p.mode = mode })
	return nil
}

// ErrorAction returns the action taken on tile failures
func (p *Processor) ErrorAction() ErrorAction { return p.Config().ErrorAction() }

// SetErrorAction sets the action taken on tile failures
func (p *Processor) SetErrorAction(action ErrorAction) error {
	if action == nil {
		return errNilArgument("action")
	}
	if m, ok := action.(ErrorMode); ok && m > ErrorLog {
		return &ArgumentError{Arg: "action", Reason: fmt.Sprintf("unknown %v", m)}
	}
	p.update(func() { p.errorAction = action })
	return nil
}

// PositionalAccuracyHints returns the accepted positional errors
func (p *Processor) PositionalAccuracyHints() []Quantity { return p.Config().PositionalAccuracyHints() }

// SetPositionalAccuracyHints sets the accepted positional errors. Hints in
// pixels larger than the error of the interpolation allow resampling with
// a cheaper one.
func (p *Processor) SetPositionalAccuracyHints(hints ...Quantity) error {
	valid, err := validHints(hints)
	if err != nil {
		return err
	}
	p.update(func() { p.hints = valid })
	return nil
}

// Logger returns the logger receiving diagnostics
func (p *Processor) Logger() *slog.Logger { return p.Config().Logger() }

// SetLogger sets the logger receiving diagnostics
func (p *Processor) SetLogger(logger *slog.Logger) error {
	if logger == nil {
		return errNilArgument("logger")
	}
	p.update(func() { p.logger = logger })
	return nil
}

// GetStatistics returns the minimum, maximum, mean and standard deviation
// of each band over the pixels whose centers fall in aoi, in pixel
// coordinates. A nil aoi selects the whole image and returns the statistics
// already attached to source, if any, without computing them again.
func (p *Processor) GetStatistics(source RasterImage, aoi orb.Geometry) ([]Statistics, error) {
	if source == nil {
		return nil, errNilArgument("source")
	}
	if aoi == nil {
		v, err := source.Property(StatisticsKey)
		if err != nil {
			return nil, asOperationError(opGetStatistics, err)
		}
		if stats, ok := v.([]Statistics); ok {
			return slices.Clone(stats), nil
		}
	}
	cfg := p.Config()
	img, err := newStatisticsImage(source, aoi, ShouldParallelize(source, cfg.mode), cfg.reporter(opGetStatistics))
	if err != nil {
		return nil, err
	}
	stats, err := img.Statistics()
	if err != nil {
		return nil, asOperationError(opGetStatistics, err)
	}
	return stats, nil
}

// Statistics returns an image with the same pixels as source whose
// StatisticsKey property holds the statistics of GetStatistics, computed on
// first request. When aoi is nil and source already defines the property,
// source is returned.
func (p *Processor) Statistics(source RasterImage, aoi orb.Geometry) (RasterImage, error) {
	if source == nil {
		return nil, errNilArgument("source")
	}
	if aoi == nil && slices.Contains(source.PropertyNames(), StatisticsKey) {
		return source, nil
	}
	cfg := p.Config()
	img, err := newStatisticsImage(source, aoi, ShouldParallelize(source, cfg.mode), cfg.reporter(opStatistics))
	if err != nil {
		return nil, err
	}
	return statisticsImages.Unique(img), nil
}

// StretchColorRamp returns source with a gray ramp or palette stretched over
// a range of sample values. Bounds not given by modifiers are taken from the
// statistics of the visible band. Sources without a single visible band are
// returned unchanged, as are sources whose range is empty.
func (p *Processor) StretchColorRamp(source RasterImage, modifiers ...StretchModifier) (RasterImage, error) {
	if source == nil {
		return nil, errNilArgument("source")
	}
	opts := stretchOptions{min: math.NaN(), max: math.NaN()}
	for _, m := range modifiers {
		if err := m(&opts); err != nil {
			return nil, err
		}
	}
	cm := source.ColorModel()
	if !cm.IsSingleBand() || cm.VisibleBand < 0 || cm.VisibleBand >= source.Layout().Bands {
		return source, nil
	}
	lo, hi, err := opts.stretchRange(func() (Statistics, error) {
		stats, err := p.GetStatistics(source, opts.aoi)
		if err != nil {
			return Statistics{}, err
		}
		if cm.VisibleBand >= len(stats) {
			return Statistics{}, nil
		}
		return stats[cm.VisibleBand], nil
	})
	if err != nil {
		return nil, asOperationError(opStretchColorRamp, err)
	}
	if !(lo < hi) {
		return source, nil
	}
	stretched := cm
	stretched.Min, stretched.Max = lo, hi
	return recolor(source, stretched), nil
}

// ToIndexedColors returns a single-band image of palette indices where
// samples of the visible band of source falling in a range are painted with
// the colors of that range. Other samples are transparent.
func (p *Processor) ToIndexedColors(source RasterImage, ranges []ColorRange) (RasterImage, error) {
	if source == nil {
		return nil, errNilArgument("source")
	}
	img, err := newIndexedImage(source, ranges)
	if err != nil {
		return nil, err
	}
	return indexedImages.Unique(img), nil
}

// ToIndexedColorsByCategory is like ToIndexedColors with the ranges of
// categories, painted with the colors returned by colors. Categories
// without colors are left transparent.
func (p *Processor) ToIndexedColorsByCategory(source RasterImage, categories []Category,
	colors func(Category) []color.Color) (RasterImage, error) {
	if colors == nil {
		return nil, errNilArgument("colors")
	}
	ranges := make([]ColorRange, 0, len(categories))
	for _, c := range categories {
		if cs := colors(c); len(cs) > 0 {
			ranges = append(ranges, ColorRange{Min: c.Min, Max: c.Max, Colors: cs})
		}
	}
	return p.ToIndexedColors(source, ranges)
}

// SelectBands returns a view of source exposing the given bands in the
// given order. The identity selection returns source itself.
func (p *Processor) SelectBands(source RasterImage, bands ...int) (RasterImage, error) {
	if source == nil {
		return nil, errNilArgument("source")
	}
	return selectBands(source, bands)
}

// Resample returns an image with the given bounds whose pixels are
// interpolated from source at the positions given by toSource. Resampling
// a resampled image composes the transforms and resamples the original
// image instead. The result has the color model of source.
func (p *Processor) Resample(source RasterImage, bounds image.Rectangle, toSource PixelTransform) (RasterImage, error) {
	switch {
	case source == nil:
		return nil, errNilArgument("source")
	case toSource == nil:
		return nil, errNilArgument("toSource")
	case bounds.Empty():
		return nil, &ArgumentError{Arg: "bounds", Reason: "empty rectangle"}
	}
	cm := source.ColorModel()
	layout := source.Layout()
	cfg := p.Config()
	isIdentity := toSource.IsIdentity()
	var resampled RasterImage
	for {
		if isIdentity && bounds == source.Bounds() {
			resampled = source
			break
		}
		if layout == source.Layout() {
			switch s := source.(type) {
			case *RecoloredImage:
				source = s.source
				continue
			case *StatisticsImage:
				source = s.source
				continue
			case *ResampledImage:
				composed, err := Concatenate(toSource, s.toSource)
				if err == nil {
					cfg.logger.LogAttrs(context.Background(), slog.LevelDebug, "composing resample with its source",
						slog.String("source", fmt.Sprintf("%T", s.source)))
					toSource = composed
					isIdentity = composed.IsIdentity()
					source = s.source
					continue
				}
			}
		}
		resampled = resampledImages.Unique(newResampledImage(source, bounds, toSource,
			cfg.interpolationFor(), cfg.fillValues))
		break
	}
	return recolor(resampled, cm), nil
}

// Prefetch computes every tile of source intersecting aoi, in pixel
// coordinates, and returns an image serving them from memory. A nil aoi
// selects the whole image. Memory images are returned unchanged, as is
// source when no tile intersects aoi. Any tile failure fails the call.
//
// Unlike the other operations, a nil source is not an argument error:
// Prefetch returns (nil, nil), so a nil result means nothing was prefetched.
func (p *Processor) Prefetch(source RasterImage, aoi orb.Geometry) (RasterImage, error) {
	if source == nil {
		return nil, nil
	}
	if _, ok := source.(*MemoryImage); ok {
		return source, nil
	}
	for {
		pi, ok := source.(*PrefetchedImage)
		if !ok {
			break
		}
		source = pi.source
	}
	area, err := newAreaOfInterest(aoi, source.Bounds())
	if err != nil {
		return nil, err
	}
	cfg := p.Config()
	img, err := prefetch(source, area.region, ShouldParallelize(source, cfg.mode))
	if err != nil {
		return nil, err
	}
	if img == nil {
		return source, nil
	}
	cfg.logger.LogAttrs(context.Background(), slog.LevelDebug, "prefetched tiles",
		slog.String("image", fmt.Sprintf("%T", source)),
		slog.Int("tiles", len(img.tiles)))
	return img, nil
}

// Equal reports whether both processors are configured identically
func (p *Processor) Equal(o *Processor) bool {
	if o == nil {
		return false
	}
	return p.Config().Equal(o.Config())
}

// Hash returns a hash consistent with Equal
func (p *Processor) Hash() uint64 { return p.Config().Hash() }

// Clone returns a processor with the same configuration. Later changes to
// either processor do not affect the other.
func (p *Processor) Clone() *Processor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &Processor{
		interpolation: p.interpolation,
		fillValues:    p.fillValues,
		mode:          p.mode,
		errorAction:   p.errorAction,
		hints:         p.hints,
		logger:        p.logger,
		snapshot:      p.snapshot,
	}
}
