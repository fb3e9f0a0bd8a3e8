package goraster

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/tingold/goraster/internal/canonical"
)

// Unit is the unit of an accuracy hint
type Unit string

const (
	UnitPixel  Unit = "pixel"
	UnitMetre  Unit = "m"
	UnitDegree Unit = "deg"
)

// Quantity is a value with its unit
type Quantity struct {
	Value float64
	Unit  Unit
}

func (q Quantity) String() string {
	return fmt.Sprintf("%g %s", q.Value, q.Unit)
}

var configs canonical.Set[Config, *Config]

// Config is an immutable snapshot of a processor configuration. Equal
// snapshots are shared: Processor.Config returns the same instance for
// equal configurations as long as one of them is in use.
type Config struct {
	interpolation *Interpolation
	fillValues    []float64
	mode          ExecutionMode
	errorAction   ErrorAction
	hints         []Quantity
	logger        *slog.Logger
}

// Interpolation returns the interpolation used for resampling
func (c *Config) Interpolation() *Interpolation { return c.interpolation }

// FillValues returns the configured fill values. A nil slice or a NaN
// element means the default fill value of the band's sample type.
func (c *Config) FillValues() []float64 { return slices.Clone(c.fillValues) }

// Mode returns the execution mode
func (c *Config) Mode() ExecutionMode { return c.mode }

// ErrorAction returns the action taken on tile failures
func (c *Config) ErrorAction() ErrorAction { return c.errorAction }

// PositionalAccuracyHints returns the accepted positional errors
func (c *Config) PositionalAccuracyHints() []Quantity { return slices.Clone(c.hints) }

// Logger returns the logger receiving diagnostics
func (c *Config) Logger() *slog.Logger { return c.logger }

// Equal reports whether both snapshots configure processors identically
func (c *Config) Equal(o *Config) bool {
	return c.interpolation == o.interpolation && c.mode == o.mode && c.logger == o.logger &&
		sameAction(c.errorAction, o.errorAction) && equalFloats(c.fillValues, o.fillValues) &&
		slices.Equal(c.hints, o.hints)
}

// Hash returns a hash consistent with Equal
func (c *Config) Hash() uint64 {
	h := canonical.NewHasher().String("config").Identity(c.interpolation).Int(int(c.mode)).
		Identity(c.logger).Floats(c.fillValues).Int(len(c.hints))
	for _, q := range c.hints {
		h.Float(q.Value).String(string(q.Unit))
	}
	rep := reporter{action: c.errorAction}
	rep.hash(h)
	return h.Sum()
}

// reporter returns the diagnostic reporter of operation op
func (c *Config) reporter(op string) reporter {
	return reporter{op: op, action: c.errorAction, logger: c.logger}
}

// interpolationFor returns the interpolation to use given the pixel
// accuracy hints: the coarsest accepted error selects the cheapest variant.
func (c *Config) interpolationFor() *Interpolation {
	tolerance := 0.0
	for _, q := range c.hints {
		if q.Unit == UnitPixel {
			tolerance = math.Max(tolerance, q.Value)
		}
	}
	return c.interpolation.forTolerance(tolerance)
}

// Option configures a Processor. Invalid values are ignored.
type Option func(*Processor)

// WithInterpolation sets the resampling interpolation
func WithInterpolation(ip *Interpolation) Option {
	return func(p *Processor) {
		if ip != nil {
			p.interpolation = ip
		}
	}
}

// WithFillValues sets the per-band fill values
func WithFillValues(values ...float64) Option {
	return func(p *Processor) {
		p.fillValues = cloneOrNil(values)
	}
}

// WithExecutionMode sets the execution mode
func WithExecutionMode(mode ExecutionMode) Option {
	return func(p *Processor) {
		if mode.valid() {
			p.mode = mode
		}
	}
}

// WithErrorAction sets the action taken on tile failures
func WithErrorAction(action ErrorAction) Option {
	return func(p *Processor) {
		if action != nil {
			p.errorAction = action
		}
	}
}

// WithPositionalAccuracyHints sets the accepted positional errors
func WithPositionalAccuracyHints(hints ...Quantity) Option {
	return func(p *Processor) {
		if valid, err := validHints(hints); err == nil {
			p.hints = valid
		}
	}
}

// WithLogger sets the logger receiving diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func cloneOrNil(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	return slices.Clone(values)
}

// validHints checks that every hint is a finite non-negative quantity.
func validHints(hints []Quantity) ([]Quantity, error) {
	if len(hints) == 0 {
		return nil, nil
	}
	for _, q := range hints {
		if !isFinite(q.Value) || q.Value < 0 {
			return nil, &ArgumentError{Arg: "hints", Reason: fmt.Sprintf("%v is not a valid accuracy", q)}
		}
		if q.Unit == "" {
			return nil, &ArgumentError{Arg: "hints", Reason: fmt.Sprintf("%v has no unit", q.Value)}
		}
	}
	return slices.Clone(hints), nil
}
