package goraster

import (
	"image"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/tingold/goraster/internal/canonical"
)

var statisticsImages canonical.Set[StatisticsImage, *StatisticsImage]

// StatisticsImage passes the tiles of its source through unchanged and adds
// a StatisticsKey property, computed over the area of interest on first
// request. Once computed, the statistics are kept for the lifetime of the
// image.
type StatisticsImage struct {
	source   RasterImage
	aoi      orb.Geometry
	area     *areaOfInterest
	parallel bool
	rep      reporter

	mu    sync.Mutex
	done  bool
	stats []Statistics
	diag  atomic.Pointer[Diagnostic]
}

func newStatisticsImage(source RasterImage, aoi orb.Geometry, parallel bool, rep reporter) (*StatisticsImage, error) {
	area, err := newAreaOfInterest(aoi, source.Bounds())
	if err != nil {
		return nil, err
	}
	return &StatisticsImage{
		source:   source,
		aoi:      aoi,
		area:     area,
		parallel: parallel,
		rep:      rep,
	}, nil
}

// Bounds returns the bounds of the source
func (s *StatisticsImage) Bounds() image.Rectangle { return s.source.Bounds() }

// Layout returns the layout of the source
func (s *StatisticsImage) Layout() SampleLayout { return s.source.Layout() }

// ColorModel returns the color model of the source
func (s *StatisticsImage) ColorModel() ColorModel { return s.source.ColorModel() }

// Tile returns the source tile unchanged
func (s *StatisticsImage) Tile(tx, ty int) (*Raster, error) { return s.source.Tile(tx, ty) }

// Sources returns the source image
func (s *StatisticsImage) Sources() []RasterImage { return []RasterImage{s.source} }

// AreaOfInterest returns the geometry the statistics are restricted to, or
// nil for the whole image.
func (s *StatisticsImage) AreaOfInterest() orb.Geometry { return s.aoi }

// Property returns the statistics for StatisticsKey, computing them on the
// first call, and delegates any other name to the source.
func (s *StatisticsImage) Property(name string) (any, error) {
	if name != StatisticsKey {
		return s.source.Property(name)
	}
	stats, err := s.Statistics()
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// PropertyNames returns the source property names plus StatisticsKey
func (s *StatisticsImage) PropertyNames() []string {
	names := make(map[string]struct{})
	for _, n := range s.source.PropertyNames() {
		names[n] = struct{}{}
	}
	names[StatisticsKey] = struct{}{}
	return slices.Sorted(maps.Keys(names))
}

// Statistics returns the per-band statistics, computing them on the first
// successful call. When tiles fail under a non-aborting error action the
// statistics cover the successful tiles only and Diagnostic describes the
// failures. An aborted computation is not kept: the next call retries it.
func (s *StatisticsImage) Statistics() ([]Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		stats, err := s.compute()
		if err != nil {
			return nil, err
		}
		s.stats, s.done = stats, true
	}
	return slices.Clone(s.stats), nil
}

// Diagnostic returns the tile failures recorded while computing the
// statistics, or nil if every tile succeeded or nothing was computed yet.
func (s *StatisticsImage) Diagnostic() *Diagnostic {
	return s.diag.Load()
}

func (s *StatisticsImage) compute() ([]Statistics, error) {
	bands := s.source.Layout().Bands
	totals := make([]Statistics, bands)
	var mu sync.Mutex

	tiles := tileList(TilesIntersecting(s.source, s.area.region))
	failFast := failOnException(s.rep.action)
	failures := forEachTile(tiles, s.parallel, failFast, func(t image.Point) error {
		raster, err := s.source.Tile(t.X, t.Y)
		if err != nil {
			return err
		}
		tw := getTileWork(bands)
		defer putTileWork(tw)
		s.accumulate(raster, tw.stats)

		mu.Lock()
		for b := range totals {
			totals[b].Combine(tw.stats[b])
		}
		mu.Unlock()
		return nil
	})

	if len(failures) > 0 && failFast {
		return nil, &OperationError{Op: s.rep.op, Err: failures[0].err}
	}
	d := s.rep.diagnose(s, failures)
	s.diag.Store(d)
	s.rep.report(d)
	return totals, nil
}

// accumulate adds the selected pixels of r to stats.
func (s *StatisticsImage) accumulate(r *Raster, stats []Statistics) {
	area := r.Rect.Intersect(s.area.region)
	if s.area.covers(area) {
		for y := area.Min.Y; y < area.Max.Y; y++ {
			for x := area.Min.X; x < area.Max.X; x++ {
				for b := range stats {
					stats[b].Accept(r.AtUnchecked(b, x, y))
				}
			}
		}
		return
	}
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if !s.area.containsCenter(x, y) {
				continue
			}
			for b := range stats {
				stats[b].Accept(r.AtUnchecked(b, x, y))
			}
		}
	}
}

// Equal reports whether both images compute the same statistics of the
// same source.
func (s *StatisticsImage) Equal(o *StatisticsImage) bool {
	return sameImage(s.source, o.source) && equalAOI(s.aoi, o.aoi) &&
		s.parallel == o.parallel && s.rep.equal(o.rep)
}

// Hash returns a hash consistent with Equal
func (s *StatisticsImage) Hash() uint64 {
	h := canonical.NewHasher().String("statistics").Identity(s.source).Bool(s.parallel)
	hashAOI(h, s.aoi)
	s.rep.hash(h)
	return h.Sum()
}

func (s *StatisticsImage) reentrantTiles() bool { return reentrant(s.source) }
