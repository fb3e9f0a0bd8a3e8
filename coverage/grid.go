package coverage

import (
	"fmt"
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/tingold/goraster"
	"seehuhn.de/go/geom/vec"
)

// GridGeometry relates a pixel grid to a coordinate reference system. The
// zero value of a field means unspecified; Processor.Resample completes
// partially specified target geometries.
type GridGeometry struct {
	// Extent is the range of pixel indices
	Extent image.Rectangle
	// GridToCRS maps pixel corner coordinates to CRS coordinates: pixel
	// (i, j) covers [i, i+1) x [j, j+1) in pixel coordinates.
	GridToCRS *goraster.Affine
	// CRS identifies the coordinate reference system, such as "EPSG:4326"
	CRS string
}

// IsComplete reports whether every field is specified
func (g GridGeometry) IsComplete() bool {
	return !g.Extent.Empty() && g.GridToCRS != nil && g.CRS != ""
}

// Equal reports whether both geometries describe the same grid
func (g GridGeometry) Equal(o GridGeometry) bool {
	if g.Extent != o.Extent || g.CRS != o.CRS {
		return false
	}
	if g.GridToCRS == nil || o.GridToCRS == nil {
		return g.GridToCRS == nil && o.GridToCRS == nil
	}
	return g.GridToCRS.Matrix() == o.GridToCRS.Matrix()
}

// PixelToCRS returns the CRS coordinates of pixel position (x, y)
func (g GridGeometry) PixelToCRS(x, y float64) (orb.Point, error) {
	if g.GridToCRS == nil {
		return orb.Point{}, fmt.Errorf("grid geometry has no grid to CRS transform")
	}
	p, _ := g.GridToCRS.Apply(vec.Vec2{X: x, Y: y})
	return orb.Point{p.X, p.Y}, nil
}

// CRSToPixel returns the pixel position of CRS coordinates p
func (g GridGeometry) CRSToPixel(p orb.Point) (x, y float64, err error) {
	if g.GridToCRS == nil {
		return 0, 0, fmt.Errorf("grid geometry has no grid to CRS transform")
	}
	inv, err := g.GridToCRS.Inverse()
	if err != nil {
		return 0, 0, err
	}
	q, _ := inv.Apply(vec.Vec2{X: p[0], Y: p[1]})
	return q.X, q.Y, nil
}

// Resolution returns the size of one pixel along each grid axis, in CRS
// units.
func (g GridGeometry) Resolution() (rx, ry float64) {
	if g.GridToCRS == nil {
		return math.NaN(), math.NaN()
	}
	m := g.GridToCRS.Matrix()
	return math.Hypot(m[0], m[1]), math.Hypot(m[2], m[3])
}

// corners returns the CRS coordinates of the extent corners, clockwise from
// the upper left one.
func (g GridGeometry) corners() ([4]orb.Point, error) {
	var out [4]orb.Point
	if g.GridToCRS == nil || g.Extent.Empty() {
		return out, fmt.Errorf("grid geometry is incomplete")
	}
	e := g.Extent
	px := [4][2]int{{e.Min.X, e.Min.Y}, {e.Max.X, e.Min.Y}, {e.Max.X, e.Max.Y}, {e.Min.X, e.Max.Y}}
	for i, c := range px {
		out[i], _ = g.PixelToCRS(float64(c[0]), float64(c[1]))
	}
	return out, nil
}

// Envelope returns the bounds of the grid in CRS coordinates
func (g GridGeometry) Envelope() (orb.Bound, error) {
	c, err := g.corners()
	if err != nil {
		return orb.Bound{}, err
	}
	return orb.MultiPoint(c[:]).Bound(), nil
}

// Polygon returns the footprint of the grid in CRS coordinates. It differs
// from the envelope when the grid is rotated.
func (g GridGeometry) Polygon() (orb.Polygon, error) {
	c, err := g.corners()
	if err != nil {
		return nil, err
	}
	return orb.Polygon{orb.Ring{c[0], c[1], c[2], c[3], c[0]}}, nil
}

// String describes the geometry
func (g GridGeometry) String() string {
	return fmt.Sprintf("GridGeometry{%v %v %s}", g.Extent, g.GridToCRS, g.CRS)
}
