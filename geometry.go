package goraster

import (
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tingold/goraster/internal/canonical"
)

// PolygonFromBounds creates a polygon from a bounding box
func PolygonFromBounds(bound orb.Bound) orb.Polygon {
	if bound.IsEmpty() {
		return orb.Polygon{}
	}

	ring := orb.Ring{
		{bound.Min[0], bound.Min[1]}, // Bottom-left
		{bound.Max[0], bound.Min[1]}, // Bottom-right
		{bound.Max[0], bound.Max[1]}, // Top-right
		{bound.Min[0], bound.Max[1]}, // Top-left
		{bound.Min[0], bound.Min[1]}, // Close ring
	}

	return orb.Polygon{ring}
}

// PolygonFromRectangle returns the polygon covering a pixel rectangle
func PolygonFromRectangle(r image.Rectangle) orb.Polygon {
	return PolygonFromBounds(BoundFromRectangle(r))
}

// BoundFromRectangle returns the bound of a pixel rectangle in pixel coordinates
func BoundFromRectangle(r image.Rectangle) orb.Bound {
	return orb.Bound{
		Min: orb.Point{float64(r.Min.X), float64(r.Min.Y)},
		Max: orb.Point{float64(r.Max.X), float64(r.Max.Y)},
	}
}

// areaOfInterest restricts an operation to the pixels whose centers fall
// inside a geometry expressed in pixel coordinates. The zero value selects
// every pixel of the image.
type areaOfInterest struct {
	geom   orb.Geometry
	region image.Rectangle
	whole  bool // every pixel of region is selected
}

// newAreaOfInterest validates aoi and clips it to bounds. A nil aoi selects
// the whole image. Only areal geometries are accepted.
func newAreaOfInterest(aoi orb.Geometry, bounds image.Rectangle) (*areaOfInterest, error) {
	if aoi == nil {
		return &areaOfInterest{region: bounds, whole: true}, nil
	}
	if err := checkAreal(aoi); err != nil {
		return nil, err
	}
	b := aoi.Bound()
	if b.IsEmpty() || !hasArea(aoi) {
		return &areaOfInterest{geom: aoi}, nil
	}
	region := image.Rect(
		int(math.Floor(b.Min[0])), int(math.Floor(b.Min[1])),
		int(math.Ceil(b.Max[0])), int(math.Ceil(b.Max[1])),
	).Intersect(bounds)
	a := &areaOfInterest{geom: aoi, region: region}
	if ab, ok := aoi.(orb.Bound); ok && isIntegral(ab) {
		a.whole = true
	}
	return a, nil
}

func isIntegral(b orb.Bound) bool {
	for _, v := range [...]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]} {
		if v != math.Trunc(v) {
			return false
		}
	}
	return true
}

func checkAreal(g orb.Geometry) error {
	switch t := g.(type) {
	case orb.Bound, orb.Ring, orb.Polygon, orb.MultiPolygon:
		return nil
	case orb.Collection:
		for _, member := range t {
			if err := checkAreal(member); err != nil {
				return err
			}
		}
		return nil
	}
	return &ArgumentError{Arg: "areaOfInterest", Reason: fmt.Sprintf("%s geometry has no area", g.GeoJSONType())}
}

// hasArea reports whether g holds at least one ring with vertices.
func hasArea(g orb.Geometry) bool {
	switch t := g.(type) {
	case orb.Bound:
		return true
	case orb.Ring:
		return len(t) > 0
	case orb.Polygon:
		return len(t) > 0 && len(t[0]) > 0
	case orb.MultiPolygon:
		return slices.ContainsFunc(t, func(p orb.Polygon) bool { return hasArea(p) })
	case orb.Collection:
		return slices.ContainsFunc(t, hasArea)
	}
	return false
}

// containsCenter reports whether the center of pixel (x, y) is selected.
func (a *areaOfInterest) containsCenter(x, y int) bool {
	if !image.Pt(x, y).In(a.region) {
		return false
	}
	if a.whole {
		return true
	}
	return geometryContains(a.geom, orb.Point{float64(x) + 0.5, float64(y) + 0.5})
}

// covers reports whether every pixel of r is selected.
func (a *areaOfInterest) covers(r image.Rectangle) bool {
	if !r.In(a.region) {
		return false
	}
	if a.whole {
		return true
	}
	// Convex shapes would allow testing the corners only; polygons may have
	// holes, so only bounds are trusted.
	b, ok := a.geom.(orb.Bound)
	return ok && b.Contains(orb.Point{float64(r.Min.X) + 0.5, float64(r.Min.Y) + 0.5}) &&
		b.Contains(orb.Point{float64(r.Max.X) - 0.5, float64(r.Max.Y) - 0.5})
}

func geometryContains(g orb.Geometry, p orb.Point) bool {
	switch t := g.(type) {
	case orb.Bound:
		return t.Contains(p)
	case orb.Ring:
		return len(t) > 0 && planar.RingContains(t, p)
	case orb.Polygon:
		return hasArea(t) && planar.PolygonContains(t, p)
	case orb.MultiPolygon:
		for _, poly := range t {
			if geometryContains(poly, p) {
				return true
			}
		}
	case orb.Collection:
		for _, member := range t {
			if geometryContains(member, p) {
				return true
			}
		}
	}
	return false
}

// equalAOI reports whether two areas of interest select the same geometry.
func equalAOI(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return orb.Equal(a, b)
}

// hashAOI writes a hash consistent with equalAOI.
func hashAOI(h *canonical.Hasher, g orb.Geometry) {
	if g == nil {
		h.String("")
		return
	}
	b := g.Bound()
	h.String(g.GeoJSONType()).Float(b.Min[0]).Float(b.Min[1]).Float(b.Max[0]).Float(b.Max[1])
}
