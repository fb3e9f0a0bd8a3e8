package coverage

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/tingold/goraster"
	"seehuhn.de/go/geom/vec"
)

// Coordinate reference systems known to DefaultOperationFinder
const (
	EPSG4326 = "EPSG:4326" // WGS84 longitude, latitude in degrees
	EPSG3857 = "EPSG:3857" // Web Mercator in metres
)

// maxMercator is the Web Mercator easting of longitude 180°.
const maxMercator = 20037508.342789244

// ErrNotConvertible is returned when no operation converts coordinates
// between two reference systems.
var ErrNotConvertible = errors.New("coordinate reference systems are not convertible")

// OperationFinder returns the transform converting coordinates expressed in
// sourceCRS into targetCRS. Points outside the domain of the operation make
// the transform fail with an error wrapping goraster.ErrTransformDomain.
type OperationFinder func(sourceCRS, targetCRS string) (goraster.PixelTransform, error)

// DefaultOperationFinder converts between EPSG:4326 and EPSG:3857 and
// returns the identity when both systems are the same.
func DefaultOperationFinder(sourceCRS, targetCRS string) (goraster.PixelTransform, error) {
	switch {
	case sourceCRS == targetCRS:
		return goraster.IdentityTransform(), nil
	case sourceCRS == EPSG4326 && targetCRS == EPSG3857:
		return goraster.TransformFunc(wgs84ToMercator), nil
	case sourceCRS == EPSG3857 && targetCRS == EPSG4326:
		return goraster.TransformFunc(mercatorToWGS84), nil
	}
	return nil, fmt.Errorf("%s to %s: %w", sourceCRS, targetCRS, ErrNotConvertible)
}

// wgs84ToMercator converts a longitude, latitude point to Web Mercator
func wgs84ToMercator(p vec.Vec2) (vec.Vec2, error) {
	if !(p.Y > -90 && p.Y < 90) {
		return vec.Vec2{}, fmt.Errorf("latitude %g: %w", p.Y, goraster.ErrTransformDomain)
	}
	return vec.Vec2{
		X: p.X / 180.0 * maxMercator,
		Y: math.Log(math.Tan((90.0+p.Y)*math.Pi/360.0)) / math.Pi * maxMercator,
	}, nil
}

// mercatorToWGS84 converts a Web Mercator point to longitude, latitude
func mercatorToWGS84(p vec.Vec2) (vec.Vec2, error) {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return vec.Vec2{}, fmt.Errorf("point %v: %w", p, goraster.ErrTransformDomain)
	}
	return vec.Vec2{
		X: p.X / maxMercator * 180.0,
		Y: math.Atan(math.Exp(p.Y*math.Pi/maxMercator))*360.0/math.Pi - 90.0,
	}, nil
}

// wgs84ToMercatorBound converts WGS84 (EPSG:4326) bounds to Web Mercator (EPSG:3857) bounds
func wgs84ToMercatorBound(bound orb.Bound) (orb.Bound, error) {
	lo, err := wgs84ToMercator(vec.Vec2{X: bound.Min[0], Y: bound.Min[1]})
	if err != nil {
		return orb.Bound{}, err
	}
	hi, err := wgs84ToMercator(vec.Vec2{X: bound.Max[0], Y: bound.Max[1]})
	if err != nil {
		return orb.Bound{}, err
	}
	return orb.Bound{Min: orb.Point{lo.X, lo.Y}, Max: orb.Point{hi.X, hi.Y}}, nil
}
