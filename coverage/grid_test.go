package coverage

import (
	"image"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/tingold/goraster"
)

func testGeometry() GridGeometry {
	return GridGeometry{
		Extent:    image.Rect(0, 0, 10, 20),
		GridToCRS: goraster.NewAffine(2, 0, 0, -3, 100, 500),
		CRS:       EPSG3857,
	}
}

func TestGridGeometry_IsComplete(t *testing.T) {
	g := testGeometry()
	if !g.IsComplete() {
		t.Errorf("Expected complete geometry")
	}
	tests := []struct {
		name   string
		modify func(*GridGeometry)
	}{
		{"no extent", func(g *GridGeometry) { g.Extent = image.Rectangle{} }},
		{"no transform", func(g *GridGeometry) { g.GridToCRS = nil }},
		{"no crs", func(g *GridGeometry) { g.CRS = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGeometry()
			tt.modify(&g)
			if g.IsComplete() {
				t.Errorf("Expected incomplete geometry")
			}
		})
	}
}

func TestGridGeometry_Envelope(t *testing.T) {
	env, err := testGeometry().Envelope()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := orb.Bound{Min: orb.Point{100, 440}, Max: orb.Point{120, 500}}
	if !env.Equal(want) {
		t.Errorf("Expected %v, got %v", want, env)
	}

	poly, err := testGeometry().Polygon()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(poly) != 1 || len(poly[0]) != 5 || !poly[0].Closed() {
		t.Fatalf("Expected one closed ring of 5 points, got %v", poly)
	}
	if !poly.Bound().Equal(want) {
		t.Errorf("Expected polygon bound %v, got %v", want, poly.Bound())
	}

	if _, err := (GridGeometry{}).Envelope(); err == nil {
		t.Errorf("Expected error for an incomplete geometry")
	}
}

func TestGridGeometry_PixelToCRS(t *testing.T) {
	g := testGeometry()
	p, err := g.PixelToCRS(5, 10)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p != (orb.Point{110, 470}) {
		t.Errorf("Expected [110 470], got %v", p)
	}
	x, y, err := g.CRSToPixel(p)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(x-5) > 1e-9 || math.Abs(y-10) > 1e-9 {
		t.Errorf("Expected (5, 10), got (%g, %g)", x, y)
	}
}

func TestGridGeometry_Resolution(t *testing.T) {
	rx, ry := testGeometry().Resolution()
	if rx != 2 || ry != 3 {
		t.Errorf("Expected (2, 3), got (%g, %g)", rx, ry)
	}
	rx, _ = GridGeometry{}.Resolution()
	if !math.IsNaN(rx) {
		t.Errorf("Expected NaN without transform, got %g", rx)
	}
}

func TestGridGeometry_Equal(t *testing.T) {
	a, b := testGeometry(), testGeometry()
	if !a.Equal(b) {
		t.Errorf("Expected equal geometries")
	}
	b.GridToCRS = goraster.NewAffine(2, 0, 0, -3, 100, 501)
	if a.Equal(b) {
		t.Errorf("Expected different geometries")
	}
	if !(GridGeometry{}).Equal(GridGeometry{}) {
		t.Errorf("Expected empty geometries to be equal")
	}
}
