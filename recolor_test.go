package goraster

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestRecolor(t *testing.T) {
	m := newTestImage(t, image.Rect(0, 0, 4, 4), SampleLayout{Bands: 1}, gradient)
	if got := recolor(m, m.ColorModel()); got != RasterImage(m) {
		t.Errorf("Expected no wrapper for the same color model")
	}
	a := recolor(m, GrayModel(0, 0, 10))
	b := recolor(a, GrayModel(0, 0, 20))
	rb, ok := b.(*RecoloredImage)
	if !ok || rb.source != RasterImage(m) {
		t.Fatalf("Expected recolorings not to stack, got %T", b)
	}
	if got := recolor(b, m.ColorModel()); got != RasterImage(m) {
		t.Errorf("Expected the original image back")
	}
	if again := recolor(m, GrayModel(0, 0, 10)); again != a {
		t.Errorf("Expected the same instance for the same color model")
	}
}

func TestStretchColorRamp(t *testing.T) {
	m := newTestImage(t, image.Rect(0, 0, 10, 10), SampleLayout{Bands: 1, TileWidth: 5, TileHeight: 5}, gradient)
	var preset Statistics
	for _, v := range []float64{10, 20, 30} {
		preset.Accept(v)
	}
	tests := []struct {
		name      string
		modifiers []StretchModifier
		min, max  float64
	}{
		{"statistics", nil, 0, 909},
		{"explicit", []StretchModifier{StretchRange(5, 50)}, 5, 50},
		{"minimum only", []StretchModifier{StretchMinimum(100)}, 100, 909},
		{"maximum only", []StretchModifier{StretchMaximum(100)}, 0, 100},
		{"area", []StretchModifier{StretchArea(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 2}})}, 0, 101},
		{"preset statistics", []StretchModifier{StretchStatistics(preset)}, 10, 30},
		{"std dev", []StretchModifier{StretchStatistics(preset), StretchStdDev(0.5)}, 20 - 0.5*math.Sqrt(200.0/3), 20 + 0.5*math.Sqrt(200.0/3)},
		{"std dev keeps explicit bound", []StretchModifier{StretchStatistics(preset), StretchStdDev(0.5), StretchMinimum(0)}, 0, 20 + 0.5*math.Sqrt(200.0/3)},
	}
	p := NewProcessor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.StretchColorRamp(m, tt.modifiers...)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			cm := got.ColorModel()
			if cm.Kind != ColorGray || math.Abs(cm.Min-tt.min) > 1e-9 || math.Abs(cm.Max-tt.max) > 1e-9 {
				t.Errorf("Expected gray over [%g, %g], got %+v", tt.min, tt.max, cm)
			}
			tile, _ := got.Tile(1, 1)
			src, _ := m.Tile(1, 1)
			if tile != src {
				t.Errorf("Expected samples to be unchanged")
			}
		})
	}
}

func TestStretchColorRamp_Unchanged(t *testing.T) {
	p := NewProcessor()
	rgb := newTestImage(t, image.Rect(0, 0, 2, 2), SampleLayout{Bands: 3}, gradient)
	if got, err := p.StretchColorRamp(rgb); err != nil || got != RasterImage(rgb) {
		t.Errorf("Expected RGB images to be returned unchanged, got %v, %v", got, err)
	}
	flat := newTestImage(t, image.Rect(0, 0, 2, 2), SampleLayout{Bands: 1}, func(int, int, int) float64 { return 4 })
	if got, err := p.StretchColorRamp(flat); err != nil || got != RasterImage(flat) {
		t.Errorf("Expected constant images to be returned unchanged, got %v, %v", got, err)
	}
}

func TestStretchColorRamp_InvalidModifiers(t *testing.T) {
	m := newTestImage(t, image.Rect(0, 0, 2, 2), SampleLayout{Bands: 1}, gradient)
	p := NewProcessor()
	for name, mod := range map[string]StretchModifier{
		"inverted range":   StretchRange(5, 1),
		"infinite minimum": StretchMinimum(math.Inf(-1)),
		"NaN maximum":      StretchMaximum(math.NaN()),
		"zero std dev":     StretchStdDev(0),
	} {
		_, err := p.StretchColorRamp(m, mod)
		var argErr *ArgumentError
		if !errors.As(err, &argErr) {
			t.Errorf("%s: Expected ArgumentError, got %v", name, err)
		}
	}
}

func TestStretchColorRamp_StatisticsFailure(t *testing.T) {
	m := newTestImage(t, image.Rect(0, 0, 4, 4), SampleLayout{Bands: 1, TileWidth: 2, TileHeight: 2}, gradient)
	f := newFailingImage(m, image.Pt(0, 0))
	_, err := NewProcessor().StretchColorRamp(f)
	var opErr *OperationError
	if !errors.As(err, &opErr) || !errors.Is(err, errTileBroken) {
		t.Errorf("Expected OperationError caused by the broken tile, got %v", err)
	}
}
