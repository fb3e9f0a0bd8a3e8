package goraster

import (
	"errors"
	"image"
	"testing"
)

func TestSelectBands(t *testing.T) {
	m := newTestImage(t, image.Rect(0, 0, 4, 4), SampleLayout{Bands: 3, TileWidth: 2, TileHeight: 2}, gradient)
	p := NewProcessor()

	got, err := p.SelectBands(m, 2, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Layout().Bands != 2 {
		t.Fatalf("Expected 2 bands, got %d", got.Layout().Bands)
	}
	tile, _ := got.Tile(1, 1)
	if v := tile.At(0, 3, 2); v != gradient(2, 3, 2) {
		t.Errorf("Expected %g, got %g", gradient(2, 3, 2), v)
	}
	if v := tile.At(1, 3, 2); v != gradient(0, 3, 2) {
		t.Errorf("Expected %g, got %g", gradient(0, 3, 2), v)
	}

	m.Set(2, 3, 2, -7)
	if v := tile.At(0, 3, 2); v != -7 {
		t.Errorf("Expected writes to the source to be visible, got %g", v)
	}

	if same, _ := p.SelectBands(m, 0, 1, 2); same != RasterImage(m) {
		t.Errorf("Expected the identity selection to return the source")
	}
	if again, _ := p.SelectBands(m, 2, 0); again != got {
		t.Errorf("Expected the same instance for the same selection")
	}
}

func TestSelectBands_Nested(t *testing.T) {
	m := newTestImage(t, image.Rect(0, 0, 2, 2), SampleLayout{Bands: 4}, gradient)
	p := NewProcessor()
	outer, _ := p.SelectBands(m, 3, 1, 2)
	inner, err := p.SelectBands(outer, 1, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	bs, ok := inner.(*BandSelectImage)
	if !ok || bs.source != RasterImage(m) {
		t.Fatalf("Expected the selection to apply to the original image, got %T", inner)
	}
	if b := bs.Bands(); len(b) != 2 || b[0] != 1 || b[1] != 1 {
		t.Errorf("Expected bands [1 1], got %v", b)
	}
	back, _ := p.SelectBands(outer, 2, 1, 0)
	if bsBack, ok := back.(*BandSelectImage); !ok || len(bsBack.Bands()) != 3 {
		t.Errorf("Expected a selection of 3 bands, got %T", back)
	}
}

func TestSelectBands_Invalid(t *testing.T) {
	m := newTestImage(t, image.Rect(0, 0, 2, 2), SampleLayout{Bands: 2}, gradient)
	for _, bands := range [][]int{nil, {2}, {-1}, {0, 5}} {
		_, err := NewProcessor().SelectBands(m, bands...)
		var argErr *ArgumentError
		if !errors.As(err, &argErr) {
			t.Errorf("%v: Expected ArgumentError, got %v", bands, err)
		}
	}
}

func TestSelectBands_ColorModelAndStatistics(t *testing.T) {
	m := newTestImage(t, image.Rect(0, 0, 2, 2), SampleLayout{Bands: 3, Type: Uint8}, gradient)
	m.SetColorModel(GrayModel(2, 0, 100))
	var s0, s2 Statistics
	s0.Accept(0)
	s2.Accept(2)
	m.SetProperty(StatisticsKey, []Statistics{s0, {}, s2})

	got, _ := NewProcessor().SelectBands(m, 1, 2)
	if cm := got.ColorModel(); cm.Kind != ColorGray || cm.VisibleBand != 1 || cm.Max != 100 {
		t.Errorf("Expected the visible band to follow the selection, got %+v", cm)
	}
	v, _ := got.Property(StatisticsKey)
	stats, ok := v.([]Statistics)
	if !ok || len(stats) != 2 || stats[1].Maximum() != 2 || stats[0].Count() != 0 {
		t.Errorf("Expected statistics reordered for the selection, got %v", v)
	}

	dropped, _ := NewProcessor().SelectBands(m, 0)
	if cm := dropped.ColorModel(); cm.VisibleBand != 0 || cm.Max != 255 {
		t.Errorf("Expected the default color model when the visible band is dropped, got %+v", cm)
	}
}
