package goraster

import (
	"errors"
	"math"
	"testing"

	"seehuhn.de/go/geom/vec"
)

func approxVec(a, b vec.Vec2) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestAffine_Apply(t *testing.T) {
	a := NewAffine(2, 0, 1, 3, 10, 20)
	p, err := a.Apply(vec.Vec2{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if want := (vec.Vec2{X: 14, Y: 26}); p != want {
		t.Errorf("Expected %v, got %v", want, p)
	}
	if a.IsIdentity() || !IdentityTransform().IsIdentity() {
		t.Errorf("Expected only the identity to report IsIdentity")
	}
}

func TestAffine_ThenAndInverse(t *testing.T) {
	tests := []struct {
		name string
		a, b *Affine
	}{
		{"translate then scale", Translation(3, -4), Scaling(2, 0.5)},
		{"scale then translate", Scaling(2, 0.5), Translation(3, -4)},
		{"shear", NewAffine(1, 0.5, -0.25, 1, 7, 8), NewAffine(0.8, 0, 0, -1.2, 1, 2)},
	}
	points := []vec.Vec2{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: -3.5, Y: 12}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.a.Then(tt.b)
			inv, err := c.Inverse()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			for _, p := range points {
				want := tt.b.apply(tt.a.apply(p))
				got := c.apply(p)
				if !approxVec(got, want) {
					t.Errorf("Expected %v, got %v", want, got)
				}
				if back := inv.apply(got); !approxVec(back, p) {
					t.Errorf("Expected inverse to return %v, got %v", p, back)
				}
			}
		})
	}
}

func TestAffine_SingularInverse(t *testing.T) {
	_, err := Scaling(0, 1).Inverse()
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}

func TestConcatenate(t *testing.T) {
	shift := Translation(1, 1)
	fn := TransformFunc(func(p vec.Vec2) (vec.Vec2, error) {
		if p.X < 0 {
			return vec.Vec2{}, ErrTransformDomain
		}
		return vec.Vec2{X: p.X * p.X, Y: p.Y}, nil
	})

	got, err := Concatenate(IdentityTransform(), shift)
	if err != nil || got != PixelTransform(shift) {
		t.Errorf("Expected identity to be dropped, got %v, %v", got, err)
	}
	got, err = Concatenate(fn, IdentityTransform())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := got.(TransformFunc); !ok {
		t.Errorf("Expected the function itself, got %T", got)
	}

	got, err = Concatenate(shift, Scaling(2, 2))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a, ok := got.(*Affine); !ok || a.Matrix() != NewAffine(2, 0, 0, 2, 2, 2).Matrix() {
		t.Errorf("Expected a single affine transform, got %v", got)
	}

	got, err = Concatenate(shift, fn)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	p, err := got.Apply(vec.Vec2{X: 2, Y: 3})
	if err != nil || p != (vec.Vec2{X: 9, Y: 4}) {
		t.Errorf("Expected (9, 4), got %v, %v", p, err)
	}
	if _, err := got.Apply(vec.Vec2{X: -5, Y: 0}); !errors.Is(err, ErrTransformDomain) {
		t.Errorf("Expected ErrTransformDomain, got %v", err)
	}

	if _, err := Concatenate(nil, shift); err == nil {
		t.Errorf("Expected error for a nil transform")
	}
}

func TestEqualTransforms(t *testing.T) {
	fn := TransformFunc(func(p vec.Vec2) (vec.Vec2, error) { return p, nil })
	tests := []struct {
		name string
		a, b PixelTransform
		want bool
	}{
		{"same coefficients", Translation(1, 2), Translation(1, 2), true},
		{"different coefficients", Translation(1, 2), Translation(2, 1), false},
		{"functions", fn, fn, false},
		{"chains", &chain{Translation(1, 2), fn}, &chain{Translation(1, 2), fn}, false},
		{"affine and function", Translation(1, 2), fn, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := equalTransforms(tt.a, tt.b); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
