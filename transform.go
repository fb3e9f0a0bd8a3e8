package goraster

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/tingold/goraster/internal/canonical"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// PixelTransform maps target pixel coordinates to source pixel coordinates.
// Apply returns an error wrapping ErrTransformDomain for points outside the
// domain of validity of the transform.
type PixelTransform interface {
	Apply(p vec.Vec2) (vec.Vec2, error)
	IsIdentity() bool
}

// Affine is an affine pixel transform backed by a geom matrix.
// The point (x, y) maps to (m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]).
// The zero value is not valid; use one of the constructors.
type Affine struct {
	m matrix.Matrix
}

// NewAffine returns the transform x' = a*x + c*y + e, y' = b*x + d*y + f.
func NewAffine(a, b, c, d, e, f float64) *Affine {
	return &Affine{m: matrix.Matrix{a, b, c, d, e, f}}
}

// AffineFromMatrix wraps a geom matrix.
func AffineFromMatrix(m matrix.Matrix) *Affine {
	return &Affine{m: m}
}

// IdentityTransform returns the identity transform.
func IdentityTransform() *Affine {
	return &Affine{m: matrix.Identity}
}

// Translation returns a transform adding (dx, dy).
func Translation(dx, dy float64) *Affine {
	return NewAffine(1, 0, 0, 1, dx, dy)
}

// Scaling returns a transform multiplying x by sx and y by sy.
func Scaling(sx, sy float64) *Affine {
	return NewAffine(sx, 0, 0, sy, 0, 0)
}

// Matrix returns the coefficients of the transform.
func (t *Affine) Matrix() matrix.Matrix { return t.m }

// Apply maps p. Affine transforms are defined everywhere.
func (t *Affine) Apply(p vec.Vec2) (vec.Vec2, error) {
	return t.apply(p), nil
}

func (t *Affine) apply(p vec.Vec2) vec.Vec2 {
	m := &t.m
	return vec.Vec2{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// IsIdentity reports whether the transform maps every point to itself.
func (t *Affine) IsIdentity() bool {
	return t.m == matrix.Identity
}

// Then returns the transform applying t first, then next.
func (t *Affine) Then(next *Affine) *Affine {
	a, b := &t.m, &next.m
	return &Affine{m: matrix.Matrix{
		b[0]*a[0] + b[2]*a[1],
		b[1]*a[0] + b[3]*a[1],
		b[0]*a[2] + b[2]*a[3],
		b[1]*a[2] + b[3]*a[3],
		b[0]*a[4] + b[2]*a[5] + b[4],
		b[1]*a[4] + b[3]*a[5] + b[5],
	}}
}

// Inverse returns the inverse transform, or an error if t is singular.
func (t *Affine) Inverse() (*Affine, error) {
	a := &t.m
	det := a[0]*a[3] - a[2]*a[1]
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return nil, fmt.Errorf("affine transform is not invertible: %w", ErrUnsupported)
	}
	i0, i1, i2, i3 := a[3]/det, -a[1]/det, -a[2]/det, a[0]/det
	return &Affine{m: matrix.Matrix{
		i0, i1, i2, i3,
		-(i0*a[4] + i2*a[5]),
		-(i1*a[4] + i3*a[5]),
	}}, nil
}

func (t *Affine) String() string {
	return fmt.Sprintf("Affine%v", [6]float64(t.m))
}

// TransformFunc adapts a function to PixelTransform. Function transforms
// are never considered identity and never compare equal to each other.
type TransformFunc func(p vec.Vec2) (vec.Vec2, error)

// Apply calls f(p).
func (f TransformFunc) Apply(p vec.Vec2) (vec.Vec2, error) { return f(p) }

// IsIdentity returns false.
func (f TransformFunc) IsIdentity() bool { return false }

// chain applies first then second.
type chain struct {
	first, second PixelTransform
}

func (c *chain) Apply(p vec.Vec2) (vec.Vec2, error) {
	q, err := c.first.Apply(p)
	if err != nil {
		return vec.Vec2{}, err
	}
	return c.second.Apply(q)
}

func (c *chain) IsIdentity() bool {
	return c.first.IsIdentity() && c.second.IsIdentity()
}

// Concatenate returns the transform applying first, then second. Two affine
// transforms are multiplied into a single affine transform; identities are
// dropped; any other pair is chained.
func Concatenate(first, second PixelTransform) (PixelTransform, error) {
	if first == nil || second == nil {
		return nil, errors.New("cannot concatenate a nil transform")
	}
	if first.IsIdentity() {
		return second, nil
	}
	if second.IsIdentity() {
		return first, nil
	}
	a1, ok1 := first.(*Affine)
	a2, ok2 := second.(*Affine)
	if ok1 && ok2 {
		return a1.Then(a2), nil
	}
	return &chain{first: first, second: second}, nil
}

// equalTransforms reports whether a and b are known to compute the same mapping.
func equalTransforms(a, b PixelTransform) bool {
	switch ta := a.(type) {
	case *Affine:
		tb, ok := b.(*Affine)
		return ok && ta.m == tb.m
	case *chain:
		tb, ok := b.(*chain)
		return ok && equalTransforms(ta.first, tb.first) && equalTransforms(ta.second, tb.second)
	case TransformFunc:
		return false
	}
	return sameTransform(a, b)
}

// sameTransform compares caller-supplied transforms by identity.
func sameTransform(a, b PixelTransform) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// hashTransform writes a hash consistent with equalTransforms.
func hashTransform(h *canonical.Hasher, t PixelTransform) {
	switch tt := t.(type) {
	case *Affine:
		h.String("affine").Floats(tt.m[:])
	case *chain:
		h.String("chain")
		hashTransform(h, tt.first)
		hashTransform(h, tt.second)
	case TransformFunc:
		h.String("func")
	default:
		h.Identity(t)
	}
}
