package canonical

import (
	"encoding/binary"
	"hash/maphash"
	"math"
	"reflect"
)

var seed = maphash.MakeSeed()

// Hasher accumulates a structural hash. All hashers of the process share one
// seed, so equal inputs produce equal sums.
type Hasher struct {
	h   maphash.Hash
	buf [8]byte
}

// NewHasher returns a hasher ready for use.
func NewHasher() *Hasher {
	h := &Hasher{}
	h.h.SetSeed(seed)
	return h
}

// Uint64 writes v.
func (h *Hasher) Uint64(v uint64) *Hasher {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	h.h.Write(h.buf[:])
	return h
}

// Int writes v.
func (h *Hasher) Int(v int) *Hasher {
	return h.Uint64(uint64(v))
}

// Bool writes v.
func (h *Hasher) Bool(v bool) *Hasher {
	if v {
		return h.Uint64(1)
	}
	return h.Uint64(0)
}

// Float writes v. All NaN values hash alike, as do +0 and -0.
func (h *Hasher) Float(v float64) *Hasher {
	switch {
	case math.IsNaN(v):
		return h.Uint64(0x7ff8000000000001)
	case v == 0:
		return h.Uint64(0)
	}
	return h.Uint64(math.Float64bits(v))
}

// Floats writes the length and elements of v.
func (h *Hasher) Floats(v []float64) *Hasher {
	h.Int(len(v))
	for _, f := range v {
		h.Float(f)
	}
	return h
}

// String writes s.
func (h *Hasher) String(s string) *Hasher {
	h.h.WriteString(s)
	h.h.WriteByte(0)
	return h
}

// Identity writes the identity of v: the address for reference kinds,
// the dynamic type otherwise.
func (h *Hasher) Identity(v any) *Hasher {
	if v == nil {
		return h.Uint64(0)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Slice, reflect.Func:
		return h.Uint64(uint64(rv.Pointer()))
	}
	return h.String(rv.Type().String())
}

// Sum returns the accumulated hash.
func (h *Hasher) Sum() uint64 {
	return h.h.Sum64()
}
