// Package canonical provides a weak, equality-based interning set.
//
// A Set returns, for any candidate value, a previously registered value that
// is structurally equal to it, provided that value is still reachable from
// somewhere else in the program. Entries are held through weak pointers, so
// the set never keeps a value alive; dead entries are swept by a cleanup
// registered with the runtime and on every lookup of the same hash bucket.
package canonical

import (
	"runtime"
	"sync"
	"weak"
)

// Value is the constraint satisfied by pointers to canonicalizable values.
// Equal must be consistent with Hash: equal values have equal hashes.
type Value[T any] interface {
	*T
	Hash() uint64
	Equal(other *T) bool
}

// Set is a weak interning set. The zero value is ready to use and a Set is
// safe for concurrent use.
type Set[T any, P Value[T]] struct {
	mu      sync.Mutex
	buckets map[uint64][]weak.Pointer[T]
}

// Unique returns a live value equal to v if one was registered before,
// otherwise registers v and returns it. Concurrent calls with equal values
// may return either instance, but never a value that is not equal to v.
func (s *Set[T, P]) Unique(v *T) *T {
	if v == nil {
		return nil
	}
	h := P(v).Hash()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buckets == nil {
		s.buckets = make(map[uint64][]weak.Pointer[T])
	}
	live := s.live(h)
	for _, wp := range live {
		if e := wp.Value(); e != nil && P(e).Equal(v) {
			return e
		}
	}
	s.buckets[h] = append(live, weak.Make(v))
	runtime.AddCleanup(v, s.sweep, h)
	return v
}

// Len returns the number of registered values that are still reachable.
func (s *Set[T, P]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for h := range s.buckets {
		n += len(s.live(h))
	}
	return n
}

// live drops the dead entries of bucket h and returns the remaining ones.
// Must be called with s.mu held.
func (s *Set[T, P]) live(h uint64) []weak.Pointer[T] {
	bucket := s.buckets[h]
	kept := bucket[:0]
	for _, wp := range bucket {
		if wp.Value() != nil {
			kept = append(kept, wp)
		}
	}
	clear(bucket[len(kept):])
	if len(kept) == 0 {
		delete(s.buckets, h)
		return nil
	}
	s.buckets[h] = kept
	return kept
}

func (s *Set[T, P]) sweep(h uint64) {
	s.mu.Lock()
	s.live(h)
	s.mu.Unlock()
}
