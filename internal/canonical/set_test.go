package canonical

import (
	"math"
	"runtime"
	"sync"
	"testing"
	"time"
)

type entry struct {
	key   string
	value int
	id    int // not part of equality
}

func (e *entry) Hash() uint64 {
	return NewHasher().String(e.key).Int(e.value).Sum()
}

func (e *entry) Equal(o *entry) bool {
	return e.key == o.key && e.value == o.value
}

func TestUnique_ReturnsRegisteredEqualValue(t *testing.T) {
	var s Set[entry, *entry]
	first := &entry{key: "a", value: 1, id: 1}
	second := &entry{key: "a", value: 1, id: 2}

	if got := s.Unique(first); got != first {
		t.Fatalf("Expected first registration to return the candidate")
	}
	if got := s.Unique(second); got != first {
		t.Errorf("Expected equal value to canonicalize to first, got id %d", got.id)
	}
	runtime.KeepAlive(first)
}

func TestUnique_DistinctValues(t *testing.T) {
	var s Set[entry, *entry]
	a := s.Unique(&entry{key: "a", value: 1})
	b := s.Unique(&entry{key: "a", value: 2})
	c := s.Unique(&entry{key: "b", value: 1})
	if a == b || a == c || b == c {
		t.Fatalf("Expected distinct values to stay distinct")
	}
	if s.Len() != 3 {
		t.Errorf("Expected 3 live entries, got %d", s.Len())
	}
	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
	runtime.KeepAlive(c)
}

func TestUnique_Nil(t *testing.T) {
	var s Set[entry, *entry]
	if s.Unique(nil) != nil {
		t.Errorf("Expected nil for nil candidate")
	}
}

func register(s *Set[entry, *entry], n int) {
	for i := 0; i < n; i++ {
		s.Unique(&entry{key: "tmp", value: i})
	}
}

func TestUnique_EntriesAreReclaimed(t *testing.T) {
	var s Set[entry, *entry]
	register(&s, 100)

	deadline := time.Now().Add(5 * time.Second)
	for s.Len() != 0 && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if n := s.Len(); n != 0 {
		t.Fatalf("Expected unreferenced entries to be reclaimed, %d still live", n)
	}

	kept := &entry{key: "tmp", value: 1, id: 7}
	if got := s.Unique(kept); got != kept {
		t.Errorf("Expected fresh registration after reclamation, got id %d", got.id)
	}
}

func TestUnique_Concurrent(t *testing.T) {
	var s Set[entry, *entry]
	const goroutines = 16
	results := make([]*entry, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Unique(&entry{key: "shared", value: 42, id: i})
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if r != results[0] {
			t.Errorf("goroutine %d got a different instance (id %d vs %d)", i, r.id, results[0].id)
		}
	}
}

func TestHasher_FloatNormalization(t *testing.T) {
	nan1 := NewHasher().Float(math.NaN()).Sum()
	nan2 := NewHasher().Float(math.Float64frombits(0x7ff0000000000abc)).Sum()
	if nan1 != nan2 {
		t.Errorf("Expected all NaN values to hash alike")
	}
	if NewHasher().Float(0).Sum() != NewHasher().Float(math.Copysign(0, -1)).Sum() {
		t.Errorf("Expected +0 and -0 to hash alike")
	}
	if NewHasher().Floats([]float64{1, 2}).Sum() == NewHasher().Floats([]float64{2, 1}).Sum() {
		t.Errorf("Expected order to matter")
	}
}
