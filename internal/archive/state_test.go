package archive

import (
	"errors"
	"sync"
	"testing"
)

func TestRunStateSequence(t *testing.T) {
	s := NewRunState(0)
	for want := 0; want < 4; want++ {
		if got := s.Next(); got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}
}

func TestRunStateIsolation(t *testing.T) {
	a, b := NewRunState(0), NewRunState(0)
	a.Next()
	a.Next()
	if got := b.Next(); got != 0 {
		t.Fatalf("fresh state Next() = %d, want 0", got)
	}
	if err := a.Visit("u"); err != nil {
		t.Fatal(err)
	}
	if err := b.Visit("u"); err != nil {
		t.Fatalf("visit leaked across states: %v", err)
	}
}

func TestRunStateVisitLimit(t *testing.T) {
	s := NewRunState(2)
	for _, u := range []string{"a", "b"} {
		if err := s.Visit(u); err != nil {
			t.Fatalf("Visit(%s) returned error: %v", u, err)
		}
	}
	var circular *CircularReferenceError
	if err := s.Visit("a"); !errors.As(err, &circular) {
		t.Fatalf("Visit(a) again = %v, want CircularReferenceError", err)
	}
	var limit *AntiAbuseLimitError
	if err := s.Visit("c"); !errors.As(err, &limit) {
		t.Fatalf("Visit(c) = %v, want AntiAbuseLimitError", err)
	}
}

func TestRunStateConcurrentNext(t *testing.T) {
	s := NewRunState(0)
	seen := make(map[int]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := s.Next()
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != 50 {
		t.Fatalf("got %d distinct indices, want 50", len(seen))
	}
}
