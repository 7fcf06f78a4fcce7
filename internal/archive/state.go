package archive

import "sync"

// DefaultMaxManifests bounds the number of distinct manifests one run may
// visit.
const DefaultMaxManifests = 20

// RunState is the mutable state of a single top-level archive: the manifest
// sequence counter and the set of visited manifest URLs. It is safe for
// concurrent use but must never be shared between top-level archives.
type RunState struct {
	mu      sync.Mutex
	next    int
	visited map[string]struct{}
	limit   int
	files   int
}

// NewRunState returns a fresh state. A limit <= 0 uses DefaultMaxManifests.
func NewRunState(limit int) *RunState {
	if limit <= 0 {
		limit = DefaultMaxManifests
	}
	return &RunState{visited: make(map[string]struct{}), limit: limit}
}

// Next returns the current sequence number and advances the counter.
func (s *RunState) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next
	s.next++
	return n
}

// Visit records url, failing if it was already seen or if the visited set
// grows beyond the limit.
func (s *RunState) Visit(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visited[url]; ok {
		return &CircularReferenceError{URL: url}
	}
	s.visited[url] = struct{}{}
	if len(s.visited) > s.limit {
		return &AntiAbuseLimitError{URL: url, Limit: s.limit}
	}
	return nil
}

func (s *RunState) addFile() {
	s.mu.Lock()
	s.files++
	s.mu.Unlock()
}

// Manifests returns the number of distinct manifests visited.
func (s *RunState) Manifests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visited)
}

// Files returns the number of leaf transfers started.
func (s *RunState) Files() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files
}
