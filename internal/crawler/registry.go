package crawler

import (
	"sort"
	"sync"
)

// Registry holds extractors ordered by priority. It is built once at
// startup and handed to whoever needs to dispatch pages.
type Registry struct {
	mu         sync.RWMutex
	extractors []PlatformExtractor
	fallback   PlatformExtractor
}

// NewRegistry creates a registry with the given extractors
func NewRegistry(extractors ...PlatformExtractor) *Registry {
	r := &Registry{}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor, keeping the list sorted by priority (highest
// first, registration order among equals). The lowest-priority extractor is
// the fallback.
func (r *Registry) Register(e PlatformExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors = append(r.extractors, e)
	sort.SliceStable(r.extractors, func(i, j int) bool {
		return r.extractors[i].Priority() > r.extractors[j].Priority()
	})
	r.fallback = r.extractors[len(r.extractors)-1]
}

// Select returns the first extractor whose Detect matches url, or the fallback
func (r *Registry) Select(url string) PlatformExtractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.extractors {
		if e.Detect(url) {
			return e
		}
	}
	return r.fallback
}

// ByName looks up an extractor by platform tag
func (r *Registry) ByName(name string) (PlatformExtractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.extractors {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// Fallback is the extractor used when the selected one finds nothing
func (r *Registry) Fallback() PlatformExtractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}

// Extractors returns a copy of the ordered extractor list
func (r *Registry) Extractors() []PlatformExtractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PlatformExtractor, len(r.extractors))
	copy(out, r.extractors)
	return out
}
