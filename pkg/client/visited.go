package client

import "sync"

// VisitedSet deduplicates URLs within one scraping session. It is owned by
// the session that created it and passed by reference to collaborators; its
// lifetime ends with the session, not the process.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewVisitedSet creates an empty visited set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Visit records the URL and reports whether this was its first visit.
func (v *VisitedSet) Visit(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[url]; ok {
		return false
	}
	v.seen[url] = struct{}{}
	return true
}

// Seen reports whether the URL was visited without recording it.
func (v *VisitedSet) Seen(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.seen[url]
	return ok
}

// Len returns the number of distinct URLs visited.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}
