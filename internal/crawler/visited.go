package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// visitedSet records URLs that have been dequeued or captured.
// It is safe for concurrent use.
type visitedSet struct {
	mu   sync.Mutex
	urls map[string]bool
}

func newVisitedSet() *visitedSet {
	return &visitedSet{urls: make(map[string]bool)}
}

// markVisited adds rawURL and reports whether it was newly added.
// Check and insert happen under one lock.
func (v *visitedSet) markVisited(rawURL string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.urls[rawURL] {
		return false
	}
	v.urls[rawURL] = true
	return true
}

// contains reports whether rawURL has been visited.
func (v *visitedSet) contains(rawURL string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.urls[rawURL]
}

// len returns the number of visited URLs.
func (v *visitedSet) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.urls)
}

// normalizeURL returns the canonical form of u used for deduplication:
// no fragment, lowercase scheme and host, and "/" for an empty path.
func normalizeURL(u *url.URL) string {
	n := *u
	n.Fragment = ""
	n.RawFragment = ""
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	if n.Path == "" {
		n.Path = "/"
		n.RawPath = ""
	}
	return n.String()
}

// normalizeRawURL parses and normalizes rawURL.
func normalizeRawURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	return normalizeURL(u), nil
}
