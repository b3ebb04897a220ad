package model

// FrontierEntry is one unit of work in the crawl frontier.
// The frontier is FIFO and an entry's depth is always the depth of the page
// it was discovered on plus one.
type FrontierEntry struct {
	URL   string
	Depth int
}

// DiscoveredLink is a normalized absolute URL found on a page at Depth.
// It becomes a FrontierEntry at Depth+1 once it passes scope and exclusion
// filtering.
type DiscoveredLink struct {
	URL   string
	Depth int
}

// Next returns the frontier entry for this link.
func (l DiscoveredLink) Next() FrontierEntry {
	return FrontierEntry{URL: l.URL, Depth: l.Depth + 1}
}
