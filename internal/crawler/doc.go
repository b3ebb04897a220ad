// Package crawler discovers the pages of a course catalog.
//
// # Architecture
//
// The Spider runs a bounded breadth-first traversal from a root URL. It never
// talks HTTP itself: every page goes through a Fetcher (normally
// *fetch.Fetcher), which owns retry, escalation and the concurrency token
// pool.
//
// The frontier is drained level by level. All entries of one depth are
// fetched concurrently (at most CrawlTarget.Concurrency in flight) and their
// links are merged in frontier order, so the next level is built
// deterministically.
//
// # Platforms
//
// The root page is probed once for a catalog platform signature. Modern
// Campus (Acalog) catalogs list courses in tables and link each course to a
// preview_course_nopop.php detail page; those detail pages are captured
// straight into the result without a fetch and only the listing table links
// are followed. Every other site uses the default rules, which follow every
// anchor.
//
// # Scope
//
// Links are followed only when they share the host of the base-exclude URL
// (or the root URL when none is set) and live under its directory path,
// unless the target includes external links. URLs matching an exclusion
// pattern are never fetched or returned. DefaultExcludePatterns always
// applies.
//
// # Usage
//
//	spider := crawler.NewSpider(fetcher)
//	result, err := spider.Crawl(ctx, target)
//
// Page-level failures are recorded in CrawlResult.Failed and never abort the
// crawl. Crawl returns an error only for an invalid target or when ctx is
// cancelled, in which case the partial result is returned with it.
package crawler
