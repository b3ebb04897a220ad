// Package prefilter re-validates crawled URLs before they are stored.
//
// A crawl can return pages that were reachable only once, or leaf pages that
// were captured without being fetched. The Checker sends a HEAD request to
// each URL (falling back to GET when the server answers 405 Method Not
// Allowed) and keeps only those that answer 200 OK. Any other status,
// timeout, or transport error drops the URL.
//
// Usage:
//
//	checker := prefilter.New(client,
//	    prefilter.WithConcurrency(20),
//	    prefilter.WithTimeout(2*time.Second),
//	)
//	valid := checker.Filter(ctx, urls)
package prefilter
