// Package fetch retrieves the HTML of a single catalog page.
//
// # Strategies
//
// Fetching uses the cheapest strategy that plausibly succeeds:
//
//  1. Static: a plain HTTP GET with a browser-like User-Agent. Transient
//     statuses (403, 429, 503) are retried with exponential backoff and
//     jitter. Other error statuses fail the page immediately.
//  2. Rendered: the page is loaded in a headless browser, scrolled
//     incrementally so client-side virtual lists are populated, and the
//     hydrated HTML is returned.
//
// The Fetcher escalates from static to rendered when the static strategy is
// exhausted, hits a connection-level error, or returns an anti-bot
// interstitial. Rendered interstitials are reloaded twice with a short
// backoff before the content is returned as best-effort. A URL no request
// can be built for fails at once without escalation.
//
// Result.FinalURL is the address the page was served from after redirects,
// for both strategies. Relative links on the page resolve against it.
//
// # Concurrency
//
// Every network attempt (one GET or one render) holds a token from a
// weighted semaphore sized to the crawl's concurrency limit. Tokens are
// never held across backoff sleeps.
//
// # Usage
//
//	renderer := fetch.NewRodRenderer()
//	defer renderer.Close()
//
//	f := fetch.New(client,
//	    fetch.WithConcurrency(10),
//	    fetch.WithTimeout(10*time.Second),
//	    fetch.WithRenderer(renderer),
//	)
//	res, err := f.Fetch(ctx, "https://bulletin.example.edu/courses/")
package fetch
