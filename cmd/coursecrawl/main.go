// Package main provides the entry point for the coursecrawl CLI.
//
// coursecrawl discovers course pages of university catalogs. It crawls each
// catalog breadth-first within its scope, escalates to a headless browser
// when a page needs JavaScript or hides behind an anti-bot interstitial,
// and stores the resulting URL sets for downstream extraction.
//
// Usage:
//
//	coursecrawl crawl <root-url>
//	coursecrawl crawl --source brown --source yale
//
// See --help for all available options.
package main

// main is the entry point for coursecrawl.
func main() {
	Execute()
}
