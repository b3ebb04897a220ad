// Package model defines the data structures shared by the crawl core and
// its collaborators.
//
// This package contains the following main types:
//   - CrawlTarget: Immutable description of one source to crawl
//   - FrontierEntry / DiscoveredLink: Units flowing through the crawl frontier
//   - Platform: The catalog platform detected on a root page
//   - CrawlResult: The sorted URL set produced by one crawl
//   - SourceRun: One pipeline execution for a source (crawl, prefilter, store)
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, pipeline, database and report packages all need
// these types, so centralizing them prevents import cycles.
package model
