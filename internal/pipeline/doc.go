// Package pipeline runs each catalog source through a fixed sequence of steps.
//
// A source is processed by a Pipeline of Steps, each receiving the
// model.SourceRun accumulated by the previous ones:
//
//	cache -> crawl -> prefilter -> store
//
// The cache step loads a previously stored URL set so the crawl can be
// skipped. The crawl step runs the crawler against the source, the
// prefilter step drops URLs that no longer answer 200 OK, and the store
// step persists the result. Crawlers and prefilter checkers are built per
// source so both send the source's cookie and headers. A step with nothing to do returns
// ErrStepSkipped and is left out of SourceRun.PerformedSteps.
//
// BatchProcessor runs one pipeline per source concurrently with errgroup.
// A failing source is recorded in its SourceRun and never stops the batch.
package pipeline
