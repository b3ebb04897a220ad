package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/coursecrawl/internal/fetch"
	"github.com/nao1215/coursecrawl/internal/model"
)

// Fetcher retrieves the HTML of one page. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// Spider crawls a course catalog breadth-first.
// A Spider holds no per-crawl state and may run several crawls at once.
type Spider struct {
	// fetcher performs every network request of the crawl.
	fetcher Fetcher

	// rules overrides platform detection when set.
	rules LinkRules

	// logger receives per-page failures and crawl progress.
	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithLinkRules forces a rule set instead of probing the root page.
func WithLinkRules(rules LinkRules) SpiderOption {
	return func(s *Spider) {
		s.rules = rules
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider that fetches through f.
func NewSpider(f Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher: f,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// crawlState is the per-crawl state owned by the drain loop.
type crawlState struct {
	target     *model.CrawlTarget
	scope      *scope
	exclusions exclusions
	rules      LinkRules
	visited    *visitedSet
	pages      []string
	captured   []string
	result     *model.CrawlResult
}

// pageOutcome is what one worker hands back to the drain loop.
type pageOutcome struct {
	entry      model.FrontierEntry
	finalURL   string
	fetched    bool
	cancelled  bool
	challenged bool
	failure    *model.FailedURL
	html       string
	links      *PageLinks
}

// Crawl discovers the pages of target.
//
// The returned result lists every page fetched successfully plus captured
// leaf pages, sorted and deduplicated. Page failures are recorded in
// CrawlResult.Failed and do not produce an error. An error is returned for
// an invalid target, or together with the partial result when ctx is done.
func (s *Spider) Crawl(ctx context.Context, target *model.CrawlTarget) (*model.CrawlResult, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}

	root, err := normalizeRawURL(target.RootURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}

	scopeBase := target.RootURL
	if target.BaseExcludeURL != "" {
		scopeBase = target.BaseExcludeURL
	}
	sc, err := newScope(scopeBase, target.IncludeExternal)
	if err != nil {
		return nil, err
	}

	excl, err := compileExclusions(target.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	st := &crawlState{
		target:     target,
		scope:      sc,
		exclusions: excl,
		rules:      s.rules,
		visited:    newVisitedSet(),
		pages:      make([]string, 0),
		captured:   make([]string, 0),
		result:     model.NewCrawlResult(target),
	}

	s.logger.Info("crawl started",
		"source", target.DisplayName(),
		"root", root,
		"max_depth", target.MaxDepth,
		"concurrency", target.Concurrency,
	)

	// The root page doubles as the platform probe.
	rootEntry := model.FrontierEntry{URL: root, Depth: 0}
	st.visited.markVisited(root)
	probe := s.visit(ctx, rootEntry)
	if probe.fetched && probe.finalURL != root && target.BaseExcludeURL == "" {
		// A redirected root bounds the crawl where it landed.
		rebased, err := newScope(probe.finalURL, target.IncludeExternal)
		if err == nil {
			s.logger.Debug("root redirected", "root", root, "final_url", probe.finalURL)
			st.scope = rebased
		}
	}
	if st.rules == nil {
		st.rules = RulesFor(model.PlatformDefault)
		if probe.fetched {
			st.rules = RulesFor(DetectPlatform(probe.html))
		}
	}
	st.result.Platform = st.rules.Platform()
	if probe.fetched {
		probe.links = s.extract(st, probe.finalURL, probe.html)
	}

	next := s.merge(st, []pageOutcome{probe})
	if probe.cancelled {
		return s.finish(st), ctx.Err()
	}
	if probe.fetched {
		s.logger.Debug("platform detected", "source", target.DisplayName(), "platform", st.result.Platform)
	}

	for len(next) > 0 {
		if ctx.Err() != nil {
			return s.finish(st), ctx.Err()
		}

		level := s.dequeue(st, next)
		outcomes := s.fetchLevel(ctx, st, level)
		next = s.merge(st, outcomes)

		if ctx.Err() != nil {
			return s.finish(st), ctx.Err()
		}
	}

	return s.finish(st), nil
}

// dequeue drops entries that are too deep or already visited and marks
// the rest visited, preserving frontier order.
func (s *Spider) dequeue(st *crawlState, frontier []model.FrontierEntry) []model.FrontierEntry {
	level := make([]model.FrontierEntry, 0, len(frontier))
	for _, entry := range frontier {
		if entry.Depth >= st.target.MaxDepth {
			continue
		}
		if !st.visited.markVisited(entry.URL) {
			continue
		}
		level = append(level, entry)
	}
	return level
}

// fetchLevel visits every entry concurrently. Outcomes keep entry order.
func (s *Spider) fetchLevel(ctx context.Context, st *crawlState, level []model.FrontierEntry) []pageOutcome {
	outcomes := make([]pageOutcome, len(level))

	var g errgroup.Group
	g.SetLimit(st.target.Concurrency)

	for i, entry := range level {
		g.Go(func() error {
			out := s.visit(ctx, entry)
			if out.fetched {
				out.links = s.extract(st, out.finalURL, out.html)
				out.html = ""
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	return outcomes
}

// visit fetches one page.
func (s *Spider) visit(ctx context.Context, entry model.FrontierEntry) pageOutcome {
	out := pageOutcome{entry: entry}

	res, err := s.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		if ctx.Err() != nil {
			out.cancelled = true
			return out
		}

		attrs := []any{"url", entry.URL, "depth", entry.Depth, "error", err}
		var fe *fetch.Error
		if errors.As(err, &fe) {
			attrs = append(attrs, "kind", fe.Kind.String(), "attempts", fe.Attempts)
		}
		s.logger.Warn("page fetch failed", attrs...)

		out.failure = &model.FailedURL{URL: entry.URL, Depth: entry.Depth, Reason: err.Error()}
		return out
	}

	out.fetched = true
	out.finalURL = entry.URL
	if res.FinalURL != "" {
		if final, err := normalizeRawURL(res.FinalURL); err == nil {
			out.finalURL = final
		}
	}
	out.challenged = res.Challenged
	out.html = res.HTML
	return out
}

// extract applies the crawl's rules and filters to a fetched page.
// Links resolve against pageURL, the URL the page was served from.
func (s *Spider) extract(st *crawlState, pageURL, html string) *PageLinks {
	raw, err := st.rules.Extract(pageURL, html)
	if err != nil {
		s.logger.Warn("link extraction failed", "url", pageURL, "error", err)
		return &PageLinks{}
	}

	links := &PageLinks{
		Follow:  make([]string, 0, len(raw.Follow)),
		Capture: make([]string, 0, len(raw.Capture)),
	}
	for _, link := range raw.Capture {
		if st.scope.contains(link) && !st.exclusions.match(link) {
			links.Capture = append(links.Capture, link)
		}
	}
	for _, link := range raw.Follow {
		if !st.scope.contains(link) || st.exclusions.match(link) {
			continue
		}
		links.Follow = append(links.Follow, link)
		if st.rules.Platform() == model.PlatformDefault &&
			st.target.MaxLinksPerPage > 0 &&
			len(links.Follow) >= st.target.MaxLinksPerPage {
			break
		}
	}

	return links
}

// merge folds outcomes into the crawl state in order and returns the next
// frontier level.
func (s *Spider) merge(st *crawlState, outcomes []pageOutcome) []model.FrontierEntry {
	next := make([]model.FrontierEntry, 0)

	for _, out := range outcomes {
		switch {
		case out.cancelled:
			continue
		case out.failure != nil:
			st.result.Failed = append(st.result.Failed, *out.failure)
			continue
		case !out.fetched:
			continue
		}

		st.pages = append(st.pages, s.pageURL(st, out))
		st.result.PagesFetched++
		if out.challenged {
			st.result.Challenged++
		}

		if out.links == nil {
			continue
		}

		for _, link := range out.links.Capture {
			if st.visited.markVisited(link) {
				st.captured = append(st.captured, link)
			}
		}

		for _, link := range out.links.Follow {
			discovered := model.DiscoveredLink{URL: link, Depth: out.entry.Depth}
			entry := discovered.Next()
			if entry.Depth >= st.target.MaxDepth || st.visited.contains(entry.URL) {
				continue
			}
			next = append(next, entry)
		}
	}

	return next
}

// pageURL returns the URL a fetched page is recorded under. A redirect
// that stays inside the boundary is recorded under its target, which is
// marked visited so it is not fetched again.
func (s *Spider) pageURL(st *crawlState, out pageOutcome) string {
	if out.finalURL == "" || out.finalURL == out.entry.URL {
		return out.entry.URL
	}
	if !st.scope.contains(out.finalURL) || st.exclusions.match(out.finalURL) {
		return out.entry.URL
	}
	st.visited.markVisited(out.finalURL)
	return out.finalURL
}

// finish builds the final result from the crawl state.
func (s *Spider) finish(st *crawlState) *model.CrawlResult {
	urls := make([]string, 0, len(st.pages)+len(st.captured))
	urls = append(urls, st.pages...)
	urls = append(urls, st.captured...)

	st.result.SetURLs(urls)
	st.result.Duration = time.Since(st.result.StartedAt)

	s.logger.Info("crawl finished",
		"source", st.result.Source,
		"platform", st.result.Platform,
		"urls", len(st.result.URLs),
		"pages_fetched", st.result.PagesFetched,
		"failed", len(st.result.Failed),
		"visited", st.visited.len(),
		"duration", st.result.Duration,
	)

	return st.result
}
