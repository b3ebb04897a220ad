package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/coursecrawl/internal/crawler"
	"github.com/nao1215/coursecrawl/internal/fetch"
	"github.com/nao1215/coursecrawl/internal/model"
	"github.com/nao1215/coursecrawl/internal/prefilter"
)

// URLReader reads a stored URL set.
type URLReader interface {
	GetURLs(ctx context.Context, source string) ([]string, error)
}

// URLWriter replaces a stored URL set.
type URLWriter interface {
	SaveURLs(ctx context.Context, source string, urls []string) error
}

// URLFilter narrows a URL set to the URLs that are still reachable.
type URLFilter interface {
	Filter(ctx context.Context, urls []string) []string
}

// FilterFactory builds the URL filter for a target.
type FilterFactory func(target *model.CrawlTarget) (URLFilter, error)

// Crawler discovers the URL set of one target.
type Crawler interface {
	Crawl(ctx context.Context, target *model.CrawlTarget) (*model.CrawlResult, error)
}

// CrawlerFactory builds the crawler for a target.
type CrawlerFactory func(target *model.CrawlTarget) (Crawler, error)

// CacheStep loads the stored URL set of a source so the crawl can be skipped.
type CacheStep struct {
	store   URLReader
	refresh bool
	logger  *slog.Logger
}

// CacheStepOption configures a CacheStep.
type CacheStepOption func(*CacheStep)

// WithRefresh makes the step ignore stored URLs.
func WithRefresh(refresh bool) CacheStepOption {
	return func(s *CacheStep) {
		s.refresh = refresh
	}
}

// WithCacheLogger sets a custom logger for the cache step.
func WithCacheLogger(logger *slog.Logger) CacheStepOption {
	return func(s *CacheStep) {
		s.logger = logger
	}
}

// NewCacheStep creates a cache lookup step.
func NewCacheStep(store URLReader, opts ...CacheStepOption) *CacheStep {
	s := &CacheStep{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CacheStep) Name() string {
	return "cache"
}

// Do loads stored URLs into run. A failed lookup falls back to crawling.
func (s *CacheStep) Do(ctx context.Context, run *model.SourceRun) error {
	if s.refresh || s.store == nil {
		return ErrStepSkipped
	}

	urls, err := s.store.GetURLs(ctx, run.Name())
	if err != nil {
		s.logger.Warn("cache lookup failed, crawling instead", "source", run.Name(), "error", err)
		return ErrStepSkipped
	}
	if len(urls) == 0 {
		return ErrStepSkipped
	}

	run.URLs = urls
	run.Discovered = len(urls)
	run.Cached = true

	s.logger.Info("loaded cached urls", "source", run.Name(), "urls", len(urls))
	return nil
}

// CrawlStep crawls the source unless its URLs came from the cache.
type CrawlStep struct {
	newCrawler CrawlerFactory
	logger     *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step that builds a crawler per target.
func NewCrawlStep(factory CrawlerFactory, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		newCrawler: factory,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls run.Target. A cancelled crawl keeps its partial result.
func (s *CrawlStep) Do(ctx context.Context, run *model.SourceRun) error {
	if run.Cached {
		return ErrStepSkipped
	}

	c, err := s.newCrawler(run.Target)
	if err != nil {
		return fmt.Errorf("failed to create crawler: %w", err)
	}

	result, err := c.Crawl(ctx, run.Target)
	if result != nil {
		run.Crawl = result
		run.URLs = result.URLs
		run.Discovered = len(result.URLs)
	}
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	s.logger.Info("crawl completed",
		"source", run.Name(),
		"platform", result.Platform,
		"urls", len(result.URLs),
		"pages_fetched", result.PagesFetched,
		"failed", len(result.Failed),
	)
	return nil
}

// PrefilterStep drops crawled URLs that no longer answer 200 OK.
type PrefilterStep struct {
	newFilter FilterFactory
	logger    *slog.Logger
}

// PrefilterStepOption configures a PrefilterStep.
type PrefilterStepOption func(*PrefilterStep)

// WithPrefilterLogger sets a custom logger for the prefilter step.
func WithPrefilterLogger(logger *slog.Logger) PrefilterStepOption {
	return func(s *PrefilterStep) {
		s.logger = logger
	}
}

// NewPrefilterStep creates a prefilter step that builds a filter per target.
func NewPrefilterStep(factory FilterFactory, opts ...PrefilterStepOption) *PrefilterStep {
	s := &PrefilterStep{
		newFilter: factory,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *PrefilterStep) Name() string {
	return "prefilter"
}

// Do filters run.URLs. Cached URLs were filtered when they were stored.
func (s *PrefilterStep) Do(ctx context.Context, run *model.SourceRun) error {
	if run.Cached || len(run.URLs) == 0 {
		return ErrStepSkipped
	}

	filter, err := s.newFilter(run.Target)
	if err != nil {
		return fmt.Errorf("failed to create prefilter: %w", err)
	}

	kept := filter.Filter(ctx, run.URLs)
	if err := ctx.Err(); err != nil {
		// An interrupted check drops URLs it never reached; keep the crawl output.
		return fmt.Errorf("prefilter interrupted: %w", err)
	}

	s.logger.Info("prefilter completed",
		"source", run.Name(),
		"checked", len(run.URLs),
		"kept", len(kept),
	)
	run.URLs = kept
	return nil
}

// StoreStep persists the final URL set of a crawled source.
type StoreStep struct {
	store  URLWriter
	logger *slog.Logger
}

// StoreStepOption configures a StoreStep.
type StoreStepOption func(*StoreStep)

// WithStoreLogger sets a custom logger for the store step.
func WithStoreLogger(logger *slog.Logger) StoreStepOption {
	return func(s *StoreStep) {
		s.logger = logger
	}
}

// NewStoreStep creates a store step.
func NewStoreStep(store URLWriter, opts ...StoreStepOption) *StoreStep {
	s := &StoreStep{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// Do saves run.URLs. Empty sets are not stored so that a source whose
// crawl found nothing is crawled again next time.
func (s *StoreStep) Do(ctx context.Context, run *model.SourceRun) error {
	if run.Cached || len(run.URLs) == 0 {
		return ErrStepSkipped
	}

	if err := s.store.SaveURLs(ctx, run.Name(), run.URLs); err != nil {
		return fmt.Errorf("failed to store urls: %w", err)
	}

	s.logger.Debug("stored urls", "source", run.Name(), "urls", len(run.URLs))
	return nil
}

// FetchSettings are the fetch options shared by every source of a batch.
type FetchSettings struct {
	// ProxyAddress routes static requests through a SOCKS5 proxy.
	ProxyAddress string

	// UserAgent overrides fetch.DefaultUserAgent.
	UserAgent string

	// MaxBodySize caps static response bodies.
	MaxBodySize int64

	// RenderTimeout bounds one browser render.
	RenderTimeout time.Duration

	// Renderer is shared by all sources. Nil disables escalation.
	Renderer fetch.Renderer

	// Logger is passed to the fetcher and the spider.
	Logger *slog.Logger
}

// NewSpiderFactory returns a CrawlerFactory that gives every target its own
// HTTP client (cookie, headers, proxy) and fetch token pool sized to the
// target's concurrency, while sharing the browser renderer.
func NewSpiderFactory(settings FetchSettings) CrawlerFactory {
	logger := settings.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(target *model.CrawlTarget) (Crawler, error) {
		client, err := fetch.NewHTTPClient(fetch.ClientOptions{
			ProxyAddress: settings.ProxyAddress,
			Cookie:       target.Cookie,
			Headers:      target.Headers,
		})
		if err != nil {
			return nil, err
		}

		opts := []fetch.Option{
			fetch.WithConcurrency(target.Concurrency),
			fetch.WithTimeout(target.PageTimeout),
			fetch.WithUserAgent(settings.UserAgent),
			fetch.WithMaxBodySize(settings.MaxBodySize),
			fetch.WithRenderTimeout(settings.RenderTimeout),
			fetch.WithLogger(logger),
		}
		if settings.Renderer != nil {
			opts = append(opts, fetch.WithRenderer(settings.Renderer))
		}

		fetcher := fetch.New(client, opts...)
		return crawler.NewSpider(fetcher, crawler.WithLogger(logger)), nil
	}
}

// PrefilterSettings are the reachability check options shared by every
// source of a batch.
type PrefilterSettings struct {
	// ProxyAddress routes checks through a SOCKS5 proxy.
	ProxyAddress string

	// UserAgent overrides fetch.DefaultUserAgent.
	UserAgent string

	// Concurrency is the number of checks in flight per source.
	Concurrency int

	// Timeout bounds one check.
	Timeout time.Duration

	// Logger is passed to the checker.
	Logger *slog.Logger
}

// NewPrefilterFactory returns a FilterFactory whose checkers send the
// target's cookie and headers, like the target's crawl does.
func NewPrefilterFactory(settings PrefilterSettings) FilterFactory {
	return func(target *model.CrawlTarget) (URLFilter, error) {
		client, err := fetch.NewHTTPClient(fetch.ClientOptions{
			ProxyAddress: settings.ProxyAddress,
			Cookie:       target.Cookie,
			Headers:      target.Headers,
		})
		if err != nil {
			return nil, err
		}

		return prefilter.New(client,
			prefilter.WithConcurrency(settings.Concurrency),
			prefilter.WithTimeout(settings.Timeout),
			prefilter.WithUserAgent(settings.UserAgent),
			prefilter.WithLogger(settings.Logger),
		), nil
	}
}

// DefaultPipelineConfig holds the collaborators of the default pipeline.
type DefaultPipelineConfig struct {
	// Store reads and writes URL sets. Nil disables the cache and store steps.
	Store interface {
		URLReader
		URLWriter
	}

	// NewFilter builds the filter that re-validates crawled URLs.
	// Nil disables the prefilter step.
	NewFilter FilterFactory

	// Refresh ignores stored URLs.
	Refresh bool

	// Logger is used by every step.
	Logger *slog.Logger
}

// DefaultPipeline creates the standard cache, crawl, prefilter and store
// pipeline. Steps whose collaborator is nil are left out.
func DefaultPipeline(factory CrawlerFactory, cfg DefaultPipelineConfig, pipelineOpts ...Option) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := New(pipelineOpts...)

	if cfg.Store != nil {
		p.AddStep(NewCacheStep(cfg.Store, WithRefresh(cfg.Refresh), WithCacheLogger(logger)))
	}
	p.AddStep(NewCrawlStep(factory, WithCrawlLogger(logger)))
	if cfg.NewFilter != nil {
		p.AddStep(NewPrefilterStep(cfg.NewFilter, WithPrefilterLogger(logger)))
	}
	if cfg.Store != nil {
		p.AddStep(NewStoreStep(cfg.Store, WithStoreLogger(logger)))
	}

	return p
}
