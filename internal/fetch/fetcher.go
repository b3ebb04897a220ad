package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
)

// Defaults for the Fetcher.
const (
	// DefaultUserAgent mimics a desktop browser; several catalog hosts reject
	// non-browser agents outright.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	// DefaultMaxAttempts is the static strategy's attempt budget for transient statuses.
	DefaultMaxAttempts = 5

	// DefaultInitialBackoff is the first retry delay; it doubles on each retry.
	DefaultInitialBackoff = 1 * time.Second

	// DefaultMaxBodySize limits static response bodies.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultRenderTimeout bounds one browser render including scrolling.
	DefaultRenderTimeout = 60 * time.Second
)

// challengeBackoffs are the base delays before each re-render of a page
// still showing an interstitial. Up to half a second of jitter is added.
var challengeBackoffs = []time.Duration{1 * time.Second, 2 * time.Second}

// Strategy identifies how HTML was obtained.
type Strategy int

const (
	// StrategyStatic is a plain HTTP GET.
	StrategyStatic Strategy = iota
	// StrategyRendered is a headless browser render.
	StrategyRendered
)

// String returns the strategy name.
func (s Strategy) String() string {
	if s == StrategyRendered {
		return "rendered"
	}
	return "static"
}

// Result is a successful fetch.
type Result struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL the page was served from after redirects.
	// Relative links in HTML resolve against it.
	FinalURL string

	// HTML is the page content.
	HTML string

	// Strategy is the strategy that produced HTML.
	Strategy Strategy

	// Attempts counts network attempts across both strategies.
	Attempts int

	// Challenged is true when HTML is still an anti-bot interstitial after
	// every reload. Callers should treat it as best-effort content.
	Challenged bool
}

// Fetcher retrieves page HTML with retry, backoff and escalation.
// It is safe for concurrent use.
type Fetcher struct {
	client         *http.Client
	renderer       Renderer
	tokens         *semaphore.Weighted
	timeout        time.Duration
	renderTimeout  time.Duration
	userAgent      string
	maxBodySize    int64
	maxAttempts    int
	initialBackoff time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
	jitter         func() float64
	logger         *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRenderer enables escalation to browser rendering.
// Without a renderer the Fetcher is static-only.
func WithRenderer(r Renderer) Option {
	return func(f *Fetcher) {
		f.renderer = r
	}
}

// WithConcurrency sizes the token pool. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.tokens = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithTimeout sets the deadline of one static attempt.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRenderTimeout sets the deadline of one render. The effective render
// deadline is never shorter than the static timeout.
func WithRenderTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.renderTimeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize limits how much of a static response is read.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithMaxAttempts sets the static attempt budget for transient statuses.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithInitialBackoff sets the first retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.initialBackoff = d
		}
	}
}

// WithSleeper replaces the context-aware sleep used for backoff.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// WithJitter replaces the jitter source. It must return values in [0,1).
func WithJitter(jitter func() float64) Option {
	return func(f *Fetcher) {
		if jitter != nil {
			f.jitter = jitter
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Fetcher. A nil client gets a default NewHTTPClient client.
func New(client *http.Client, opts ...Option) *Fetcher {
	if client == nil {
		client, _ = NewHTTPClient(ClientOptions{}) //nolint:errcheck // no proxy, cannot fail
	}

	f := &Fetcher{
		client:         client,
		tokens:         semaphore.NewWeighted(1),
		timeout:        10 * time.Second,
		renderTimeout:  DefaultRenderTimeout,
		userAgent:      DefaultUserAgent,
		maxBodySize:    DefaultMaxBodySize,
		maxAttempts:    DefaultMaxAttempts,
		initialBackoff: DefaultInitialBackoff,
		sleep:          sleepContext,
		jitter:         rand.Float64,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch returns the HTML of rawURL.
//
// The static strategy runs first. It escalates to rendering when its retry
// budget is exhausted, on connection-level errors, or when the response is
// an anti-bot interstitial. Fatal statuses (404, other 4xx/5xx) are returned
// without escalation. The returned error is an *Error, or wraps the context
// error when ctx is done.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	p, attempts, escalate, err := f.fetchStatic(ctx, rawURL)
	if err == nil {
		result := &Result{
			URL:      rawURL,
			FinalURL: p.finalURL,
			HTML:     p.html,
			Strategy: StrategyStatic,
			Attempts: attempts,
		}
		if !LooksLikeChallenge(p.html) {
			return result, nil
		}
		if f.renderer == nil {
			f.logger.Warn("anti-bot interstitial detected and rendering is disabled", "url", rawURL)
			result.Challenged = true
			return result, nil
		}
		f.logger.Info("anti-bot interstitial detected after static fetch, escalating to rendering", "url", rawURL)
		return f.fetchRendered(ctx, rawURL, attempts)
	}

	if !escalate || f.renderer == nil {
		return nil, err
	}

	f.logger.Info("static fetch failed, escalating to rendering", "url", rawURL, "error", err)
	return f.fetchRendered(ctx, rawURL, attempts)
}

// fetchRendered renders rawURL and reloads it while an interstitial persists.
func (f *Fetcher) fetchRendered(ctx context.Context, rawURL string, priorAttempts int) (*Result, error) {
	attempts := priorAttempts + 1
	html, finalURL, err := f.render(ctx, rawURL)
	if err != nil {
		return nil, f.renderError(ctx, rawURL, attempts, err)
	}

	for _, base := range challengeBackoffs {
		if !LooksLikeChallenge(html) {
			return &Result{URL: rawURL, FinalURL: finalURL, HTML: html, Strategy: StrategyRendered, Attempts: attempts}, nil
		}

		delay := base + time.Duration(f.jitter()*float64(500*time.Millisecond))
		f.logger.Info("anti-bot interstitial after render, backing off and reloading",
			"url", rawURL,
			"delay", delay,
		)
		if err := f.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
		}

		attempts++
		html, finalURL, err = f.render(ctx, rawURL)
		if err != nil {
			return nil, f.renderError(ctx, rawURL, attempts, err)
		}
	}

	challenged := LooksLikeChallenge(html)
	if challenged {
		f.logger.Warn("anti-bot interstitial persisted after reloads, returning best-effort HTML", "url", rawURL)
	}
	return &Result{
		URL:        rawURL,
		FinalURL:   finalURL,
		HTML:       html,
		Strategy:   StrategyRendered,
		Attempts:   attempts,
		Challenged: challenged,
	}, nil
}

// render runs one browser render while holding a token.
func (f *Fetcher) render(ctx context.Context, rawURL string) (string, string, error) {
	if err := f.tokens.Acquire(ctx, 1); err != nil {
		return "", "", err
	}
	defer f.tokens.Release(1)

	timeout := f.renderTimeout
	if timeout < f.timeout {
		timeout = f.timeout
	}
	renderCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	html, finalURL, err := f.renderer.Render(renderCtx, rawURL)
	if err == nil && renderCtx.Err() != nil {
		err = renderCtx.Err()
	}
	if finalURL == "" {
		finalURL = rawURL
	}
	return html, finalURL, err
}

func (f *Fetcher) renderError(ctx context.Context, rawURL string, attempts int, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
	}
	kind := KindRender
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{URL: rawURL, Kind: kind, Attempts: attempts, Strategy: StrategyRendered, Err: err}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
