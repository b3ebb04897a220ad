package prefilter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/coursecrawl/internal/fetch"
	"github.com/nao1215/coursecrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency is the default number of checks in flight.
	DefaultConcurrency = 20

	// DefaultTimeout is the default deadline for a single check.
	DefaultTimeout = 2 * time.Second
)

// Checker filters URLs down to those that currently answer 200 OK.
type Checker struct {
	client      *http.Client
	concurrency int
	timeout     time.Duration
	userAgent   string
	logger      *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithConcurrency sets the number of checks in flight.
func WithConcurrency(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout sets the deadline for a single check, including the GET fallback.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Checker) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Checker. A nil client uses http.DefaultClient,
// which follows redirects.
func New(client *http.Client, opts ...Option) *Checker {
	if client == nil {
		client = http.DefaultClient
	}
	c := &Checker{
		client:      client,
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		userAgent:   fetch.DefaultUserAgent,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Filter returns the sorted subset of urls that answered 200 OK.
// Failed checks are dropped and never reported as errors. If ctx is
// cancelled, URLs not yet checked are dropped.
func (c *Checker) Filter(ctx context.Context, urls []string) []string {
	ok := make([]bool, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, u := range urls {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			ok[i] = c.check(gctx, u)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // checks never return errors

	kept := make([]string, 0, len(urls))
	for i, u := range urls {
		if ok[i] {
			kept = append(kept, u)
		}
	}

	c.logger.Debug("prefilter finished", "checked", len(urls), "kept", len(kept))
	return model.SortedUnique(kept)
}

// check reports whether rawURL answers 200 OK.
func (c *Checker) check(ctx context.Context, rawURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status, err := c.do(ctx, http.MethodHead, rawURL)
	if err == nil && status == http.StatusMethodNotAllowed {
		status, err = c.do(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		c.logger.Debug("prefilter dropped url", "url", rawURL, "error", err)
		return false
	}
	if status != http.StatusOK {
		c.logger.Debug("prefilter dropped url", "url", rawURL, "status", status)
		return false
	}
	return true
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
	return resp.StatusCode, nil
}
