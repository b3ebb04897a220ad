package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Renderer produces the fully rendered HTML of a page.
// Implementations must be safe for concurrent use.
type Renderer interface {
	// Render loads rawURL in a browser and returns the resulting DOM and
	// the URL the page settled on after redirects.
	Render(ctx context.Context, rawURL string) (html, finalURL string, err error)

	// Close releases the browser. Render fails with ErrRendererClosed afterwards.
	Close() error
}

// Scroll simulation defaults. Catalog pages often lazy-load course lists
// as the viewport moves.
const (
	DefaultScrollSteps  = 30
	DefaultScrollSettle = 500 * time.Millisecond
)

const scrollScript = `() => window.scrollBy(0, window.innerHeight)`

// RodRenderer renders pages in a shared headless Chromium driven by go-rod.
// The browser is launched on first use.
type RodRenderer struct {
	mu        sync.Mutex
	browser   *rod.Browser
	launch    *launcher.Launcher
	closed    bool
	bin       string
	headless  bool
	noSandbox bool
	steps     int
	settle    time.Duration
	logger    *slog.Logger
}

// RenderOption configures a RodRenderer.
type RenderOption func(*RodRenderer)

// WithBrowserBin sets the Chromium executable. Empty lets go-rod find or
// download one.
func WithBrowserBin(path string) RenderOption {
	return func(r *RodRenderer) {
		r.bin = path
	}
}

// WithHeadless toggles headless mode. Defaults to true.
func WithHeadless(headless bool) RenderOption {
	return func(r *RodRenderer) {
		r.headless = headless
	}
}

// WithNoSandbox disables the Chromium sandbox, needed when running as root
// in containers.
func WithNoSandbox(noSandbox bool) RenderOption {
	return func(r *RodRenderer) {
		r.noSandbox = noSandbox
	}
}

// WithScrollSteps sets how many viewport scrolls are simulated per page.
func WithScrollSteps(n int) RenderOption {
	return func(r *RodRenderer) {
		if n >= 0 {
			r.steps = n
		}
	}
}

// WithScrollSettle sets the pause after each scroll.
func WithScrollSettle(d time.Duration) RenderOption {
	return func(r *RodRenderer) {
		if d >= 0 {
			r.settle = d
		}
	}
}

// WithRenderLogger sets the logger.
func WithRenderLogger(logger *slog.Logger) RenderOption {
	return func(r *RodRenderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRodRenderer creates a renderer. No browser is started until the first
// Render call.
func NewRodRenderer(opts ...RenderOption) *RodRenderer {
	r := &RodRenderer{
		headless: true,
		steps:    DefaultScrollSteps,
		settle:   DefaultScrollSettle,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// browserInstance returns the shared browser, launching it if needed.
func (r *RodRenderer) browserInstance() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRendererClosed
	}
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().Headless(r.headless).NoSandbox(r.noSandbox)
	if r.bin != "" {
		l = l.Bin(r.bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	r.logger.Debug("browser launched", "control_url", controlURL)
	r.browser = browser
	r.launch = l
	return browser, nil
}

// Render implements Renderer.
func (r *RodRenderer) Render(ctx context.Context, rawURL string) (string, string, error) {
	browser, err := r.browserInstance()
	if err != nil {
		return "", "", err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: rawURL})
	if err != nil {
		return "", "", fmt.Errorf("failed to open page: %w", err)
	}
	defer func() {
		// The render context may already be done; close on a fresh one.
		_ = page.Context(context.Background()).Close() //nolint:errcheck // best effort
	}()

	if err := page.WaitLoad(); err != nil {
		return "", "", fmt.Errorf("failed to wait for load: %w", err)
	}

	if err := r.scroll(ctx, page); err != nil {
		return "", "", err
	}

	html, err := page.HTML()
	if err != nil {
		return "", "", fmt.Errorf("failed to read DOM: %w", err)
	}
	if html == "" {
		return "", "", ErrEmptyRender
	}

	finalURL := rawURL
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	return html, finalURL, nil
}

// scroll moves the viewport down step by step so lazy content loads.
func (r *RodRenderer) scroll(ctx context.Context, page *rod.Page) error {
	for i := 0; i < r.steps; i++ {
		if _, err := page.Eval(scrollScript); err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}
		if err := sleepContext(ctx, r.settle); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Renderer. It is safe to call more than once.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launch != nil {
		r.launch.Kill()
		r.launch = nil
	}
	return err
}
