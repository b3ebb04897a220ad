package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// statusError carries a non-success status out of get.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.code)
}

// requestError is a URL for which no request could be built.
type requestError struct {
	err error
}

func (e *requestError) Error() string {
	return "failed to create request: " + e.err.Error()
}

func (e *requestError) Unwrap() error {
	return e.err
}

// staticPage is a successful static response.
type staticPage struct {
	html     string
	finalURL string
}

// fetchStatic runs the static strategy with retry on transient statuses.
//
// It returns the page on success. On failure it returns the number of
// attempts made, whether the failure should escalate to rendering, and the
// error. Escalation is requested when the retry budget runs out or the
// transport fails before a response is read.
func (f *Fetcher) fetchStatic(ctx context.Context, rawURL string) (staticPage, int, bool, error) {
	var lastStatus int

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		p, err := f.get(ctx, rawURL)
		if err == nil {
			return p, attempt, false, nil
		}

		if ctx.Err() != nil {
			return staticPage{}, attempt, false, fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
		}

		var re *requestError
		if errors.As(err, &re) {
			return staticPage{}, attempt, false, &Error{
				URL:      rawURL,
				Kind:     KindInvalidRequest,
				Attempts: attempt,
				Strategy: StrategyStatic,
				Err:      re.err,
			}
		}

		var se *statusError
		if !errors.As(err, &se) {
			return staticPage{}, attempt, true, &Error{
				URL:      rawURL,
				Kind:     connectionKind(err),
				Attempts: attempt,
				Strategy: StrategyStatic,
				Err:      err,
			}
		}

		if !IsTransientStatus(se.code) {
			return staticPage{}, attempt, false, &Error{
				URL:        rawURL,
				Kind:       kindForStatus(se.code),
				StatusCode: se.code,
				Attempts:   attempt,
				Strategy:   StrategyStatic,
			}
		}

		lastStatus = se.code
		if attempt == f.maxAttempts {
			break
		}

		delay := f.backoff(attempt)
		f.logger.Debug("transient status, retrying",
			"url", rawURL,
			"status", se.code,
			"attempt", attempt,
			"delay", delay,
		)
		if err := f.sleep(ctx, delay); err != nil {
			return staticPage{}, attempt, false, fmt.Errorf("fetch %s: %w", rawURL, err)
		}
	}

	return staticPage{}, f.maxAttempts, true, &Error{
		URL:        rawURL,
		Kind:       kindForStatus(lastStatus),
		StatusCode: lastStatus,
		Attempts:   f.maxAttempts,
		Strategy:   StrategyStatic,
		Err:        ErrRetriesExhausted,
	}
}

// backoff returns the delay after the given attempt: the initial backoff
// doubled per prior retry plus up to one second of jitter.
func (f *Fetcher) backoff(attempt int) time.Duration {
	base := f.initialBackoff << (attempt - 1)
	return base + time.Duration(f.jitter()*float64(time.Second))
}

// get performs one GET while holding a token.
// The returned page records the URL reached after redirects.
func (f *Fetcher) get(ctx context.Context, rawURL string) (staticPage, error) {
	if err := f.tokens.Acquire(ctx, 1); err != nil {
		return staticPage{}, err
	}
	defer f.tokens.Release(1)

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return staticPage{}, &requestError{err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return staticPage{}, err
	}
	defer resp.Body.Close()

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096) //nolint:errcheck // best effort
		return staticPage{}, &statusError{code: resp.StatusCode}
	}

	body := io.LimitReader(resp.Body, f.maxBodySize)
	reader, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return staticPage{finalURL: finalURL}, nil
		}
		return staticPage{}, fmt.Errorf("failed to read response body: %w", err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return staticPage{}, fmt.Errorf("failed to read response body: %w", err)
	}

	return staticPage{html: string(data), finalURL: finalURL}, nil
}

// connectionKind classifies a transport error.
func connectionKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindConnection
}
