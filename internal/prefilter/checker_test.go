package prefilter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/get-only", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/get-only-broken", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/created", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestChecker_Filter(t *testing.T) {
	t.Parallel()

	server := newTestSite(t)
	checker := New(server.Client(), WithTimeout(200*time.Millisecond))

	urls := []string{
		server.URL + "/slow",
		server.URL + "/ok",
		server.URL + "/missing",
		server.URL + "/get-only",
		server.URL + "/get-only-broken",
		server.URL + "/moved",
		server.URL + "/created",
		"http://127.0.0.1:1/unreachable",
	}

	got := checker.Filter(context.Background(), urls)
	want := []string{
		server.URL + "/get-only",
		server.URL + "/moved",
		server.URL + "/ok",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Filter() = %v, want %v", got, want)
	}
}

func TestChecker_FilterEmpty(t *testing.T) {
	t.Parallel()

	got := New(nil).Filter(context.Background(), nil)
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestChecker_FilterDeduplicates(t *testing.T) {
	t.Parallel()

	server := newTestSite(t)
	checker := New(server.Client())

	got := checker.Filter(context.Background(), []string{server.URL + "/ok", server.URL + "/ok"})
	if len(got) != 1 {
		t.Errorf("expected 1 url, got %v", got)
	}
}

func TestChecker_Concurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	urls := make([]string, 0, 12)
	for _, p := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		urls = append(urls, server.URL+"/"+p)
	}

	checker := New(server.Client(), WithConcurrency(3))
	got := checker.Filter(context.Background(), urls)

	if len(got) != len(urls) {
		t.Errorf("expected %d urls, got %d", len(urls), len(got))
	}
	if p := peak.Load(); p > 3 {
		t.Errorf("expected at most 3 checks in flight, got %d", p)
	}
}

func TestChecker_Cancelled(t *testing.T) {
	t.Parallel()

	server := newTestSite(t)
	checker := New(server.Client())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := checker.Filter(ctx, []string{server.URL + "/ok"})
	if len(got) != 0 {
		t.Errorf("expected nothing to pass after cancellation, got %v", got)
	}
}

func TestChecker_UserAgent(t *testing.T) {
	t.Parallel()

	var ua atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.UserAgent())
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	checker := New(server.Client(), WithUserAgent("coursecrawl-test"))
	checker.Filter(context.Background(), []string{server.URL})

	if got, _ := ua.Load().(string); got != "coursecrawl-test" {
		t.Errorf("User-Agent = %q, want %q", got, "coursecrawl-test")
	}
}
