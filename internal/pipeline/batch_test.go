package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/coursecrawl/internal/model"
)

func newTestTargets(names ...string) []*model.CrawlTarget {
	targets := make([]*model.CrawlTarget, 0, len(names))
	for _, name := range names {
		targets = append(targets, model.NewCrawlTarget(name, "https://"+name+".example.edu/"))
	}
	return targets
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })

		if bp.concurrency != DefaultBatchConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultBatchConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(5))

		if bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0))

		if bp.concurrency != DefaultBatchConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultBatchConcurrency, bp.concurrency)
		}
	})
}

// TestBatchProcessorProcessBatch tests batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("processes all sources in input order", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "crawl",
				doFunc: func(_ context.Context, run *model.SourceRun) error {
					run.URLs = []string{run.Target.RootURL}
					return nil
				},
			})
			return p
		}

		bp := NewBatchProcessor(factory, WithConcurrency(2))
		runs, err := bp.ProcessBatch(context.Background(), newTestTargets("brown", "yale", "mit"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		for i, name := range []string{"brown", "yale", "mit"} {
			if runs[i].Name() != name {
				t.Errorf("runs[%d] = %q, want %q", i, runs[i].Name(), name)
			}
			if len(runs[i].URLs) != 1 {
				t.Errorf("runs[%d] URLs = %v", i, runs[i].URLs)
			}
		}
	})

	t.Run("a failing source does not stop the batch", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "crawl",
				doFunc: func(_ context.Context, run *model.SourceRun) error {
					if run.Name() == "yale" {
						return errors.New("unreachable")
					}
					return nil
				},
			})
			return p
		}

		bp := NewBatchProcessor(factory)
		runs, err := bp.ProcessBatch(context.Background(), newTestTargets("brown", "yale", "mit"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !runs[1].Failed() {
			t.Error("expected yale to fail")
		}
		if runs[0].Failed() || runs[2].Failed() {
			t.Error("expected other sources to succeed")
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var inFlight, peak atomic.Int32
		factory := func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "slow",
				doFunc: func(context.Context, *model.SourceRun) error {
					n := inFlight.Add(1)
					for {
						cur := peak.Load()
						if n <= cur || peak.CompareAndSwap(cur, n) {
							break
						}
					}
					time.Sleep(20 * time.Millisecond)
					inFlight.Add(-1)
					return nil
				},
			})
			return p
		}

		bp := NewBatchProcessor(factory, WithConcurrency(2))
		if _, err := bp.ProcessBatch(context.Background(), newTestTargets("a", "b", "c", "d", "e")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if p := peak.Load(); p > 2 {
			t.Errorf("expected at most 2 sources in flight, got %d", p)
		}
	})

	t.Run("cancelled context returns error", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })
		_, err := bp.ProcessBatch(ctx, newTestTargets("brown"))

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })
		runs, err := bp.ProcessBatch(context.Background(), nil)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runs) != 0 {
			t.Errorf("expected no runs, got %d", len(runs))
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests streaming results.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen = make(map[int]string)
	)

	bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(3))
	err := bp.ProcessBatchWithCallback(context.Background(), newTestTargets("brown", "yale", "mit"),
		func(run *model.SourceRun, index int) {
			mu.Lock()
			defer mu.Unlock()
			seen[index] = run.Name()
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != 3 || seen[0] != "brown" || seen[1] != "yale" || seen[2] != "mit" {
		t.Errorf("unexpected callbacks: %v", seen)
	}
}
