package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/coursecrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency is the default number of sources processed at once.
const DefaultBatchConcurrency = 2

// BatchProcessor runs one pipeline per source concurrently.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each source.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of sources in flight.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of sources processed at once.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
// pipelineFactory is called once per source so no step state leaks
// between sources.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultBatchConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch processes targets and returns one run per target, in input
// order. Failed sources are reported through their run, not the error.
// The error is non-nil only when ctx was cancelled; runs for sources that
// never started are nil in that case.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []*model.CrawlTarget) ([]*model.SourceRun, error) {
	bp.logger.Info("starting batch processing",
		"total_sources", len(targets),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	runs := make([]*model.SourceRun, len(targets))

	err := bp.process(ctx, targets, func(run *model.SourceRun, index int) {
		runs[index] = run
	})

	bp.logger.Info("batch processing complete",
		"total_sources", len(targets),
		"elapsed", time.Since(startTime),
	)

	return runs, err
}

// ProcessBatchWithCallback processes targets and calls callback for each
// completed run with the index of its target. callback is called from
// worker goroutines and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []*model.CrawlTarget,
	callback func(run *model.SourceRun, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_sources", len(targets),
		"concurrency", bp.concurrency,
	)
	return bp.process(ctx, targets, callback)
}

func (bp *BatchProcessor) process(
	ctx context.Context,
	targets []*model.CrawlTarget,
	done func(run *model.SourceRun, index int),
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			run := model.NewSourceRun(target)
			bp.logger.Info("processing source",
				"source", run.Name(),
				"index", i+1,
				"total", len(targets),
			)

			// Errors are recorded in the run; other sources continue.
			if err := bp.pipelineFactory().Execute(ctx, run); err != nil {
				bp.logger.Warn("source failed",
					"source", run.Name(),
					"error", err,
				)
			} else {
				bp.logger.Info("source completed",
					"source", run.Name(),
					"urls", len(run.URLs),
					"cached", run.Cached,
				)
			}

			done(run, i)
			return nil
		})
	}

	return g.Wait()
}
