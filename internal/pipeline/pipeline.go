package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/coursecrawl/internal/model"
)

// ErrStepSkipped is returned by a step that had nothing to do for the run.
var ErrStepSkipped = errors.New("step skipped")

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the run state left by
// the previous steps.
type Step interface {
	// Do executes the pipeline step.
	// Returns ErrStepSkipped when the step does not apply to the run,
	// or an error if the step failed.
	Do(ctx context.Context, run *model.SourceRun) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The last error is kept in the run.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:           make([]Step, 0),
		continueOnError: false,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence and records the total
// duration in run.
//
// Cancellation is checked before each step. Returns the context error when
// cancelled, the first step error if continueOnError is false, or nil.
func (p *Pipeline) Execute(ctx context.Context, run *model.SourceRun) error {
	defer func() {
		run.Duration = time.Since(run.StartedAt)
	}()

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"source", run.Name(),
				"reason", ctx.Err(),
			)
			run.Cancelled = true
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"source", run.Name(),
		)

		err := step.Do(ctx, run)
		switch {
		case errors.Is(err, ErrStepSkipped):
			p.logger.Debug("step skipped",
				"step", step.Name(),
				"source", run.Name(),
			)
			continue
		case err != nil:
			p.logger.Error("step failed",
				"step", step.Name(),
				"source", run.Name(),
				"error", err,
			)

			run.Error = err
			run.ErrorMessage = err.Error()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				run.Cancelled = true
			}

			if !p.continueOnError {
				return err
			}
		default:
			p.logger.Debug("step completed",
				"step", step.Name(),
				"source", run.Name(),
			)
		}

		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
