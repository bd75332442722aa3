// Package pipeline runs an ordered list of provisioning stages, strictly forward, deciding
// after every stage whether to abort or carry on.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/umapps/aci-deploy/internal/message"
)

var ErrStageFailed = errors.New("stage failed")

const DefaultStepTimeout = 30 * time.Minute

// StageFunc performs one stage. It fills Status (defaults to succeeded), Message and
// Identifier of the returned result; the pipeline owns the remaining fields.
type StageFunc func(ctx context.Context) (StepResult, error)

type Stage struct {
	Name string
	// Informational stages are reported but never fail the pipeline or stop later stages.
	Informational bool
	Run           StageFunc
}

type Pipeline struct {
	stages          []Stage
	stepTimeout     time.Duration
	continueOnError bool
	now             func() time.Time
}

type Option func(*Pipeline)

// WithStepTimeout bounds each stage. Zero disables the per-stage limit.
func WithStepTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.stepTimeout = d
	}
}

// WithContinueOnError keeps running the remaining stages after a failure.
func WithContinueOnError(flag bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = flag
	}
}

func New(stages []Stage, opts ...Option) *Pipeline {
	p := &Pipeline{
		stages:      stages,
		stepTimeout: DefaultStepTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the stages in order. The report is always returned, also on error. The error
// wraps ErrStageFailed when a gating stage failed, or the context error when the run was
// cancelled.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunId:     uuid.NewString(),
		StartedAt: p.now(),
	}
	defer func() {
		report.FinishedAt = p.now()
	}()

	message.Debug("Starting run %s with %d stages", report.RunId, len(p.stages))

	var failed []string
	for i, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			p.markRemaining(report, i, StatusCancelled)
			message.Warning("Run cancelled before '%s'", stage.Name)
			return report, fmt.Errorf("run cancelled: %w", err)
		}

		message.Step(i+1, len(p.stages), stage.Name)
		result := p.runStage(ctx, stage)
		report.Steps = append(report.Steps, result)
		logResult(result)

		if result.Status == StatusCancelled {
			p.markRemaining(report, i+1, StatusCancelled)
			return report, fmt.Errorf("run cancelled during '%s': %w", stage.Name, ctx.Err())
		}
		if result.Status != StatusFailed || result.Informational {
			continue
		}

		failed = append(failed, stage.Name)
		if !p.continueOnError {
			p.markRemaining(report, i+1, StatusSkipped)
			return report, fmt.Errorf("%w: %s: %w", ErrStageFailed, stage.Name, result.Err)
		}
	}

	if len(failed) > 0 {
		return report, fmt.Errorf("%w: %s", ErrStageFailed, strings.Join(failed, ", "))
	}
	return report, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage) StepResult {
	stepCtx := ctx
	if p.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, p.stepTimeout)
		defer cancel()
	}

	start := p.now()
	result, err := stage.Run(stepCtx)
	result.Name = stage.Name
	result.Informational = stage.Informational
	result.Duration = p.now().Sub(start)

	switch {
	case err == nil:
		if result.Status == "" {
			result.Status = StatusSucceeded
		}
		if result.Message == "" {
			result.Message = stage.Name + " done"
		}
	case ctx.Err() != nil:
		result.Status = StatusCancelled
		result.Err = err
		result.Message = "cancelled"
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
		result.Status = StatusFailed
		result.Err = fmt.Errorf("timed out after %s: %w", p.stepTimeout, err)
		result.Message = result.Err.Error()
	default:
		result.Status = StatusFailed
		result.Err = err
		result.Message = err.Error()
	}
	return result
}

func (p *Pipeline) markRemaining(report *Report, from int, status Status) {
	for _, stage := range p.stages[from:] {
		report.Steps = append(report.Steps, StepResult{
			Name:          stage.Name,
			Status:        status,
			Informational: stage.Informational,
		})
	}
}

func logResult(result StepResult) {
	switch result.Status {
	case StatusSucceeded, StatusSatisfied:
		message.Success("%s", result.Message)
	case StatusFailed:
		if result.Informational {
			message.Warning("%s (ignored, informational stage)", result.Message)
			return
		}
		message.Error("%s", result.Message)
	case StatusCancelled:
		message.Warning("'%s' cancelled", result.Name)
	}
}
