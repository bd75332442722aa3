package pipeline

import (
	"time"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	// StatusSatisfied means the step found its target already in place and changed nothing.
	StatusSatisfied Status = "satisfied"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// StepResult is the outcome of one stage.
type StepResult struct {
	Name    string
	Status  Status
	Message string
	// Identifier is an external value captured by the step, such as a registry login server or
	// a container FQDN. Secrets never go here.
	Identifier    string
	Informational bool
	Duration      time.Duration
	Err           error
}

func (r StepResult) Ok() bool {
	return r.Status == StatusSucceeded || r.Status == StatusSatisfied
}

// Report is the outcome of a whole run.
type Report struct {
	RunId      string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepResult
}

// Succeeded is true when no step that gates the pipeline failed or was left unfinished.
func (r *Report) Succeeded() bool {
	for _, step := range r.Steps {
		if step.Informational {
			continue
		}
		if !step.Ok() {
			return false
		}
	}
	return true
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Step returns the result of the named stage, if it ran.
func (r *Report) Step(name string) (StepResult, bool) {
	for _, step := range r.Steps {
		if step.Name == name {
			return step, true
		}
	}
	return StepResult{}, false
}
