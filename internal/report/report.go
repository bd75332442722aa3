// Package report persists the outcome of a pipeline run as YAML.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/umapps/aci-deploy/internal/pipeline"
	"github.com/umapps/aci-deploy/internal/runner"
)

type Document struct {
	RunId      string            `yaml:"runId"`
	StartedAt  string            `yaml:"startedAt"`
	FinishedAt string            `yaml:"finishedAt"`
	Duration   string            `yaml:"duration"`
	Succeeded  bool              `yaml:"succeeded"`
	Settings   map[string]string `yaml:"settings,omitempty"`
	Steps      []Step            `yaml:"steps"`
}

type Step struct {
	Name          string `yaml:"name"`
	Status        string `yaml:"status"`
	Message       string `yaml:"message,omitempty"`
	Identifier    string `yaml:"identifier,omitempty"`
	Informational bool   `yaml:"informational,omitempty"`
	Duration      string `yaml:"duration,omitempty"`
	Error         string `yaml:"error,omitempty"`
}

func NewDocument(r *pipeline.Report, settings map[string]string) Document {
	doc := Document{
		RunId:      r.RunId,
		StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: r.FinishedAt.UTC().Format(time.RFC3339),
		Duration:   r.Duration().Round(time.Millisecond).String(),
		Succeeded:  r.Succeeded(),
		Settings:   settings,
	}
	for _, step := range r.Steps {
		s := Step{
			Name:          step.Name,
			Status:        string(step.Status),
			Message:       runner.RedactText(step.Message),
			Identifier:    step.Identifier,
			Informational: step.Informational,
		}
		if step.Duration > 0 {
			s.Duration = step.Duration.Round(time.Millisecond).String()
		}
		if step.Err != nil {
			s.Error = runner.RedactText(step.Err.Error())
		}
		doc.Steps = append(doc.Steps, s)
	}
	return doc
}

// Save writes the report to path, creating parent directories. The file is only readable by
// the current user.
func Save(path string, r *pipeline.Report, settings map[string]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	data, err := yaml.Marshal(NewDocument(r, settings))
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
