package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/umapps/aci-deploy/internal/cloud"
	"github.com/umapps/aci-deploy/internal/config"
	"github.com/umapps/aci-deploy/internal/engine"
	"github.com/umapps/aci-deploy/internal/message"
	"github.com/umapps/aci-deploy/internal/pipeline"
	"github.com/umapps/aci-deploy/internal/preflight"
	"github.com/umapps/aci-deploy/internal/provision"
	"github.com/umapps/aci-deploy/internal/report"
	"github.com/umapps/aci-deploy/internal/runner"
	"github.com/umapps/aci-deploy/internal/scanner"
)

const (
	minAzureCliVersion = "2.50.0"
	minDockerVersion   = "20.10.0"
	minGrypeVersion    = "0.70.0"
)

type toolchain struct {
	provider cloud.Provider
	engine   *engine.DockerEngine
	scanner  *scanner.GrypeScanner
}

func newToolchain(r runner.CommandRunner) toolchain {
	return toolchain{
		provider: cloud.NewAzureProvider(r),
		engine:   engine.NewDockerEngine(r),
		scanner:  scanner.NewGrypeScanner(r),
	}
}

// azureCli adapts the provider to a preflight tool.
type azureCli struct {
	provider cloud.Provider
}

func (a azureCli) Name() string { return "az" }

func (a azureCli) Version(ctx context.Context) (string, error) {
	return a.provider.Version(ctx)
}

// initializeProvisioner loads the configuration before any external command can run.
func initializeProvisioner(tools toolchain) (*provision.Provisioner, *config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	message.Debug("Deploying '%s' to '%s' via '%s'", cfg.ImageRef(), cfg.ResourceGroup(), cfg.LoginServer())

	p, err := provision.New(cfg, tools.provider, tools.engine, tools.scanner, provision.WithBuildContext(buildContext))
	if err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}

func runPreflight(ctx context.Context, tools toolchain) error {
	checks, err := preflight.Run(ctx, []preflight.Requirement{
		{Tool: azureCli{provider: tools.provider}, Minimum: minAzureCliVersion},
		{Tool: tools.engine, Minimum: minDockerVersion},
		{Tool: tools.scanner, Minimum: minGrypeVersion},
	}, tools.engine)

	for _, check := range checks {
		switch {
		case !check.Passed():
			message.Error("%s: %v", check.Name, check.Err)
		case check.Minimum != "":
			message.Success("%s %s (>= %s)", check.Name, check.Version, check.Minimum)
		default:
			message.Success("%s %s", check.Name, check.Version)
		}
	}
	return err
}

// runStages drives stages through the pipeline and writes the report when one was requested.
func runStages(ctx context.Context, cfg *config.Config, stages []pipeline.Stage) error {
	p := pipeline.New(stages,
		pipeline.WithStepTimeout(stepTimeout),
		pipeline.WithContinueOnError(continueOnError),
	)
	result, runErr := p.Run(ctx)

	if reportPath != "" {
		if err := report.Save(reportPath, result, cfg.Settings()); err != nil {
			message.Warning("Failed to save report: %v", err)
		} else {
			message.Info("Report written to %s", reportPath)
		}
	}

	if len(stages) > 1 {
		printSummary(result)
	}
	return runErr
}

func printSummary(result *pipeline.Report) {
	message.Info("Run %s finished in %s", result.RunId, result.Duration().Round(time.Millisecond))
	for _, step := range result.Steps {
		line := fmt.Sprintf("%-17s %s", step.Name, step.Status)
		if step.Identifier != "" {
			line += " " + step.Identifier
		}
		switch {
		case step.Ok():
			message.Success("%s", line)
		case step.Informational:
			message.Warning("%s", line)
		default:
			message.Error("%s", line)
		}
	}
}
