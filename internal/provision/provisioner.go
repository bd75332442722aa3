// Package provision implements the deployment stages: each one reads the current state of the
// target system and only acts when something is missing.
package provision

import (
	"errors"
	"fmt"

	"github.com/umapps/aci-deploy/internal/cloud"
	"github.com/umapps/aci-deploy/internal/config"
	"github.com/umapps/aci-deploy/internal/engine"
	"github.com/umapps/aci-deploy/internal/pipeline"
	"github.com/umapps/aci-deploy/internal/scanner"
)

const (
	StageLogin           = "login"
	StageEnsureGroup     = "ensure-group"
	StageCheckRegistry   = "check-registry"
	StageBuildImage      = "build-image"
	StageScanImage       = "scan-image"
	StagePushImage       = "push-image"
	StageCreateContainer = "create-container"
)

var ErrUnknownStage = errors.New("unknown stage")

type Provisioner struct {
	cfg          *config.Config
	provider     cloud.Provider
	engine       engine.Engine
	scanner      scanner.Scanner
	buildContext string
	newDNSLabel  func() string
}

type Option func(*Provisioner)

// WithBuildContext sets the directory images are built from. Defaults to the working directory.
func WithBuildContext(dir string) Option {
	return func(p *Provisioner) {
		p.buildContext = dir
	}
}

// WithDNSLabelFunc replaces the random DNS label generator.
func WithDNSLabelFunc(fn func() string) Option {
	return func(p *Provisioner) {
		p.newDNSLabel = fn
	}
}

// New validates cfg before anything else so an incomplete configuration never reaches an
// external command.
func New(cfg *config.Config, provider cloud.Provider, eng engine.Engine, scan scanner.Scanner, opts ...Option) (*Provisioner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: no configuration", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Provisioner{
		cfg:          cfg,
		provider:     provider,
		engine:       eng,
		scanner:      scan,
		buildContext: ".",
		newDNSLabel:  NewDNSLabel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Stages returns every stage in execution order.
func (p *Provisioner) Stages() []pipeline.Stage {
	return []pipeline.Stage{
		{Name: StageLogin, Run: p.Authenticate},
		{Name: StageEnsureGroup, Run: p.EnsureResourceGroup},
		{Name: StageCheckRegistry, Run: p.EnsureRegistry},
		{Name: StageBuildImage, Run: p.BuildImage},
		{Name: StageScanImage, Run: p.ScanImage, Informational: true},
		{Name: StagePushImage, Run: p.PublishImage},
		{Name: StageCreateContainer, Run: p.LaunchContainer},
	}
}

// Stage looks up a single stage by its command name.
func (p *Provisioner) Stage(name string) (pipeline.Stage, error) {
	for _, stage := range p.Stages() {
		if stage.Name == name {
			return stage, nil
		}
	}
	return pipeline.Stage{}, fmt.Errorf("%w: %s", ErrUnknownStage, name)
}
