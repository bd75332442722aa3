package provision

import (
	"context"
	"fmt"

	"github.com/umapps/aci-deploy/internal/cloud"
	"github.com/umapps/aci-deploy/internal/message"
	"github.com/umapps/aci-deploy/internal/pipeline"
)

// EnsureRegistry creates the registry when it is missing and always logs in to it afterwards.
func (p *Provisioner) EnsureRegistry(ctx context.Context) (pipeline.StepResult, error) {
	name := p.cfg.RegistryName()
	status := pipeline.StatusSatisfied

	exists, err := p.provider.RegistryExists(ctx, name)
	if err != nil {
		return pipeline.StepResult{}, fmt.Errorf("failed to check registry '%s': %w", name, err)
	}
	if exists {
		message.Info("Registry '%s' already exists", name)
	} else {
		message.Info("Creating registry '%s' with sku %s", name, cloud.RegistrySkuBasic)
		out, err := p.provider.CreateRegistry(ctx, p.cfg.ResourceGroup(), name, cloud.RegistrySkuBasic)
		if err != nil {
			return pipeline.StepResult{}, fmt.Errorf("failed to create registry '%s': %w", name, err)
		}
		message.Debug("Registry created: %s", out)
		message.Success("Registry '%s' created", name)
		status = pipeline.StatusSucceeded
	}

	if err := p.provider.RegistryLogin(ctx, name); err != nil {
		return pipeline.StepResult{}, fmt.Errorf("failed to log in to registry '%s': %w", name, err)
	}

	return pipeline.StepResult{
		Status:     status,
		Message:    fmt.Sprintf("Logged in to registry '%s'", p.cfg.LoginServer()),
		Identifier: p.cfg.LoginServer(),
	}, nil
}
