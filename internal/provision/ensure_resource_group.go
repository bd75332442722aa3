package provision

import (
	"context"
	"fmt"

	"github.com/umapps/aci-deploy/internal/message"
	"github.com/umapps/aci-deploy/internal/pipeline"
)

func (p *Provisioner) EnsureResourceGroup(ctx context.Context) (pipeline.StepResult, error) {
	name := p.cfg.ResourceGroup()

	exists, err := p.provider.ResourceGroupExists(ctx, name)
	if err != nil {
		return pipeline.StepResult{}, fmt.Errorf("failed to check resource group '%s': %w", name, err)
	}
	if exists {
		return pipeline.StepResult{
			Status:     pipeline.StatusSatisfied,
			Message:    fmt.Sprintf("Resource group '%s' already exists", name),
			Identifier: name,
		}, nil
	}

	message.Info("Creating resource group '%s' in '%s'", name, p.cfg.Location())
	out, err := p.provider.CreateResourceGroup(ctx, name, p.cfg.Location())
	if err != nil {
		return pipeline.StepResult{}, fmt.Errorf("failed to create resource group '%s': %w", name, err)
	}
	message.Raw(out)

	return pipeline.StepResult{
		Message:    fmt.Sprintf("Resource group '%s' created", name),
		Identifier: name,
	}, nil
}
