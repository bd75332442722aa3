package provision

import (
	"context"
	"fmt"

	"github.com/umapps/aci-deploy/internal/message"
	"github.com/umapps/aci-deploy/internal/pipeline"
)

// PublishImage tags the local image with the registry name and pushes it. A single attempt.
func (p *Provisioner) PublishImage(ctx context.Context) (pipeline.StepResult, error) {
	local := p.cfg.ImageRef()
	remote := p.cfg.RemoteImageRef()

	if err := p.engine.Tag(ctx, local, remote); err != nil {
		return pipeline.StepResult{}, fmt.Errorf("failed to tag '%s' as '%s': %w", local, remote, err)
	}

	message.Info("Pushing '%s'", remote)
	out, err := p.engine.Push(ctx, remote)
	if err != nil {
		return pipeline.StepResult{}, fmt.Errorf("failed to push '%s': %w", remote, err)
	}
	message.Raw(out)

	repositories, err := p.provider.ListRepositories(ctx, p.cfg.RegistryName())
	if err != nil {
		return pipeline.StepResult{}, fmt.Errorf("failed to list repositories of '%s': %w", p.cfg.RegistryName(), err)
	}
	message.Info("Repositories in '%s':", p.cfg.RegistryName())
	message.Raw(repositories)

	return pipeline.StepResult{
		Message:    fmt.Sprintf("Image pushed to '%s'", remote),
		Identifier: remote,
	}, nil
}
