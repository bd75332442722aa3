package provision

import (
	"context"
	"fmt"

	"github.com/umapps/aci-deploy/internal/message"
	"github.com/umapps/aci-deploy/internal/pipeline"
)

// BuildImage builds name:tag from the build context unless the local image cache has it.
func (p *Provisioner) BuildImage(ctx context.Context) (pipeline.StepResult, error) {
	image := p.cfg.ImageRef()

	exists, err := p.engine.ImageExists(ctx, image)
	if err != nil {
		return pipeline.StepResult{}, fmt.Errorf("failed to list local images: %w", err)
	}
	if exists {
		return pipeline.StepResult{
			Status:     pipeline.StatusSatisfied,
			Message:    fmt.Sprintf("Image '%s' already exists", image),
			Identifier: image,
		}, nil
	}

	message.Info("Building image '%s' from '%s'", image, p.buildContext)
	out, err := p.engine.Build(ctx, image, p.buildContext)
	if err != nil {
		return pipeline.StepResult{}, fmt.Errorf("failed to build image '%s': %w", image, err)
	}
	message.Raw(out)

	return pipeline.StepResult{
		Message:    fmt.Sprintf("Image '%s' build complete", image),
		Identifier: image,
	}, nil
}
