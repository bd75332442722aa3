package provision

import (
	"context"
	"fmt"

	"github.com/umapps/aci-deploy/internal/message"
	"github.com/umapps/aci-deploy/internal/pipeline"
)

// ScanImage reports vulnerabilities of the local image. Findings never block publishing.
func (p *Provisioner) ScanImage(ctx context.Context) (pipeline.StepResult, error) {
	image := p.cfg.ImageRef()

	report, err := p.scanner.Scan(ctx, image)
	if err != nil {
		return pipeline.StepResult{}, fmt.Errorf("failed to scan image '%s' with %s: %w", image, p.scanner.Name(), err)
	}

	for _, finding := range report.AtLeast("High") {
		message.Warning("%s %s in %s %s", finding.Severity, finding.Id, finding.Package, finding.Version)
	}

	return pipeline.StepResult{
		Message:    fmt.Sprintf("Scan of '%s' finished: %s", image, report.Summary()),
		Identifier: image,
	}, nil
}
