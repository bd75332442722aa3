package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/umapps/aci-deploy/internal/cloud"
	"github.com/umapps/aci-deploy/internal/message"
	"github.com/umapps/aci-deploy/internal/pipeline"
	"github.com/umapps/aci-deploy/internal/utils"
)

const (
	containerCPU      = "1"
	containerMemoryGB = "1"

	maxDNSLabelAttempts = 5
)

var ErrNoFreeDNSLabel = errors.New("no free dns label")

// LaunchContainer resolves the pull identity, issues it a fresh secret and starts the
// container instance from the published image.
func (p *Provisioner) LaunchContainer(ctx context.Context) (pipeline.StepResult, error) {
	credential, err := p.resolvePullCredential(ctx)
	if err != nil {
		return pipeline.StepResult{}, err
	}

	label, err := p.pickDNSLabel(ctx)
	if err != nil {
		return pipeline.StepResult{}, err
	}

	message.Info("Creating container '%s' with dns label '%s'", p.cfg.ContainerName(), label)
	group, err := p.provider.CreateContainer(ctx, cloud.ContainerSpec{
		ResourceGroup:    p.cfg.ResourceGroup(),
		Name:             p.cfg.ContainerName(),
		Image:            p.cfg.RemoteImageRef(),
		Location:         p.cfg.Location(),
		CPU:              containerCPU,
		MemoryGB:         containerMemoryGB,
		RegistryServer:   p.cfg.LoginServer(),
		RegistryUsername: credential.AppId,
		RegistryPassword: credential.Password,
		DNSLabel:         label,
		Port:             p.cfg.ContainerPort(),
	})
	if err != nil {
		return pipeline.StepResult{}, fmt.Errorf("failed to create container '%s': %w", p.cfg.ContainerName(), err)
	}

	fqdn := group.IpAddress.Fqdn
	if fqdn == "" {
		fqdn = fmt.Sprintf("%s.%s.azurecontainer.io", label, p.cfg.Location())
	}
	if group.ProvisioningState != "" {
		message.Debug("Container provisioning state: %s", group.ProvisioningState)
	}

	return pipeline.StepResult{
		Message:    fmt.Sprintf("Container '%s' available at http://%s:%s", p.cfg.ContainerName(), fqdn, p.cfg.ContainerPort()),
		Identifier: fqdn,
	}, nil
}

func (p *Provisioner) resolvePullCredential(ctx context.Context) (*cloud.ServicePrincipalCredential, error) {
	registryId, err := p.provider.GetRegistryId(ctx, p.cfg.RegistryName())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve registry id: %w", err)
	}

	name := p.cfg.ServicePrincipalName()
	appId, err := p.provider.FindServicePrincipal(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up service principal '%s': %w", name, err)
	}
	if appId != "" {
		message.Info("Reusing service principal '%s' (%s)", name, appId)
	} else {
		message.Info("Creating service principal '%s' with role %s", name, cloud.RoleAcrPull)
		appId, err = p.provider.CreateServicePrincipal(ctx, name, registryId, cloud.RoleAcrPull)
		if err != nil {
			return nil, fmt.Errorf("failed to create service principal '%s': %w", name, err)
		}
	}

	credential, err := p.provider.ResetServicePrincipalCredential(ctx, appId)
	if err != nil {
		return nil, fmt.Errorf("failed to reset credential of service principal '%s': %w", name, err)
	}
	message.Debug("Issued new credential %s", credential)
	return credential, nil
}

func (p *Provisioner) pickDNSLabel(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= maxDNSLabelAttempts; attempt++ {
		label := p.newDNSLabel()
		if !utils.IsValidDNSLabel(label) {
			return "", fmt.Errorf("generated dns label '%s' is invalid", label)
		}
		inUse, err := p.provider.IsDNSLabelInUse(ctx, label)
		if err != nil {
			return "", fmt.Errorf("failed to check dns label '%s': %w", label, err)
		}
		if !inUse {
			return label, nil
		}
		message.Debug("DNS label '%s' is taken (attempt %d/%d)", label, attempt, maxDNSLabelAttempts)
	}
	return "", fmt.Errorf("%w after %d attempts", ErrNoFreeDNSLabel, maxDNSLabelAttempts)
}
