package cloud

import (
	"context"
)

// Provider is the cloud side of the deployment: resource groups, registries, identities and
// container instances.
type Provider interface {
	Version(ctx context.Context) (string, error)
	EnsureLoggedIn(ctx context.Context) (*Account, bool, error)
	GetCallingUserId(ctx context.Context) (string, error)
	RegistryLogin(ctx context.Context, registryName string) error

	ResourceGroupExists(ctx context.Context, name string) (bool, error)
	CreateResourceGroup(ctx context.Context, name, location string) (string, error)

	RegistryExists(ctx context.Context, name string) (bool, error)
	CreateRegistry(ctx context.Context, resourceGroup, name, sku string) (string, error)
	GetRegistryId(ctx context.Context, name string) (string, error)
	ListRepositories(ctx context.Context, registryName string) (string, error)

	FindServicePrincipal(ctx context.Context, displayName string) (string, error)
	CreateServicePrincipal(ctx context.Context, displayName, scope, role string) (string, error)
	ResetServicePrincipalCredential(ctx context.Context, appId string) (*ServicePrincipalCredential, error)

	IsDNSLabelInUse(ctx context.Context, label string) (bool, error)
	CreateContainer(ctx context.Context, spec ContainerSpec) (*ContainerGroup, error)
}
