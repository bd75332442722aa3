package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/golang-jwt/jwt/v5"

	"github.com/umapps/aci-deploy/internal/message"
	"github.com/umapps/aci-deploy/internal/runner"
)

const (
	registryResourceType = "Microsoft.ContainerRegistry/registries"

	RegistrySkuBasic = "Basic"
	RoleAcrPull      = "acrpull"
)

var (
	ErrNotLoggedIn        = errors.New("azure cli is not logged in")
	ErrInvalidRegistryId  = errors.New("invalid registry resource id")
	ErrEmptyCliOutput     = errors.New("azure cli returned no value")
	ErrUnexpectedResponse = errors.New("unexpected azure cli response")
)

// Account is the subset of `az account show` the pipeline reports on.
type Account struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	TenantId string `json:"tenantId"`
	User     struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"user"`
}

// ContainerSpec describes a container instance created from a registry image.
type ContainerSpec struct {
	ResourceGroup    string
	Name             string
	Image            string
	Location         string
	CPU              string
	MemoryGB         string
	RegistryServer   string
	RegistryUsername string
	RegistryPassword string
	DNSLabel         string
	Port             string
}

// ContainerGroup is the subset of `az container create` output the pipeline reports on.
type ContainerGroup struct {
	Name              string `json:"name"`
	ProvisioningState string `json:"provisioningState"`
	IpAddress         struct {
		Fqdn         string `json:"fqdn"`
		Ip           string `json:"ip"`
		DnsNameLabel string `json:"dnsNameLabel"`
	} `json:"ipAddress"`
}

type azureProvider struct {
	runner runner.CommandRunner
}

var _ Provider = &azureProvider{}

// NewAzureProvider returns a Provider backed by the `az` command line.
func NewAzureProvider(r runner.CommandRunner) Provider {
	return &azureProvider{runner: r}
}

func (p *azureProvider) az(ctx context.Context, args ...string) (string, error) {
	return p.azWithOptions(ctx, runner.Options{}, args...)
}

func (p *azureProvider) azWithOptions(ctx context.Context, opts runner.Options, args ...string) (string, error) {
	result, err := p.runner.RunWithOptions(ctx, opts, append([]string{"az"}, args...)...)
	if err != nil {
		return result.Stdout, err
	}
	return result.Stdout, nil
}

// tsv runs a query that yields a single scalar in tsv format.
func (p *azureProvider) tsv(ctx context.Context, args ...string) (string, error) {
	return p.tsvWithOptions(ctx, runner.Options{}, args...)
}

// secretTsv is tsv for queries whose value is a credential.
func (p *azureProvider) secretTsv(ctx context.Context, args ...string) (string, error) {
	return p.tsvWithOptions(ctx, runner.Options{SecretOutput: true}, args...)
}

func (p *azureProvider) tsvWithOptions(ctx context.Context, opts runner.Options, args ...string) (string, error) {
	out, err := p.azWithOptions(ctx, opts, append(args, "--output", "tsv")...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// exists runs a list command filtered by a JMESPath query and reports whether anything matched.
func (p *azureProvider) exists(ctx context.Context, args ...string) (bool, error) {
	out, err := p.az(ctx, append(args, "--output", "json")...)
	if err != nil {
		return false, err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return false, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return len(items) > 0, nil
}

func (p *azureProvider) Version(ctx context.Context) (string, error) {
	out, err := p.az(ctx, "version", "--output", "json")
	if err != nil {
		return "", err
	}
	var versions map[string]interface{}
	if err := json.Unmarshal([]byte(out), &versions); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	v, _ := versions["azure-cli"].(string)
	if v == "" {
		return "", fmt.Errorf("%w: azure-cli version missing", ErrUnexpectedResponse)
	}
	return v, nil
}

func (p *azureProvider) accountShow(ctx context.Context) (*Account, error) {
	out, err := p.az(ctx, "account", "show", "--output", "json")
	if err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %v", ErrNotLoggedIn, err)
		}
		return nil, err
	}
	account := &Account{}
	if err := json.Unmarshal([]byte(out), account); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return account, nil
}

// EnsureLoggedIn returns the active account, running `az login` first when there is none.
// The login is attached to the terminal so browser or device code prompts reach the operator.
// The boolean reports whether a login was performed.
func (p *azureProvider) EnsureLoggedIn(ctx context.Context) (*Account, bool, error) {
	account, err := p.accountShow(ctx)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, ErrNotLoggedIn) {
		return nil, false, err
	}

	message.Info("No active Azure session, starting 'az login'. Follow the instructions below.")
	if _, err := p.azWithOptions(ctx, runner.Options{Interactive: true}, "login", "--output", "none"); err != nil {
		return nil, false, fmt.Errorf("failed to log in: %w", err)
	}
	account, err = p.accountShow(ctx)
	if err != nil {
		return nil, true, err
	}
	return account, true, nil
}

// GetCallingUserId extracts the signed-in principal from the management access token.
func (p *azureProvider) GetCallingUserId(ctx context.Context) (string, error) {
	token, err := p.secretTsv(ctx, "account", "get-access-token", "--query", "accessToken")
	if err != nil {
		return "", fmt.Errorf("failed to get access token, %w", err)
	}
	return callingUserFromToken(token)
}

func callingUserFromToken(token string) (string, error) {
	claims := make(jwt.MapClaims)
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("failed to parse access token, %w", err)
	}
	for _, claim := range []string{"unique_name", "upn", "appid", "oid"} {
		if name, _ := claims[claim].(string); name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: access token has no user claim", ErrUnexpectedResponse)
}

func (p *azureProvider) RegistryLogin(ctx context.Context, registryName string) error {
	_, err := p.az(ctx, "acr", "login", "--name", registryName)
	return err
}

func (p *azureProvider) ResourceGroupExists(ctx context.Context, name string) (bool, error) {
	return p.exists(ctx, "group", "list", "--query", fmt.Sprintf("[?name=='%s']", name))
}

func (p *azureProvider) CreateResourceGroup(ctx context.Context, name, location string) (string, error) {
	return p.az(ctx, "group", "create", "--name", name, "--location", location, "--output", "json")
}

func (p *azureProvider) RegistryExists(ctx context.Context, name string) (bool, error) {
	return p.exists(ctx, "acr", "list", "--query", fmt.Sprintf("[?name=='%s']", name))
}

func (p *azureProvider) CreateRegistry(ctx context.Context, resourceGroup, name, sku string) (string, error) {
	return p.az(ctx, "acr", "create", "--resource-group", resourceGroup, "--name", name, "--sku", sku, "--output", "json")
}

// GetRegistryId resolves the ARM id of the registry, used as the role assignment scope.
func (p *azureProvider) GetRegistryId(ctx context.Context, name string) (string, error) {
	id, err := p.tsv(ctx, "acr", "show", "--name", name, "--query", "id")
	if err != nil {
		return "", err
	}
	if err := validateRegistryId(id, name); err != nil {
		return "", err
	}
	return id, nil
}

func validateRegistryId(id, name string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidRegistryId)
	}
	resourceId, err := arm.ParseResourceID(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRegistryId, err)
	}
	if !strings.EqualFold(resourceId.ResourceType.String(), registryResourceType) {
		return fmt.Errorf("%w: '%s' is a %s", ErrInvalidRegistryId, id, resourceId.ResourceType.String())
	}
	if !strings.EqualFold(resourceId.Name, name) {
		return fmt.Errorf("%w: '%s' does not name registry '%s'", ErrInvalidRegistryId, id, name)
	}
	return nil
}

func (p *azureProvider) ListRepositories(ctx context.Context, registryName string) (string, error) {
	return p.az(ctx, "acr", "repository", "list", "--name", registryName, "--output", "table")
}

// FindServicePrincipal returns the appId of the first service principal with displayName, or
// an empty string when none exists.
func (p *azureProvider) FindServicePrincipal(ctx context.Context, displayName string) (string, error) {
	out, err := p.tsv(ctx, "ad", "sp", "list", "--display-name", displayName, "--query", "[].appId")
	if err != nil {
		return "", err
	}
	appId, _, _ := strings.Cut(out, "\n")
	return strings.TrimSpace(appId), nil
}

func (p *azureProvider) CreateServicePrincipal(ctx context.Context, displayName, scope, role string) (string, error) {
	appId, err := p.tsv(ctx, "ad", "sp", "create-for-rbac",
		"--name", displayName,
		"--scopes", scope,
		"--role", role,
		"--query", "appId",
	)
	if err != nil {
		return "", err
	}
	if appId == "" {
		return "", fmt.Errorf("%w: service principal appId", ErrEmptyCliOutput)
	}
	return appId, nil
}

// ResetServicePrincipalCredential always issues a new secret; previous secrets stop working.
func (p *azureProvider) ResetServicePrincipalCredential(ctx context.Context, appId string) (*ServicePrincipalCredential, error) {
	password, err := p.secretTsv(ctx, "ad", "sp", "credential", "reset", "--id", appId, "--query", "password")
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: service principal password", ErrEmptyCliOutput)
	}
	return &ServicePrincipalCredential{AppId: appId, Password: password}, nil
}

func (p *azureProvider) IsDNSLabelInUse(ctx context.Context, label string) (bool, error) {
	out, err := p.tsv(ctx, "container", "list", "--query", fmt.Sprintf("[?ipAddress.dnsNameLabel=='%s'].name", label))
	if err != nil {
		return false, err
	}
	return out != "", nil
}

func (p *azureProvider) CreateContainer(ctx context.Context, spec ContainerSpec) (*ContainerGroup, error) {
	out, err := p.az(ctx, "container", "create",
		"--resource-group", spec.ResourceGroup,
		"--name", spec.Name,
		"--image", spec.Image,
		"--cpu", spec.CPU,
		"--memory", spec.MemoryGB,
		"--registry-login-server", spec.RegistryServer,
		"--ip-address", "Public",
		"--location", spec.Location,
		"--registry-username", spec.RegistryUsername,
		"--registry-password", spec.RegistryPassword,
		"--dns-name-label", spec.DNSLabel,
		"--ports", spec.Port,
		"--output", "json",
	)
	if err != nil {
		return nil, err
	}
	group := &ContainerGroup{}
	if strings.TrimSpace(out) == "" {
		return group, nil
	}
	if err := json.Unmarshal([]byte(out), group); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return group, nil
}
