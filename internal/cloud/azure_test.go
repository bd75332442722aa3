package cloud

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umapps/aci-deploy/internal/message"
	"github.com/umapps/aci-deploy/internal/runner"
)

const registryId = "/subscriptions/00000000-0000-0000-0000-000000000000/resourceGroups/rg-myapp/providers/Microsoft.ContainerRegistry/registries/myappregistry"

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestResourceGroupExists(t *testing.T) {
	var tests = []struct {
		name     string
		output   string
		expected bool
	}{
		{name: "empty array", output: "[]\n", expected: false},
		{name: "empty output", output: "", expected: false},
		{name: "match", output: `[{"name": "rg-myapp", "location": "eastus"}]`, expected: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := runner.NewFakeCommandRunner()
			fake.On("az", "group", "list").Return(tc.output)

			exists, err := NewAzureProvider(fake).ResourceGroupExists(context.Background(), "rg-myapp")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, exists)
			assert.Equal(t, []string{"az group list --query [?name=='rg-myapp'] --output json"}, fake.CommandLines())
		})
	}
}

func TestRegistryExistsUnexpectedOutput(t *testing.T) {
	fake := runner.NewFakeCommandRunner()
	fake.On("az", "acr", "list").Return("not json")

	_, err := NewAzureProvider(fake).RegistryExists(context.Background(), "myappregistry")
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestEnsureLoggedIn(t *testing.T) {
	t.Run("already logged in", func(t *testing.T) {
		fake := runner.NewFakeCommandRunner()
		fake.On("az", "account", "show").Return(`{"id": "sub-1", "name": "Pay-As-You-Go", "user": {"name": "dev@contoso.com", "type": "user"}}`)

		account, loggedIn, err := NewAzureProvider(fake).EnsureLoggedIn(context.Background())
		require.NoError(t, err)
		assert.False(t, loggedIn)
		assert.Equal(t, "sub-1", account.Id)
		assert.Equal(t, "dev@contoso.com", account.User.Name)
		assert.Equal(t, 0, fake.CallCount("az", "login"))
	})

	t.Run("login required", func(t *testing.T) {
		fake := runner.NewFakeCommandRunner()
		fake.On("az", "account", "show").Fail(1, "Please run 'az login' to setup account.").Once()
		fake.On("az", "account", "show").Return(`{"id": "sub-1"}`)

		account, loggedIn, err := NewAzureProvider(fake).EnsureLoggedIn(context.Background())
		require.NoError(t, err)
		assert.True(t, loggedIn)
		assert.Equal(t, "sub-1", account.Id)
		assert.Equal(t, 1, fake.CallCountWith(runner.Options{Interactive: true}, "az", "login", "--output", "none"))
	})

	t.Run("cli missing", func(t *testing.T) {
		fake := runner.NewFakeCommandRunner()
		fake.On("az").NotFound()

		_, _, err := NewAzureProvider(fake).EnsureLoggedIn(context.Background())
		assert.ErrorIs(t, err, runner.ErrExecutableNotFound)
		assert.Equal(t, 0, fake.CallCount("az", "login"))
	})
}

func TestGetCallingUserId(t *testing.T) {
	var tests = []struct {
		name     string
		claims   jwt.MapClaims
		expected string
	}{
		{name: "user", claims: jwt.MapClaims{"unique_name": "dev@contoso.com", "appid": "ignored"}, expected: "dev@contoso.com"},
		{name: "service principal", claims: jwt.MapClaims{"appid": "11111111-2222"}, expected: "11111111-2222"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := runner.NewFakeCommandRunner()
			fake.On("az", "account", "get-access-token").Return(signedToken(t, tc.claims) + "\n")

			name, err := NewAzureProvider(fake).GetCallingUserId(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.expected, name)
		})
	}

	t.Run("garbage token", func(t *testing.T) {
		fake := runner.NewFakeCommandRunner()
		fake.On("az", "account", "get-access-token").Return("not-a-token")

		_, err := NewAzureProvider(fake).GetCallingUserId(context.Background())
		assert.Error(t, err)
	})
}

func TestGetRegistryId(t *testing.T) {
	var tests = []struct {
		name    string
		output  string
		wantErr bool
	}{
		{name: "valid", output: registryId + "\n"},
		{name: "empty", output: "", wantErr: true},
		{name: "not an arm id", output: "myappregistry", wantErr: true},
		{name: "wrong type", output: "/subscriptions/0000/resourceGroups/rg-myapp/providers/Microsoft.Storage/storageAccounts/myappregistry", wantErr: true},
		{name: "other registry", output: "/subscriptions/0000/resourceGroups/rg-myapp/providers/Microsoft.ContainerRegistry/registries/otherregistry", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := runner.NewFakeCommandRunner()
			fake.On("az", "acr", "show").Return(tc.output)

			id, err := NewAzureProvider(fake).GetRegistryId(context.Background(), "myappregistry")
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRegistryId)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, registryId, id)
		})
	}
}

func TestFindServicePrincipal(t *testing.T) {
	fake := runner.NewFakeCommandRunner()
	fake.On("az", "ad", "sp", "list").Return("app-1\napp-2\n")

	appId, err := NewAzureProvider(fake).FindServicePrincipal(context.Background(), "myappregistry-acrpull")
	require.NoError(t, err)
	assert.Equal(t, "app-1", appId)
}

func TestResetServicePrincipalCredential(t *testing.T) {
	fake := runner.NewFakeCommandRunner()
	fake.On("az", "ad", "sp", "credential", "reset").Return("s3cr3t\n")

	credential, err := NewAzureProvider(fake).ResetServicePrincipalCredential(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "app-1", credential.AppId)
	assert.Equal(t, "s3cr3t", credential.Password)

	for _, rendered := range []string{credential.String(), fmt.Sprintf("%v", *credential), fmt.Sprintf("%#v", *credential)} {
		assert.NotContains(t, rendered, "s3cr3t")
	}
}

func TestResetServicePrincipalCredentialEmptyPassword(t *testing.T) {
	fake := runner.NewFakeCommandRunner()
	fake.On("az", "ad", "sp", "credential", "reset").Return("\n")

	_, err := NewAzureProvider(fake).ResetServicePrincipalCredential(context.Background(), "app-1")
	assert.ErrorIs(t, err, ErrEmptyCliOutput)
}

func TestCreateContainer(t *testing.T) {
	fake := runner.NewFakeCommandRunner()
	fake.On("az", "container", "create").Return(`{"name": "myapp-api", "provisioningState": "Succeeded", "ipAddress": {"fqdn": "dns-um-1234.eastus.azurecontainer.io", "ip": "20.1.2.3", "dnsNameLabel": "dns-um-1234"}}`)

	group, err := NewAzureProvider(fake).CreateContainer(context.Background(), ContainerSpec{
		ResourceGroup:    "rg-myapp",
		Name:             "myapp-api",
		Image:            "myappregistry.azurecr.io/myapp:v1.0.0",
		Location:         "eastus",
		CPU:              "1",
		MemoryGB:         "1",
		RegistryServer:   "myappregistry.azurecr.io",
		RegistryUsername: "app-1",
		RegistryPassword: "s3cr3t",
		DNSLabel:         "dns-um-1234",
		Port:             "5000",
	})
	require.NoError(t, err)
	assert.Equal(t, "dns-um-1234.eastus.azurecontainer.io", group.IpAddress.Fqdn)
	assert.Equal(t, "Succeeded", group.ProvisioningState)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "--registry-password")
	assert.Contains(t, calls[0], "--dns-name-label")
}

func TestVersion(t *testing.T) {
	fake := runner.NewFakeCommandRunner()
	fake.On("az", "version").Return(`{"azure-cli": "2.61.0", "azure-cli-core": "2.61.0", "extensions": {}}`)

	v, err := NewAzureProvider(fake).Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.61.0", v)
}

func TestCredentialQueriesAreSecret(t *testing.T) {
	fake := runner.NewFakeCommandRunner()
	fake.On("az", "ad", "sp", "credential", "reset").Return("s3cr3t\n")
	fake.On("az", "account", "get-access-token").Return(signedToken(t, jwt.MapClaims{"upn": "dev@contoso.com"}))
	provider := NewAzureProvider(fake)

	_, err := provider.ResetServicePrincipalCredential(context.Background(), "app-1")
	require.NoError(t, err)
	_, err = provider.GetCallingUserId(context.Background())
	require.NoError(t, err)

	secret := runner.Options{SecretOutput: true}
	assert.Equal(t, 1, fake.CallCountWith(secret, "az", "ad", "sp", "credential", "reset"))
	assert.Equal(t, 1, fake.CallCountWith(secret, "az", "account", "get-access-token"))
}

// fakeAzOnPath installs a shell script named az that prints the given password and token.
func fakeAzOnPath(t *testing.T, password, token string) {
	t.Helper()
	dir := t.TempDir()
	script := fmt.Sprintf(`#!/bin/sh
case "$1 $2" in
  "ad sp") echo %s ;;
  "account get-access-token") echo %s ;;
esac
`, password, token)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "az"), []byte(script), 0700))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestVerboseOutputHidesCredentials(t *testing.T) {
	const password = "SUPERSECRETPW123"
	token := signedToken(t, jwt.MapClaims{"unique_name": "dev@contoso.com"})
	fakeAzOnPath(t, password, token)

	var out bytes.Buffer
	message.SetTarget(&out)
	message.SetVerboseMode(true)
	t.Cleanup(func() {
		message.SetVerboseMode(false)
		message.SetTarget(os.Stderr)
	})

	provider := NewAzureProvider(runner.NewDefaultCommandRunner(0))

	credential, err := provider.ResetServicePrincipalCredential(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, password, credential.Password)

	user, err := provider.GetCallingUserId(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev@contoso.com", user)

	logged := out.String()
	assert.Contains(t, logged, "az ad sp credential reset --id app-1")
	assert.NotContains(t, logged, password)
	assert.NotContains(t, logged, token)
}
