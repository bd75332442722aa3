package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() map[string]string {
	return map[string]string{
		KeyImageName:     "myapp",
		KeyContainerName: "myapp-api",
		KeyResourceGroup: "rg-myapp",
		KeyRegistryName:  "myappregistry",
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range Keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
	})
}

func TestNewAppliesDefaults(t *testing.T) {
	cfg, err := New(validSettings())
	require.NoError(t, err)

	assert.Equal(t, "v1.0.0", cfg.ImageTag())
	assert.Equal(t, "eastus", cfg.Location())
	assert.Equal(t, "5000", cfg.ContainerPort())
	assert.Equal(t, "myapp:v1.0.0", cfg.ImageRef())
	assert.Equal(t, "myappregistry.azurecr.io", cfg.LoginServer())
	assert.Equal(t, "myappregistry.azurecr.io/myapp:v1.0.0", cfg.RemoteImageRef())
	assert.Equal(t, "myappregistry-acrpull", cfg.ServicePrincipalName())
}

func TestNewRegistrantOverridesServicePrincipalName(t *testing.T) {
	settings := validSettings()
	settings[KeyRegistrant] = "universidad"

	cfg, err := New(settings)
	require.NoError(t, err)
	assert.Equal(t, "universidad", cfg.ServicePrincipalName())
}

func TestNewMissingRequired(t *testing.T) {
	var tests = []struct {
		name    string
		remove  []string
		missing []string
	}{
		{name: "image name", remove: []string{KeyImageName}, missing: []string{KeyImageName}},
		{name: "container name", remove: []string{KeyContainerName}, missing: []string{KeyContainerName}},
		{name: "resource group", remove: []string{KeyResourceGroup}, missing: []string{KeyResourceGroup}},
		{name: "registry", remove: []string{KeyRegistryName}, missing: []string{KeyRegistryName}},
		{name: "all", remove: required, missing: required},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			settings := validSettings()
			for _, key := range tc.remove {
				settings[key] = "  "
			}

			cfg, err := New(settings)
			assert.Nil(t, cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.missing, cfgErr.Missing)
		})
	}
}

func TestNewInvalidValues(t *testing.T) {
	settings := validSettings()
	settings[KeyRegistryName] = "My-Registry"
	settings[KeyContainerPort] = "99999"

	_, err := New(settings)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Invalid, 2)
	assert.Contains(t, err.Error(), KeyRegistryName)
	assert.Contains(t, err.Error(), KeyContainerPort)
}

func TestLoadFromEnvFileAndEnvironment(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "deploy.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"IMAGE_NAME=fileapp\nCONTAINER_NAME=file-api\nRESOURCE_GROUP=rg-file\nACR_NAME=fileregistry\nIMAGE_TAG=v2.0.0\n",
	), 0600))
	t.Setenv(KeyImageName, "envapp")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "envapp", cfg.ImageName())
	assert.Equal(t, "file-api", cfg.ContainerName())
	assert.Equal(t, "v2.0.0", cfg.ImageTag())
	assert.Equal(t, "eastus", cfg.Location())
}

func TestLoadMissingDefaultEnvFileUsesEnvironment(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	for key, value := range validSettings() {
		t.Setenv(key, value)
	}

	cfg, err := Load(DefaultEnvFile)
	require.NoError(t, err)
	assert.Equal(t, "myapp", cfg.ImageName())
}

func TestLoadMissingExplicitEnvFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestWriteEnvFileRoundTrip(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "out.env")
	settings := validSettings()
	settings[KeyLocation] = "westeurope"

	require.NoError(t, WriteEnvFile(envFile, settings))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "westeurope", cfg.Location())
	assert.Equal(t, "myappregistry", cfg.RegistryName())

	info, err := os.Stat(envFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestReadSettingsDoesNotValidate(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "partial.env")
	require.NoError(t, os.WriteFile(envFile, []byte("IMAGE_NAME=myapp\n"), 0600))

	settings, err := ReadSettings(envFile)
	require.NoError(t, err)
	assert.Equal(t, "myapp", settings[KeyImageName])
	assert.Equal(t, "", settings[KeyRegistryName])
	assert.Equal(t, DefaultContainerPort, settings[KeyContainerPort])

	assert.True(t, IsRequired(KeyRegistryName))
	assert.False(t, IsRequired(KeyImageTag))
	assert.Equal(t, DefaultLocation, Default(KeyLocation))
}
