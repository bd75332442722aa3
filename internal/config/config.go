// Package config resolves the deployment settings once at startup from a dotenv file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/umapps/aci-deploy/internal/utils"
)

const (
	KeyImageName     = "IMAGE_NAME"
	KeyContainerName = "CONTAINER_NAME"
	KeyImageTag      = "IMAGE_TAG"
	KeyResourceGroup = "RESOURCE_GROUP"
	KeyLocation      = "LOCATION"
	KeyRegistryName  = "ACR_NAME"
	KeyContainerPort = "PORT_CONTAINER"
	KeyRegistrant    = "REGISTER_NAME"

	DefaultImageTag      = "v1.0.0"
	DefaultLocation      = "eastus"
	DefaultContainerPort = "5000"
	DefaultEnvFile       = ".env"

	registryDomain = "azurecr.io"
)

// Keys lists every recognised setting in the order they are written by `configure`.
var Keys = []string{
	KeyImageName,
	KeyImageTag,
	KeyContainerName,
	KeyResourceGroup,
	KeyLocation,
	KeyRegistryName,
	KeyContainerPort,
	KeyRegistrant,
}

var defaults = map[string]string{
	KeyImageTag:      DefaultImageTag,
	KeyLocation:      DefaultLocation,
	KeyContainerPort: DefaultContainerPort,
}

var required = []string{KeyImageName, KeyContainerName, KeyResourceGroup, KeyRegistryName}

// Config is the immutable provisioning configuration. Values are only reachable through
// accessors so a Config cannot be altered after Load or New returns it.
type Config struct {
	imageName     string
	containerName string
	imageTag      string
	resourceGroup string
	location      string
	registryName  string
	containerPort string
	registrant    string
}

// Load reads envFile (when it exists) and the process environment, process values winning,
// then validates the result.
func Load(envFile string) (*Config, error) {
	settings, err := ReadSettings(envFile)
	if err != nil {
		return nil, err
	}
	return New(settings)
}

// ReadSettings resolves the raw settings without validating them. A missing default env file
// is not an error; a missing explicitly named one is.
func ReadSettings(envFile string) (map[string]string, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(strings.ToLower(key), value)
	}
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: failed to read env file '%s': %v", ErrInvalidConfig, envFile, err)
			}
			if envFile != DefaultEnvFile {
				return nil, fmt.Errorf("%w: env file '%s' not found: %v", ErrInvalidConfig, envFile, err)
			}
		}
	}

	settings := make(map[string]string, len(Keys))
	for _, key := range Keys {
		settings[key] = strings.TrimSpace(v.GetString(strings.ToLower(key)))
	}
	return settings, nil
}

// IsRequired reports whether key must be set for the pipeline to start.
func IsRequired(key string) bool {
	return slices.Contains(required, key)
}

// Default returns the value used when key is unset.
func Default(key string) string {
	return defaults[key]
}

// New builds a Config from raw key/value settings, applying defaults to empty optional keys.
func New(values map[string]string) (*Config, error) {
	get := func(key string) string {
		if v := strings.TrimSpace(values[key]); v != "" {
			return v
		}
		return defaults[key]
	}

	cfg := &Config{
		imageName:     get(KeyImageName),
		containerName: get(KeyContainerName),
		imageTag:      get(KeyImageTag),
		resourceGroup: get(KeyResourceGroup),
		location:      get(KeyLocation),
		registryName:  get(KeyRegistryName),
		containerPort: get(KeyContainerPort),
		registrant:    get(KeyRegistrant),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed setting in a single ConfigurationError.
func (c *Config) Validate() error {
	cfgErr := &ConfigurationError{}
	settings := c.Settings()
	for _, key := range required {
		if settings[key] == "" {
			cfgErr.Missing = append(cfgErr.Missing, key)
		}
	}

	if c.registryName != "" && !utils.IsValidRegistryName(c.registryName) {
		cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("%s '%s' must be 5-50 lowercase letters or digits", KeyRegistryName, c.registryName))
	}
	if c.resourceGroup != "" && !utils.IsValidResourceGroupName(c.resourceGroup) {
		cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("%s '%s' is not a valid resource group name", KeyResourceGroup, c.resourceGroup))
	}
	if c.containerName != "" && !utils.IsValidContainerName(c.containerName) {
		cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("%s '%s' must be lowercase letters, digits and single dashes", KeyContainerName, c.containerName))
	}
	if !utils.IsValidPort(c.containerPort) {
		cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("%s '%s' is not a valid port", KeyContainerPort, c.containerPort))
	}

	if len(cfgErr.Missing) > 0 || len(cfgErr.Invalid) > 0 {
		return cfgErr
	}
	return nil
}

// Settings returns the resolved values keyed by environment variable name.
func (c *Config) Settings() map[string]string {
	return map[string]string{
		KeyImageName:     c.imageName,
		KeyContainerName: c.containerName,
		KeyImageTag:      c.imageTag,
		KeyResourceGroup: c.resourceGroup,
		KeyLocation:      c.location,
		KeyRegistryName:  c.registryName,
		KeyContainerPort: c.containerPort,
		KeyRegistrant:    c.registrant,
	}
}

func (c *Config) ImageName() string     { return c.imageName }
func (c *Config) ContainerName() string { return c.containerName }
func (c *Config) ImageTag() string      { return c.imageTag }
func (c *Config) ResourceGroup() string { return c.resourceGroup }
func (c *Config) Location() string      { return c.location }
func (c *Config) RegistryName() string  { return c.registryName }
func (c *Config) ContainerPort() string { return c.containerPort }
func (c *Config) Registrant() string    { return c.registrant }

// ImageRef is the local image reference, name:tag.
func (c *Config) ImageRef() string {
	return c.imageName + ":" + c.imageTag
}

func (c *Config) LoginServer() string {
	return c.registryName + "." + registryDomain
}

// RemoteImageRef is the fully qualified reference of the image inside the registry.
func (c *Config) RemoteImageRef() string {
	return c.LoginServer() + "/" + c.ImageRef()
}

// ServicePrincipalName is the display name of the identity used by the container to pull
// from the registry. REGISTER_NAME wins; otherwise a name is derived from the registry.
func (c *Config) ServicePrincipalName() string {
	if c.registrant != "" {
		return c.registrant
	}
	return c.registryName + "-acrpull"
}

// WriteEnvFile persists settings in dotenv format, one KEY=value per line, keys in Keys order.
func WriteEnvFile(path string, settings map[string]string) error {
	var sb strings.Builder
	for _, key := range Keys {
		value, ok := settings[key]
		if !ok || value == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s=%s\n", key, value)
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	return nil
}
