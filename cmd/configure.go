package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/umapps/aci-deploy/internal/config"
	"github.com/umapps/aci-deploy/internal/message"
)

var settingPrompts = map[string]string{
	config.KeyImageName:     "Image name",
	config.KeyImageTag:      "Image tag",
	config.KeyContainerName: "Container name",
	config.KeyResourceGroup: "Resource group",
	config.KeyLocation:      "Azure location",
	config.KeyRegistryName:  "Container registry name (5-50 lowercase letters or digits)",
	config.KeyContainerPort: "Container port",
	config.KeyRegistrant:    "Service principal name (leave empty to derive it from the registry)",
}

var locations = []string{"eastus", "eastus2", "westus2", "westus3", "centralus", "northeurope", "westeurope", "uksouth", "southeastasia", "australiaeast"}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write the deployment settings to the env file",
	Long:  `Asks for every deployment setting, validates the answers and writes them to the file given by --env-file.`,
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exists, err := fileExists(envFile)
		if err != nil {
			return err
		}
		source := ""
		if exists {
			source = envFile
		}
		current, err := config.ReadSettings(source)
		if err != nil {
			return err
		}

		answers := make(map[string]string, len(config.Keys))
		for _, key := range config.Keys {
			var answer string
			if key == config.KeyLocation {
				answer, err = message.Select(settingPrompts[key], withOption(locations, current[key]), current[key])
			} else {
				answer, err = message.Prompt(settingPrompts[key], current[key], config.IsRequired(key))
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", key, err)
			}
			answers[key] = answer
		}

		cfg, err := config.New(answers)
		if err != nil {
			return err
		}

		if exists {
			overwrite, err := message.BoolSelect(fmt.Sprintf("Overwrite existing %s?", envFile))
			if err != nil {
				return fmt.Errorf("failed to confirm overwrite: %w", err)
			}
			if !overwrite {
				message.Info("Kept %s unchanged", envFile)
				return nil
			}
		}

		if err := config.WriteEnvFile(envFile, answers); err != nil {
			return err
		}
		message.Success("Settings for '%s' written to %s", cfg.ImageRef(), envFile)
		return nil
	},
}

// withOption makes sure a previously configured value is selectable.
func withOption(options []string, value string) []string {
	if value == "" || slices.Contains(options, value) {
		return options
	}
	return append([]string{value}, options...)
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check '%s': %w", path, err)
}

func init() {
	rootCmd.AddCommand(configureCmd)
}
