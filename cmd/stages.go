package cmd

import (
	"github.com/spf13/cobra"

	"github.com/umapps/aci-deploy/internal/pipeline"
	"github.com/umapps/aci-deploy/internal/provision"
	"github.com/umapps/aci-deploy/internal/runner"
)

var stageCommands = []struct {
	name  string
	short string
}{
	{name: provision.StageLogin, short: "Log in to Azure and the container registry"},
	{name: provision.StageEnsureGroup, short: "Create the resource group if it does not exist"},
	{name: provision.StageCheckRegistry, short: "Create the container registry if it does not exist and log in to it"},
	{name: provision.StageBuildImage, short: "Build the image unless it is already in the local image cache"},
	{name: provision.StageScanImage, short: "Scan the image for vulnerabilities, grouped by CVE"},
	{name: provision.StagePushImage, short: "Tag and push the image to the registry"},
	{name: provision.StageCreateContainer, short: "Run the published image as a container instance"},
}

func newStageCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provisioner, cfg, err := initializeProvisioner(newToolchain(runner.NewDefaultCommandRunner(0)))
			if err != nil {
				return err
			}
			stage, err := provisioner.Stage(name)
			if err != nil {
				return err
			}
			return runStages(cmd.Context(), cfg, []pipeline.Stage{stage})
		},
	}
}

func init() {
	for _, stage := range stageCommands {
		rootCmd.AddCommand(newStageCommand(stage.name, stage.short))
	}
}
