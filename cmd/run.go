package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/umapps/aci-deploy/internal/message"
	"github.com/umapps/aci-deploy/internal/runner"
)

var withPreflight bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every deployment stage in order",
	Long:  `Same as running aci-deploy without a command. With --preflight the installed tools are checked first.`,
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAll(cmd.Context(), withPreflight)
	},
}

func runAll(ctx context.Context, checkTools bool) error {
	tools := newToolchain(runner.NewDefaultCommandRunner(0))

	provisioner, cfg, err := initializeProvisioner(tools)
	if err != nil {
		return err
	}

	if checkTools {
		message.Info("Checking installed tools")
		if err := runPreflight(ctx, tools); err != nil {
			return fmt.Errorf("preflight: %w", err)
		}
	}

	if err := runStages(ctx, cfg, provisioner.Stages()); err != nil {
		return err
	}
	message.Success("Deployment of '%s' finished", cfg.RemoteImageRef())
	return nil
}

func init() {
	runCmd.Flags().BoolVar(&withPreflight, "preflight", false, "check installed tools and the docker daemon before running")
	rootCmd.AddCommand(runCmd)
}
