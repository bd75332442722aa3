package cmd

import (
	"github.com/spf13/cobra"

	"github.com/umapps/aci-deploy/internal/message"
	"github.com/umapps/aci-deploy/internal/runner"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that az, docker and grype are installed and the docker daemon is running",
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runPreflight(cmd.Context(), newToolchain(runner.NewDefaultCommandRunner(stepTimeout))); err != nil {
			return err
		}
		message.Success("All tools are ready")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
