package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/umapps/aci-deploy/internal/config"
	"github.com/umapps/aci-deploy/internal/message"
	"github.com/umapps/aci-deploy/internal/pipeline"
)

const (
	exitOk           = 0
	exitInvalidUsage = 1
	exitStageFailed  = 2
)

// errUsage marks command line mistakes such as unknown flags or stray arguments.
var errUsage = errors.New("invalid usage")

var silentMode bool
var verboseMode bool
var noEmoji bool
var noColor bool

var envFile string
var buildContext string
var reportPath string
var stepTimeout time.Duration
var continueOnError bool

var rootCmd = &cobra.Command{
	Use:   "aci-deploy",
	Short: "Build, scan, publish and run a container image on Azure Container Instances",
	Long: `Runs every deployment stage in order: login, ensure-group, check-registry, build-image,
scan-image, push-image and create-container. Each stage checks the current state first and only
creates what is missing, so the whole run can be repeated safely.`,
	Args:          noArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		message.SetSilentMode(silentMode)
		message.SetVerboseMode(verboseMode)
		message.SetEmojiMode(!noEmoji && !noColor)
		message.SetColorMode(!noColor)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAll(cmd.Context(), false)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		message.Error("failed to execute command: %v", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps an error to 0 on success, 1 for configuration or usage problems and 2 for
// everything that failed at run time.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOk
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, errUsage):
		return exitInvalidUsage
	default:
		return exitStageFailed
	}
}

func usageError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", errUsage, err)
}

func noArgs(cmd *cobra.Command, args []string) error {
	return usageError(cobra.NoArgs(cmd, args))
}

func init() {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	rootCmd.PersistentFlags().BoolVar(&silentMode, "silent", false, "silent mode (hides everything except prompt/failure messages)")
	rootCmd.PersistentFlags().BoolVar(&verboseMode, "verbose", false, "verbose output (show everything, overrides silent mode)")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "disable emojis")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colors and emojis")

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file with the deployment settings, environment variables take precedence")
	rootCmd.PersistentFlags().StringVar(&buildContext, "build-context", ".", "directory the image is built from")
	rootCmd.PersistentFlags().StringVar(&reportPath, "report", "", "write a YAML report of the run to this path")
	rootCmd.PersistentFlags().DurationVar(&stepTimeout, "step-timeout", pipeline.DefaultStepTimeout, "maximum duration of a single stage, 0 disables the limit")
	rootCmd.PersistentFlags().BoolVar(&continueOnError, "continue-on-error", false, "keep running the remaining stages after a stage failed")
}
