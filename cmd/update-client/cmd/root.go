package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/update-server/internal/config"
	"github.com/oshokin/update-server/internal/service/updater"
	"github.com/oshokin/update-server/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// interval repeats the cycle; zero runs it once.
	interval time.Duration
	// currentVersion overrides version detection.
	currentVersion string

	// rootCmd represents the base command of the update client.
	rootCmd = &cobra.Command{
		Use:   "update-client",
		Short: "Check for and install updates of an application.",
		Long: `Asks the update server whether a newer release is offered to this installation.

The client identifier is generated on first run and stored in the configuration
file, so the installation keeps its place in staged rollouts.`,
		SilenceUsage: true,
	}

	// checkCmd reports the offer without installing it.
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Report whether an update is offered.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(false)
		},
	}

	// applyCmd installs the offered update.
	applyCmd = &cobra.Command{
		Use:   "apply",
		Short: "Download, verify and install the offered update.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(true)
		},
	}
)

// run executes the updater with the parsed flags.
func run(apply bool) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	options := &updater.Options{
		ConfigPath: configPath,
		Apply:      apply,
		Interval:   interval,
		Version:    currentVersion,
	}

	_, err := updater.Run(ctx, options)

	return err
}

// Execute runs the update-client CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultClientConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		DurationVarP(&interval, "interval", "i", 0, "repeat the cycle at this interval until interrupted")
	rootCmd.PersistentFlags().
		StringVar(&currentVersion, "version", "", "current version, skips running `<target> version`")

	rootCmd.AddCommand(checkCmd, applyCmd)
}
