package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/update-server/internal/config"
	"github.com/oshokin/update-server/internal/service/server"
	"github.com/oshokin/update-server/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// grpcAddress overrides the configured gRPC listener.
	grpcAddress string
	// httpAddress overrides the configured HTTP listener.
	httpAddress string

	// rootCmd represents the base command of the update server.
	rootCmd = &cobra.Command{
		Use:   "update-server",
		Short: "Distribute application updates with staged rollouts.",
		Long: `Serves update checks over gRPC and REST and exposes the admin API used to
register, promote and retract releases.

Backends (database, file storage, authentication) and rollout defaults are read
from the configuration file. The signing key is referenced by path or
environment variable, never embedded in the file.`,
		SilenceUsage: true,
	}

	// serveCmd starts both listeners.
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC and HTTP servers.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &server.Options{
				ConfigPath:  configPath,
				GRPCAddress: grpcAddress,
				HTTPAddress: httpAddress,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the update-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultServerConfigFilename, "path to configuration file")

	serveCmd.Flags().StringVar(&grpcAddress, "grpc-address", "", "gRPC listen address, overrides server.grpc_address")
	serveCmd.Flags().StringVar(&httpAddress, "http-address", "", "HTTP listen address, overrides server.http_address")

	rootCmd.AddCommand(serveCmd, hashPasswordCmd)
}
