package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/update-server/internal/service/packager"
	"github.com/oshokin/update-server/internal/version"
)

var (
	// privateKeyPath is the PEM signing key.
	privateKeyPath string
	// publicKeyPath is the PEM verifying key written by keygen.
	publicKeyPath string
	// force overwrites existing key files.
	force bool
	// manifestPath overrides where sign writes the manifest.
	manifestPath string

	// rootCmd represents the base command for preparing release artifacts.
	rootCmd = &cobra.Command{
		Use:          "update-packager",
		Short:        "Prepare signing keys and signed release artifacts.",
		SilenceUsage: true,
	}

	// keygenCmd creates a signing key pair.
	keygenCmd = &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ECDSA P-256 signing key pair.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return packager.Keygen(ctx, &packager.KeygenOptions{
				PrivateKeyPath: privateKeyPath,
				PublicKeyPath:  publicKeyPath,
				Force:          force,
			})
		},
	}

	// signCmd computes checksum and signature of an artifact.
	signCmd = &cobra.Command{
		Use:   "sign [artifact]",
		Short: "Compute the checksum and detached signature of an artifact.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			_, err := packager.Sign(ctx, &packager.SignOptions{
				ArtifactPath:   args[0],
				PrivateKeyPath: privateKeyPath,
				ManifestPath:   manifestPath,
			})

			return err
		},
	}
)

// Execute runs the update-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&privateKeyPath, "key", "k", packager.DefaultPrivateKeyFilename, "path to the PEM private key")

	keygenCmd.Flags().
		StringVarP(&publicKeyPath, "public-key", "p", packager.DefaultPublicKeyFilename, "path to the PEM public key")
	keygenCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing key files")

	signCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "manifest path, defaults to <artifact>.release.yaml")

	rootCmd.AddCommand(keygenCmd, signCmd)
}
