package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/help-alert/internal/service/keys"
	"github.com/oshokin/help-alert/internal/version"
)

var (
	// output is the .env file to write the keys to.
	output string
	// force allows overwriting output.
	force bool

	// rootCmd represents the base command for generating VAPID keys.
	rootCmd = &cobra.Command{
		Use:   "help-alert-keys",
		Short: "Generate a VAPID key pair for push notifications.",
		Long: `Generates the application server key pair used to sign Web Push requests.

The keys are printed as environment variables the server reads.
With --output they are written to a .env file instead; the public key is also
the one browsers need when they subscribe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return keys.Run(&keys.Options{
				Output: output,
				Force:  force,
				Out:    cmd.OutOrStdout(),
			})
		},
	}
)

// Execute runs the help-alert-keys CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "write keys to this .env file")
	rootCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing output file")
}
