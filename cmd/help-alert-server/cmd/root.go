package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/help-alert/internal/config"
	"github.com/oshokin/help-alert/internal/service/server"
	"github.com/oshokin/help-alert/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// envFile with secrets such as the VAPID private key.
	envFile string
	// driver overrides the subscriber directory backend.
	driver string

	// rootCmd represents the base command for running the gRPC server.
	rootCmd = &cobra.Command{
		Use:   "help-alert-server [listen-address]",
		Short: "Run the help alert gRPC server.",
		Long: `Starts the gRPC server that coordinates help requests and pushes them to subscribers.

The server listens on the specified address or uses settings from configuration file.
Only the port from ServerAddress config is used for listening (e.g., :8080).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:8080).
Subscribers are kept in the directory backend chosen by directory.driver.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				EnvFile:       envFile,
				ListenAddress: listenAddress,
				Driver:        driver,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the help-alert-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", "", "path to .env file with secrets")
	rootCmd.Flags().StringVarP(&driver, "driver", "d", "", "subscriber directory driver (file, sqlite, postgres, redis, memory)")
}
