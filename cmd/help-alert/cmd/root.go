package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/help-alert/internal/config"
	client "github.com/oshokin/help-alert/internal/service/client"
	"github.com/oshokin/help-alert/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the server address from the configuration.
	serverAddress string
	// retry repeats failed calls until the server answers.
	retry bool

	// rootCmd represents the base command of the help alert client.
	rootCmd = &cobra.Command{
		Use:   "help-alert",
		Short: "Ask for help and answer help requests.",
		Long: `Talks to the help alert server.

notify raises an alert that is pushed to every subscribed device, respond accepts it
on behalf of one device and tells the others, reset returns everything to idle.
Subscriptions are managed with subscribe and unsubscribe, and watch raises the alert
automatically while a count kept in a file stays at or above a threshold.`,
		SilenceUsage: true,
	}
)

// Execute runs the help-alert CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runAction performs one client action with graceful shutdown handling.
func runAction(name string, action client.Action) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return client.Run(ctx, &client.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
		Retry:         retry,
		Out:           rootCmd.OutOrStdout(),
	}, name, action)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "server address, overrides configuration")
	rootCmd.PersistentFlags().BoolVarP(&retry, "retry", "r", false, "retry every second until the server answers")

	rootCmd.AddCommand(
		newNotifyCmd(),
		newRespondCmd(),
		newResetCmd(),
		newStateCmd(),
		newSubscribeCmd(),
		newUnsubscribeCmd(),
		newWatchCmd(),
	)
}
