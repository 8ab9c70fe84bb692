package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	client "github.com/oshokin/help-alert/internal/service/client"
	"github.com/oshokin/help-alert/internal/service/watcher"
)

func newNotifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify <count>",
		Short: "Ask subscribers for help.",
		Long: `Reports the current count to the server. Unless the alert is already open or
still cooling down, every subscriber receives a push notification.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parse count %q: %w", args[0], err)
			}

			return runAction("notify", client.Notify(count))
		},
	}
}

func newRespondCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "respond <address>",
		Short: "Accept the open alert for a subscriber.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runAction("respond", client.Respond(args[0]))
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return the alert to idle.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runAction("reset", client.Reset())
		},
	}
}

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the current alert state.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runAction("state", client.State())
		},
	}
}

func newSubscribeCmd() *cobra.Command {
	var (
		deviceName string
		address    string
	)

	command := &cobra.Command{
		Use:   "subscribe <subscription.json>",
		Short: "Register a device for push notifications.",
		Long: `Registers the browser PushSubscription stored in the given JSON file.

The address defaults to the subscription endpoint and the device name to user@host.
Subscribing an address again replaces its name and credentials.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runAction("subscribe", client.Subscribe(deviceName, address, args[0]))
		},
	}

	command.Flags().StringVarP(&deviceName, "name", "n", "", "device name shown to other subscribers")
	command.Flags().StringVarP(&address, "address", "a", "", "subscriber address, defaults to the endpoint")

	return command
}

func newUnsubscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe <address>",
		Short: "Remove a device from the subscriber directory.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runAction("unsubscribe", client.Unsubscribe(args[0]))
		},
	}
}

func newWatchCmd() *cobra.Command {
	var (
		countFile string
		threshold int
		interval  time.Duration
	)

	command := &cobra.Command{
		Use:   "watch",
		Short: "Raise the alert while a count stays high.",
		Long: `Polls a file holding a decimal count. When the count reaches the threshold the
alert is raised, and it is reset once the count drops below it again.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return watcher.Run(ctx, &watcher.Options{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
				CountFile:     countFile,
				Threshold:     threshold,
				Interval:      interval,
			})
		},
	}

	command.Flags().StringVarP(&countFile, "count-file", "f", "", "file holding the count, overrides watch.count_file")
	command.Flags().IntVarP(&threshold, "threshold", "t", 0, "count that raises the alert, overrides watch.threshold")
	command.Flags().DurationVarP(&interval, "interval", "i", 0, "polling period, overrides watch.interval")

	return command
}
