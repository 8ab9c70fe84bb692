package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/help-alert/internal/config"
	"github.com/oshokin/help-alert/internal/logger"
	"github.com/oshokin/help-alert/internal/service/common"
)

// Options configures how the help-alert CLI reaches the server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Retry keeps repeating a failed call until it succeeds or ctx is cancelled.
	Retry bool

	// Out receives the human readable result; os.Stdout when nil.
	Out io.Writer
}

// Action is one call against the alert server.
type Action func(ctx context.Context, client *common.Client, out io.Writer) error

// defaultRetryInterval defines the delay between retried calls.
const defaultRetryInterval = 1 * time.Second

// Run connects to the server and performs action, retrying when asked to.
func Run(ctx context.Context, opts *Options, name string, action Action) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "help-alert")
	ctx = logger.WithKV(ctx, "command", name)

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if err = logger.ApplyLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("apply log level: %w", err)
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	// Connect to alert server with timeout from config.
	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Calling alert server", "server_address", serverAddress)

	// Attempt immediately before starting retry loop.
	err = action(ctx, client, out)
	if err == nil || !opts.Retry {
		return err
	}

	logger.ErrorKV(ctx, "Call failed, retrying", "error", err)

	// Setup retry timer for subsequent attempts.
	ticker := time.NewTicker(defaultRetryInterval)
	defer ticker.Stop()

	// Retry loop until success or cancellation.
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err = action(ctx, client, out); err == nil {
				return nil
			}

			logger.ErrorKV(ctx, "Call failed, retrying", "error", err)
		}
	}
}

// Notify reports count to the server.
func Notify(count int) Action {
	return func(ctx context.Context, client *common.Client, out io.Writer) error {
		result, err := client.Notify(ctx, count)
		if err != nil {
			return err
		}

		if result.Status == "sent" {
			_, err = fmt.Fprintf(out, "Alert %s sent to %d subscribers (%d pruned)\n",
				result.AlertID, result.Attempted, len(result.Pruned))
		} else {
			_, err = fmt.Fprintf(out, "Skipped: %s\n", result.Reason)
		}

		return err
	}
}

// Respond accepts the alert on behalf of the subscriber at address.
func Respond(address string) Action {
	return func(ctx context.Context, client *common.Client, out io.Writer) error {
		result, err := client.Respond(ctx, address)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(out, "%s (responder: %s)\n", result.Status, valueOr(result.Responder, "none"))

		return err
	}
}

// Reset returns the alert to idle.
func Reset() Action {
	return func(ctx context.Context, client *common.Client, out io.Writer) error {
		if err := client.Reset(ctx); err != nil {
			return err
		}

		_, err := fmt.Fprintln(out, "Alert reset")

		return err
	}
}

// State prints the current alert state.
func State() Action {
	return func(ctx context.Context, client *common.Client, out io.Writer) error {
		state, err := client.GetState(ctx)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(out, formatState(state))

		return err
	}
}

// Subscribe registers a device. credentialsFile holds the browser's
// PushSubscription JSON; the address defaults to its endpoint.
func Subscribe(deviceName, address, credentialsFile string) Action {
	return func(ctx context.Context, client *common.Client, out io.Writer) error {
		credentials, err := os.ReadFile(filepath.Clean(credentialsFile))
		if err != nil {
			return fmt.Errorf("read credentials: %w", err)
		}

		if address == "" {
			address, err = endpointOf(credentials)
			if err != nil {
				return err
			}
		}

		if deviceName == "" {
			deviceName, err = common.DetectDeviceName()
			if err != nil {
				return err
			}
		}

		status, err := client.Subscribe(ctx, deviceName, address, credentials)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(out, "Subscriber %s %s\n", address, status)

		return err
	}
}

// Unsubscribe removes the device registered at address.
func Unsubscribe(address string) Action {
	return func(ctx context.Context, client *common.Client, out io.Writer) error {
		if err := client.Unsubscribe(ctx, address); err != nil {
			return err
		}

		_, err := fmt.Fprintf(out, "Subscriber %s removed\n", address)

		return err
	}
}

// formatState converts the alert state to a readable line.
func formatState(state *common.StateResult) string {
	if state == nil {
		return "<nil state>"
	}

	// Extract timestamp with fallback for missing data.
	timestamp := "never"
	if !state.LastNotifyTime.IsZero() {
		timestamp = state.LastNotifyTime.Local().Format(time.RFC3339)
	}

	line := fmt.Sprintf("%s, last alert at %s", state.Phase, timestamp)

	if state.AlertID != "" {
		line += ", alert " + state.AlertID
	}

	if state.Responder != "" {
		line += fmt.Sprintf(", accepted by %s (%s)", state.Responder, state.ResponderAddress)
	}

	return line
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
