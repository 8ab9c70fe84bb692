package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/help-alert/internal/config"
	"github.com/oshokin/help-alert/internal/logger"
	"github.com/oshokin/help-alert/internal/service/common"
)

// Options controls the watcher polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// CountFile overrides watch.count_file.
	CountFile string
	// Threshold overrides watch.threshold when positive.
	Threshold int
	// Interval overrides watch.interval when positive.
	Interval time.Duration
}

// Trigger is the part of the alert client the watcher calls.
type Trigger interface {
	Notify(ctx context.Context, count int) (*common.NotifyResult, error)
	Reset(ctx context.Context) error
}

// CountReader returns the current count.
type CountReader func(ctx context.Context) (int, error)

var (
	// errCountFileRequired is returned when no count source is configured.
	errCountFileRequired = errors.New("count file must be provided")
	// errThresholdRequired is returned when the threshold is not positive.
	errThresholdRequired = errors.New("threshold must be positive")
	// errNegativeCount is returned when the count source holds a negative value.
	errNegativeCount = errors.New("count must not be negative")
)

// Watcher raises the alert while the count is high and resets it once the
// count drops below the threshold.
type Watcher struct {
	// trigger talks to the alert server.
	trigger Trigger
	// read returns the current count.
	read CountReader
	// threshold is the count at or above which help is requested.
	threshold int
	// alerted is set once a notify reached the server and cleared by a reset.
	alerted bool
}

// New creates a Watcher.
func New(trigger Trigger, read CountReader, threshold int) *Watcher {
	return &Watcher{
		trigger:   trigger,
		read:      read,
		threshold: threshold,
	}
}

// Run loads settings, connects to the server and polls until ctx is cancelled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "help-alert-watch")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err = logger.ApplyLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("apply log level: %w", err)
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	countFile := cfg.Watch.CountFile
	if opts.CountFile != "" {
		countFile = opts.CountFile
	}

	threshold := cfg.Watch.Threshold
	if opts.Threshold > 0 {
		threshold = opts.Threshold
	}

	interval := cfg.Watch.Interval
	if opts.Interval > 0 {
		interval = opts.Interval
	}

	if countFile == "" {
		return errCountFileRequired
	}

	if threshold <= 0 {
		return errThresholdRequired
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Watching count",
		"server_address", serverAddress,
		"count_file", countFile,
		"threshold", threshold,
		"interval", interval.String(),
	)

	return New(client, FileCountReader(countFile), threshold).Poll(ctx, interval)
}

// Poll checks once immediately and then every interval until ctx is cancelled.
// Failed checks are logged and retried on the next tick.
func (w *Watcher) Poll(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = config.DefaultWatchInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.Check(ctx); err != nil {
			logger.ErrorKV(ctx, "Check failed", "error", err)
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
		}
	}
}

// Check reads the count once and notifies or resets accordingly.
func (w *Watcher) Check(ctx context.Context) error {
	count, err := w.read(ctx)
	if err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	if count >= w.threshold {
		result, err := w.trigger.Notify(ctx, count)
		if err != nil {
			return err
		}

		logger.DebugKV(ctx, "Notify answered", "count", count, "status", result.Status, "reason", result.Reason)

		if !w.alerted {
			logger.InfoKV(ctx, "Count reached threshold", "count", count, "threshold", w.threshold,
				"status", result.Status, "alert_id", result.AlertID)
		}

		w.alerted = true

		return nil
	}

	if !w.alerted {
		return nil
	}

	if err = w.trigger.Reset(ctx); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Count dropped below threshold, alert reset", "count", count, "threshold", w.threshold)

	w.alerted = false

	return nil
}

// FileCountReader reads a decimal count from path.
func FileCountReader(path string) CountReader {
	return func(context.Context) (int, error) {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return 0, fmt.Errorf("read count file: %w", err)
		}

		count, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			return 0, fmt.Errorf("parse count %q: %w", strings.TrimSpace(string(data)), err)
		}

		if count < 0 {
			return 0, fmt.Errorf("%w: %d", errNegativeCount, count)
		}

		return count, nil
	}
}
