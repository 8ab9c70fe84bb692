package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/help-alert/internal/api/grpc/alert"
	"github.com/oshokin/help-alert/internal/config"
	"github.com/oshokin/help-alert/internal/fanout"
	"github.com/oshokin/help-alert/internal/logger"
	pb "github.com/oshokin/help-alert/internal/pb/v1"
	"github.com/oshokin/help-alert/internal/push/webpush"
	repository "github.com/oshokin/help-alert/internal/repository/subscriber"
	"github.com/oshokin/help-alert/internal/service/alert"
	"github.com/oshokin/help-alert/internal/service/scheduler"
)

// Options controls the help-alert-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// EnvFile is an optional .env file with secrets.
	EnvFile string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// Driver overrides directory.driver when set.
	Driver string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the gRPC server and blocks until context is canceled or server stops.
// Loads configuration first, then determines listen address from config or override.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "help-alert-server")

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	if err = logger.ApplyLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("apply log level: %w", err)
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	store, err := repository.Open(ctx, settings.Directory)
	if err != nil {
		return fmt.Errorf("open subscriber directory: %w", err)
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Unable to close subscriber directory", "error", closeErr)
		}
	}()

	svc := newService(settings, store)

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	pb.RegisterAlertServiceServer(grpcServer, api.NewServer(svc))

	logger.InfoKV(ctx, "Help alert server listening",
		"listen_address", listenAddress,
		"directory", settings.Directory.Driver,
		"cooldown", settings.Alert.Cooldown.String(),
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return scheduler.New(svc, settings.Alert).Run(groupCtx)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()

		return nil
	})

	group.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	if err = group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// loadSettings reads the .env file, the YAML settings and the command line overrides.
func loadSettings(opts *Options) (*config.Config, error) {
	var envFiles []string
	if opts.EnvFile != "" {
		envFiles = append(envFiles, opts.EnvFile)
	}

	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.Driver != "" {
		settings.Directory.Driver = opts.Driver

		if err = config.Validate(settings); err != nil {
			return nil, fmt.Errorf("validate settings: %w", err)
		}
	}

	if err = config.ValidateServer(settings); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	return settings, nil
}

// newService builds the dispatcher, fan-out and alert service from settings.
func newService(settings *config.Config, store repository.Store) *alert.Service {
	dispatcher := webpush.New(settings.Push)

	deliverer := fanout.New(dispatcher, store,
		fanout.WithTimeout(settings.Push.Timeout),
		fanout.WithTTL(settings.Push.TTL),
		fanout.WithParallelism(settings.Fanout.Parallelism),
		fanout.WithRateLimit(settings.Fanout.RatePerSecond),
	)

	return alert.New(store, deliverer, settings.Alert, settings.Messages)
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "server.example.com:8080" -> ":8080").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
