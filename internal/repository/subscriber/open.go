package subscriber

import (
	"context"
	"fmt"
	"io"

	"github.com/oshokin/help-alert/internal/config"
	domain "github.com/oshokin/help-alert/internal/domain/subscriber"
)

// Store is a Directory that owns resources to release on shutdown.
type Store interface {
	domain.Directory
	io.Closer
}

// Open builds the backend selected by settings.Driver.
//
//nolint:ireturn // Callers depend on the Store contract, not on a backend.
func Open(ctx context.Context, settings config.Directory) (Store, error) {
	switch settings.Driver {
	case config.DriverFile, "":
		return NewFileDirectory(settings.Path), nil
	case config.DriverMemory:
		return NewMemoryDirectory(), nil
	case config.DriverSQLite:
		return OpenSQLite(ctx, settings.Path)
	case config.DriverPostgres:
		return OpenPostgres(ctx, settings.DSN)
	case config.DriverRedis:
		return OpenRedis(ctx, settings.DSN)
	default:
		return nil, fmt.Errorf("unsupported directory driver %q", settings.Driver)
	}
}
