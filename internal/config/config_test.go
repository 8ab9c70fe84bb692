package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing socket.
	require.Error(t, Validate(new(Config)))
	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)

	// Bad socket.
	require.Error(t, Validate(&Config{ServerAddress: "bad:address"}))

	// Unknown driver.
	err := Validate(&Config{
		ServerAddress: "127.0.0.1:0",
		Directory:     Directory{Driver: "spreadsheet"},
	})
	require.ErrorIs(t, err, errUnknownDriver)

	// Network drivers need a DSN.
	err = Validate(&Config{
		ServerAddress: "127.0.0.1:0",
		Directory:     Directory{Driver: DriverPostgres},
	})
	require.ErrorIs(t, err, errDSNRequired)

	// Broken cron expression.
	err = Validate(&Config{
		ServerAddress: "127.0.0.1:0",
		Alert:         Alert{ResetSchedule: "every day"},
	})
	require.Error(t, err)

	// Negative durations.
	err = Validate(&Config{
		ServerAddress: "127.0.0.1:0",
		Alert:         Alert{Cooldown: -time.Second},
	})
	require.ErrorIs(t, err, errNegativeValue)
}

// TestValidate_Defaults ensures every optional field gets its documented default.
func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	settings := &Config{ServerAddress: "127.0.0.1:50051"}
	require.NoError(t, Validate(settings))

	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, DefaultCooldown, settings.Alert.Cooldown)
	require.False(t, settings.Alert.ResetClearsCooldown)
	require.Equal(t, DriverFile, settings.Directory.Driver)
	require.Equal(t, DefaultDirectoryFilename, settings.Directory.Path)
	require.Equal(t, DefaultPushTTL, settings.Push.TTL)
	require.Equal(t, DefaultPushTimeout, settings.Push.Timeout)
	require.Equal(t, DefaultParallelism, settings.Fanout.Parallelism)
	require.Equal(t, DefaultWatchInterval, settings.Watch.Interval)
	require.NotEmpty(t, settings.Messages.AlertTitle)
	require.Contains(t, settings.Messages.AlertBody, "{count}")
	require.NotEmpty(t, settings.Messages.FallbackName)

	sqlite := &Config{ServerAddress: "127.0.0.1:50051", Directory: Directory{Driver: DriverSQLite}}
	require.NoError(t, Validate(sqlite))
	require.Equal(t, DefaultSQLiteFilename, sqlite.Directory.Path)
}

// TestValidateServer requires both halves of the VAPID key pair.
func TestValidateServer(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, ValidateServer(&Config{}), ErrVAPIDKeysRequired)
	require.ErrorIs(t, ValidateServer(&Config{Push: Push{VAPIDPublicKey: "pub"}}), ErrVAPIDKeysRequired)
	require.NoError(t, ValidateServer(&Config{Push: Push{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv"}}))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		ServerAddress: "127.0.0.1:50051",
		Alert: Alert{
			Cooldown:      90 * time.Second,
			ResetSchedule: "0 22 * * *",
			MaxOpen:       30 * time.Minute,
		},
		Directory: Directory{Driver: DriverSQLite, Path: filepath.Join(dir, "subs.db")},
		Fanout:    Fanout{Parallelism: 3, RatePerSecond: 20},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.ServerAddress, loaded.ServerAddress)
	require.Equal(t, settings.Alert, loaded.Alert)
	require.Equal(t, settings.Directory, loaded.Directory)
	require.Equal(t, settings.Fanout, loaded.Fanout)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoad_EnvOverridesSecrets checks that environment variables win over the file.
func TestLoad_EnvOverridesSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	require.NoError(t, Save(path, &Config{
		ServerAddress: "127.0.0.1:50051",
		Directory:     Directory{Driver: DriverRedis, DSN: "redis://file:6379/0"},
		Push:          Push{VAPIDPublicKey: "file-public"},
	}))

	t.Setenv(EnvVAPIDPrivateKey, "env-private")
	t.Setenv(EnvDirectoryDSN, "redis://env:6379/1")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "file-public", loaded.Push.VAPIDPublicKey)
	require.Equal(t, "env-private", loaded.Push.VAPIDPrivateKey)
	require.Equal(t, "redis://env:6379/1", loaded.Directory.DSN)
}

// TestLoadDotEnv populates missing variables and ignores absent files.
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(EnvVAPIDPublicKey+"=from-dotenv\n"), DefaultFilePermissions))

	t.Setenv(EnvVAPIDPublicKey, "")
	require.NoError(t, os.Unsetenv(EnvVAPIDPublicKey))

	require.NoError(t, LoadDotEnv(envFile))
	require.Equal(t, "from-dotenv", os.Getenv(EnvVAPIDPublicKey))
}
