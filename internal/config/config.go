package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the help-alert binaries.
type Config struct {
	// ServerAddress is the gRPC address of the alert server.
	ServerAddress string `yaml:"server_addr"`
	// Timeout bounds each RPC made by the command line clients.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level written by the logger.
	LogLevel string `yaml:"log_level"`
	// Alert tunes the coordination state machine.
	Alert Alert `yaml:"alert"`
	// Directory selects where subscribers are stored.
	Directory Directory `yaml:"directory"`
	// Push holds Web Push delivery settings.
	Push Push `yaml:"push"`
	// Fanout bounds concurrency and rate of deliveries.
	Fanout Fanout `yaml:"fanout"`
	// Messages are the texts shown on subscriber devices.
	Messages Messages `yaml:"messages"`
	// Watch configures the help-alert-watch trigger source.
	Watch Watch `yaml:"watch"`
}

// Alert tunes the state machine.
type Alert struct {
	// Cooldown is the minimum interval between two alert openings.
	Cooldown time.Duration `yaml:"cooldown"`
	// ResetClearsCooldown lets a reset allow an immediate new alert.
	ResetClearsCooldown bool `yaml:"reset_clears_cooldown"`
	// ResetSchedule is an optional cron expression that resets the alert.
	ResetSchedule string `yaml:"reset_schedule"`
	// MaxOpen resets an alert left open longer than this; zero disables it.
	MaxOpen time.Duration `yaml:"max_open"`
}

// Directory selects the subscriber store backend.
type Directory struct {
	// Driver is one of file, sqlite, postgres, redis, memory.
	Driver string `yaml:"driver"`
	// Path is the file used by the file and sqlite drivers.
	Path string `yaml:"path"`
	// DSN is the connection string for the postgres and redis drivers.
	DSN string `yaml:"dsn"`
}

// Push holds Web Push delivery settings.
type Push struct {
	// VAPIDPublicKey is the application server public key handed to browsers.
	VAPIDPublicKey string `yaml:"vapid_public_key"`
	// VAPIDPrivateKey signs the VAPID token; prefer the environment variable.
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	// Subscriber is the contact (mailto: or https: URL) sent to push services.
	Subscriber string `yaml:"subscriber"`
	// TTL is how long a push service keeps an undelivered message.
	TTL time.Duration `yaml:"ttl"`
	// Timeout bounds one delivery.
	Timeout time.Duration `yaml:"timeout"`
}

// Fanout bounds deliveries.
type Fanout struct {
	// Parallelism is the number of concurrent sends.
	Parallelism int `yaml:"parallelism"`
	// RatePerSecond caps outbound sends; zero means unlimited.
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// Messages are the templates for device notifications.
// {count} and {responder} are substituted.
type Messages struct {
	AlertTitle           string `yaml:"alert_title"`
	AlertBody            string `yaml:"alert_body"`
	AcceptedTitle        string `yaml:"accepted_title"`
	AcceptedBody         string `yaml:"accepted_body"`
	AlreadyHandledTitle  string `yaml:"already_handled_title"`
	AlreadyHandledBody   string `yaml:"already_handled_body"`
	AlreadyResolvedTitle string `yaml:"already_resolved_title"`
	AlreadyResolvedBody  string `yaml:"already_resolved_body"`
	// FallbackName replaces the responder name when the directory has no record.
	FallbackName string `yaml:"fallback_name"`
	// URL is opened when the notification is clicked.
	URL string `yaml:"url"`
}

// Watch configures the polling trigger source.
type Watch struct {
	// CountFile holds the current count as a decimal integer.
	CountFile string `yaml:"count_file"`
	// Threshold is the count at or above which help is requested.
	Threshold int `yaml:"threshold"`
	// Interval is the polling period.
	Interval time.Duration `yaml:"interval"`
}

// Supported directory drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "help-alert-settings.yaml"

	// DefaultDirectoryFilename is the default subscriber file for the file driver.
	DefaultDirectoryFilename = "help-alert-subscribers.yaml"

	// DefaultSQLiteFilename is the default database file for the sqlite driver.
	DefaultSQLiteFilename = "help-alert.db"

	// DefaultTimeout is the default duration for RPC calls.
	DefaultTimeout = 5 * time.Second

	// DefaultCooldown is the default minimum interval between alerts.
	DefaultCooldown = 60 * time.Second

	// DefaultPushTTL is how long push services keep an undelivered alert.
	DefaultPushTTL = 10 * time.Minute

	// DefaultPushTimeout bounds a single delivery.
	DefaultPushTimeout = 10 * time.Second

	// DefaultParallelism is the default number of concurrent deliveries.
	DefaultParallelism = 8

	// DefaultWatchInterval is the default polling period of the watcher.
	DefaultWatchInterval = 5 * time.Second

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600
)

// Environment variables that override secrets from the YAML file.
const (
	EnvVAPIDPublicKey  = "HELP_ALERT_VAPID_PUBLIC_KEY"
	EnvVAPIDPrivateKey = "HELP_ALERT_VAPID_PRIVATE_KEY"
	EnvDirectoryDSN    = "HELP_ALERT_DIRECTORY_DSN"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errUnknownDriver is returned for an unsupported directory driver.
	errUnknownDriver = errors.New("unknown directory driver")
	// errDSNRequired is returned when a network driver has no DSN.
	errDSNRequired = errors.New("directory dsn must be provided")
	// errNegativeValue is returned for negative durations or counts.
	errNegativeValue = errors.New("value must not be negative")

	// ErrVAPIDKeysRequired is returned by the server when push keys are missing.
	ErrVAPIDKeysRequired = errors.New("vapid key pair must be provided")
)

// Load reads configuration from the provided path, applies environment
// overrides and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	ApplyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDotEnv loads variables from .env files without overriding the process
// environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	existing := make([]string, 0, len(paths))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}

	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}

	return nil
}

// ApplyEnv overrides secrets with non-empty environment variables.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvVAPIDPublicKey); v != "" {
		cfg.Push.VAPIDPublicKey = v
	}

	if v := os.Getenv(EnvVAPIDPrivateKey); v != "" {
		cfg.Push.VAPIDPrivateKey = v
	}

	if v := os.Getenv(EnvDirectoryDSN); v != "" {
		cfg.Directory.DSN = v
	}
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the file may carry the VAPID private key.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if err := validateAlert(&settings.Alert); err != nil {
		return err
	}

	if err := validateDirectory(&settings.Directory); err != nil {
		return err
	}

	if err := validatePush(&settings.Push); err != nil {
		return err
	}

	if settings.Fanout.Parallelism <= 0 {
		settings.Fanout.Parallelism = DefaultParallelism
	}

	if settings.Fanout.RatePerSecond < 0 {
		return fmt.Errorf("fanout rate_per_second: %w", errNegativeValue)
	}

	settings.Messages.applyDefaults()

	if settings.Messages.URL != "" {
		if _, err := url.ParseRequestURI(settings.Messages.URL); err != nil {
			return fmt.Errorf("invalid messages url: %w", err)
		}
	}

	if settings.Watch.Interval <= 0 {
		settings.Watch.Interval = DefaultWatchInterval
	}

	if settings.Watch.Threshold < 0 {
		return fmt.Errorf("watch threshold: %w", errNegativeValue)
	}

	return nil
}

// ValidateServer checks the settings only the server needs.
func ValidateServer(settings *Config) error {
	if settings.Push.VAPIDPublicKey == "" || settings.Push.VAPIDPrivateKey == "" {
		return ErrVAPIDKeysRequired
	}

	return nil
}

func validateAlert(a *Alert) error {
	if a.Cooldown < 0 || a.MaxOpen < 0 {
		return fmt.Errorf("alert durations: %w", errNegativeValue)
	}

	if a.Cooldown == 0 {
		a.Cooldown = DefaultCooldown
	}

	if a.ResetSchedule != "" {
		if _, err := cron.ParseStandard(a.ResetSchedule); err != nil {
			return fmt.Errorf("invalid reset schedule: %w", err)
		}
	}

	return nil
}

func validateDirectory(d *Directory) error {
	if d.Driver == "" {
		d.Driver = DriverFile
	}

	if !slices.Contains([]string{DriverFile, DriverSQLite, DriverPostgres, DriverRedis, DriverMemory}, d.Driver) {
		return fmt.Errorf("%w: %q", errUnknownDriver, d.Driver)
	}

	switch d.Driver {
	case DriverFile:
		if d.Path == "" {
			d.Path = DefaultDirectoryFilename
		}
	case DriverSQLite:
		if d.Path == "" {
			d.Path = DefaultSQLiteFilename
		}
	case DriverPostgres, DriverRedis:
		if d.DSN == "" {
			return fmt.Errorf("%s: %w", d.Driver, errDSNRequired)
		}
	}

	return nil
}

func validatePush(p *Push) error {
	if p.TTL < 0 || p.Timeout < 0 {
		return fmt.Errorf("push durations: %w", errNegativeValue)
	}

	if p.TTL == 0 {
		p.TTL = DefaultPushTTL
	}

	if p.Timeout == 0 {
		p.Timeout = DefaultPushTimeout
	}

	return nil
}

func (m *Messages) applyDefaults() {
	setDefault(&m.AlertTitle, "Help needed")
	setDefault(&m.AlertBody, "{count} people are waiting. Can you help?")
	setDefault(&m.AcceptedTitle, "Help is on the way")
	setDefault(&m.AcceptedBody, "{responder} is taking care of it.")
	setDefault(&m.AlreadyHandledTitle, "Already taken")
	setDefault(&m.AlreadyHandledBody, "{responder} accepted first. Thank you!")
	setDefault(&m.AlreadyResolvedTitle, "All clear")
	setDefault(&m.AlreadyResolvedBody, "The request is already resolved.")
	setDefault(&m.FallbackName, "A colleague")
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
