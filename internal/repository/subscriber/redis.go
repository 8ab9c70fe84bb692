package subscriber

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/help-alert/internal/domain/subscriber"
	"github.com/oshokin/help-alert/internal/logger"
)

// DefaultRedisKey is the hash holding one field per subscriber address.
const DefaultRedisKey = "help-alert:subscribers"

// RedisDirectory stores subscribers as fields of a single Redis hash.
type RedisDirectory struct {
	client *redis.Client
	key    string
}

// OpenRedis parses a redis:// or rediss:// URL, connects and pings.
func OpenRedis(ctx context.Context, redisURL string) (*RedisDirectory, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 1 * time.Second

	if opts.TLSConfig == nil && strings.HasPrefix(redisURL, "rediss://") {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping redis: %w", domain.ErrUnavailable, err)
	}

	return NewRedisDirectory(client, DefaultRedisKey), nil
}

// NewRedisDirectory wraps an existing client. An empty key uses DefaultRedisKey.
func NewRedisDirectory(client *redis.Client, key string) *RedisDirectory {
	if key == "" {
		key = DefaultRedisKey
	}

	return &RedisDirectory{
		client: client,
		key:    key,
	}
}

// ListAll returns subscribers ordered by address; hash order is unspecified.
// Fields that cannot be decoded are logged and left out.
func (d *RedisDirectory) ListAll(ctx context.Context) ([]domain.Record, error) {
	fields, err := d.client.HGetAll(ctx, d.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list subscribers: %w", domain.ErrUnavailable, err)
	}

	result := make([]domain.Record, 0, len(fields))

	for address, raw := range fields {
		record, err := decodeRedisRecord(address, raw)
		if err != nil {
			logger.WarnKV(ctx, "Skipping undecodable subscriber", "address", address, "error", err)
			continue
		}

		result = append(result, record)
	}

	slices.SortFunc(result, func(a, b domain.Record) int {
		return strings.Compare(a.Address, b.Address)
	})

	return result, nil
}

// Upsert writes the field; HSET reports whether the field was new.
func (d *RedisDirectory) Upsert(
	ctx context.Context,
	deviceName, address string,
	credentials []byte,
) (domain.UpsertResult, error) {
	if err := domain.Validate(address, credentials); err != nil {
		return "", err
	}

	raw, err := yaml.Marshal(fileRecord{
		DeviceName:  deviceName,
		Address:     address,
		Credentials: string(credentials),
	})
	if err != nil {
		return "", fmt.Errorf("encode subscriber: %w", err)
	}

	added, err := d.client.HSet(ctx, d.key, address, raw).Result()
	if err != nil {
		return "", fmt.Errorf("%w: upsert subscriber: %w", domain.ErrUnavailable, err)
	}

	if added > 0 {
		return domain.Created, nil
	}

	return domain.Updated, nil
}

// FindByAddress returns domain.ErrNotFound for unknown addresses.
func (d *RedisDirectory) FindByAddress(ctx context.Context, address string) (*domain.Record, error) {
	raw, err := d.client.HGet(ctx, d.key, address).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}

		return nil, fmt.Errorf("%w: find subscriber: %w", domain.ErrUnavailable, err)
	}

	record, err := decodeRedisRecord(address, raw)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// DeleteByAddress removes the field if present.
func (d *RedisDirectory) DeleteByAddress(ctx context.Context, address string) error {
	if err := d.client.HDel(ctx, d.key, address).Err(); err != nil {
		return fmt.Errorf("%w: delete subscriber: %w", domain.ErrUnavailable, err)
	}

	return nil
}

// Close releases the client connections.
func (d *RedisDirectory) Close() error {
	return d.client.Close()
}

// decodeRedisRecord trusts the hash field over the stored address.
func decodeRedisRecord(address, raw string) (domain.Record, error) {
	var r fileRecord
	if err := yaml.Unmarshal([]byte(raw), &r); err != nil {
		return domain.Record{}, fmt.Errorf("%w: decode subscriber %q: %w", domain.ErrUnavailable, address, err)
	}

	r.Address = address

	return r.toDomain(), nil
}
