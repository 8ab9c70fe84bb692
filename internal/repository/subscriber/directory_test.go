package subscriber

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/help-alert/internal/config"
	domain "github.com/oshokin/help-alert/internal/domain/subscriber"
)

// exerciseDirectory runs the behaviour every backend must share.
func exerciseDirectory(t *testing.T, d domain.Directory) {
	t.Helper()

	ctx := context.Background()

	// Empty directory.
	all, err := d.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	_, err = d.FindByAddress(ctx, "https://push.example.com/a")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Create two, update one.
	res, err := d.Upsert(ctx, "Front desk", "https://push.example.com/a", []byte(`{"endpoint":"a"}`))
	require.NoError(t, err)
	require.Equal(t, domain.Created, res)

	res, err = d.Upsert(ctx, "Kitchen", "https://push.example.com/b", []byte(`{"endpoint":"b"}`))
	require.NoError(t, err)
	require.Equal(t, domain.Created, res)

	res, err = d.Upsert(ctx, "Front desk 2", "https://push.example.com/a", []byte(`{"endpoint":"a2"}`))
	require.NoError(t, err)
	require.Equal(t, domain.Updated, res)

	got, err := d.FindByAddress(ctx, "https://push.example.com/a")
	require.NoError(t, err)
	require.Equal(t, "Front desk 2", got.DeviceName)
	require.Equal(t, []byte(`{"endpoint":"a2"}`), got.Credentials)

	all, err = d.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.ElementsMatch(t,
		[]string{"https://push.example.com/a", "https://push.example.com/b"},
		[]string{all[0].Address, all[1].Address},
	)

	// Invalid records are rejected.
	_, err = d.Upsert(ctx, "No address", "", []byte("x"))
	require.ErrorIs(t, err, domain.ErrInvalidRecord)

	// Delete by address, twice.
	require.NoError(t, d.DeleteByAddress(ctx, "https://push.example.com/a"))
	require.NoError(t, d.DeleteByAddress(ctx, "https://push.example.com/a"))

	all, err = d.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "https://push.example.com/b", all[0].Address)
	require.Equal(t, "Kitchen", all[0].DeviceName)
}

// TestMemoryDirectory checks the in-memory backend against the shared contract.
func TestMemoryDirectory(t *testing.T) {
	t.Parallel()

	exerciseDirectory(t, NewMemoryDirectory())
}

// TestMemoryDirectory_KeepsRegistrationOrder verifies updates stay in place.
func TestMemoryDirectory_KeepsRegistrationOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := NewMemoryDirectory(
		domain.Record{Address: "a", Credentials: []byte("1")},
		domain.Record{Address: "b", Credentials: []byte("2")},
	)

	_, err := d.Upsert(ctx, "renamed", "a", []byte("3"))
	require.NoError(t, err)

	all, err := d.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", all[0].Address)
	require.Equal(t, "renamed", all[0].DeviceName)
}

// TestFileDirectory checks the YAML backend and that data survives a new instance.
func TestFileDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "subscribers.yaml")
	exerciseDirectory(t, NewFileDirectory(path))

	reopened := NewFileDirectory(path)

	all, err := reopened.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, []byte(`{"endpoint":"b"}`), all[0].Credentials)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(config.DefaultFilePermissions), info.Mode().Perm())
}

// TestFileDirectory_CorruptFile reports the directory as unavailable.
func TestFileDirectory_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "subscribers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subscribers: [unterminated"), config.DefaultFilePermissions))

	_, err := NewFileDirectory(path).ListAll(context.Background())
	require.ErrorIs(t, err, domain.ErrUnavailable)
}

// TestSQLiteDirectory checks the SQLite backend on a temporary database file.
func TestSQLiteDirectory(t *testing.T) {
	t.Parallel()

	d, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "subscribers.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = d.Close()
	})

	exerciseDirectory(t, d)
}

// TestRedisDirectory checks the Redis backend against an in-process server.
func TestRedisDirectory(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	d := NewRedisDirectory(client, "")

	t.Cleanup(func() {
		_ = d.Close()
	})

	exerciseDirectory(t, d)

	require.True(t, server.Exists(DefaultRedisKey))
}

// TestRedisDirectory_SkipsCorruptRecord keeps listing when one field is garbage.
func TestRedisDirectory_SkipsCorruptRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	d := NewRedisDirectory(client, "test:subscribers")

	t.Cleanup(func() {
		_ = d.Close()
	})

	_, err := d.Upsert(ctx, "Anna", "addrA", []byte("a"))
	require.NoError(t, err)

	server.HSet("test:subscribers", "addrBroken", "[unterminated")

	records, err := d.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "addrA", records[0].Address)
}

// TestRedisDirectory_Unreachable wraps connection failures as unavailable.
func TestRedisDirectory_Unreachable(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	d := NewRedisDirectory(client, "test:subscribers")

	server.Close()

	_, err := d.ListAll(context.Background())
	require.ErrorIs(t, err, domain.ErrUnavailable)
}

// TestOpen selects backends by driver name.
func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	store, err := Open(ctx, config.Directory{Driver: config.DriverFile, Path: filepath.Join(dir, "s.yaml")})
	require.NoError(t, err)
	require.IsType(t, &FileDirectory{}, store)

	store, err = Open(ctx, config.Directory{Driver: config.DriverMemory})
	require.NoError(t, err)
	require.IsType(t, &MemoryDirectory{}, store)

	store, err = Open(ctx, config.Directory{Driver: config.DriverSQLite, Path: filepath.Join(dir, "s.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLiteDirectory{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, config.Directory{Driver: "spreadsheet"})
	require.Error(t, err)
}
