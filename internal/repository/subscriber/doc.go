// Package subscriber implements the subscriber Directory backends: a YAML
// file, SQLite, PostgreSQL, Redis and an in-memory store. Open picks one from
// the directory settings.
//
// Failures to reach the backing store are wrapped with
// subscriber.ErrUnavailable from the domain package.
package subscriber
