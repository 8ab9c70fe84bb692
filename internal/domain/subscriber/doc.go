// Package subscriber defines the subscriber record and the Directory
// contract the alert coordinator consumes. Backends live in
// internal/repository/subscriber.
package subscriber
