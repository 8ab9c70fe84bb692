// Package webpush delivers alert payloads to browsers through the Web Push
// protocol with VAPID authentication.
package webpush
