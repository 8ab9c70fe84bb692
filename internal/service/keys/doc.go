// Package keys generates the VAPID key pair the server signs pushes with.
package keys
