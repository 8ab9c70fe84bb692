// Package client runs the one-shot help-alert commands.
//
// Each command connects to the alert server, performs a single call and
// prints the result, optionally retrying until the server answers.
package client
