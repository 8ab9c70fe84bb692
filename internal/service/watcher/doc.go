// Package watcher is a trigger source: it polls a count and asks the server
// for help while the count is at or above a threshold.
package watcher
