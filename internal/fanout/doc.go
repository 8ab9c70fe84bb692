// Package fanout delivers one payload to a list of subscribers and reconciles
// permanent delivery failures with the subscriber directory.
//
// Expired addresses are collected during the pass and deleted by address once
// the pass is over, so concurrent registrations that reorder the directory
// cannot make the wrong record disappear.
package fanout
