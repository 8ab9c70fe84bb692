// Package push defines the message sent to subscribers and the Dispatcher
// contract that delivers it to one delivery address.
package push
