// Package logger wraps zap with a process-wide sugared logger and context
// helpers (ToContext/FromContext/WithName/WithKV).
//
// Services never hold a logger field: they take a context and log through the
// package functions, so names and key-value pairs attached upstream (request
// method, alert id) follow the call down into fan-out.
package logger
