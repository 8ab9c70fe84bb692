// Package alert implements the gRPC transport for the help alert service.
//
// It converts between the protobuf well-known messages used on the wire and
// domain types, and maps domain errors to gRPC status codes.
package alert
