// Package pb declares the helpalert.v1.AlertService gRPC API.
//
// Requests and responses are protobuf well-known types (wrappers, Struct and
// Empty), so the service descriptor, client and server stubs are written by
// hand instead of being generated from a .proto file.
package pb
