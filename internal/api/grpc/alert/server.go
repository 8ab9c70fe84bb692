package alert

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/help-alert/internal/domain/alert"
	"github.com/oshokin/help-alert/internal/domain/subscriber"
	"github.com/oshokin/help-alert/internal/logger"
	pb "github.com/oshokin/help-alert/internal/pb/v1"
	service "github.com/oshokin/help-alert/internal/service/alert"
)

// Field names of the Struct messages.
const (
	FieldStatus           = "status"
	FieldReason           = "reason"
	FieldAlertID          = "alert_id"
	FieldAttempted        = "attempted"
	FieldPruned           = "pruned"
	FieldResponder        = "responder"
	FieldUnknownResponder = "unknown_responder"
	FieldPhase            = "phase"
	FieldLastNotifyTime   = "last_notify_time"
	FieldDeviceName       = "device_name"
	FieldAddress          = "address"
	FieldCredentials      = "credentials"
)

// Notify statuses.
const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Notify(ctx context.Context, count int) (domain.DispatchResult, error)
	Respond(ctx context.Context, address string) (domain.ResponseResult, error)
	Reset(ctx context.Context)
	State(ctx context.Context) domain.State
	Subscribe(ctx context.Context, deviceName, address string, credentials []byte) (subscriber.UpsertResult, error)
	Unsubscribe(ctx context.Context, address string) error
}

// Server implements the AlertService gRPC API.
type Server struct {
	pb.UnimplementedAlertServiceServer

	// service provides the alert business logic.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Notify reports a trigger with the current count.
func (s *Server) Notify(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := s.service.Notify(ctx, int(req.GetValue()))
	if err != nil {
		return nil, toStatus(ctx, "notify", err)
	}

	fields := map[string]any{
		FieldStatus:    StatusSkipped,
		FieldAlertID:   result.AlertID,
		FieldAttempted: result.Delivery.Attempted,
		FieldPruned:    stringList(result.Delivery.Pruned),
	}

	if result.Sent {
		fields[FieldStatus] = StatusSent
	} else {
		fields[FieldReason] = string(result.Reason)
	}

	return newStruct(fields)
}

// Respond accepts the open alert on behalf of the subscriber at the given address.
func (s *Server) Respond(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "responder address is required")
	}

	result, err := s.service.Respond(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(ctx, "respond", err)
	}

	fields := map[string]any{
		FieldStatus:           string(result.Status),
		FieldAlertID:          result.AlertID,
		FieldUnknownResponder: result.UnknownResponder,
		FieldAttempted:        result.Delivery.Attempted,
	}

	if result.Responder != nil {
		fields[FieldResponder] = result.Responder.DeviceName
	}

	return newStruct(fields)
}

// Reset returns the alert to idle.
func (s *Server) Reset(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.service.Reset(ctx)

	return new(emptypb.Empty), nil
}

// GetState returns the current alert state.
func (s *Server) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	state := s.service.State(ctx)

	fields := map[string]any{
		FieldPhase:   state.Phase.String(),
		FieldAlertID: state.AlertID,
	}

	if state.Responder != nil {
		fields[FieldResponder] = state.Responder.DeviceName
		fields[FieldAddress] = state.Responder.Address
	}

	if !state.LastNotifyTime.IsZero() {
		fields[FieldLastNotifyTime] = state.LastNotifyTime.UTC().Format(time.RFC3339Nano)
	}

	return newStruct(fields)
}

// Subscribe registers a device.
func (s *Server) Subscribe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	address := fields[FieldAddress].GetStringValue()
	credentials := fields[FieldCredentials].GetStringValue()

	if address == "" || credentials == "" {
		return nil, status.Error(codes.InvalidArgument, "address and credentials are required")
	}

	result, err := s.service.Subscribe(ctx, fields[FieldDeviceName].GetStringValue(), address, []byte(credentials))
	if err != nil {
		return nil, toStatus(ctx, "subscribe", err)
	}

	return newStruct(map[string]any{FieldStatus: string(result)})
}

// Unsubscribe removes a device.
func (s *Server) Unsubscribe(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "address is required")
	}

	if err := s.service.Unsubscribe(ctx, req.GetValue()); err != nil {
		return nil, toStatus(ctx, "unsubscribe", err)
	}

	return new(emptypb.Empty), nil
}

// toStatus maps domain errors to gRPC codes and logs unexpected ones.
func toStatus(ctx context.Context, operation string, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, subscriber.ErrInvalidRecord):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, subscriber.ErrUnavailable):
		logger.ErrorKV(ctx, "Subscriber directory unavailable", "operation", operation, "error", err)
		return status.Error(codes.Unavailable, "subscriber directory unavailable")
	default:
		logger.ErrorKV(ctx, "Request failed", "operation", operation, "error", err)
		return status.Error(codes.Internal, "unable to process "+operation)
	}
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	result, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode response")
	}

	return result, nil
}

// stringList converts to the []any form structpb accepts.
func stringList(values []string) []any {
	result := make([]any, 0, len(values))
	for _, v := range values {
		result = append(result, v)
	}

	return result
}
