package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "helpalert.v1.AlertService"

// Full method names of AlertService.
const (
	AlertServiceNotifyFullMethodName      = "/" + ServiceName + "/Notify"
	AlertServiceRespondFullMethodName     = "/" + ServiceName + "/Respond"
	AlertServiceResetFullMethodName       = "/" + ServiceName + "/Reset"
	AlertServiceGetStateFullMethodName    = "/" + ServiceName + "/GetState"
	AlertServiceSubscribeFullMethodName   = "/" + ServiceName + "/Subscribe"
	AlertServiceUnsubscribeFullMethodName = "/" + ServiceName + "/Unsubscribe"
)

// AlertServiceClient is the client API for AlertService.
type AlertServiceClient interface {
	Notify(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*structpb.Struct, error)
	Respond(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Reset(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Subscribe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Unsubscribe(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type alertServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAlertServiceClient creates a client bound to the connection.
func NewAlertServiceClient(cc grpc.ClientConnInterface) AlertServiceClient {
	return &alertServiceClient{cc: cc}
}

func (c *alertServiceClient) Notify(
	ctx context.Context,
	in *wrapperspb.Int64Value,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlertServiceNotifyFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alertServiceClient) Respond(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlertServiceRespondFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alertServiceClient) Reset(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, AlertServiceResetFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alertServiceClient) GetState(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlertServiceGetStateFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alertServiceClient) Subscribe(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlertServiceSubscribeFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alertServiceClient) Unsubscribe(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, AlertServiceUnsubscribeFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// AlertServiceServer is the server API for AlertService.
// Implementations must embed UnimplementedAlertServiceServer.
type AlertServiceServer interface {
	Notify(ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error)
	Respond(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
	Reset(ctx context.Context, in *emptypb.Empty) (*emptypb.Empty, error)
	GetState(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	Subscribe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Unsubscribe(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error)
	mustEmbedUnimplementedAlertServiceServer()
}

// UnimplementedAlertServiceServer answers every method with codes.Unimplemented.
type UnimplementedAlertServiceServer struct{}

func (UnimplementedAlertServiceServer) Notify(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Notify not implemented")
}

func (UnimplementedAlertServiceServer) Respond(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Respond not implemented")
}

func (UnimplementedAlertServiceServer) Reset(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Reset not implemented")
}

func (UnimplementedAlertServiceServer) GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetState not implemented")
}

func (UnimplementedAlertServiceServer) Subscribe(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Subscribe not implemented")
}

func (UnimplementedAlertServiceServer) Unsubscribe(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Unsubscribe not implemented")
}

func (UnimplementedAlertServiceServer) mustEmbedUnimplementedAlertServiceServer() {}

// RegisterAlertServiceServer registers srv on s.
func RegisterAlertServiceServer(s grpc.ServiceRegistrar, srv AlertServiceServer) {
	s.RegisterService(&AlertServiceDesc, srv)
}

// AlertServiceDesc describes AlertService for grpc.ServiceRegistrar.
// Messages are protobuf well-known types, so no generated code is needed.
var AlertServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlertServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Notify",
			Handler:    unaryHandler(AlertServiceNotifyFullMethodName, AlertServiceServer.Notify),
		},
		{
			MethodName: "Respond",
			Handler:    unaryHandler(AlertServiceRespondFullMethodName, AlertServiceServer.Respond),
		},
		{
			MethodName: "Reset",
			Handler:    unaryHandler(AlertServiceResetFullMethodName, AlertServiceServer.Reset),
		},
		{
			MethodName: "GetState",
			Handler:    unaryHandler(AlertServiceGetStateFullMethodName, AlertServiceServer.GetState),
		},
		{
			MethodName: "Subscribe",
			Handler:    unaryHandler(AlertServiceSubscribeFullMethodName, AlertServiceServer.Subscribe),
		},
		{
			MethodName: "Unsubscribe",
			Handler:    unaryHandler(AlertServiceUnsubscribeFullMethodName, AlertServiceServer.Unsubscribe),
		},
	},
	Streams: []grpc.StreamDesc{},
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(AlertServiceServer, context.Context, *Req) (Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(AlertServiceServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*Req)
			return call(server, ctx, typed)
		}

		return interceptor(ctx, in, info, handler)
	}
}
