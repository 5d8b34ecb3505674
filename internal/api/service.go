package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The LocalStorage service is described by hand rather than generated:
// every message is a protobuf well-known type, so no .proto compilation is
// needed.
const (
	serviceName = "localstore.v1.LocalStorage"

	methodInitialize = "/" + serviceName + "/Initialize"
	methodSet        = "/" + serviceName + "/Set"
	methodRemove     = "/" + serviceName + "/Remove"
	methodClear      = "/" + serviceName + "/Clear"
	methodGet        = "/" + serviceName + "/Get"
	methodGetAll     = "/" + serviceName + "/GetAll"
)

// LocalStorageServer is the server API for the LocalStorage service.
type LocalStorageServer interface {
	Initialize(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Set(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Remove(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	Clear(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Get(context.Context, *wrapperspb.StringValue) (*structpb.Value, error)
	GetAll(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterLocalStorageServer registers srv on s.
func RegisterLocalStorageServer(s grpc.ServiceRegistrar, srv LocalStorageServer) {
	s.RegisterService(&LocalStorageServiceDesc, srv)
}

// LocalStorageServiceDesc is the grpc.ServiceDesc for the LocalStorage service.
var LocalStorageServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*LocalStorageServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Initialize", Handler: initializeHandler},
		{MethodName: "Set", Handler: setHandler},
		{MethodName: "Remove", Handler: removeHandler},
		{MethodName: "Clear", Handler: clearHandler},
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "GetAll", Handler: getAllHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "localstore/v1/localstore.proto",
}

func initializeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LocalStorageServer).Initialize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodInitialize}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LocalStorageServer).Initialize(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func setHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LocalStorageServer).Set(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSet}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LocalStorageServer).Set(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func removeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LocalStorageServer).Remove(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRemove}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LocalStorageServer).Remove(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func clearHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LocalStorageServer).Clear(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodClear}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LocalStorageServer).Clear(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LocalStorageServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGet}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LocalStorageServer).Get(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getAllHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LocalStorageServer).GetAll(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetAll}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LocalStorageServer).GetAll(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
