// Package grpcapi is the optional gRPC control-plane adapter (spec.md
// §11's grpc/protobuf entry): it exposes the mqi.Client facade to remote
// callers. The service methods exchange google.golang.org/protobuf's
// well-known structpb.Struct rather than a bespoke generated message set,
// since every MQI payload (engine options, a goal string, a timeout) is a
// small, loosely-typed bag of fields. The ServiceDesc/handler wiring below
// is written by hand in the same shape protoc-gen-go-grpc emits.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// MQIControlPlaneServer is the server API for the control-plane service.
type MQIControlPlaneServer interface {
	LaunchEngine(context.Context, *structpb.Struct) (*structpb.Struct, error)
	OpenSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunSync(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunAsync(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Poll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Cancel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ShutdownEngine(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedMQIControlPlaneServer embeds into a concrete server to
// satisfy forward compatibility (protoc-gen-go-grpc's own convention):
// new methods added here default to Unimplemented instead of a compile
// break for existing implementers.
type UnimplementedMQIControlPlaneServer struct{}

func (UnimplementedMQIControlPlaneServer) LaunchEngine(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, errUnimplemented("LaunchEngine")
}
func (UnimplementedMQIControlPlaneServer) OpenSession(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, errUnimplemented("OpenSession")
}
func (UnimplementedMQIControlPlaneServer) RunSync(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, errUnimplemented("RunSync")
}
func (UnimplementedMQIControlPlaneServer) RunAsync(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, errUnimplemented("RunAsync")
}
func (UnimplementedMQIControlPlaneServer) Poll(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, errUnimplemented("Poll")
}
func (UnimplementedMQIControlPlaneServer) Cancel(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, errUnimplemented("Cancel")
}
func (UnimplementedMQIControlPlaneServer) CloseSession(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, errUnimplemented("CloseSession")
}
func (UnimplementedMQIControlPlaneServer) ShutdownEngine(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, errUnimplemented("ShutdownEngine")
}

func _MQIControlPlane_LaunchEngine_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MQIControlPlaneServer).LaunchEngine(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mqi.MQIControlPlane/LaunchEngine"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MQIControlPlaneServer).LaunchEngine(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _MQIControlPlane_OpenSession_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MQIControlPlaneServer).OpenSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mqi.MQIControlPlane/OpenSession"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MQIControlPlaneServer).OpenSession(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _MQIControlPlane_RunSync_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MQIControlPlaneServer).RunSync(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mqi.MQIControlPlane/RunSync"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MQIControlPlaneServer).RunSync(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _MQIControlPlane_RunAsync_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MQIControlPlaneServer).RunAsync(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mqi.MQIControlPlane/RunAsync"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MQIControlPlaneServer).RunAsync(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _MQIControlPlane_Poll_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MQIControlPlaneServer).Poll(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mqi.MQIControlPlane/Poll"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MQIControlPlaneServer).Poll(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _MQIControlPlane_Cancel_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MQIControlPlaneServer).Cancel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mqi.MQIControlPlane/Cancel"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MQIControlPlaneServer).Cancel(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _MQIControlPlane_CloseSession_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MQIControlPlaneServer).CloseSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mqi.MQIControlPlane/CloseSession"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MQIControlPlaneServer).CloseSession(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _MQIControlPlane_ShutdownEngine_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MQIControlPlaneServer).ShutdownEngine(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mqi.MQIControlPlane/ShutdownEngine"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MQIControlPlaneServer).ShutdownEngine(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// MQIControlPlane_ServiceDesc is the grpc.ServiceDesc for this service,
// suitable for registration with a *grpc.Server.
var MQIControlPlane_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "mqi.MQIControlPlane",
	HandlerType: (*MQIControlPlaneServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "LaunchEngine", Handler: _MQIControlPlane_LaunchEngine_Handler},
		{MethodName: "OpenSession", Handler: _MQIControlPlane_OpenSession_Handler},
		{MethodName: "RunSync", Handler: _MQIControlPlane_RunSync_Handler},
		{MethodName: "RunAsync", Handler: _MQIControlPlane_RunAsync_Handler},
		{MethodName: "Poll", Handler: _MQIControlPlane_Poll_Handler},
		{MethodName: "Cancel", Handler: _MQIControlPlane_Cancel_Handler},
		{MethodName: "CloseSession", Handler: _MQIControlPlane_CloseSession_Handler},
		{MethodName: "ShutdownEngine", Handler: _MQIControlPlane_ShutdownEngine_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mqi_control_plane.proto",
}

// RegisterMQIControlPlaneServer registers srv with s.
func RegisterMQIControlPlaneServer(s grpc.ServiceRegistrar, srv MQIControlPlaneServer) {
	s.RegisterService(&MQIControlPlane_ServiceDesc, srv)
}

type unimplementedError string

func (e unimplementedError) Error() string { return "grpcapi: method " + string(e) + " not implemented" }

func errUnimplemented(method string) error { return unimplementedError(method) }
