// Package rpc exposes a model over gRPC. Messages are structpb values, so the
// service needs no generated code.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "glucoctl.v1.Controller"

const (
	methodStep       = "/" + ServiceName + "/Step"
	methodTranscript = "/" + ServiceName + "/Transcript"
	methodInfo       = "/" + ServiceName + "/Info"
)

// #region server-interface
// ControllerServer is implemented by Server.
type ControllerServer interface {
	Step(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Transcript(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Info(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// #endregion server-interface

// #region service-desc
// ServiceDesc describes the Controller service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControllerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Step", Handler: stepHandler},
		{MethodName: "Transcript", Handler: transcriptHandler},
		{MethodName: "Info", Handler: infoHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "glucoctl/v1/controller.proto",
}

func stepHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControllerServer).Step(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodStep}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControllerServer).Step(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func transcriptHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControllerServer).Transcript(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodTranscript}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControllerServer).Transcript(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func infoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControllerServer).Info(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodInfo}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControllerServer).Info(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc
