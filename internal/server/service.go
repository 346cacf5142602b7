// ABOUTME: gRPC service description for annstore.v1.AnnotationService
// ABOUTME: Messages are structpb.Struct values, so no generated code is needed

package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "annstore.v1.AnnotationService"

// AnnotationServiceServer is the server API of the annotation service
type AnnotationServiceServer interface {
	CreateSpan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteSpan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateArc(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteArc(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReverseArc(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SplitEvent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(AnnotationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AnnotationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + name,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AnnotationServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the annotation service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnnotationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSpan", Handler: unaryHandler("CreateSpan", AnnotationServiceServer.CreateSpan)},
		{MethodName: "DeleteSpan", Handler: unaryHandler("DeleteSpan", AnnotationServiceServer.DeleteSpan)},
		{MethodName: "CreateArc", Handler: unaryHandler("CreateArc", AnnotationServiceServer.CreateArc)},
		{MethodName: "DeleteArc", Handler: unaryHandler("DeleteArc", AnnotationServiceServer.DeleteArc)},
		{MethodName: "ReverseArc", Handler: unaryHandler("ReverseArc", AnnotationServiceServer.ReverseArc)},
		{MethodName: "SplitEvent", Handler: unaryHandler("SplitEvent", AnnotationServiceServer.SplitEvent)},
		{MethodName: "GetStatus", Handler: unaryHandler("GetStatus", AnnotationServiceServer.GetStatus)},
		{MethodName: "SetStatus", Handler: unaryHandler("SetStatus", AnnotationServiceServer.SetStatus)},
		{MethodName: "GetDocument", Handler: unaryHandler("GetDocument", AnnotationServiceServer.GetDocument)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "annstore/v1/annotation.proto",
}

// RegisterAnnotationServiceServer registers srv with s
func RegisterAnnotationServiceServer(s grpc.ServiceRegistrar, srv AnnotationServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the annotation service
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a client over an established connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method (e.g. "CreateSpan") with req
func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
