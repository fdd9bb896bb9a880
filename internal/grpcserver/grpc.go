package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"shinydex/internal/apperr"
)

const ServiceName = "shinydex.v1.CatalogService"

// CatalogServer is the gRPC view of the service. Messages are
// google.protobuf.Struct so no generated code is needed.
type CatalogServer interface {
	ListPokemon(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPokemon(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCaptures(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(CatalogServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CatalogServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CatalogServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		methodHandler("ListPokemon", CatalogServer.ListPokemon),
		methodHandler("GetPokemon", CatalogServer.GetPokemon),
		methodHandler("ListCaptures", CatalogServer.ListCaptures),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shinydex/v1/catalog.proto",
}

// grpcServer turns apperr errors into status errors.
type grpcServer struct {
	s *Server
}

func (g grpcServer) ListPokemon(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return toStatus(g.s.ListPokemon(ctx, req))
}

func (g grpcServer) GetPokemon(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return toStatus(g.s.GetPokemon(ctx, req))
}

func (g grpcServer) ListCaptures(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return toStatus(g.s.ListCaptures(ctx, req))
}

func toStatus(out *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Error(apperr.GRPCCode(err), apperr.Message(err))
	}
	return out, nil
}

// Register mounts s on a gRPC server.
func Register(reg grpc.ServiceRegistrar, s *Server) {
	reg.RegisterService(&ServiceDesc, grpcServer{s: s})
}
